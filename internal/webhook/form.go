package webhook

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// formContentType is the only media type Twilio uses for message webhooks.
const formContentType = "application/x-www-form-urlencoded"

var (
	// ErrUnsupportedContentType is returned when the declared content type is
	// not the form-urlencoded type Twilio sends.
	ErrUnsupportedContentType = errors.New("unsupported content type")

	// ErrMalformedPayload is returned when the request body is not a valid
	// urlencoded form.
	ErrMalformedPayload = errors.New("malformed form payload")
)

// AcceptContentType reports whether the declared content type carries a
// form-urlencoded body. The media type is compared case-insensitively with
// parameters (e.g. "; charset=UTF-8") stripped.
func AcceptContentType(contentType string) bool {
	mediaType := contentType
	if idx := strings.IndexByte(mediaType, ';'); idx >= 0 {
		mediaType = mediaType[:idx]
	}
	mediaType = strings.TrimSpace(mediaType)
	return strings.EqualFold(mediaType, formContentType)
}

// DecodeForm decodes a urlencoded body ("k1=v1&k2=v2") into a key/value map.
// Keys and values are percent-decoded only: "%2B" becomes "+", a literal "+"
// stays a plus sign, matching what Twilio actually sends for phone numbers.
// Values may contain "=": each segment is split at the first occurrence.
// A segment without "=" fails the whole decode; no partial map is returned.
// The last occurrence of a duplicate key wins.
func DecodeForm(raw string) (map[string]string, error) {
	fields := make(map[string]string)
	for _, segment := range strings.Split(raw, "&") {
		if segment == "" {
			continue
		}
		key, value, found := strings.Cut(segment, "=")
		if !found {
			return nil, fmt.Errorf("%w: segment %q has no separator", ErrMalformedPayload, truncate(segment, 40))
		}
		decodedKey, err := url.PathUnescape(key)
		if err != nil {
			return nil, fmt.Errorf("%w: bad key encoding: %v", ErrMalformedPayload, err)
		}
		decodedValue, err := url.PathUnescape(value)
		if err != nil {
			return nil, fmt.Errorf("%w: bad value encoding in %q: %v", ErrMalformedPayload, truncate(key, 40), err)
		}
		fields[decodedKey] = decodedValue
	}
	return fields, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "..."
}
