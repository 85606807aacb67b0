package webhook

import (
	"errors"
	"testing"
)

func TestAcceptContentType_Exact(t *testing.T) {
	if !AcceptContentType("application/x-www-form-urlencoded") {
		t.Error("exact media type should be accepted")
	}
}

func TestAcceptContentType_WithCharset(t *testing.T) {
	if !AcceptContentType("application/x-www-form-urlencoded; charset=UTF-8") {
		t.Error("media type with charset parameter should be accepted")
	}
}

func TestAcceptContentType_CaseInsensitive(t *testing.T) {
	if !AcceptContentType("Application/X-WWW-Form-Urlencoded") {
		t.Error("media type comparison should ignore case")
	}
}

func TestAcceptContentType_Rejected(t *testing.T) {
	for _, ct := range []string{"text/plain", "application/json", "", "multipart/form-data"} {
		if AcceptContentType(ct) {
			t.Errorf("%q should be rejected", ct)
		}
	}
}

func TestDecodeForm_PercentDecoding(t *testing.T) {
	fields, err := DecodeForm("Body=Hello&From=%2B15551112222&To=%2B15559998888")
	if err != nil {
		t.Fatal(err)
	}
	if fields["Body"] != "Hello" {
		t.Errorf("Body = %q, want Hello", fields["Body"])
	}
	if fields["From"] != "+15551112222" {
		t.Errorf("From = %q, want +15551112222", fields["From"])
	}
	if fields["To"] != "+15559998888" {
		t.Errorf("To = %q, want +15559998888", fields["To"])
	}
}

func TestDecodeForm_PlusIsLiteral(t *testing.T) {
	// Percent decoding only: "+" must not become a space.
	fields, err := DecodeForm("Body=a+b&From=%2B1")
	if err != nil {
		t.Fatal(err)
	}
	if fields["Body"] != "a+b" {
		t.Errorf("Body = %q, want a+b", fields["Body"])
	}
	if fields["From"] != "+1" {
		t.Errorf("From = %q, want +1", fields["From"])
	}
}

func TestDecodeForm_SpaceAndUTF8(t *testing.T) {
	fields, err := DecodeForm("Body=hello%20world%20%C3%A9")
	if err != nil {
		t.Fatal(err)
	}
	if fields["Body"] != "hello world é" {
		t.Errorf("Body = %q", fields["Body"])
	}
}

func TestDecodeForm_ValueContainsEquals(t *testing.T) {
	// Split at the first "=" only.
	fields, err := DecodeForm("Body=a=b=c")
	if err != nil {
		t.Fatal(err)
	}
	if fields["Body"] != "a=b=c" {
		t.Errorf("Body = %q, want a=b=c", fields["Body"])
	}
}

func TestDecodeForm_DuplicateKeyLastWins(t *testing.T) {
	fields, err := DecodeForm("Body=first&Body=second")
	if err != nil {
		t.Fatal(err)
	}
	if fields["Body"] != "second" {
		t.Errorf("Body = %q, want second", fields["Body"])
	}
}

func TestDecodeForm_MissingSeparator(t *testing.T) {
	_, err := DecodeForm("Body=Hello&garbage")
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestDecodeForm_BadPercentEncoding(t *testing.T) {
	_, err := DecodeForm("Body=%ZZ")
	if !errors.Is(err, ErrMalformedPayload) {
		t.Errorf("expected ErrMalformedPayload, got %v", err)
	}
}

func TestDecodeForm_EmptyBody(t *testing.T) {
	fields, err := DecodeForm("")
	if err != nil {
		t.Fatal(err)
	}
	if len(fields) != 0 {
		t.Errorf("expected empty map, got %v", fields)
	}
}

func TestDecodeForm_EmptyValueKept(t *testing.T) {
	fields, err := DecodeForm("Body=&From=x")
	if err != nil {
		t.Fatal(err)
	}
	if v, ok := fields["Body"]; !ok || v != "" {
		t.Errorf("Body = %q ok=%v, want empty string present", v, ok)
	}
}
