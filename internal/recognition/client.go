// Package recognition provides the intent recognition collaborators used by
// the webhook pipeline: an HTTP client for a remote intent engine, and a
// local keyword matcher driven by YAML pattern files.
package recognition

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"smsbridge/internal/domain"
)

// HTTPRecognizer calls a remote intent-recognition service.
type HTTPRecognizer struct {
	endpoint string
	apiKey   string
	client   *http.Client
	logger   *slog.Logger
}

// HTTPConfig configures the remote recognizer.
type HTTPConfig struct {
	Endpoint string
	APIKey   string
	Timeout  time.Duration
	Logger   *slog.Logger
}

func NewHTTPRecognizer(cfg HTTPConfig) *HTTPRecognizer {
	return &HTTPRecognizer{
		endpoint: cfg.Endpoint,
		apiKey:   cfg.APIKey,
		client:   sharedHTTPClient(cfg.Timeout),
		logger:   cfg.Logger,
	}
}

func (r *HTTPRecognizer) Name() string { return "http" }

type recognizeRequest struct {
	Text    string `json:"text"`
	Session string `json:"session"`
}

type recognizeResponse struct {
	Intent     string  `json:"intent"`
	Confidence float64 `json:"confidence"`
	Reply      string  `json:"reply,omitempty"`
}

// Recognize posts the message text and session key to the intent engine and
// returns the recognized event. Transient engine failures are retried here;
// the final error is surfaced unretried to the caller.
func (r *HTTPRecognizer) Recognize(ctx context.Context, text string, sess *domain.Session) (*domain.RecognizedEvent, error) {
	payload, err := json.Marshal(recognizeRequest{Text: text, Session: sess.PhoneNumber})
	if err != nil {
		return nil, fmt.Errorf("marshal: %w", err)
	}

	buildReq := func() (*http.Request, error) {
		req, err := http.NewRequestWithContext(ctx, "POST", r.endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")
		if r.apiKey != "" {
			req.Header.Set("Authorization", "Bearer "+r.apiKey)
		}
		return req, nil
	}

	resp, err := doWithRetry(ctx, r.client, buildReq, r.logger)
	if err != nil {
		return nil, fmt.Errorf("recognition service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("recognition service HTTP %d: %s", resp.StatusCode, string(body))
	}

	var result recognizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode recognition response: %w", err)
	}

	return &domain.RecognizedEvent{
		Intent:     result.Intent,
		Confidence: result.Confidence,
		Text:       text,
		Reply:      result.Reply,
	}, nil
}
