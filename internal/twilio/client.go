// Package twilio wraps the subset of the Twilio REST API this bridge uses:
// sending messages and validating account credentials at startup.
package twilio

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"smsbridge/internal/domain"
	"smsbridge/internal/metrics"
)

const defaultAPIBase = "https://api.twilio.com"

// ErrNotConfigured is returned when outbound send is attempted without
// account credentials (degraded mode).
var ErrNotConfigured = errors.New("twilio credentials not configured")

// Client calls the Twilio Messages API. The zero credentialed client is
// valid for inbound-only deployments: Send fails with ErrNotConfigured.
type Client struct {
	accountSID string
	authToken  string
	apiBase    string
	client     *http.Client
	logger     *slog.Logger
}

// ClientConfig configures the Twilio REST client.
type ClientConfig struct {
	AccountSID string
	AuthToken  string
	APIBase    string // override for tests; defaults to api.twilio.com
	Logger     *slog.Logger
}

func NewClient(cfg ClientConfig) *Client {
	if cfg.APIBase == "" {
		cfg.APIBase = defaultAPIBase
	}
	return &Client{
		accountSID: cfg.AccountSID,
		authToken:  cfg.AuthToken,
		apiBase:    cfg.APIBase,
		client:     &http.Client{Timeout: 30 * time.Second},
		logger:     cfg.Logger,
	}
}

// Configured reports whether the client holds account credentials.
func (c *Client) Configured() bool {
	return c.accountSID != "" && c.authToken != ""
}

// CheckCredentials fetches the account resource to verify the SID/token pair
// before the bridge starts accepting traffic.
func (c *Client) CheckCredentials(ctx context.Context) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s.json", c.apiBase, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, "GET", endpoint, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("twilio account lookup: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		return fmt.Errorf("twilio rejected account credentials (HTTP 401)")
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("twilio account lookup HTTP %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

// Send posts an outbound message to the Twilio Messages API and returns the
// provider receipt. MediaURL, when set, turns the message into an MMS.
func (c *Client) Send(ctx context.Context, msg domain.OutboundMessage) (*domain.MessageReceipt, error) {
	if !c.Configured() {
		return nil, ErrNotConfigured
	}

	form := url.Values{}
	form.Set("From", msg.From)
	form.Set("To", msg.To)
	form.Set("Body", msg.Body)
	if msg.MediaURL != "" {
		form.Set("MediaUrl", msg.MediaURL)
	}

	endpoint := fmt.Sprintf("%s/2010-04-01/Accounts/%s/Messages.json", c.apiBase, c.accountSID)
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(c.accountSID, c.authToken)

	resp, err := c.client.Do(req)
	if err != nil {
		metrics.OutboundFailed.Inc()
		return nil, fmt.Errorf("twilio send: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		metrics.OutboundFailed.Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, fmt.Errorf("twilio API %d: %s", resp.StatusCode, string(body))
	}

	var created struct {
		SID         string `json:"sid"`
		Status      string `json:"status"`
		DateCreated string `json:"date_created"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return nil, fmt.Errorf("decode twilio response: %w", err)
	}

	receipt := &domain.MessageReceipt{SID: created.SID, Status: created.Status}
	if t, err := time.Parse(time.RFC1123Z, created.DateCreated); err == nil {
		receipt.Created = t
	}

	metrics.OutboundSent.Inc()
	c.logger.Info("message sent",
		"sid", receipt.SID,
		"to", msg.To,
		"from", msg.From,
		"media", msg.MediaURL != "",
	)
	return receipt, nil
}
