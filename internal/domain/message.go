package domain

import (
	"context"
	"time"
)

// OutboundMessage is a single SMS/MMS to be sent through the provider.
// From must be a provider-owned number, To the destination user number.
type OutboundMessage struct {
	From     string
	To       string
	Body     string
	MediaURL string // optional MMS attachment
}

// MessageReceipt is the provider's acknowledgment of an accepted message.
type MessageReceipt struct {
	SID     string    `json:"sid"`
	Status  string    `json:"status"`
	Created time.Time `json:"created"`
}

// MessageSender sends outbound messages through the provider API.
type MessageSender interface {
	Send(ctx context.Context, msg OutboundMessage) (*MessageReceipt, error)
}
