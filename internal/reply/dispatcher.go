// Package reply routes outbound responses back to the sender of the inbound
// message that triggered a recognized event.
package reply

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"smsbridge/internal/domain"
)

var (
	// ErrNoUserNumber is returned when the triggering event carries no
	// sender number, i.e. a reply is attempted outside an inbound context.
	ErrNoUserNumber = errors.New("no user number in event routing")

	// ErrNoProviderNumber is returned when the triggering event carries no
	// provider-owned number to send from.
	ErrNoProviderNumber = errors.New("no provider number in event routing")
)

// Dispatcher composes outbound messages from event routing metadata and
// sends them through the provider. Send failures surface to the caller; no
// retry happens here.
type Dispatcher struct {
	sender domain.MessageSender
	logger *slog.Logger
}

func NewDispatcher(sender domain.MessageSender, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{sender: sender, logger: logger}
}

// Reply sends message to the user who triggered ev, from the provider
// number they originally wrote to.
func (d *Dispatcher) Reply(ctx context.Context, ev *domain.RecognizedEvent, message string) (*domain.MessageReceipt, error) {
	return d.send(ctx, ev, message, "")
}

// ReplyMedia behaves like Reply with a media attachment.
func (d *Dispatcher) ReplyMedia(ctx context.Context, ev *domain.RecognizedEvent, message, mediaURL string) (*domain.MessageReceipt, error) {
	return d.send(ctx, ev, message, mediaURL)
}

func (d *Dispatcher) send(ctx context.Context, ev *domain.RecognizedEvent, message, mediaURL string) (*domain.MessageReceipt, error) {
	routing := ev.Routing
	if routing.UserNumber == "" {
		return nil, ErrNoUserNumber
	}
	if routing.ProviderNumber == "" {
		return nil, ErrNoProviderNumber
	}

	receipt, err := d.sender.Send(ctx, domain.OutboundMessage{
		From:     routing.ProviderNumber,
		To:       routing.UserNumber,
		Body:     message,
		MediaURL: mediaURL,
	})
	if err != nil {
		d.logger.Error("reply send failed",
			"to", routing.UserNumber,
			"from", routing.ProviderNumber,
			"intent", ev.Intent,
			"err", err,
		)
		return nil, fmt.Errorf("reply to %s: %w", routing.UserNumber, err)
	}
	return receipt, nil
}
