package reply

import (
	"context"
	"errors"
	"log/slog"

	"smsbridge/internal/bus"
	"smsbridge/internal/twilio"
)

// Responder consumes recognized events from the intake and sends the
// intent's reply template, when one exists, back to the sender.
type Responder struct {
	intake     *bus.Intake
	dispatcher *Dispatcher
	logger     *slog.Logger
}

func NewResponder(intake *bus.Intake, dispatcher *Dispatcher, logger *slog.Logger) *Responder {
	return &Responder{intake: intake, dispatcher: dispatcher, logger: logger}
}

// Run processes deliveries until the context is cancelled or the intake is
// closed. Send failures are logged and the worker moves on; one bad reply
// must not stall the queue.
func (r *Responder) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case delivery, ok := <-r.intake.Subscribe():
			if !ok {
				return
			}
			ev := delivery.Event
			if ev.Reply == "" {
				r.logger.Debug("no reply template for intent", "intent", ev.Intent)
				continue
			}

			if _, err := r.dispatcher.Reply(ctx, ev, ev.Reply); err != nil {
				if errors.Is(err, twilio.ErrNotConfigured) {
					r.logger.Warn("reply skipped: outbound send disabled", "intent", ev.Intent)
					continue
				}
				r.logger.Error("auto-reply failed", "intent", ev.Intent, "err", err)
			}
		}
	}
}
