// Package bus is the in-process event intake: the webhook provider
// dispatches recognized events into it, downstream workers subscribe.
package bus

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"smsbridge/internal/domain"
)

const dispatchTimeout = 10 * time.Second

// Delivery pairs a recognized event with the session it belongs to.
type Delivery struct {
	Event   *domain.RecognizedEvent
	Session *domain.Session
}

// Intake is a Go-channel based implementation of domain.EventSink.
type Intake struct {
	events chan Delivery
	mu     sync.RWMutex
	closed bool
	logger *slog.Logger
}

// New creates an Intake with the given buffer size.
func New(bufferSize int, logger *slog.Logger) *Intake {
	if bufferSize <= 0 {
		bufferSize = 100
	}
	return &Intake{
		events: make(chan Delivery, bufferSize),
		logger: logger,
	}
}

// Dispatch enqueues the event for downstream consumers. Blocks up to 10
// seconds if the intake is full instead of dropping.
func (b *Intake) Dispatch(ctx context.Context, ev *domain.RecognizedEvent, sess *domain.Session) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		b.logger.Warn("attempted to dispatch to closed intake", "intent", ev.Intent)
		return
	}

	delivery := Delivery{Event: ev, Session: sess}
	select {
	case b.events <- delivery:
	default:
		// Intake full — wait with timeout instead of dropping
		b.logger.Warn("event intake full, waiting...", "intent", ev.Intent, "from", ev.Routing.UserNumber)
		timer := time.NewTimer(dispatchTimeout)
		defer timer.Stop()
		select {
		case b.events <- delivery:
			b.logger.Info("event delivered after wait", "intent", ev.Intent)
		case <-timer.C:
			b.logger.Error("event dropped: intake full for 10s",
				"intent", ev.Intent,
				"from", ev.Routing.UserNumber,
			)
		case <-ctx.Done():
			b.logger.Warn("event dropped: request cancelled", "intent", ev.Intent)
		}
	}
}

// Subscribe returns the delivery channel for downstream workers.
func (b *Intake) Subscribe() <-chan Delivery {
	return b.events
}

// Close shuts the intake; further dispatches are dropped with a warning.
func (b *Intake) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()

	if !b.closed {
		b.closed = true
		close(b.events)
	}
}
