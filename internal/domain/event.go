package domain

import (
	"context"
	"time"
)

// RecognizedEvent is the structured result of matching inbound text to an
// intent, annotated with the routing record needed to reply to the sender.
type RecognizedEvent struct {
	ID         string    `json:"id"`
	Intent     string    `json:"intent"`
	Confidence float64   `json:"confidence"`
	Text       string    `json:"text"`            // original message text
	Reply      string    `json:"reply,omitempty"` // optional response template
	Routing    Routing   `json:"routing"`
	Timestamp  time.Time `json:"timestamp"`
}

// Recognizer matches message text to an intent in the context of a session.
type Recognizer interface {
	Recognize(ctx context.Context, text string, sess *Session) (*RecognizedEvent, error)
	Name() string
}

// EventSink receives recognized events for downstream processing. Dispatch
// does not return an error: delivery problems are the sink's concern, not the
// webhook handler's.
type EventSink interface {
	Dispatch(ctx context.Context, ev *RecognizedEvent, sess *Session)
}
