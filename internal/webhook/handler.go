package webhook

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"smsbridge/internal/domain"
	"smsbridge/internal/metrics"
)

// Twilio form fields required to correlate an inbound message.
const (
	fieldBody = "Body"
	fieldFrom = "From"
	fieldTo   = "To"
)

var (
	// ErrMissingField is returned when a required form field is absent or empty.
	ErrMissingField = errors.New("missing required field")

	// ErrRecognition wraps failures from the intent recognition collaborator.
	ErrRecognition = errors.New("intent recognition failed")
)

// SessionResolver maps a phone number to its conversation session, creating
// one on first contact, and keeps the per-session message log.
type SessionResolver interface {
	Resolve(ctx context.Context, phoneNumber string) (*domain.Session, error)
	RecordInbound(ctx context.Context, phoneNumber, body string) error
}

// Handler processes inbound Twilio message webhooks: it gates on content
// type, decodes the form body, resolves the sender's session, runs intent
// recognition and dispatches the tagged event downstream.
type Handler struct {
	sessions   SessionResolver
	recognizer domain.Recognizer
	sink       domain.EventSink
	logger     *slog.Logger
}

// HandlerConfig wires the handler's collaborators.
type HandlerConfig struct {
	Sessions   SessionResolver
	Recognizer domain.Recognizer
	Sink       domain.EventSink
	Logger     *slog.Logger
}

func NewHandler(cfg HandlerConfig) *Handler {
	return &Handler{
		sessions:   cfg.Sessions,
		recognizer: cfg.Recognizer,
		sink:       cfg.Sink,
		logger:     cfg.Logger,
	}
}

// Handle runs the full inbound pipeline for one webhook call and returns the
// decoded payload for the response body. Error values map onto the HTTP
// boundary: ErrUnsupportedContentType and ErrMalformedPayload/ErrMissingField
// are client errors, ErrRecognition is an internal one.
func (h *Handler) Handle(ctx context.Context, contentType, rawBody string) (map[string]string, error) {
	if !AcceptContentType(contentType) {
		metrics.InboundRejected.Inc()
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedContentType, contentType)
	}

	fields, err := DecodeForm(rawBody)
	if err != nil {
		metrics.InboundMalformed.Inc()
		return nil, err
	}

	body, from, to, err := requiredFields(fields)
	if err != nil {
		metrics.InboundMalformed.Inc()
		return nil, err
	}

	sess, err := h.sessions.Resolve(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("resolve session for %s: %w", from, err)
	}
	if err := h.sessions.RecordInbound(ctx, from, body); err != nil {
		h.logger.Warn("cannot record inbound message", "from", from, "err", err)
	}

	start := time.Now()
	ev, err := h.recognizer.Recognize(ctx, body, sess)
	metrics.RecognitionLatency.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RecognitionFailures.Inc()
		// The session is not rolled back: the conversation exists even if
		// this message could not be understood.
		h.logger.Error("recognition failed",
			"recognizer", h.recognizer.Name(),
			"from", from,
			"text", truncate(body, 80),
			"err", err,
		)
		return nil, fmt.Errorf("%w: %v", ErrRecognition, err)
	}

	if ev.ID == "" {
		ev.ID = uuid.NewString()
	}
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now()
	}
	ev.Routing = domain.Routing{UserNumber: from, ProviderNumber: to}

	h.logger.Info("inbound message recognized",
		"intent", ev.Intent,
		"from", from,
		"to", to,
		"text_len", len(body),
	)

	h.sink.Dispatch(ctx, ev, sess)
	metrics.InboundDispatched.Inc()

	return fields, nil
}

// requiredFields extracts Body, From and To, all of which must be present
// and non-empty for the message to be routable.
func requiredFields(fields map[string]string) (body, from, to string, err error) {
	for _, name := range []string{fieldBody, fieldFrom, fieldTo} {
		if fields[name] == "" {
			return "", "", "", fmt.Errorf("%w: %s", ErrMissingField, name)
		}
	}
	return fields[fieldBody], fields[fieldFrom], fields[fieldTo], nil
}
