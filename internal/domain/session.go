package domain

import (
	"context"
	"time"
)

// Session is the per-phone-number conversation state. One session exists per
// unique user number; it is created on first contact and reused afterwards.
type Session struct {
	PhoneNumber  string    `json:"phone_number"`
	CreatedAt    time.Time `json:"created_at"`
	LastSeen     time.Time `json:"last_seen"`
	MessageCount int64     `json:"message_count"`
}

// SessionStore handles persistent storage of conversation sessions and the
// inbound message log.
type SessionStore interface {
	GetSession(ctx context.Context, phoneNumber string) (*Session, error)
	CreateSession(ctx context.Context, sess Session) error
	TouchSession(ctx context.Context, phoneNumber string) error
	RecordInbound(ctx context.Context, phoneNumber, body string) error
	CountSessions(ctx context.Context) (int64, error)
	Close() error
}
