package session

import (
	"context"
	"log/slog"
	"sync"

	"smsbridge/internal/domain"
)

// Resolver maps phone numbers to conversation sessions. Concurrent inbound
// messages from the same number resolve to a single session: lookups take the
// read-lock fast path, creation double-checks under the write lock.
type Resolver struct {
	store  domain.SessionStore
	logger *slog.Logger
	mu     sync.RWMutex
}

func NewResolver(store domain.SessionStore, logger *slog.Logger) *Resolver {
	return &Resolver{store: store, logger: logger}
}

// Resolve returns the session for phoneNumber, creating it on first contact.
// An existing session is returned with its state intact (only last_seen is
// refreshed).
func (r *Resolver) Resolve(ctx context.Context, phoneNumber string) (*domain.Session, error) {
	// Fast path: read lock (most calls hit here)
	r.mu.RLock()
	sess, err := r.store.GetSession(ctx, phoneNumber)
	r.mu.RUnlock()
	if err != nil {
		return nil, err
	}
	if sess != nil {
		if err := r.store.TouchSession(ctx, phoneNumber); err != nil {
			r.logger.Warn("cannot touch session", "phone", phoneNumber, "err", err)
		}
		return sess, nil
	}

	// Slow path: write lock, double-check
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, err = r.store.GetSession(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}
	if sess != nil {
		return sess, nil
	}

	newSess := domain.Session{PhoneNumber: phoneNumber}
	if err := r.store.CreateSession(ctx, newSess); err != nil {
		return nil, err
	}
	sess, err = r.store.GetSession(ctx, phoneNumber)
	if err != nil {
		return nil, err
	}

	r.logger.Info("created new session", "phone", phoneNumber)
	return sess, nil
}

// RecordInbound appends an inbound message to the session's log.
func (r *Resolver) RecordInbound(ctx context.Context, phoneNumber, body string) error {
	return r.store.RecordInbound(ctx, phoneNumber, body)
}
