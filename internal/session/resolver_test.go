package session

import (
	"context"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"smsbridge/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))
}

// memStore is an in-memory SessionStore for resolver tests.
type memStore struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
	creates  int
}

func newMemStore() *memStore {
	return &memStore{sessions: make(map[string]*domain.Session)}
}

func (m *memStore) GetSession(ctx context.Context, phone string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[phone]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, nil
}

func (m *memStore) CreateSession(ctx context.Context, sess domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.creates++
	if _, ok := m.sessions[sess.PhoneNumber]; ok {
		return nil // INSERT OR IGNORE semantics
	}
	sess.CreatedAt = time.Now()
	m.sessions[sess.PhoneNumber] = &sess
	return nil
}

func (m *memStore) TouchSession(ctx context.Context, phone string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[phone]; ok {
		s.LastSeen = time.Now()
	}
	return nil
}

func (m *memStore) RecordInbound(ctx context.Context, phone, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.sessions[phone]; ok {
		s.MessageCount++
	}
	return nil
}

func (m *memStore) CountSessions(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.sessions)), nil
}

func (m *memStore) Close() error { return nil }

func TestResolve_CreatesOnFirstContact(t *testing.T) {
	r := NewResolver(newMemStore(), testLogger())

	sess, err := r.Resolve(context.Background(), "+15551112222")
	if err != nil {
		t.Fatal(err)
	}
	if sess == nil || sess.PhoneNumber != "+15551112222" {
		t.Fatalf("unexpected session: %+v", sess)
	}
}

func TestResolve_RepeatedCallsSameSession(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, testLogger())
	ctx := context.Background()

	first, err := r.Resolve(ctx, "+15551112222")
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		again, err := r.Resolve(ctx, "+15551112222")
		if err != nil {
			t.Fatal(err)
		}
		if again.PhoneNumber != first.PhoneNumber || !again.CreatedAt.Equal(first.CreatedAt) {
			t.Fatalf("resolve returned a different session: %+v vs %+v", again, first)
		}
	}
	if n, _ := store.CountSessions(ctx); n != 1 {
		t.Errorf("expected 1 session, got %d", n)
	}
}

func TestResolve_DistinctNumbersDistinctSessions(t *testing.T) {
	r := NewResolver(newMemStore(), testLogger())
	ctx := context.Background()

	a, err := r.Resolve(ctx, "+15551112222")
	if err != nil {
		t.Fatal(err)
	}
	b, err := r.Resolve(ctx, "+15559998888")
	if err != nil {
		t.Fatal(err)
	}
	if a.PhoneNumber == b.PhoneNumber {
		t.Error("distinct numbers must never share a session")
	}
}

func TestResolve_ConcurrentSameNumber(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(ctx, "+15551112222"); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if n, _ := store.CountSessions(ctx); n != 1 {
		t.Errorf("expected exactly 1 session, got %d", n)
	}
}

func TestResolve_ConcurrentDistinctNumbers(t *testing.T) {
	store := newMemStore()
	r := NewResolver(store, testLogger())
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		phone := "+1555000" + string(rune('0'+i))
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, err := r.Resolve(ctx, phone); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	if n, _ := store.CountSessions(ctx); n != 10 {
		t.Errorf("expected 10 sessions, got %d", n)
	}
}
