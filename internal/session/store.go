package session

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"smsbridge/internal/domain"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements domain.SessionStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

func NewSQLiteStore(dbPath string, logger *slog.Logger) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("cannot create database directory %s: %w", dir, err)
	}

	db, err := sql.Open("sqlite", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("cannot open database: %w", err)
	}

	// Single connection for SQLite
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	store := &SQLiteStore{db: db, logger: logger}

	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("database migration failed: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		phone_number  TEXT PRIMARY KEY,
		created_at    DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_seen     DATETIME DEFAULT CURRENT_TIMESTAMP,
		message_count INTEGER DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS inbound_messages (
		id           INTEGER PRIMARY KEY AUTOINCREMENT,
		phone_number TEXT NOT NULL REFERENCES sessions(phone_number) ON DELETE CASCADE,
		body         TEXT NOT NULL,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP
	);
	CREATE INDEX IF NOT EXISTS idx_inbound_phone ON inbound_messages(phone_number, created_at);
	`

	_, err := s.db.Exec(schema)
	return err
}

func (s *SQLiteStore) GetSession(ctx context.Context, phoneNumber string) (*domain.Session, error) {
	var sess domain.Session
	err := s.db.QueryRowContext(ctx,
		`SELECT phone_number, created_at, last_seen, message_count FROM sessions WHERE phone_number = ?`,
		phoneNumber,
	).Scan(&sess.PhoneNumber, &sess.CreatedAt, &sess.LastSeen, &sess.MessageCount)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &sess, nil
}

func (s *SQLiteStore) CreateSession(ctx context.Context, sess domain.Session) error {
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	if sess.LastSeen.IsZero() {
		sess.LastSeen = now
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO sessions (phone_number, created_at, last_seen, message_count)
		 VALUES (?, ?, ?, ?)`,
		sess.PhoneNumber, sess.CreatedAt, sess.LastSeen, sess.MessageCount,
	)
	return err
}

func (s *SQLiteStore) TouchSession(ctx context.Context, phoneNumber string) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE sessions SET last_seen = ? WHERE phone_number = ?`,
		time.Now(), phoneNumber,
	)
	return err
}

func (s *SQLiteStore) RecordInbound(ctx context.Context, phoneNumber, body string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO inbound_messages (phone_number, body) VALUES (?, ?)`,
		phoneNumber, body,
	); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE sessions SET message_count = message_count + 1 WHERE phone_number = ?`,
		phoneNumber,
	); err != nil {
		return err
	}
	return tx.Commit()
}

func (s *SQLiteStore) CountSessions(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sessions`).Scan(&n)
	return n, err
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
