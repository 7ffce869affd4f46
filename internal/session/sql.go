package session

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/m3rciful/formbot/core/logger"
)

// SQLStore keeps sessions in the form_sessions table, one row per product and chat.
type SQLStore struct {
	db      *sqlx.DB
	product string

	getQuery string
	setQuery string
}

// NewSQLStore binds queries to the placeholder style of db's driver.
func NewSQLStore(db *sqlx.DB, product string) *SQLStore {
	return &SQLStore{
		db:       db,
		product:  product,
		getQuery: db.Rebind(`SELECT data FROM form_sessions WHERE product = ? AND chat_id = ?`),
		setQuery: db.Rebind(`INSERT INTO form_sessions (product, chat_id, data, updated_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (product, chat_id) DO UPDATE SET data = excluded.data, updated_at = excluded.updated_at`),
	}
}

// Get implements Store.
func (s *SQLStore) Get(ctx context.Context, chatID int64) (Session, error) {
	var data string
	err := s.db.GetContext(ctx, &data, s.getQuery, s.product, chatID)
	if errors.Is(err, sql.ErrNoRows) {
		return normalize(Session{}), nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("session: select: %w", err)
	}
	var out Session
	if err := json.Unmarshal([]byte(data), &out); err != nil {
		return Session{}, fmt.Errorf("session: decode row %s/%d: %w", s.product, chatID, err)
	}
	return normalize(out), nil
}

// Set implements Store.
func (s *SQLStore) Set(ctx context.Context, chatID int64, sess Session) error {
	raw, err := json.Marshal(normalize(sess))
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	start := time.Now()
	if _, err := s.db.ExecContext(ctx, s.setQuery, s.product, chatID, string(raw), time.Now().UTC()); err != nil {
		return fmt.Errorf("session: upsert: %w", err)
	}
	logger.Debug(ctx, logger.CompSession, "session.save",
		slog.String("backend", s.db.DriverName()),
		slog.Int64("chat_id", chatID),
		slog.Duration("duration", logger.Took(start)),
	)
	return nil
}

// Reset implements Store.
func (s *SQLStore) Reset(ctx context.Context, chatID int64) error {
	return resetVia(ctx, s, chatID)
}
