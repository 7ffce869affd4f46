package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/google/uuid"

	"github.com/m3rciful/formbot/core/logger"
)

// FileStore keeps one JSON document per chat under dir.
type FileStore struct {
	dir     string
	product string
}

// NewFileStore creates dir when missing.
func NewFileStore(dir, product string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("session: create dir: %w", err)
	}
	return &FileStore{dir: dir, product: product}, nil
}

func (f *FileStore) path(chatID int64) string {
	return filepath.Join(f.dir, f.product+"_"+strconv.FormatInt(chatID, 10)+".json")
}

// Get implements Store.
func (f *FileStore) Get(_ context.Context, chatID int64) (Session, error) {
	raw, err := os.ReadFile(f.path(chatID))
	if errors.Is(err, os.ErrNotExist) {
		return normalize(Session{}), nil
	}
	if err != nil {
		return Session{}, fmt.Errorf("session: read: %w", err)
	}
	var s Session
	if err := json.Unmarshal(raw, &s); err != nil {
		return Session{}, fmt.Errorf("session: decode %s: %w", f.path(chatID), err)
	}
	return normalize(s), nil
}

// Set implements Store. The document is written to a temp file and renamed.
func (f *FileStore) Set(ctx context.Context, chatID int64, s Session) error {
	raw, err := json.Marshal(normalize(s))
	if err != nil {
		return fmt.Errorf("session: encode: %w", err)
	}
	tmp := filepath.Join(f.dir, "."+uuid.NewString()+".tmp")
	if err := os.WriteFile(tmp, raw, 0o644); err != nil {
		return fmt.Errorf("session: write: %w", err)
	}
	if err := os.Rename(tmp, f.path(chatID)); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("session: replace: %w", err)
	}
	logger.Debug(ctx, logger.CompSession, "session.save",
		slog.String("backend", "file"),
		slog.Int64("chat_id", chatID),
		slog.Int("fields", len(s.Fields)),
	)
	return nil
}

// Reset implements Store.
func (f *FileStore) Reset(ctx context.Context, chatID int64) error {
	return resetVia(ctx, f, chatID)
}
