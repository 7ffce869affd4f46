package session

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/maypok86/otter"

	"github.com/m3rciful/formbot/core/logger"
)

// Cached keeps recently used sessions in memory in front of a durable Store.
// Writes go through to the inner store before the cache is updated.
type Cached struct {
	inner Store
	cache otter.Cache[int64, Session]
}

// NewCached wraps inner with a bounded cache whose entries expire after ttl.
func NewCached(inner Store, capacity int, ttl time.Duration) (*Cached, error) {
	c, err := otter.MustBuilder[int64, Session](capacity).WithTTL(ttl).Build()
	if err != nil {
		return nil, fmt.Errorf("session: build cache with capacity %d: %w", capacity, err)
	}
	return &Cached{inner: inner, cache: c}, nil
}

// Get implements Store.
func (c *Cached) Get(ctx context.Context, chatID int64) (Session, error) {
	if s, ok := c.cache.Get(chatID); ok {
		return s.Clone(), nil
	}
	logger.Debug(ctx, logger.CompSession, "session.cache.miss", slog.Int64("chat_id", chatID))
	s, err := c.inner.Get(ctx, chatID)
	if err != nil {
		return Session{}, err
	}
	c.cache.Set(chatID, s.Clone())
	return s, nil
}

// Set implements Store.
func (c *Cached) Set(ctx context.Context, chatID int64, s Session) error {
	if err := c.inner.Set(ctx, chatID, s); err != nil {
		c.cache.Delete(chatID)
		return err
	}
	c.cache.Set(chatID, normalize(s.Clone()))
	return nil
}

// Reset implements Store.
func (c *Cached) Reset(ctx context.Context, chatID int64) error {
	return resetVia(ctx, c, chatID)
}

// Close stops the cache's background goroutines.
func (c *Cached) Close() {
	c.cache.Close()
}
