package session

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	coredatabase "github.com/m3rciful/formbot/core/database"
	"github.com/m3rciful/formbot/core/logger"
)

// DriverFile keeps sessions as JSON files; the SQL drivers come from core/database.
const DriverFile = "file"

// Config selects and tunes the session backend.
type Config struct {
	Driver string `yaml:"driver" envconfig:"STORAGE_DRIVER"`
	// Dir holds session files for the file driver.
	Dir string `yaml:"dir" envconfig:"SESSIONS_DIR"`
	// CacheCapacity bounds the in-memory cache; a negative value disables it.
	CacheCapacity   int  `yaml:"cache_capacity" envconfig:"SESSION_CACHE_CAPACITY"`
	CacheTTLSeconds int  `yaml:"cache_ttl_seconds" envconfig:"SESSION_CACHE_TTL_SECONDS"`
	AutoMigrate     bool `yaml:"auto_migrate" envconfig:"STORAGE_AUTO_MIGRATE"`

	Database coredatabase.Config `yaml:"database"`
}

// Normalize fills defaults and copies the SQL driver into Database.
func (c *Config) Normalize() error {
	c.Driver = strings.ToLower(strings.TrimSpace(c.Driver))
	if c.Driver == "" {
		c.Driver = DriverFile
	}
	if c.CacheCapacity == 0 {
		c.CacheCapacity = 1000
	}
	if c.CacheTTLSeconds <= 0 {
		c.CacheTTLSeconds = 3600
	}
	switch c.Driver {
	case DriverFile:
		if strings.TrimSpace(c.Dir) == "" {
			c.Dir = "data/sessions"
		}
		return nil
	case coredatabase.DriverSQLite, coredatabase.DriverPostgres:
		c.Database.Driver = c.Driver
		return c.Database.Normalize()
	default:
		return fmt.Errorf("%w: %q; allowed: file, sqlite, postgres", ErrUnsupportedDriver, c.Driver)
	}
}

// UsesSQL reports whether the backend needs a database connection.
func (c Config) UsesSQL() bool {
	return c.Driver == coredatabase.DriverSQLite || c.Driver == coredatabase.DriverPostgres
}

// Open builds the configured backend for product. db is required for SQL drivers.
func Open(ctx context.Context, cfg Config, product string, db *sqlx.DB) (Store, error) {
	if err := cfg.Normalize(); err != nil {
		return nil, err
	}
	var (
		st  Store
		err error
	)
	switch {
	case cfg.Driver == DriverFile:
		st, err = NewFileStore(cfg.Dir, product)
		if err != nil {
			return nil, err
		}
	case cfg.UsesSQL():
		if db == nil {
			return nil, fmt.Errorf("session: %s driver needs a database connection", cfg.Driver)
		}
		st = NewSQLStore(db, product)
	}

	cached := cfg.CacheCapacity > 0
	if cached {
		st, err = NewCached(st, cfg.CacheCapacity, time.Duration(cfg.CacheTTLSeconds)*time.Second)
		if err != nil {
			return nil, err
		}
	}
	logger.Info(ctx, logger.CompSession, "session.open",
		slog.String("driver", cfg.Driver),
		slog.String("product", product),
		slog.Bool("cached", cached),
	)
	return st, nil
}
