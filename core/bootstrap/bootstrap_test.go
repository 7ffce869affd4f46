package bootstrap

import (
	"context"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/formbot/core/config"
	coredatabase "github.com/m3rciful/formbot/core/database"
)

func noLogger(*coreconfig.Config) error { return nil }

func TestRunWithoutDatabaseRunsSeeders(t *testing.T) {
	var seeded bool
	res, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			t.Fatal("connect must not be called without a database config")
			return nil, nil
		},
		Modules: Modules{Seeders: []Seeder{SeederFunc(func(_ context.Context, infra *Result) error {
			seeded = infra != nil && infra.DB == nil
			return nil
		})}},
	})
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if !seeded {
		t.Fatal("seeder not called with empty infra")
	}
	if err := res.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}

func TestRunPropagatesFailures(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		LoggerInit: noLogger,
		Modules:    Modules{Seeders: []Seeder{SeederFunc(func(context.Context, *Result) error { return boom })}},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}

	_, err = Run(context.Background(), Options{
		Config:     &coreconfig.Config{},
		Database:   &coredatabase.Config{Driver: coredatabase.DriverSQLite},
		LoggerInit: noLogger,
		Connect: func(context.Context, coredatabase.Config) (*sqlx.DB, error) {
			return nil, boom
		},
	})
	if !errors.Is(err, boom) {
		t.Fatalf("connect err = %v", err)
	}

	if _, err := Run(context.Background(), Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
