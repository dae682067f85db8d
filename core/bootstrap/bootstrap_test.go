package bootstrap

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/jmoiron/sqlx"

	coreconfig "github.com/m3rciful/quotebot/core/config"
	coredatabase "github.com/m3rciful/quotebot/core/database"
)

func fakeDB() *sqlx.DB {
	// sql.Open does not dial; Close on an unused pool is safe.
	raw, _ := sql.Open("postgres", "host=invalid")
	return sqlx.NewDb(raw, "postgres")
}

func TestRunOrder(t *testing.T) {
	var calls []string
	res, err := Run(Options{
		Config: &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error {
			calls = append(calls, "logger")
			return nil
		},
		Connect: func(coredatabase.Config) (*sqlx.DB, error) {
			calls = append(calls, "connect")
			return fakeDB(), nil
		},
		Migrate: func(coredatabase.Config) error {
			calls = append(calls, "migrate")
			return nil
		},
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	defer res.Close()
	if len(calls) != 3 || calls[0] != "logger" || calls[1] != "connect" || calls[2] != "migrate" {
		t.Fatalf("unexpected call order: %v", calls)
	}
}

func TestRunMigrationFailure(t *testing.T) {
	boom := errors.New("boom")
	_, err := Run(Options{
		Config:     &coreconfig.Config{},
		LoggerInit: func(*coreconfig.Config) error { return nil },
		Connect:    func(coredatabase.Config) (*sqlx.DB, error) { return fakeDB(), nil },
		Migrate:    func(coredatabase.Config) error { return boom },
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped migration error, got %v", err)
	}
}

func TestRunSkipMigrations(t *testing.T) {
	res, err := Run(Options{
		Config:         &coreconfig.Config{},
		LoggerInit:     func(*coreconfig.Config) error { return nil },
		Connect:        func(coredatabase.Config) (*sqlx.DB, error) { return fakeDB(), nil },
		Migrate:        func(coredatabase.Config) error { t.Fatal("migrate must not run"); return nil },
		SkipMigrations: true,
	})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	_ = res.Close()
}

func TestRunNilConfig(t *testing.T) {
	if _, err := Run(Options{}); err == nil {
		t.Fatal("expected error for nil config")
	}
}
