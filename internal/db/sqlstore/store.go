// Package sqlstore implements db.ListingStore over database/sql for
// PostgreSQL and SQLite.
package sqlstore

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/pressly/goose/v3"

	"github.com/kailas-cloud/agentmart/internal/db"
)

// Compile-time check: Store implements db.ListingStore.
var _ db.ListingStore = (*Store)(nil)

//go:embed migrations
var migrations embed.FS

// Config holds connection parameters for a SQL store.
type Config struct {
	Driver       string
	DSN          string
	MaxOpenConns int
	Migrate      bool
}

// Store implements db.ListingStore over database/sql.
type Store struct {
	db *sql.DB
	d  dialect
}

// Open connects to the database and optionally applies migrations.
func Open(ctx context.Context, cfg Config) (*Store, error) {
	d, err := dialectFor(cfg.Driver)
	if err != nil {
		return nil, err
	}
	if cfg.DSN == "" {
		return nil, errors.New("dsn is required")
	}

	conn, err := sql.Open(d.driverName(), cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}
	if cfg.MaxOpenConns > 0 {
		conn.SetMaxOpenConns(cfg.MaxOpenConns)
	}

	s := &Store{db: conn, d: d}
	if cfg.Migrate {
		if err := s.Migrate(ctx); err != nil {
			_ = conn.Close()
			return nil, err
		}
	}
	return s, nil
}

// New wraps an existing connection pool.
func New(conn *sql.DB, driverName string) (*Store, error) {
	d, err := dialectFor(driverName)
	if err != nil {
		return nil, err
	}
	return &Store{db: conn, d: d}, nil
}

// Migrate applies every pending embedded migration for the store's dialect.
func (s *Store) Migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, s.d.migrationsDir())
	if err != nil {
		return fmt.Errorf("migrations fs: %w", err)
	}
	provider, err := goose.NewProvider(s.d.gooseDialect(), s.db, fsys)
	if err != nil {
		return fmt.Errorf("goose provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	return nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.db.PingContext(ctx); err != nil {
		return s.d.classify(db.OpPing, err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() {
	_ = s.db.Close()
}

// WaitForReady polls Ping until the database responds or timeout expires.
func (s *Store) WaitForReady(ctx context.Context, timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		if err := s.Ping(ctx); err == nil {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("timeout waiting for database: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}
