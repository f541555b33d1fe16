// Package pgstore is the PostgreSQL client for the replicated session store.
// It owns the connection pool and the exact query shapes used to mirror
// primary-store rows: idempotent upserts keyed on the primary store's own
// ids, bulk log appends over a fixed column list, and the monthly partition
// DDL for session_logs.
package pgstore

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// ErrNotConnected is returned by every operation while the pool has not been
// established or has been torn down. Callers treat it as a readiness signal,
// not a retryable operation failure.
var ErrNotConnected = errors.New("pgstore: pool is not connected")

// Config holds the resolved connection parameters for the secondary store.
type Config struct {
	// URL is the postgres connection string.
	URL string
	// PoolMinSize and PoolMaxSize bound the connection pool.
	PoolMinSize int
	PoolMaxSize int
	// StatementTimeout, when non-zero, is applied per connection as the
	// session statement_timeout.
	StatementTimeout time.Duration
}

// Store executes typed operations against the secondary PostgreSQL store
// over a shared connection pool. All methods are safe for concurrent use.
type Store struct {
	cfg Config
	log zerolog.Logger

	mu   sync.RWMutex
	pool *pgxpool.Pool
}

// New creates a Store. The pool is not established until Connect is called.
func New(cfg Config, log zerolog.Logger) *Store {
	return &Store{cfg: cfg, log: log}
}

// Connect establishes the connection pool. It is idempotent against repeated
// calls.
func (s *Store) Connect(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool != nil {
		return nil
	}

	pc, err := pgxpool.ParseConfig(s.cfg.URL)
	if err != nil {
		return fmt.Errorf("parse postgres url: %w", err)
	}
	if s.cfg.PoolMinSize > 0 {
		pc.MinConns = int32(s.cfg.PoolMinSize)
	}
	if s.cfg.PoolMaxSize > 0 {
		pc.MaxConns = int32(s.cfg.PoolMaxSize)
	}
	if s.cfg.StatementTimeout > 0 {
		ms := s.cfg.StatementTimeout.Milliseconds()
		pc.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
			_, err := conn.Exec(ctx, fmt.Sprintf("SET SESSION statement_timeout = %d", ms))
			return err
		}
	}

	s.log.Info().
		Int("min", s.cfg.PoolMinSize).
		Int("max", s.cfg.PoolMaxSize).
		Msg("Creating PostgreSQL pool")
	pool, err := pgxpool.NewWithConfig(ctx, pc)
	if err != nil {
		return fmt.Errorf("create postgres pool: %w", err)
	}
	s.pool = pool
	return nil
}

// Close tears down the pool. Safe to call when never connected.
func (s *Store) Close(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pool == nil {
		return nil
	}
	s.pool.Close()
	s.pool = nil
	s.log.Info().Msg("Closed PostgreSQL pool")
	return nil
}

// Connected reports whether the pool is currently established.
func (s *Store) Connected() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.pool != nil
}

func (s *Store) getPool() (*pgxpool.Pool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.pool == nil {
		return nil, ErrNotConnected
	}
	return s.pool, nil
}
