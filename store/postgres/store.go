// Package postgres implements strategy.Store on PostgreSQL via the Bun
// ORM. Slot acquisition serializes per throttling key with a
// transaction-scoped advisory lock; window increments are a single
// upsert. Expired rows are pruned opportunistically and by the Janitor.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/uptrace/bun"

	"github.com/xraph/throttle/strategy"
)

// Compile-time interface check.
var _ strategy.Store = (*Store)(nil)

// Option configures the Store.
type Option func(*Store)

// WithLogger sets the logger for the store.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Store implements strategy.Store backed by PostgreSQL.
// The caller owns the *bun.DB lifecycle; Store never closes it.
type Store struct {
	db     *bun.DB
	logger *slog.Logger
}

// New creates a Postgres-backed store.
func New(db *bun.DB, opts ...Option) *Store {
	s := &Store{db: db, logger: slog.Default()}
	for _, o := range opts {
		o(s)
	}
	return s
}

// DB returns the underlying *bun.DB for advanced usage.
func (s *Store) DB() *bun.DB { return s.db }

// Migrate creates the throttle tables if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS throttle_slots (
			key        TEXT        NOT NULL,
			jid        TEXT        NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL,
			PRIMARY KEY (key, jid)
		);
		CREATE INDEX IF NOT EXISTS throttle_slots_expires_at_idx
			ON throttle_slots (expires_at);

		CREATE TABLE IF NOT EXISTS throttle_windows (
			key        TEXT        NOT NULL PRIMARY KEY,
			count      BIGINT      NOT NULL,
			expires_at TIMESTAMPTZ NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("throttle/postgres: migrate: %w", err)
	}
	return nil
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// AcquireSlot implements strategy.Store. Concurrent acquires for the
// same key serialize on a transaction-scoped advisory lock, so the
// count-then-insert below is race-free without table locks.
func (s *Store) AcquireSlot(ctx context.Context, key, jid string, limit int, ttl time.Duration) (bool, error) {
	acquired := false
	err := s.db.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.ExecContext(ctx,
			`SELECT pg_advisory_xact_lock(hashtext(?))`, "throttle:slots:"+key,
		); err != nil {
			return fmt.Errorf("advisory lock: %w", err)
		}

		if _, err := tx.NewDelete().Model((*slotModel)(nil)).
			Where("key = ?", key).
			Where("expires_at <= NOW()").
			Exec(ctx); err != nil {
			return fmt.Errorf("prune slots: %w", err)
		}

		// A slot the jid already holds does not count against it: the
		// upsert below refreshes its expiry instead of rejecting a
		// redelivered running job.
		active, err := tx.NewSelect().Model((*slotModel)(nil)).
			Where("key = ?", key).
			Where("jid <> ?", jid).
			Count(ctx)
		if err != nil {
			return fmt.Errorf("count slots: %w", err)
		}
		if active >= limit || limit <= 0 {
			return nil
		}

		m := &slotModel{Key: key, JID: jid, ExpiresAt: time.Now().UTC().Add(ttl)}
		if _, err := tx.NewInsert().Model(m).
			On("CONFLICT (key, jid) DO UPDATE").
			Set("expires_at = EXCLUDED.expires_at").
			Exec(ctx); err != nil {
			return fmt.Errorf("insert slot: %w", err)
		}
		acquired = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("throttle/postgres: acquire slot: %w", err)
	}
	return acquired, nil
}

// ReleaseSlot implements strategy.Store.
func (s *Store) ReleaseSlot(ctx context.Context, key, jid string) error {
	_, err := s.db.NewDelete().Model((*slotModel)(nil)).
		Where("key = ?", key).
		Where("jid = ?", jid).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("throttle/postgres: release slot: %w", err)
	}
	return nil
}

// IncrWindow implements strategy.Store. The upsert resets the counter
// when the stored window has lapsed and increments it otherwise, in one
// statement, so concurrent increments never lose updates.
func (s *Store) IncrWindow(ctx context.Context, key string, period time.Duration) (int64, error) {
	var count int64
	err := s.db.NewRaw(`
		INSERT INTO throttle_windows (key, count, expires_at)
		VALUES (?0, 1, NOW() + make_interval(secs => ?1))
		ON CONFLICT (key) DO UPDATE SET
			count = CASE
				WHEN throttle_windows.expires_at <= NOW() THEN 1
				ELSE throttle_windows.count + 1
			END,
			expires_at = CASE
				WHEN throttle_windows.expires_at <= NOW() THEN EXCLUDED.expires_at
				ELSE throttle_windows.expires_at
			END
		RETURNING count`,
		key, period.Seconds(),
	).Scan(ctx, &count)
	if err != nil {
		return 0, fmt.Errorf("throttle/postgres: incr window: %w", err)
	}
	return count, nil
}
