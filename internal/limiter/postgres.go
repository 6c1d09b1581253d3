package limiter

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// PG is a Window kept in the login_window table, used when Redis is not
// configured.
type PG struct {
	pool   pgxQuerier
	limit  int
	window time.Duration
}

type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewPG constructs a PostgreSQL-backed window.
func NewPG(q pgxQuerier, limit int, window time.Duration) *PG {
	return &PG{pool: q, limit: limit, window: window}
}

// HashKey returns a stable hash for a client key to avoid storing raw addresses.
func HashKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}

// Allow implements Window. The counter restarts once the stored window is
// older than the configured duration.
func (l *PG) Allow(ctx context.Context, key string) (bool, error) {
	const q = `
INSERT INTO login_window (key, hits, window_start)
VALUES ($1, 1, now())
ON CONFLICT (key) DO UPDATE
SET
  hits = CASE WHEN now() - login_window.window_start > $2::interval THEN 1 ELSE login_window.hits + 1 END,
  window_start = CASE WHEN now() - login_window.window_start > $2::interval THEN now() ELSE login_window.window_start END
RETURNING hits`
	var hits int
	if err := l.pool.QueryRow(ctx, q, HashKey(key), l.window).Scan(&hits); err != nil {
		return true, err
	}
	return hits <= l.limit, nil
}

// Purge removes windows that have fully elapsed.
func (l *PG) Purge(ctx context.Context) (int64, error) {
	tag, err := l.pool.Exec(ctx, `DELETE FROM login_window WHERE now() - window_start > $1::interval`, l.window)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
