// Package sqlxstore is a session.Store backed by PostgreSQL.
package sqlxstore

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver
	"github.com/pkg/errors"

	"github.com/trezcool/cace/core/session"
)

var nowFunc = time.Now // mockable

const schema = `
CREATE TABLE IF NOT EXISTS portal_sessions (
	id         TEXT PRIMARY KEY,
	token      TEXT NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

type row struct {
	Token     string    `db:"token"`
	UpdatedAt time.Time `db:"updated_at"`
}

// Store keeps tokens in the portal_sessions table. Rows idle for longer than the TTL are
// treated as absent; a zero TTL keeps them until cleared.
type Store struct {
	db  *sqlx.DB
	ttl time.Duration
}

var (
	_ session.Store   = (*Store)(nil)
	_ session.Sweeper = (*Store)(nil)
)

func New(db *sqlx.DB, ttl time.Duration) *Store {
	return &Store{db: db, ttl: ttl}
}

// Open connects to the database at url and waits for it to be ready.
func Open(url string) (*sqlx.DB, error) {
	db, err := sqlx.Open("postgres", url)
	if err != nil {
		return nil, errors.Wrap(err, "opening database")
	}
	if err = ping(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return db, nil
}

// ping waits for the database to be ready. Waits 100ms longer between each attempt.
func ping(db *sqlx.DB) error {
	var err error
	maxAttempts := 10
	for attempts := 1; attempts <= maxAttempts; attempts++ {
		if err = db.Ping(); err == nil {
			return nil
		}
		time.Sleep(time.Duration(attempts) * 100 * time.Millisecond)
	}
	return errors.Wrap(err, "DB ping timeout")
}

// Migrate creates the sessions table if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return errors.Wrap(err, "creating portal_sessions")
	}
	return nil
}

func (s *Store) Save(ctx context.Context, sid, token string) error {
	const q = `
INSERT INTO portal_sessions (id, token, updated_at) VALUES ($1, $2, $3)
ON CONFLICT (id) DO UPDATE SET token = EXCLUDED.token, updated_at = EXCLUDED.updated_at`

	if _, err := s.db.ExecContext(ctx, q, sid, token, nowFunc().UTC()); err != nil {
		return errors.Wrap(err, "saving session token")
	}
	return nil
}

func (s *Store) Read(ctx context.Context, sid string) (string, bool, error) {
	var r row
	err := s.db.GetContext(ctx, &r, `SELECT token, updated_at FROM portal_sessions WHERE id = $1`, sid)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "reading session token")
	}

	now := nowFunc().UTC()
	if s.ttl > 0 && now.Sub(r.UpdatedAt) > s.ttl {
		if err = s.Clear(ctx, sid); err != nil {
			return "", false, err
		}
		return "", false, nil
	}
	if _, err = s.db.ExecContext(ctx, `UPDATE portal_sessions SET updated_at = $2 WHERE id = $1`, sid, now); err != nil {
		return "", false, errors.Wrap(err, "touching session")
	}
	return r.Token, true, nil
}

func (s *Store) Clear(ctx context.Context, sid string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE id = $1`, sid); err != nil {
		return errors.Wrap(err, "clearing session token")
	}
	return nil
}

// Sweep deletes the rows idle for longer than the TTL.
func (s *Store) Sweep(ctx context.Context) (int, error) {
	if s.ttl <= 0 {
		return 0, nil
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM portal_sessions WHERE updated_at < $1`, nowFunc().UTC().Add(-s.ttl))
	if err != nil {
		return 0, errors.Wrap(err, "sweeping sessions")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, errors.Wrap(err, "counting swept sessions")
	}
	return int(n), nil
}
