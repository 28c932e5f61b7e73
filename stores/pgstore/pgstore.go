// Package pgstore stores kvrel keys in a PostgreSQL table.
package pgstore

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/andreyvit/kvrel"
)

const (
	DefaultTable   = "kvrel_entries"
	DefaultTimeout = 5 * time.Second
)

type Options struct {
	DSN string

	// Table holds the entries. Created if missing. Defaults to DefaultTable.
	Table string

	// Timeout bounds every store call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Store implements kvrel.Store and kvrel.Scanner over a two-column table.
// Keys are ordered bytewise (COLLATE "C").
type Store struct {
	pool    *pgxpool.Pool
	timeout time.Duration
	owned   bool

	qGet, qSet, qRemove, qLen, qKeyAt, qScan string
}

var (
	_ kvrel.Store   = (*Store)(nil)
	_ kvrel.Scanner = (*Store)(nil)
	_ kvrel.Closer  = (*Store)(nil)
)

// Open connects to PostgreSQL and creates the entries table if needed.
func Open(opt Options) (*Store, error) {
	config, err := pgxpool.ParseConfig(opt.DSN)
	if err != nil {
		return nil, errors.Wrapf(kvrel.ErrStoreUnavailable, "failed to parse connection string: %v", err)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), config)
	if err != nil {
		return nil, errors.Wrapf(kvrel.ErrStoreUnavailable, "failed to connect to PostgreSQL: %v", err)
	}
	s, err := New(pool, opt.Table, opt.Timeout)
	if err != nil {
		pool.Close()
		return nil, err
	}
	s.owned = true
	return s, nil
}

// New uses an existing pool. Close does not close a pool passed here.
func New(pool *pgxpool.Pool, table string, timeout time.Duration) (*Store, error) {
	if table == "" {
		table = DefaultTable
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	t := pgx.Identifier{table}.Sanitize()
	s := &Store{
		pool:    pool,
		timeout: timeout,
		qGet:    fmt.Sprintf(`SELECT value FROM %s WHERE key = $1`, t),
		qSet:    fmt.Sprintf(`INSERT INTO %s (key, value) VALUES ($1, $2) ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value`, t),
		qRemove: fmt.Sprintf(`DELETE FROM %s WHERE key = $1`, t),
		qLen:    fmt.Sprintf(`SELECT count(*) FROM %s`, t),
		qKeyAt:  fmt.Sprintf(`SELECT key FROM %s ORDER BY key COLLATE "C" OFFSET $1 LIMIT 1`, t),
		qScan:   fmt.Sprintf(`SELECT key, value FROM %s WHERE starts_with(key, $1) ORDER BY key COLLATE "C"`, t),
	}

	ctx, cancel := s.context()
	defer cancel()
	_, err := pool.Exec(ctx, fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (key text PRIMARY KEY, value text NOT NULL)`, t))
	if err != nil {
		return nil, errors.Wrapf(kvrel.ErrStoreUnavailable, "failed to create %s: %v", table, err)
	}
	return s, nil
}

func (s *Store) Pool() *pgxpool.Pool {
	return s.pool
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Store) Get(key string) (string, bool, error) {
	ctx, cancel := s.context()
	defer cancel()
	var v string
	err := s.pool.QueryRow(ctx, s.qGet, key).Scan(&v)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	} else if err != nil {
		return "", false, errors.Wrapf(err, "pg get %s", key)
	}
	return v, true, nil
}

func (s *Store) Set(key, value string) error {
	ctx, cancel := s.context()
	defer cancel()
	_, err := s.pool.Exec(ctx, s.qSet, key, value)
	return errors.Wrapf(err, "pg set %s", key)
}

func (s *Store) Remove(key string) error {
	ctx, cancel := s.context()
	defer cancel()
	_, err := s.pool.Exec(ctx, s.qRemove, key)
	return errors.Wrapf(err, "pg remove %s", key)
}

func (s *Store) Len() (int, error) {
	ctx, cancel := s.context()
	defer cancel()
	var n int64
	if err := s.pool.QueryRow(ctx, s.qLen).Scan(&n); err != nil {
		return 0, errors.Wrap(err, "pg count")
	}
	return int(n), nil
}

func (s *Store) KeyAt(i int) (string, error) {
	ctx, cancel := s.context()
	defer cancel()
	var k string
	err := s.pool.QueryRow(ctx, s.qKeyAt, i).Scan(&k)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", errors.Errorf("pg: key index %d out of range", i)
	} else if err != nil {
		return "", errors.Wrapf(err, "pg key at %d", i)
	}
	return k, nil
}

// Scan reads all matching rows before calling f, so f may modify the store.
func (s *Store) Scan(prefix string, f func(key, value string) bool) error {
	ctx, cancel := s.context()
	defer cancel()

	rows, err := s.pool.Query(ctx, s.qScan, prefix)
	if err != nil {
		return errors.Wrapf(err, "pg scan %s", prefix)
	}
	type entry struct{ k, v string }
	var entries []entry
	for rows.Next() {
		var e entry
		if err := rows.Scan(&e.k, &e.v); err != nil {
			rows.Close()
			return errors.Wrapf(err, "pg scan %s", prefix)
		}
		entries = append(entries, e)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return errors.Wrapf(err, "pg scan %s", prefix)
	}

	for _, e := range entries {
		if !f(e.k, e.v) {
			break
		}
	}
	return nil
}

// Close closes the pool if it was created by Open.
func (s *Store) Close() error {
	if s.owned {
		s.pool.Close()
	}
	return nil
}
