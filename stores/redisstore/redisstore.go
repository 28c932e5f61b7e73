// Package redisstore stores kvrel keys in a Redis database.
package redisstore

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"

	"github.com/andreyvit/kvrel"
)

const (
	DefaultTimeout = 5 * time.Second

	scanBatch = 512
)

type Options struct {
	Addr     string
	Password string
	DB       int

	// Timeout bounds every store call. Defaults to DefaultTimeout.
	Timeout time.Duration
}

// Store implements kvrel.Store and kvrel.Scanner. Redis keys are unordered;
// KeyAt and Scan order them lexicographically.
type Store struct {
	rdb     *redis.Client
	timeout time.Duration
	owned   bool
}

var (
	_ kvrel.Store   = (*Store)(nil)
	_ kvrel.Scanner = (*Store)(nil)
	_ kvrel.Closer  = (*Store)(nil)
)

// Open connects to Redis and verifies the connection with PING.
func Open(opt Options) (*Store, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     opt.Addr,
		Password: opt.Password,
		DB:       opt.DB,
	})
	s := New(rdb, opt.Timeout)
	s.owned = true

	ctx, cancel := s.context()
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, errors.Wrapf(kvrel.ErrStoreUnavailable, "redis %s: %v", opt.Addr, err)
	}
	return s, nil
}

// New wraps an existing client. Close does not close a client passed here.
func New(rdb *redis.Client, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Store{rdb: rdb, timeout: timeout}
}

func (s *Store) Client() *redis.Client {
	return s.rdb
}

func (s *Store) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *Store) Get(key string) (string, bool, error) {
	ctx, cancel := s.context()
	defer cancel()
	v, err := s.rdb.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false, nil
	} else if err != nil {
		return "", false, errors.Wrapf(err, "redis GET %s", key)
	}
	return v, true, nil
}

func (s *Store) Set(key, value string) error {
	ctx, cancel := s.context()
	defer cancel()
	return errors.Wrapf(s.rdb.Set(ctx, key, value, 0).Err(), "redis SET %s", key)
}

func (s *Store) Remove(key string) error {
	ctx, cancel := s.context()
	defer cancel()
	return errors.Wrapf(s.rdb.Del(ctx, key).Err(), "redis DEL %s", key)
}

func (s *Store) Len() (int, error) {
	ctx, cancel := s.context()
	defer cancel()
	n, err := s.rdb.DBSize(ctx).Result()
	if err != nil {
		return 0, errors.Wrap(err, "redis DBSIZE")
	}
	return int(n), nil
}

// KeyAt returns the i-th key in lexicographic order. Every call scans the
// whole keyspace; prefer Scan.
func (s *Store) KeyAt(i int) (string, error) {
	keys, err := s.keys("")
	if err != nil {
		return "", err
	}
	if i < 0 || i >= len(keys) {
		return "", errors.Errorf("redis: key index %d out of range [0,%d)", i, len(keys))
	}
	return keys[i], nil
}

// Scan calls f for every key starting with prefix in lexicographic order.
// Keys removed between listing and fetching are skipped.
func (s *Store) Scan(prefix string, f func(key, value string) bool) error {
	keys, err := s.keys(prefix)
	if err != nil {
		return err
	}
	for start := 0; start < len(keys); start += scanBatch {
		batch := keys[start:min(start+scanBatch, len(keys))]
		values, err := s.mget(batch)
		if err != nil {
			return err
		}
		for i, k := range batch {
			v, ok := values[i].(string)
			if !ok {
				continue
			}
			if !f(k, v) {
				return nil
			}
		}
	}
	return nil
}

func (s *Store) mget(keys []string) ([]any, error) {
	ctx, cancel := s.context()
	defer cancel()
	values, err := s.rdb.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, errors.Wrapf(err, "redis MGET (%d keys)", len(keys))
	}
	return values, nil
}

func (s *Store) keys(prefix string) ([]string, error) {
	ctx, cancel := s.context()
	defer cancel()

	var keys []string
	iter := s.rdb.Scan(ctx, 0, escapeGlob(prefix)+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, errors.Wrapf(err, "redis SCAN %s*", prefix)
	}
	sort.Strings(keys)
	return uniq(keys), nil
}

// Close closes the client if it was created by Open.
func (s *Store) Close() error {
	if !s.owned {
		return nil
	}
	return s.rdb.Close()
}

func escapeGlob(s string) string {
	if !strings.ContainsAny(s, `*?[]\`) {
		return s
	}
	var buf strings.Builder
	for _, r := range s {
		switch r {
		case '*', '?', '[', ']', '\\':
			buf.WriteByte('\\')
		}
		buf.WriteRune(r)
	}
	return buf.String()
}

// uniq drops duplicates from sorted keys; SCAN may return a key twice.
func uniq(sorted []string) []string {
	if len(sorted) < 2 {
		return sorted
	}
	out := sorted[:1]
	for _, k := range sorted[1:] {
		if k != out[len(out)-1] {
			out = append(out, k)
		}
	}
	return out
}
