package redisstore

import (
	"errors"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/andreyvit/kvrel"
)

func setup(t *testing.T) *Store {
	addr := os.Getenv("KVREL_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("KVREL_TEST_REDIS_ADDR not set")
	}
	s, err := Open(Options{Addr: addr, DB: 15})
	if err != nil {
		t.Fatalf("** %v", err)
	}
	ctx, cancel := s.context()
	defer cancel()
	if err := s.Client().FlushDB(ctx).Err(); err != nil {
		t.Fatalf("** FLUSHDB: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func TestStore(t *testing.T) {
	s := setup(t)

	for _, k := range []string{"b", "a", "c*", "ab"} {
		if err := s.Set(k, "v"+k); err != nil {
			t.Fatal(err)
		}
	}
	v, found, err := s.Get("ab")
	deepEqual(t, [3]any{v, found, err}, [3]any{"vab", true, nil})
	_, found, _ = s.Get("zz")
	deepEqual(t, found, false)

	n, _ := s.Len()
	deepEqual(t, n, 4)
	k, _ := s.KeyAt(1)
	deepEqual(t, k, "ab")

	var keys []string
	err = s.Scan("a", func(k, v string) bool {
		keys = append(keys, k)
		return true
	})
	deepEqual(t, err, nil)
	deepEqual(t, keys, []string{"a", "ab"})

	keys = nil
	s.Scan("c*", func(k, v string) bool {
		keys = append(keys, k)
		return true
	})
	deepEqual(t, keys, []string{"c*"})

	deepEqual(t, s.Remove("a"), nil)
	deepEqual(t, s.Remove("a"), nil)
	n, _ = s.Len()
	deepEqual(t, n, 3)
}

func TestEngineOverRedis(t *testing.T) {
	db, err := kvrel.Open(setup(t), kvrel.Options{})
	if err != nil {
		t.Fatal(err)
	}
	ids, err := db.InsertMany("users", []*kvrel.Record{kvrel.R("name", "Ann"), kvrel.R("name", "Bob")})
	deepEqual(t, err, nil)
	deepEqual(t, ids, []int64{1, 2})

	removed, _ := db.Remove("users", kvrel.ByID(1))
	deepEqual(t, removed, []int64{1})
	res, _ := db.SelectAll("users", kvrel.ModeAuto)
	deepEqual(t, res.One.Str("name"), "Bob")
}

func TestEscapeGlob(t *testing.T) {
	deepEqual(t, escapeGlob("db_users_"), "db_users_")
	deepEqual(t, escapeGlob(`a*b?[c]\`), `a\*b\?\[c\]\\`)
}

func TestUniq(t *testing.T) {
	deepEqual(t, uniq([]string{"a", "a", "b", "c", "c"}), []string{"a", "b", "c"})
	deepEqual(t, uniq(nil), []string(nil))
}

func TestOpenUnavailable(t *testing.T) {
	_, err := Open(Options{Addr: "127.0.0.1:1", Timeout: 200 * time.Millisecond})
	if !errors.Is(err, kvrel.ErrStoreUnavailable) {
		t.Fatalf("** got %v, wanted ErrStoreUnavailable", err)
	}
}
