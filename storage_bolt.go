package kvrel

import (
	"bytes"
	"fmt"
	"time"
	"unsafe"

	"go.etcd.io/bbolt"
)

const defaultBoltBucket = "kvrel"

type BoltOptions struct {
	Bucket    string
	IsTesting bool
	MmapSize  int
}

// BoltStore keeps every key in a single Bolt bucket, so Bolt's byte ordering
// is the key order.
type BoltStore struct {
	bdb  *bbolt.DB
	buck []byte
}

func OpenBolt(path string, opt BoltOptions) (*BoltStore, error) {
	bopt := &bbolt.Options{}
	*bopt = *bbolt.DefaultOptions
	bopt.Timeout = 10 * time.Second
	if opt.IsTesting {
		bopt.NoSync = true
		bopt.NoFreelistSync = true
		bopt.InitialMmapSize = 1024 * 1024 * 5
	} else {
		bopt.FreelistType = bbolt.FreelistMapType
	}
	if opt.MmapSize != 0 {
		bopt.InitialMmapSize = opt.MmapSize
	}

	bdb, err := bbolt.Open(path, 0666, bopt)
	if err != nil {
		return nil, fmt.Errorf("%w: bolt %s: %v", ErrStoreUnavailable, path, err)
	}
	return NewBoltStore(bdb, opt.Bucket)
}

// NewBoltStore wraps an already open Bolt database.
func NewBoltStore(bdb *bbolt.DB, bucket string) (*BoltStore, error) {
	if bucket == "" {
		bucket = defaultBoltBucket
	}
	s := &BoltStore{bdb: bdb, buck: []byte(bucket)}
	err := bdb.Update(func(btx *bbolt.Tx) error {
		_, err := btx.CreateBucketIfNotExists(s.buck)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: bolt bucket %s: %v", ErrStoreUnavailable, bucket, err)
	}
	return s, nil
}

func (s *BoltStore) Bolt() *bbolt.DB {
	return s.bdb
}

func (s *BoltStore) bucket(btx *bbolt.Tx) *bbolt.Bucket {
	return nonNil(btx.Bucket(s.buck))
}

func (s *BoltStore) Get(key string) (value string, found bool, err error) {
	err = s.bdb.View(func(btx *bbolt.Tx) error {
		v := s.bucket(btx).Get(unsafeBytesFromString(key))
		if v != nil {
			value, found = string(v), true
		}
		return nil
	})
	return
}

func (s *BoltStore) Set(key, value string) error {
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		return s.bucket(btx).Put([]byte(key), []byte(value))
	})
}

func (s *BoltStore) Remove(key string) error {
	return s.bdb.Update(func(btx *bbolt.Tx) error {
		return s.bucket(btx).Delete(unsafeBytesFromString(key))
	})
}

func (s *BoltStore) Len() (n int, err error) {
	err = s.bdb.View(func(btx *bbolt.Tx) error {
		n = s.bucket(btx).Stats().KeyN
		return nil
	})
	return
}

func (s *BoltStore) KeyAt(i int) (key string, err error) {
	err = s.bdb.View(func(btx *bbolt.Tx) error {
		c := s.bucket(btx).Cursor()
		pos := 0
		for k, _ := c.First(); k != nil; k, _ = c.Next() {
			if pos == i {
				key = string(k)
				return nil
			}
			pos++
		}
		return fmt.Errorf("key index %d out of range", i)
	})
	return
}

// Scan reads the range in one read transaction and calls f after the
// transaction ends, so f may write to the store.
func (s *BoltStore) Scan(prefix string, f func(key, value string) bool) error {
	var snap [][2]string
	err := s.bdb.View(func(btx *bbolt.Tx) error {
		c := s.bucket(btx).Cursor()
		p := []byte(prefix)
		for k, v := c.Seek(p); k != nil && bytes.HasPrefix(k, p); k, v = c.Next() {
			snap = append(snap, [2]string{string(k), string(v)})
		}
		return nil
	})
	if err != nil {
		return err
	}
	for _, kv := range snap {
		if !f(kv[0], kv[1]) {
			break
		}
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.bdb.Close()
}

func unsafeBytesFromString(s string) []byte {
	return unsafe.Slice(unsafe.StringData(s), len(s))
}
