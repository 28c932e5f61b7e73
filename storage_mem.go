package kvrel

import (
	"errors"
	"sort"
	"strings"
	"sync"
)

var errMemStoreClosed = errors.New("mem store closed")

// MemStore is a transient in-memory Store keeping keys sorted. Intended for
// tests and for caches that are rebuilt from a snapshot.
type MemStore struct {
	mu     sync.Mutex
	items  []memKV // sorted by key
	closed bool
}

type memKV struct {
	key   string
	value string
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) find(key string) (int, bool) {
	items := s.items
	i := sort.Search(len(items), func(i int) bool {
		return items[i].key >= key
	})
	return i, i < len(items) && items[i].key == key
}

func (s *MemStore) Get(key string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false, errMemStoreClosed
	}
	i, ok := s.find(key)
	if !ok {
		return "", false, nil
	}
	return s.items[i].value, true, nil
}

func (s *MemStore) Set(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errMemStoreClosed
	}
	i, ok := s.find(key)
	if ok {
		s.items[i].value = value
		return nil
	}
	s.items = append(s.items, memKV{})
	copy(s.items[i+1:], s.items[i:])
	s.items[i] = memKV{key, value}
	return nil
}

func (s *MemStore) Remove(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errMemStoreClosed
	}
	i, ok := s.find(key)
	if !ok {
		return nil
	}
	s.items = append(s.items[:i], s.items[i+1:]...)
	return nil
}

func (s *MemStore) Len() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errMemStoreClosed
	}
	return len(s.items), nil
}

func (s *MemStore) KeyAt(i int) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", errMemStoreClosed
	}
	if i < 0 || i >= len(s.items) {
		return "", errors.New("key index out of range")
	}
	return s.items[i].key, nil
}

// Scan copies the matching range before calling f, so f may use the store.
func (s *MemStore) Scan(prefix string, f func(key, value string) bool) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return errMemStoreClosed
	}
	start, _ := s.find(prefix)
	end := start
	for end < len(s.items) && strings.HasPrefix(s.items[end].key, prefix) {
		end++
	}
	snap := append([]memKV(nil), s.items[start:end]...)
	s.mu.Unlock()

	for _, kv := range snap {
		if !f(kv.key, kv.value) {
			break
		}
	}
	return nil
}

func (s *MemStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	s.items = nil
	return nil
}
