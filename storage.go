package kvrel

import "strings"

// Store is a flat string-keyed key-value store. Key order is defined by the
// store and only has to be stable while the store is not mutated.
type Store interface {
	// Get returns the value for key and whether it exists.
	Get(key string) (string, bool, error)

	// Set stores a key-value pair, replacing any existing value.
	Set(key, value string) error

	// Remove deletes a key. Removing a missing key is not an error.
	Remove(key string) error

	// Len returns the number of keys in the store.
	Len() (int, error)

	// KeyAt returns the key at position i, 0 <= i < Len().
	KeyAt(i int) (string, error)
}

// Scanner is implemented by stores that can iterate a key range directly.
// Engine operations use it instead of Len/KeyAt/Get when available.
type Scanner interface {
	// Scan calls f for every key starting with prefix until f returns false.
	Scan(prefix string, f func(key, value string) bool) error
}

// Closer is implemented by stores holding external resources.
type Closer interface {
	Close() error
}

// scanStore visits every key with the given prefix.
func scanStore(s Store, prefix string, f func(key, value string) bool) error {
	if sc, ok := s.(Scanner); ok {
		return sc.Scan(prefix, f)
	}
	n, err := s.Len()
	if err != nil {
		return err
	}
	// collect first so that Get calls do not interleave with KeyAt positions
	keys := make([]string, 0, n)
	for i := 0; i < n; i++ {
		k, err := s.KeyAt(i)
		if err != nil {
			return err
		}
		if strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	for _, k := range keys {
		v, found, err := s.Get(k)
		if err != nil {
			return err
		}
		if !found {
			continue
		}
		if !f(k, v) {
			return nil
		}
	}
	return nil
}

func scanKeys(s Store, prefix string) ([]string, error) {
	var keys []string
	err := scanStore(s, prefix, func(k, _ string) bool {
		keys = append(keys, k)
		return true
	})
	return keys, err
}
