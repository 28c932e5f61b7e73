package kvrel

import (
	"fmt"
	"io"

	"github.com/cespare/xxhash/v2"
)

const snapshotVersion = 1

// snapshot holds every key of one database namespace. Keys are stored
// without the database prefix so a snapshot can be imported under another
// database name.
type snapshot struct {
	Version  int             `msgpack:"v" json:"version"`
	Database string          `msgpack:"db" json:"database"`
	Entries  []snapshotEntry `msgpack:"e" json:"entries"`
	Checksum uint64          `msgpack:"sum" json:"checksum"`
}

type snapshotEntry struct {
	Key   string `msgpack:"k" json:"key"`
	Value string `msgpack:"v" json:"value"`
}

func (s *snapshot) computeChecksum() uint64 {
	var h xxhash.Digest
	h.Reset()
	for _, e := range s.Entries {
		h.WriteString(e.Key)
		h.Write([]byte{0})
		h.WriteString(e.Value)
		h.Write([]byte{0})
	}
	return h.Sum64()
}

// Export writes every key of the database namespace to w and returns the
// number of entries written.
func (db *DB) Export(w io.Writer, enc Encoding) (int, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	prefix := db.name + sepStr
	snap := snapshot{Version: snapshotVersion, Database: db.name}
	err := scanStore(db.store, prefix, func(k, v string) bool {
		snap.Entries = append(snap.Entries, snapshotEntry{k[len(prefix):], v})
		return true
	})
	if err != nil {
		return 0, fmt.Errorf("kvrel: export %s: %w", db.name, err)
	}
	snap.Checksum = snap.computeChecksum()

	if err := enc.EncodeValue(w, &snap); err != nil {
		return 0, fmt.Errorf("kvrel: export %s: %w", db.name, err)
	}
	if db.isVerboseLoggingEnabled() {
		db.logf("kvrel: EXPORT %s (%d keys, %v)", db.name, len(snap.Entries), enc)
	}
	return len(snap.Entries), nil
}

// Import reads a snapshot produced by Export and writes its entries into db's
// namespace, overwriting keys that already exist. Nothing is written unless
// the snapshot checksum matches.
func (db *DB) Import(r io.Reader, enc Encoding) (int, error) {
	var snap snapshot
	if err := enc.DecodeValue(r, &snap); err != nil {
		return 0, fmt.Errorf("kvrel: import: %w: %v", ErrCorruptSnapshot, err)
	}
	if snap.Version != snapshotVersion {
		return 0, fmt.Errorf("kvrel: import: %w: unsupported version %d", ErrCorruptSnapshot, snap.Version)
	}
	if sum := snap.computeChecksum(); sum != snap.Checksum {
		return 0, fmt.Errorf("kvrel: import: %w: checksum %016x, wanted %016x", ErrCorruptSnapshot, sum, snap.Checksum)
	}

	db.lock.Lock()
	defer db.lock.Unlock()

	prefix := db.name + sepStr
	for _, e := range snap.Entries {
		key := prefix + e.Key
		if err := db.store.Set(key, e.Value); err != nil {
			return 0, fmt.Errorf("kvrel: import %s: %w", key, err)
		}
	}
	if db.isVerboseLoggingEnabled() {
		db.logf("kvrel: IMPORT %s from %s (%d keys)", db.name, snap.Database, len(snap.Entries))
	}
	return len(snap.Entries), nil
}
