package kvrel

import (
	"fmt"
	"sync"
)

const DefaultDatabase = "db"

// DB is a handle to one database namespace inside a Store. All engine
// operations go through it; there is no package-level connection state.
type DB struct {
	store   Store
	name    string
	logf    func(format string, args ...any)
	verbose bool

	// lock serializes writers so that the autoincrement counter's
	// read-modify-write cannot interleave
	lock sync.RWMutex

	changeHandler func(chg Change)
}

type Options struct {
	Database string
	Logf     func(format string, args ...any)
	Verbose  bool
}

// Open attaches to the database namespace opt.Database (DefaultDatabase if
// empty) inside store. It fails with ErrStoreUnavailable when the store
// cannot be reached.
func Open(store Store, opt Options) (*DB, error) {
	if store == nil {
		return nil, fmt.Errorf("kvrel: %w: nil store", ErrStoreUnavailable)
	}
	name := opt.Database
	if name == "" {
		name = DefaultDatabase
	}
	if err := ValidateName("database", name); err != nil {
		return nil, fmt.Errorf("kvrel: %w", err)
	}
	if _, err := store.Len(); err != nil {
		return nil, fmt.Errorf("kvrel: %w: %v", ErrStoreUnavailable, err)
	}

	db := &DB{
		store:   store,
		name:    name,
		logf:    opt.Logf,
		verbose: opt.Verbose,
	}
	if db.logf == nil {
		db.logf = func(format string, args ...any) {}
	}
	if db.verbose {
		db.logf("kvrel: connected to %q", name)
	}
	return db, nil
}

func (db *DB) Name() string {
	return db.name
}

func (db *DB) Store() Store {
	return db.store
}

// Close closes the underlying store if it holds resources.
func (db *DB) Close() error {
	if c, ok := db.store.(Closer); ok {
		return c.Close()
	}
	return nil
}

// OnChange installs a callback invoked after every record mutation. The
// callback runs under the write lock and must not call back into db.
func (db *DB) OnChange(f func(chg Change)) {
	db.lock.Lock()
	defer db.lock.Unlock()
	db.changeHandler = f
}

func (db *DB) notify(chg Change) {
	if db.changeHandler != nil {
		db.changeHandler(chg)
	}
}

func (db *DB) isVerboseLoggingEnabled() bool {
	return db.verbose
}

func (db *DB) checkTable(table string) error {
	if err := ValidateName("table", table); err != nil {
		return fmt.Errorf("kvrel: %w", err)
	}
	return nil
}

// rows loads every record of the table, keyed by id, with ids in order of
// first appearance in the store.
func (db *DB) rows(table string) (map[int64]*Record, []int64, error) {
	recs := make(map[int64]*Record)
	var order []int64
	err := scanStore(db.store, TablePrefix(db.name, table), func(k, v string) bool {
		id, field, ok := DecodeKey(k, db.name, table)
		if !ok {
			return true
		}
		rec := recs[id]
		if rec == nil {
			rec = &Record{ID: id}
			recs[id] = rec
			order = append(order, id)
		}
		rec.Set(field, decodeFieldValue(field, v))
		return true
	})
	if err != nil {
		return nil, nil, tableErrf(table, 0, "", err, "scan")
	}
	for _, rec := range recs {
		if !rec.Has(IDField) {
			rec.setID(rec.ID)
		}
	}
	return recs, order, nil
}

func (db *DB) readCounter(table string) (int64, error) {
	key := CounterKey(db.name, table)
	raw, found, err := db.store.Get(key)
	if err != nil {
		return 0, tableErrf(table, 0, key, err, "read counter")
	}
	if !found {
		return 1, nil
	}
	v, ok := Text(raw).Int()
	if !ok || v < 1 {
		return 1, nil
	}
	return v, nil
}

func validateFields(table string, rec *Record) error {
	if rec == nil {
		return nil
	}
	for _, f := range rec.fields {
		if f.Name == IDField {
			continue
		}
		if err := ValidateName("field", f.Name); err != nil {
			return fmt.Errorf("kvrel: %s: %w", table, err)
		}
	}
	return nil
}

func (db *DB) writeFields(table string, rec *Record) error {
	for _, f := range rec.fields {
		if f.Name == IDField {
			continue
		}
		key := EncodeKey(db.name, table, rec.ID, f.Name)
		if err := db.store.Set(key, f.Value.String()); err != nil {
			return tableErrf(table, rec.ID, key, err, "set")
		}
	}
	key := EncodeKey(db.name, table, rec.ID, IDField)
	if err := db.store.Set(key, Int(rec.ID).String()); err != nil {
		return tableErrf(table, rec.ID, key, err, "set")
	}
	return nil
}
