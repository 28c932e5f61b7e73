package kvrel

import (
	"fmt"
	"sort"
	"strings"
)

type DumpFlags uint64

const (
	DumpTableHeaders = DumpFlags(1 << iota)
	DumpRows
	DumpStats
	DumpCounters

	DumpAll = DumpFlags(0xFFFFFFFFFFFFFFFF)
)

var dumpSep2 = strings.Repeat("-", 60)

func (f DumpFlags) Contains(v DumpFlags) bool {
	return (f & v) == v
}

// ShowDatabases lists the distinct database names present in the store,
// including databases other than db's own.
func (db *DB) ShowDatabases() ([]string, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	keys, err := scanKeys(db.store, "")
	if err != nil {
		return nil, fmt.Errorf("kvrel: show databases: %w", err)
	}
	var names []string
	for _, k := range keys {
		if name, _, ok := splitByte(k, Sep); ok && name != "" {
			names = append(names, name)
		}
	}
	return uniqueSorted(names), nil
}

// ShowTables lists the tables of db's database that have at least one key.
func (db *DB) ShowTables() ([]string, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.tablesLocked()
}

func (db *DB) tablesLocked() ([]string, error) {
	keys, err := scanKeys(db.store, db.name+sepStr)
	if err != nil {
		return nil, fmt.Errorf("kvrel: show tables: %w", err)
	}
	var names []string
	for _, k := range keys {
		if _, table, ok := splitKey(k); ok && table != "" {
			names = append(names, table)
		}
	}
	return uniqueSorted(names), nil
}

// Dump renders the database in a human-readable form for debugging and tests.
func (db *DB) Dump(f DumpFlags) (string, error) {
	db.lock.RLock()
	defer db.lock.RUnlock()

	tables, err := db.tablesLocked()
	if err != nil {
		return "", err
	}
	var buf strings.Builder
	for _, table := range tables {
		if err := db.dumpTable(&buf, f, table); err != nil {
			return "", err
		}
	}
	return buf.String(), nil
}

func (db *DB) dumpTable(w *strings.Builder, f DumpFlags, table string) error {
	recs, order, err := db.rows(table)
	if err != nil {
		return err
	}
	prefix := db.name + "." + table

	if f.Contains(DumpTableHeaders) {
		fmt.Fprintln(w, rpadf('=', "== %s (%d rows) ", prefix, len(order)))
	}
	if f.Contains(DumpCounters) {
		next, err := db.readCounter(table)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s.next_id = %d\n", prefix, next)
	}
	if f.Contains(DumpStats) {
		s, err := db.statsLocked(table)
		if err != nil {
			return err
		}
		fmt.Fprintf(w, "%s.stats: fields = %d, keys = %d, data_size = %d\n", prefix, s.Fields, s.Keys, s.DataSize)
	}

	if f.Contains(DumpRows) {
		if f.Contains(DumpStats) || f.Contains(DumpCounters) {
			fmt.Fprintln(w, dumpSep2)
		}
		ids := append([]int64(nil), order...)
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		for _, id := range ids {
			fmt.Fprintf(w, "%s.%d = %s\n", prefix, id, recs[id])
		}
	}
	return nil
}

func rpadf(pad rune, format string, args ...any) string {
	s := fmt.Sprintf(format, args...)
	return rpad(s, 80, pad)
}
