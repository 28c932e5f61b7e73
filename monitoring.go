package kvrel

type TableStats struct {
	Rows   int
	Fields int
	Keys   int

	DataSize int
	NextID   int64
}

// AvgRowSize is the mean number of key and value bytes per row.
func (ts *TableStats) AvgRowSize() int {
	if ts.Rows == 0 {
		return 0
	}
	return ts.DataSize / ts.Rows
}

// Stats walks the table's keys and reports row, field and byte counts.
func (db *DB) Stats(table string) (TableStats, error) {
	if err := db.checkTable(table); err != nil {
		return TableStats{}, err
	}
	db.lock.RLock()
	defer db.lock.RUnlock()
	return db.statsLocked(table)
}

func (db *DB) statsLocked(table string) (TableStats, error) {
	var result TableStats
	ids := make(map[int64]bool)
	err := scanStore(db.store, TablePrefix(db.name, table), func(k, v string) bool {
		result.Keys++
		result.DataSize += len(k) + len(v)
		if id, _, ok := DecodeKey(k, db.name, table); ok {
			result.Fields++
			ids[id] = true
		}
		return true
	})
	if err != nil {
		return TableStats{}, tableErrf(table, 0, "", err, "stats")
	}
	result.Rows = len(ids)

	result.NextID, err = db.readCounter(table)
	if err != nil {
		return TableStats{}, err
	}
	return result, nil
}

// loggableRecord renders rec for verbose log lines.
func loggableRecord(rec *Record) string {
	if rec == nil {
		return "<none>"
	}
	return rec.String()
}
