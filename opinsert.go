package kvrel

// Insert writes a single record and returns its id. The record's id field is
// used when positive; otherwise the table counter assigns the next id.
func (db *DB) Insert(table string, rec *Record) (int64, error) {
	ids, err := db.InsertMany(table, []*Record{rec})
	if err != nil {
		return 0, err
	}
	return ids[0], nil
}

// InsertMany inserts records in order and returns their ids in the same order.
func (db *DB) InsertMany(table string, recs []*Record) ([]int64, error) {
	if err := db.checkTable(table); err != nil {
		return nil, err
	}
	for _, rec := range recs {
		if err := validateFields(table, rec); err != nil {
			return nil, err
		}
	}

	db.lock.Lock()
	defer db.lock.Unlock()

	next, err := db.readCounter(table)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(recs))
	for _, input := range recs {
		rec := input.Clone()
		if rec == nil {
			rec = &Record{}
		}
		id := rec.ID
		if id <= 0 {
			id = next
		}
		rec.setID(id)

		if err := db.writeFields(table, rec); err != nil {
			return ids, err
		}
		if id+1 > next {
			next = id + 1
		}
		key := CounterKey(db.name, table)
		if err := db.store.Set(key, Int(next).String()); err != nil {
			return ids, tableErrf(table, id, key, err, "advance counter")
		}

		ids = append(ids, id)
		if db.isVerboseLoggingEnabled() {
			db.logf("kvrel: INSERT %s/%d %s", table, id, loggableRecord(rec))
		}
		db.notify(Change{Table: table, Op: OpInsert, ID: id, Record: rec})
	}
	return ids, nil
}
