package kvrel

// Update merges patch into every record matched by sel and returns the ids of
// all updated records. Fields absent from patch are kept; the id field is
// never changed.
func (db *DB) Update(table string, sel Selector, patch *Record) ([]int64, error) {
	if err := db.checkTable(table); err != nil {
		return nil, err
	}
	if patch != nil {
		if err := validateFields(table, patch); err != nil {
			return nil, err
		}
	}

	db.lock.Lock()
	defer db.lock.Unlock()

	recs, order, err := db.selectLocked(table, sel)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(order))
	for _, id := range order {
		rec := recs[id]
		rec.Merge(patch)
		if err := db.writeFields(table, rec); err != nil {
			return ids, err
		}
		ids = append(ids, id)
		if db.isVerboseLoggingEnabled() {
			db.logf("kvrel: UPDATE %s/%d %s", table, id, loggableRecord(patch))
		}
		db.notify(Change{Table: table, Op: OpUpdate, ID: id, Record: rec})
	}
	return ids, nil
}
