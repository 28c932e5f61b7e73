package kvrel

// Remove deletes every field of the records matched by sel and returns their
// ids. The table counter is left alone.
func (db *DB) Remove(table string, sel Selector) ([]int64, error) {
	if err := db.checkTable(table); err != nil {
		return nil, err
	}

	db.lock.Lock()
	defer db.lock.Unlock()

	recs, order, err := db.selectLocked(table, sel)
	if err != nil {
		return nil, err
	}
	if len(order) == 0 {
		return nil, nil
	}

	var doomed []string
	for _, id := range order {
		keys, err := scanKeys(db.store, recordPrefix(db.name, table, id))
		if err != nil {
			return nil, tableErrf(table, id, "", err, "scan")
		}
		doomed = append(doomed, keys...)
	}
	for _, k := range doomed {
		if err := db.store.Remove(k); err != nil {
			return nil, tableErrf(table, 0, k, err, "remove")
		}
	}

	for _, id := range order {
		if db.isVerboseLoggingEnabled() {
			db.logf("kvrel: REMOVE %s/%d", table, id)
		}
		db.notify(Change{Table: table, Op: OpRemove, ID: id, Record: recs[id]})
	}
	return order, nil
}

// Drop deletes every key of the table, including its counter, and returns
// the number of keys removed. Ids restart at 1 on the next insert.
func (db *DB) Drop(table string) (int, error) {
	if err := db.checkTable(table); err != nil {
		return 0, err
	}

	db.lock.Lock()
	defer db.lock.Unlock()

	keys, err := scanKeys(db.store, TablePrefix(db.name, table))
	if err != nil {
		return 0, tableErrf(table, 0, "", err, "scan")
	}
	for _, k := range keys {
		if err := db.store.Remove(k); err != nil {
			return 0, tableErrf(table, 0, k, err, "remove")
		}
	}

	if db.isVerboseLoggingEnabled() {
		db.logf("kvrel: DROP %s (%d keys)", table, len(keys))
	}
	db.notify(Change{Table: table, Op: OpDrop})
	return len(keys), nil
}

// DropTable is an alias for Drop.
func (db *DB) DropTable(table string) (int, error) {
	return db.Drop(table)
}
