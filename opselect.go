package kvrel

// SelectAll returns every record of the table.
func (db *DB) SelectAll(table string, mode Mode) (Result[*Record], error) {
	return db.Select(table, All(), mode)
}

// Select returns the records matched by sel. With ModeAuto a single match is
// returned unwrapped in Result.One.
func (db *DB) Select(table string, sel Selector, mode Mode) (Result[*Record], error) {
	if err := db.checkTable(table); err != nil {
		return Result[*Record]{}, err
	}
	db.lock.RLock()
	defer db.lock.RUnlock()

	byID, order, err := db.selectLocked(table, sel)
	if err != nil {
		return Result[*Record]{}, err
	}
	return makeResult(byID, order, mode), nil
}

// Count returns the number of records in the table.
func (db *DB) Count(table string) (int, error) {
	if err := db.checkTable(table); err != nil {
		return 0, err
	}
	db.lock.RLock()
	defer db.lock.RUnlock()
	_, order, err := db.rows(table)
	return len(order), err
}

func (db *DB) selectLocked(table string, sel Selector) (map[int64]*Record, []int64, error) {
	match, err := sel.matcher()
	if err != nil {
		return nil, nil, err
	}
	recs, order, err := db.rows(table)
	if err != nil {
		return nil, nil, err
	}
	if sel.IsAll() {
		return recs, order, nil
	}

	matched := make(map[int64]*Record)
	var matchedOrder []int64
	for _, id := range order {
		rec := recs[id]
		ok, err := match(rec)
		if err != nil {
			return nil, nil, tableErrf(table, id, "", err, "selector")
		}
		if ok {
			matched[id] = rec
			matchedOrder = append(matchedOrder, id)
		}
	}
	return matched, matchedOrder, nil
}

// Each calls f for every field of every record in the table, in key order.
// When f returns true, the returned value replaces the stored one and the
// record's id is reported. The id field is never rewritten. Returns the ids
// of rewritten records, each once.
func (db *DB) Each(table string, f func(id int64, field string, v Value) (Value, bool)) ([]int64, error) {
	if err := db.checkTable(table); err != nil {
		return nil, err
	}

	db.lock.Lock()
	defer db.lock.Unlock()

	type write struct {
		key string
		id  int64
		v   Value
	}
	var writes []write
	var callErr error
	err := scanStore(db.store, TablePrefix(db.name, table), func(k, raw string) bool {
		id, field, ok := DecodeKey(k, db.name, table)
		if !ok {
			return true
		}
		var nv Value
		var rewrite bool
		callErr = safelyCall(func() error {
			nv, rewrite = f(id, field, decodeFieldValue(field, raw))
			return nil
		})
		if callErr != nil {
			callErr = tableErrf(table, id, k, callErr, "each")
			return false
		}
		if rewrite && field != IDField {
			writes = append(writes, write{k, id, nv})
		}
		return true
	})
	if err != nil {
		return nil, tableErrf(table, 0, "", err, "scan")
	}
	if callErr != nil {
		return nil, callErr
	}

	var ids []int64
	seen := make(map[int64]bool)
	for _, w := range writes {
		if err := db.store.Set(w.key, w.v.String()); err != nil {
			return ids, tableErrf(table, w.id, w.key, err, "set")
		}
		if !seen[w.id] {
			seen[w.id] = true
			ids = append(ids, w.id)
			if db.isVerboseLoggingEnabled() {
				db.logf("kvrel: UPDATE %s/%d via each", table, w.id)
			}
			db.notify(Change{Table: table, Op: OpUpdate, ID: w.id})
		}
	}
	return ids, nil
}
