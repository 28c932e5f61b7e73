package kvrel

import (
	"fmt"
	"strconv"
	"strings"
)

// Sep separates key segments: db_table_id_field.
const Sep = '_'

const sepStr = string(Sep)

func TablePrefix(db, table string) string {
	return db + sepStr + table + sepStr
}

func CounterKey(db, table string) string {
	return db + sepStr + table + sepStr + IDField
}

func recordPrefix(db, table string, id int64) string {
	return TablePrefix(db, table) + strconv.FormatInt(id, 10) + sepStr
}

func EncodeKey(db, table string, id int64, field string) string {
	var buf strings.Builder
	buf.Grow(len(db) + len(table) + len(field) + 24)
	buf.WriteString(db)
	buf.WriteByte(Sep)
	buf.WriteString(table)
	buf.WriteByte(Sep)
	buf.WriteString(strconv.FormatInt(id, 10))
	buf.WriteByte(Sep)
	buf.WriteString(field)
	return buf.String()
}

// DecodeKey extracts the record id and field name from a key that belongs to
// db/table. Keys of other tables, the counter key and malformed keys report
// ok == false.
func DecodeKey(key, db, table string) (id int64, field string, ok bool) {
	rest, found := strings.CutPrefix(key, TablePrefix(db, table))
	if !found {
		return 0, "", false
	}
	return decodeRest(rest)
}

func decodeRest(rest string) (int64, string, bool) {
	n := 0
	for n < len(rest) && rest[n] >= '0' && rest[n] <= '9' {
		n++
	}
	if n == 0 || n >= len(rest)-1 || rest[n] != Sep {
		return 0, "", false
	}
	id, err := strconv.ParseInt(rest[:n], 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, rest[n+1:], true
}

// splitKey breaks a key into its database and table segments.
func splitKey(key string) (db, table string, ok bool) {
	db, rest, ok := splitByte(key, Sep)
	if !ok {
		return db, "", false
	}
	table, _, ok = splitByte(rest, Sep)
	return db, table, ok
}

func decodeFieldValue(field, raw string) Value {
	if field == IDField {
		if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
			return Int(n)
		}
	}
	return Text(raw)
}

func ValidateName(kind, name string) error {
	if name == "" {
		return fmt.Errorf("%w: empty %s name", ErrInvalidName, kind)
	}
	if strings.IndexByte(name, Sep) >= 0 {
		return fmt.Errorf("%w: %s name %q contains %q", ErrInvalidName, kind, name, sepStr)
	}
	return nil
}
