package kvrel

import (
	"fmt"
	"strconv"
	"strings"
)

const IDField = "id"

type ValueKind int

const (
	KindText ValueKind = iota
	KindInt
)

// Value is a single field value. The reserved id field is always KindInt;
// everything else read back from storage is KindText.
type Value struct {
	kind ValueKind
	i    int64
	s    string
}

func Int(v int64) Value   { return Value{kind: KindInt, i: v} }
func Text(s string) Value { return Value{kind: KindText, s: s} }

func (v Value) Kind() ValueKind { return v.kind }

func (v Value) IsInt() bool { return v.kind == KindInt }

// Int returns the integer form of the value. Text values holding a decimal
// integer convert; anything else reports false.
func (v Value) Int() (int64, bool) {
	if v.kind == KindInt {
		return v.i, true
	}
	n, err := strconv.ParseInt(strings.TrimSpace(v.s), 10, 64)
	if err != nil {
		return 0, false
	}
	return n, true
}

func (v Value) String() string {
	if v.kind == KindInt {
		return strconv.FormatInt(v.i, 10)
	}
	return v.s
}

// Equal compares values the way stored data is compared: by stored form.
func (v Value) Equal(o Value) bool {
	return v.String() == o.String()
}

func (v Value) GoString() string {
	if v.kind == KindInt {
		return fmt.Sprintf("Int(%d)", v.i)
	}
	return fmt.Sprintf("Text(%q)", v.s)
}

type Field struct {
	Name  string
	Value Value
}

// Record is an ordered field bag. The id field, when present, is kept in sync
// with Record.ID.
type Record struct {
	ID     int64
	fields []Field
}

func NewRecord(fields ...Field) *Record {
	rec := &Record{}
	for _, f := range fields {
		rec.Set(f.Name, f.Value)
	}
	return rec
}

// R builds a record from alternating name/value pairs. Values may be Value,
// string, or any integer type.
func R(pairs ...any) *Record {
	if len(pairs)%2 != 0 {
		panic("kvrel.R: odd number of arguments")
	}
	rec := &Record{}
	for i := 0; i < len(pairs); i += 2 {
		name, ok := pairs[i].(string)
		if !ok {
			panic(fmt.Errorf("kvrel.R: field name is %T, wanted string", pairs[i]))
		}
		rec.Set(name, ValueOf(pairs[i+1]))
	}
	return rec
}

func ValueOf(v any) Value {
	switch v := v.(type) {
	case Value:
		return v
	case string:
		return Text(v)
	case int:
		return Int(int64(v))
	case int32:
		return Int(int64(v))
	case int64:
		return Int(v)
	case uint:
		return Int(int64(v))
	case uint32:
		return Int(int64(v))
	case uint64:
		return Int(int64(v))
	case fmt.Stringer:
		return Text(v.String())
	default:
		panic(fmt.Errorf("kvrel: unsupported field value %T %v", v, v))
	}
}

func (rec *Record) Len() int { return len(rec.fields) }

func (rec *Record) Fields() []Field {
	return append([]Field(nil), rec.fields...)
}

func (rec *Record) Names() []string {
	names := make([]string, len(rec.fields))
	for i, f := range rec.fields {
		names[i] = f.Name
	}
	return names
}

func (rec *Record) index(name string) int {
	for i, f := range rec.fields {
		if f.Name == name {
			return i
		}
	}
	return -1
}

func (rec *Record) Has(name string) bool {
	return rec.index(name) >= 0
}

func (rec *Record) Get(name string) (Value, bool) {
	if i := rec.index(name); i >= 0 {
		return rec.fields[i].Value, true
	}
	return Value{}, false
}

// Str returns the stored form of the field, or "" when absent.
func (rec *Record) Str(name string) string {
	v, _ := rec.Get(name)
	return v.String()
}

func (rec *Record) Set(name string, v Value) {
	if name == IDField {
		if n, ok := v.Int(); ok {
			rec.ID = n
			v = Int(n)
		}
	}
	if i := rec.index(name); i >= 0 {
		rec.fields[i].Value = v
		return
	}
	rec.fields = append(rec.fields, Field{name, v})
}

func (rec *Record) Delete(name string) {
	if i := rec.index(name); i >= 0 {
		rec.fields = append(rec.fields[:i], rec.fields[i+1:]...)
		if name == IDField {
			rec.ID = 0
		}
	}
}

func (rec *Record) setID(id int64) {
	rec.Set(IDField, Int(id))
}

func (rec *Record) Clone() *Record {
	if rec == nil {
		return nil
	}
	return &Record{ID: rec.ID, fields: rec.Fields()}
}

// Merge overwrites fields present in patch and keeps all others. The id field
// of the receiver is never replaced.
func (rec *Record) Merge(patch *Record) {
	if patch == nil {
		return
	}
	for _, f := range patch.fields {
		if f.Name == IDField {
			continue
		}
		rec.Set(f.Name, f.Value)
	}
}

func (rec *Record) String() string {
	if rec == nil {
		return "<nil>"
	}
	var buf strings.Builder
	buf.WriteByte('{')
	for i, f := range rec.fields {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(f.Name)
		buf.WriteByte(':')
		if f.Value.IsInt() {
			buf.WriteString(f.Value.String())
		} else {
			buf.WriteString(strconv.Quote(f.Value.String()))
		}
	}
	buf.WriteByte('}')
	return buf.String()
}

// Map returns the stored form of every field.
func (rec *Record) Map() map[string]string {
	m := make(map[string]string, len(rec.fields))
	for _, f := range rec.fields {
		m[f.Name] = f.Value.String()
	}
	return m
}
