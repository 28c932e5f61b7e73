package kvrel

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

type selectorKind int

const (
	selectAll selectorKind = iota
	selectByID
	selectByIDs
	selectWhere
)

// Selector picks records of a table. Build one with All, ByID, ByIDs or
// Where; the zero value selects everything.
type Selector struct {
	kind selectorKind
	id   int64
	ids  []int64
	pred func(rec *Record) bool
}

func All() Selector { return Selector{} }

func ByID(id int64) Selector { return Selector{kind: selectByID, id: id} }

func ByIDs(ids ...int64) Selector {
	return Selector{kind: selectByIDs, ids: append([]int64(nil), ids...)}
}

// Where selects records for which pred returns true. pred is called once per
// candidate record.
func Where(pred func(rec *Record) bool) Selector {
	if pred == nil {
		return All()
	}
	return Selector{kind: selectWhere, pred: pred}
}

func (sel Selector) IsAll() bool { return sel.kind == selectAll }

func (sel Selector) String() string {
	switch sel.kind {
	case selectAll:
		return "all"
	case selectByID:
		return "id=" + strconv.FormatInt(sel.id, 10)
	case selectByIDs:
		strs := make([]string, len(sel.ids))
		for i, id := range sel.ids {
			strs[i] = strconv.FormatInt(id, 10)
		}
		return "id in (" + strings.Join(strs, ",") + ")"
	case selectWhere:
		return "where(func)"
	default:
		return fmt.Sprintf("invalid selector %d", int(sel.kind))
	}
}

// matcher resolves the selector into a predicate. Called once per operation,
// before iterating candidates.
func (sel Selector) matcher() (func(rec *Record) (bool, error), error) {
	switch sel.kind {
	case selectAll:
		return func(*Record) (bool, error) { return true, nil }, nil
	case selectByID:
		if sel.id <= 0 {
			return nil, fmt.Errorf("kvrel: %w: non-positive id %d", ErrInvalidSelector, sel.id)
		}
		id := sel.id
		return func(rec *Record) (bool, error) { return rec.ID == id, nil }, nil
	case selectByIDs:
		set := make(map[int64]bool, len(sel.ids))
		for _, id := range sel.ids {
			set[id] = true
		}
		return func(rec *Record) (bool, error) { return set[rec.ID], nil }, nil
	case selectWhere:
		pred := sel.pred
		return func(rec *Record) (bool, error) {
			var ok bool
			err := safelyCall(func() error {
				ok = pred(rec)
				return nil
			})
			return ok, err
		}, nil
	default:
		return nil, fmt.Errorf("kvrel: %w: %v", ErrInvalidSelector, sel)
	}
}

// ParseSelector converts a loosely typed filter argument into a Selector:
// nil, an integer, a decimal string, a slice of integers or decimal strings,
// a func(*Record) bool, or a Selector.
func ParseSelector(arg any) (Selector, error) {
	switch v := arg.(type) {
	case nil:
		return All(), nil
	case Selector:
		return v, nil
	case func(*Record) bool:
		return Where(v), nil
	case string:
		id, err := parseID(v)
		if err != nil {
			return Selector{}, err
		}
		return ByID(id), nil
	case []string:
		ids := make([]int64, 0, len(v))
		for _, s := range v {
			id, err := parseID(s)
			if err != nil {
				return Selector{}, err
			}
			ids = append(ids, id)
		}
		return ByIDs(ids...), nil
	}

	rv := reflect.ValueOf(arg)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return ByID(rv.Int()), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return ByID(int64(rv.Uint())), nil
	case reflect.Slice, reflect.Array:
		ids := make([]int64, 0, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			el := rv.Index(i)
			switch el.Kind() {
			case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
				ids = append(ids, el.Int())
			case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
				ids = append(ids, int64(el.Uint()))
			default:
				return Selector{}, fmt.Errorf("kvrel: %w: element %d is %v", ErrInvalidSelector, i, el.Type())
			}
		}
		return ByIDs(ids...), nil
	}
	return Selector{}, fmt.Errorf("kvrel: %w: %T", ErrInvalidSelector, arg)
}

func parseID(s string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("kvrel: %w: %q is not an id", ErrInvalidSelector, s)
	}
	return id, nil
}
