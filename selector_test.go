package kvrel

import "testing"

func TestParseSelector(t *testing.T) {
	tests := []struct {
		arg  any
		want string
	}{
		{nil, "all"},
		{All(), "all"},
		{3, "id=3"},
		{int64(4), "id=4"},
		{uint8(5), "id=5"},
		{"6", "id=6"},
		{" 7 ", "id=7"},
		{[]int{1, 2}, "id in (1,2)"},
		{[]int64{3}, "id in (3)"},
		{[2]uint{4, 5}, "id in (4,5)"},
		{[]string{"8", "9"}, "id in (8,9)"},
		{func(rec *Record) bool { return true }, "where(func)"},
	}
	for _, tt := range tests {
		sel, err := ParseSelector(tt.arg)
		if err != nil {
			t.Errorf("** ParseSelector(%v) failed: %v", tt.arg, err)
			continue
		}
		if got := sel.String(); got != tt.want {
			t.Errorf("** ParseSelector(%v) = %s, wanted %s", tt.arg, got, tt.want)
		}
	}
}

func TestParseSelectorErrors(t *testing.T) {
	for _, arg := range []any{"abc", "", []string{"1", "x"}, []any{1}, 1.5, struct{}{}, map[string]int{}} {
		_, err := ParseSelector(arg)
		iserr(t, err, ErrInvalidSelector)
	}
}

func TestWhereNilIsAll(t *testing.T) {
	deepEqual(t, Where(nil).IsAll(), true)
	deepEqual(t, Selector{}.IsAll(), true)
	deepEqual(t, ByIDs().IsAll(), false)
}

func TestMatcher(t *testing.T) {
	rec := R("id", 2, "name", "Ann")

	m := must(ByIDs(1, 2).matcher())
	deepEqual(t, must(m(rec)), true)

	m = must(ByIDs().matcher())
	deepEqual(t, must(m(rec)), false)

	m = must(ByID(3).matcher())
	deepEqual(t, must(m(rec)), false)

	_, err := ByID(0).matcher()
	iserr(t, err, ErrInvalidSelector)

	m = must(Where(func(rec *Record) bool { panic("boom") }).matcher())
	_, err = m(rec)
	if err == nil {
		t.Fatalf("** panicking predicate returned no error")
	}
}

func TestParseMode(t *testing.T) {
	deepEqual(t, must(ParseMode("")), ModeAuto)
	deepEqual(t, must(ParseMode("object")), ModeObject)
	deepEqual(t, must(ParseMode("as_array")), ModeArray)
	_, err := ParseMode("list")
	if err == nil {
		t.Fatalf("** ParseMode(list) succeeded")
	}
	deepEqual(t, ModeArray.String(), "array")
}

func TestMakeResult(t *testing.T) {
	byID := map[int64]string{1: "a", 2: "b"}

	r := makeResult(byID, []int64{2, 1}, ModeArray)
	deepEqual(t, r.List, []string{"b", "a"})
	deepEqual(t, r.All(), []string{"b", "a"})

	r = makeResult(map[int64]string{2: "b"}, []int64{2}, ModeAuto)
	deepEqual(t, r.IsSingle(), true)
	deepEqual(t, r.One, "b")
	deepEqual(t, r.All(), []string{"b"})

	r = makeResult(map[int64]string{2: "b"}, []int64{2}, ModeObject)
	deepEqual(t, r.IsSingle(), false)
	deepEqual(t, r.ByID, map[int64]string{2: "b"})
	deepEqual(t, r.IDs(), []int64{2})
}
