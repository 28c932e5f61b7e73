package kvrel

import (
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestInsertSelect(t *testing.T) {
	db := setup(t)

	id := must(db.Insert("users", R("name", "Ann", "age", 30)))
	deepEqual(t, id, int64(1))

	res := must(db.Select("users", ByID(id), ModeAuto))
	if !res.IsSingle() {
		t.Fatalf("** got %d rows not unwrapped, wanted single", res.Len())
	}
	deepEqual(t, res.One.ID, int64(1))
	deepEqual(t, res.One.Map(), map[string]string{"id": "1", "name": "Ann", "age": "30"})

	v, _ := res.One.Get(IDField)
	deepEqual(t, v.Kind(), KindInt)
	v, _ = res.One.Get("age")
	deepEqual(t, v.Kind(), KindText)
}

func TestSelectModes(t *testing.T) {
	db := setup(t)
	must(db.InsertMany("users", []*Record{R("name", "a"), R("name", "b"), R("name", "c")}))

	res := must(db.SelectAll("users", ModeAuto))
	deepEqual(t, res.IsSingle(), false)
	deepEqual(t, len(res.ByID), 3)
	deepEqual(t, res.IDs(), []int64{1, 2, 3})

	res = must(db.Select("users", ByID(2), ModeObject))
	deepEqual(t, res.IsSingle(), false)
	deepEqual(t, res.ByID[2].Str("name"), "b")

	res = must(db.SelectAll("users", ModeArray))
	deepEqual(t, names(res.List), []string{"a", "b", "c"})

	res = must(db.Select("users", ByIDs(3, 1), ModeArray))
	deepEqual(t, names(res.List), []string{"a", "c"})

	res = must(db.Select("users", Where(func(rec *Record) bool { return rec.Str("name") != "b" }), ModeAuto))
	deepEqual(t, res.IDs(), []int64{1, 3})

	res = must(db.Select("users", ByID(42), ModeAuto))
	deepEqual(t, res.IsSingle(), false)
	deepEqual(t, res.Len(), 0)
	isempty(t, res.All())

	res = must(db.SelectAll("nothing", ModeArray))
	isempty(t, res.List)
}

func TestAutoincrement(t *testing.T) {
	db := setup(t)

	deepEqual(t, must(db.InsertMany("users", []*Record{R("n", "a"), R("n", "b"), R("n", "c")})), []int64{1, 2, 3})
	deepEqual(t, must(db.Insert("users", R("n", "d"))), int64(4))

	deepEqual(t, must(db.Insert("users", R("id", 10, "n", "e"))), int64(10))
	deepEqual(t, must(db.Insert("users", R("n", "f"))), int64(11))

	// explicit id below the counter does not move it back
	deepEqual(t, must(db.Insert("users", R("id", 7, "n", "g"))), int64(7))
	deepEqual(t, must(db.Insert("users", R("n", "h"))), int64(12))

	v, found := must2(db.Store().Get(CounterKey("db", "users")))
	deepEqual(t, found, true)
	deepEqual(t, v, "13")

	deepEqual(t, must(db.InsertMany("users", []*Record{R("id", "20"), R("n", "i")})), []int64{20, 21})
}

func TestInsertDoesNotModifyInput(t *testing.T) {
	db := setup(t)
	rec := R("name", "Ann")
	must(db.Insert("users", rec))
	deepEqual(t, rec.ID, int64(0))
	deepEqual(t, rec.Has(IDField), false)
}

func TestUpdatePreservesFields(t *testing.T) {
	db := setup(t)
	must(db.InsertMany("users", []*Record{R("name", "Ann", "age", 30), R("name", "Bob", "age", 40)}))

	ids := must(db.Update("users", ByID(1), R("name", "Anna", "id", 99)))
	deepEqual(t, ids, []int64{1})

	rec := must(db.Select("users", ByID(1), ModeAuto)).One
	deepEqual(t, rec.Map(), map[string]string{"id": "1", "name": "Anna", "age": "30"})

	ids = must(db.Update("users", All(), R("city", "Paris")))
	deepEqual(t, ids, []int64{1, 2})
	rec = must(db.Select("users", ByID(2), ModeAuto)).One
	deepEqual(t, rec.Map(), map[string]string{"id": "2", "name": "Bob", "age": "40", "city": "Paris"})

	isempty(t, must(db.Update("users", ByID(5), R("name", "x"))))
	deepEqual(t, must(db.Count("users")), 2)
}

func TestRemoveIsPrecise(t *testing.T) {
	db := setup(t)
	for i := 0; i < 12; i++ {
		must(db.Insert("users", R("n", i)))
	}
	must(db.Insert("users2", R("n", "other")))

	deepEqual(t, must(db.Remove("users", ByID(1))), []int64{1})

	res := must(db.SelectAll("users", ModeObject))
	deepEqual(t, res.Len(), 11)
	isnil(t, res.ByID[1])
	isnonnil(t, res.ByID[10])
	isnonnil(t, res.ByID[11])
	deepEqual(t, res.ByID[10].Str("n"), "9")
	deepEqual(t, must(db.Count("users2")), 1)

	deepEqual(t, must(db.Remove("users", Where(func(rec *Record) bool { return rec.ID > 10 }))), []int64{11, 12})
	deepEqual(t, must(db.Count("users")), 9)
	isempty(t, must(db.Remove("users", ByID(1))))

	// removal leaves the counter alone
	deepEqual(t, must(db.Insert("users", R("n", "new"))), int64(13))
}

func TestDrop(t *testing.T) {
	db := setup(t)
	must(db.InsertMany("users", []*Record{R("name", "a"), R("name", "b")}))
	must(db.Insert("posts", R("title", "Hi")))

	// 2 rows * 2 fields + counter
	deepEqual(t, must(db.Drop("users")), 5)
	deepEqual(t, must(db.Count("users")), 0)
	isempty(t, must(scanKeys(db.Store(), TablePrefix("db", "users"))))
	deepEqual(t, must(db.Count("posts")), 1)

	deepEqual(t, must(db.Insert("users", R("name", "c"))), int64(1))
	deepEqual(t, must(db.DropTable("nothing")), 0)
}

func TestMalformedKeysAreSkipped(t *testing.T) {
	db := setup(t)
	must(db.Insert("users", R("name", "Ann")))

	s := db.Store()
	ok(t, s.Set("db_users_abc_name", "x"))
	ok(t, s.Set("db_users_2_", "x"))
	ok(t, s.Set("db_users_0_name", "x"))
	ok(t, s.Set("db_users_", "x"))

	res := must(db.SelectAll("users", ModeArray))
	deepEqual(t, len(res.List), 1)
	deepEqual(t, res.List[0].Str("name"), "Ann")
}

func TestInsertNilRecord(t *testing.T) {
	db := setup(t)

	deepEqual(t, must(db.Insert("users", nil)), int64(1))
	deepEqual(t, must(db.InsertMany("users", []*Record{R("name", "Ann"), nil})), []int64{2, 3})

	res := must(db.SelectAll("users", ModeObject))
	deepEqual(t, res.ByID[1].Map(), map[string]string{"id": "1"})
	deepEqual(t, res.ByID[3].Map(), map[string]string{"id": "3"})
	deepEqual(t, res.ByID[2].Str("name"), "Ann")
}

func TestPredicateRunsOncePerRecord(t *testing.T) {
	db := setup(t)
	for i := 0; i < 5; i++ {
		must(db.Insert("users", R("n", i)))
	}

	var calls int
	odd := Where(func(rec *Record) bool {
		calls++
		return rec.ID%2 == 1
	})

	deepEqual(t, must(db.Select("users", odd, ModeArray)).IDs(), []int64{1, 3, 5})
	deepEqual(t, calls, 5)

	calls = 0
	deepEqual(t, must(db.Update("users", odd, R("odd", "yes"))), []int64{1, 3, 5})
	deepEqual(t, calls, 5)

	calls = 0
	deepEqual(t, must(db.Remove("users", odd)), []int64{1, 3, 5})
	deepEqual(t, calls, 5)
	deepEqual(t, must(db.Count("users")), 2)
}

func TestEach(t *testing.T) {
	db := setup(t)
	must(db.InsertMany("users", []*Record{R("name", "Ann", "age", 30), R("name", "Bob", "age", 40)}))

	var seen []string
	ids := must(db.Each("users", func(id int64, field string, v Value) (Value, bool) {
		seen = append(seen, Int(id).String()+"."+field+"="+v.String())
		if field == "name" {
			return Text(v.String() + "!"), true
		}
		return v, false
	}))
	deepEqual(t, ids, []int64{1, 2})
	deepEqual(t, seen, []string{"1.age=30", "1.id=1", "1.name=Ann", "2.age=40", "2.id=2", "2.name=Bob"})
	deepEqual(t, names(must(db.SelectAll("users", ModeArray)).List), []string{"Ann!", "Bob!"})

	// the id field is never rewritten
	ids = must(db.Each("users", func(id int64, field string, v Value) (Value, bool) {
		return Int(99), field == IDField
	}))
	isempty(t, ids)
	deepEqual(t, must(db.SelectAll("users", ModeArray)).IDs(), []int64{1, 2})

	isempty(t, must(db.Each("nothing", func(int64, string, Value) (Value, bool) { return Value{}, true })))

	_, err := db.Each("users", func(int64, string, Value) (Value, bool) { panic("boom") })
	var te *TableError
	if !errors.As(err, &te) {
		t.Fatalf("** got %v, wanted *TableError", err)
	}
	deepEqual(t, te.Op, "each")
	deepEqual(t, te.ID, int64(1))
}

func TestFieldOnlyRowGetsID(t *testing.T) {
	db := setup(t)
	ok(t, db.Store().Set(EncodeKey("db", "users", 3, "name"), "Ann"))

	rec := must(db.Select("users", ByID(3), ModeAuto)).One
	isnonnil(t, rec)
	deepEqual(t, rec.Map(), map[string]string{"id": "3", "name": "Ann"})
}

func TestDatabasesAreIsolated(t *testing.T) {
	store := NewMemStore()
	a := must(Open(store, Options{Database: "a"}))
	b := must(Open(store, Options{Database: "b"}))

	must(a.Insert("users", R("name", "Ann")))
	deepEqual(t, must(b.Count("users")), 0)
	deepEqual(t, must(b.Insert("users", R("name", "Bob"))), int64(1))
	deepEqual(t, must(a.Select("users", ByID(1), ModeAuto)).One.Str("name"), "Ann")
}

func TestFallbackScan(t *testing.T) {
	db := must(Open(plainStore{NewMemStore()}, Options{}))
	must(db.InsertMany("users", []*Record{R("name", "a"), R("name", "b")}))
	must(db.Insert("posts", R("title", "Hi")))

	deepEqual(t, names(must(db.SelectAll("users", ModeArray)).List), []string{"a", "b"})
	deepEqual(t, must(db.Remove("users", ByID(1))), []int64{1})
	deepEqual(t, must(db.Drop("posts")), 3)
	deepEqual(t, must(db.ShowTables()), []string{"users"})
}

func TestSelectorErrors(t *testing.T) {
	db := setup(t)
	must(db.Insert("users", R("name", "Ann")))

	_, err := db.Select("users", ByID(0), ModeAuto)
	iserr(t, err, ErrInvalidSelector)

	_, err = db.Update("users", ByID(-1), R("name", "x"))
	iserr(t, err, ErrInvalidSelector)

	_, err = db.Select("users", Where(func(rec *Record) bool { panic("boom") }), ModeAuto)
	var te *TableError
	if !errors.As(err, &te) {
		t.Fatalf("** got %v, wanted *TableError", err)
	}
	deepEqual(t, te.Op, "selector")
	deepEqual(t, te.ID, int64(1))
}

func TestNameValidation(t *testing.T) {
	db := setup(t)

	_, err := db.Insert("bad_table", R("name", "x"))
	iserr(t, err, ErrInvalidName)

	_, err = db.Insert("users", R("first_name", "x"))
	iserr(t, err, ErrInvalidName)
	deepEqual(t, must(db.Count("users")), 0)

	_, err = db.Insert("", R("name", "x"))
	iserr(t, err, ErrInvalidName)

	_, err = Open(NewMemStore(), Options{Database: "a_b"})
	iserr(t, err, ErrInvalidName)
}

func TestOpenUnavailable(t *testing.T) {
	_, err := Open(nil, Options{})
	iserr(t, err, ErrStoreUnavailable)

	s := NewMemStore()
	ok(t, s.Close())
	_, err = Open(s, Options{})
	iserr(t, err, ErrStoreUnavailable)

	_, err = OpenBolt(filepath.Join(t.TempDir(), "missing", "x.db"), BoltOptions{IsTesting: true})
	iserr(t, err, ErrStoreUnavailable)
}

func TestStoreFailureWrapsTableError(t *testing.T) {
	s := NewMemStore()
	db := must(Open(s, Options{}))
	ok(t, s.Close())

	_, err := db.Insert("users", R("name", "x"))
	var te *TableError
	if !errors.As(err, &te) {
		t.Fatalf("** got %v, wanted *TableError", err)
	}
	deepEqual(t, te.Table, "users")
	iserr(t, err, errMemStoreClosed)
}

func TestVerboseLogging(t *testing.T) {
	var lines []string
	db := must(Open(NewMemStore(), Options{
		Verbose: true,
		Logf: func(format string, args ...any) {
			lines = append(lines, format)
		},
	}))
	must(db.Insert("users", R("name", "Ann")))
	must(db.Update("users", ByID(1), R("name", "Anna")))
	must(db.Remove("users", ByID(1)))
	must(db.Drop("users"))

	deepEqual(t, lines, []string{
		"kvrel: connected to %q",
		"kvrel: INSERT %s/%d %s",
		"kvrel: UPDATE %s/%d %s",
		"kvrel: REMOVE %s/%d",
		"kvrel: DROP %s (%d keys)",
	})
}

func TestBoltPersistence(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kvrel.db")

	store := must(OpenBolt(path, BoltOptions{IsTesting: true}))
	db := must(Open(store, Options{}))
	must(db.InsertMany("users", []*Record{R("name", "Ann"), R("name", "Bob")}))
	ok(t, db.Close())

	store = must(OpenBolt(path, BoltOptions{IsTesting: true}))
	db = must(Open(store, Options{}))
	defer db.Close()
	deepEqual(t, names(must(db.SelectAll("users", ModeArray)).List), []string{"Ann", "Bob"})
	deepEqual(t, must(db.Insert("users", R("name", "Cid"))), int64(3))
}

// plainStore hides Scanner so that engine operations use Len/KeyAt/Get.
type plainStore struct {
	Store
}

func names(recs []*Record) []string {
	var out []string
	for _, rec := range recs {
		out = append(out, rec.Str("name"))
	}
	return out
}

// setup opens a database over a temporary Bolt file, or over a MemStore
// in -short mode.
func setup(t testing.TB) *DB {
	t.Helper()

	var store Store
	if testing.Short() {
		store = NewMemStore()
	} else {
		dbFile := must(os.CreateTemp("", "kvrel_test_*.db"))
		t.Logf("DB: %s", dbFile.Name())
		dbFile.Close()
		t.Cleanup(func() { os.Remove(dbFile.Name()) })
		store = must(OpenBolt(dbFile.Name(), BoltOptions{IsTesting: true}))
	}

	db := must(Open(store, Options{Logf: t.Logf, Verbose: testing.Verbose()}))
	t.Cleanup(func() { db.Close() })
	return db
}

func must2[A, B any](a A, b B, err error) (A, B) {
	if err != nil {
		panic(err)
	}
	return a, b
}

func ok(t testing.TB, err error) {
	if err != nil {
		t.Helper()
		t.Fatalf("** %v", err)
	}
}

func iserr(t testing.TB, err, target error) {
	if !errors.Is(err, target) {
		t.Helper()
		t.Errorf("** got error %v, wanted %v", err, target)
	}
}

func deepEqual[T any](t testing.TB, a, e T) {
	if !reflect.DeepEqual(a, e) {
		t.Helper()
		t.Errorf("** got %v, wanted %v", a, e)
	}
}

func isempty[T any, S ~[]T](t testing.TB, a S) {
	if len(a) > 0 {
		t.Helper()
		t.Errorf("** got %v, wanted empty slice", a)
	}
}

func isnil[T any, P ~*T](t testing.TB, a P) {
	if a != nil {
		t.Helper()
		t.Errorf("** got &%v, wanted nil", *a)
	}
}

func isnonnil[T any](t testing.TB, a *T) {
	if a == nil {
		t.Helper()
		t.Errorf("** got nil %T, wanted non-nil", a)
	}
}
