package kvrel

import (
	"fmt"
	"strings"
)

// FIDField carries a caller-chosen id for a record that is being inserted by
// ORM.Save. It is consumed by Save and never stored.
const FIDField = "fid"

// Object is a record loaded through a Model, with its associations resolved.
type Object struct {
	*Record
	Model *Model
	One   map[string]*Object
	Many  map[string][]*Object
}

func newObject(rec *Record, model *Model) *Object {
	return &Object{Record: rec, Model: model}
}

func (obj *Object) HasOne(name string) *Object {
	return obj.One[name]
}

func (obj *Object) HasMany(name string) []*Object {
	return obj.Many[name]
}

func (obj *Object) setOne(name string, target *Object) {
	if obj.One == nil {
		obj.One = make(map[string]*Object)
	}
	obj.One[name] = target
}

func (obj *Object) setMany(name string, targets []*Object) {
	if obj.Many == nil {
		obj.Many = make(map[string][]*Object)
	}
	obj.Many[name] = targets
}

func (obj *Object) String() string {
	if obj == nil {
		return "<nil>"
	}
	s := obj.Record.String()
	if len(obj.One) == 0 && len(obj.Many) == 0 {
		return s
	}
	var buf strings.Builder
	buf.WriteString(s[:len(s)-1])
	for _, a := range obj.assocNames() {
		buf.WriteString(", ")
		buf.WriteString(a)
		buf.WriteByte(':')
		if one, ok := obj.One[a]; ok {
			buf.WriteString(one.String())
			continue
		}
		buf.WriteByte('[')
		for i, o := range obj.Many[a] {
			if i > 0 {
				buf.WriteString(", ")
			}
			buf.WriteString(o.String())
		}
		buf.WriteByte(']')
	}
	buf.WriteByte('}')
	return buf.String()
}

func (obj *Object) assocNames() []string {
	var names []string
	if obj.Model != nil {
		for _, a := range obj.Model.Associations {
			_, one := obj.One[a.Name]
			_, many := obj.Many[a.Name]
			if one || many {
				names = append(names, a.Name)
			}
		}
	}
	return names
}

// ORM loads and saves records through the models of a Config.
type ORM struct {
	db  *DB
	cfg *Config
}

func NewORM(db *DB, cfg *Config) (*ORM, error) {
	if cfg == nil {
		cfg = &Config{}
	}
	if err := cfg.init(); err != nil {
		return nil, err
	}
	return &ORM{db: db, cfg: cfg}, nil
}

func (orm *ORM) DB() *DB { return orm.db }

func (orm *ORM) Config() *Config { return orm.cfg }

func (orm *ORM) ModelNamed(name string) (*Model, error) {
	m := orm.cfg.Models[name]
	if m == nil {
		return nil, fmt.Errorf("kvrel: %w: %s", ErrMissingAssociationModel, name)
	}
	return m, nil
}

// relation identifies an expansion step for the cycle guard.
type relation struct {
	table string
	typ   AssocType
}

// visitedSet records the relations already expanded during one Load call.
type visitedSet map[relation]bool

// Load selects records of model and recursively resolves their associations.
// A (target table, association type) pair is expanded at most once per call;
// later occurrences resolve to flat records without associations.
//
// The guard is shared by the whole call, not kept per path. Sibling
// associations reaching the same table therefore differ: with a Msg that has
// hasOne sender and recipient both pointing at User, the sender is expanded
// with its own associations and the recipient comes back flat.
func (orm *ORM) Load(model *Model, sel Selector, mode Mode) (Result[*Object], error) {
	return orm.load(model, sel, mode, make(visitedSet))
}

func (orm *ORM) load(model *Model, sel Selector, mode Mode, visited visitedSet) (Result[*Object], error) {
	objs, order, err := orm.selectObjects(model, sel)
	if err != nil {
		return Result[*Object]{}, err
	}

	for i := range model.Associations {
		a := &model.Associations[i]
		target, err := orm.ModelNamed(a.Model)
		if err != nil {
			return Result[*Object]{}, &AssociationError{model.String(), a.Name, err}
		}
		switch {
		case a.IsManyToMany():
			err = orm.resolveManyToMany(a, target, objs, order, visited)
		case a.Type == HasMany:
			err = orm.resolveOneToMany(a, target, objs, order, visited)
		case a.Type == HasOne:
			err = orm.resolveHasOne(a, target, objs, order, visited)
		default:
			err = &AssociationError{model.String(), a.Name, fmt.Errorf("%w: unknown type %q", ErrInvalidAssociation, a.Type)}
		}
		if err != nil {
			return Result[*Object]{}, err
		}
	}
	return makeResult(objs, order, mode), nil
}

func (orm *ORM) selectObjects(model *Model, sel Selector) (map[int64]*Object, []int64, error) {
	res, err := orm.db.Select(model.Table, sel, ModeObject)
	if err != nil {
		return nil, nil, err
	}
	objs := make(map[int64]*Object, len(res.ByID))
	for id, rec := range res.ByID {
		objs[id] = newObject(rec, model)
	}
	return objs, res.order, nil
}

// fetch loads target records for an association, expanding them recursively
// unless the relation was already visited.
func (orm *ORM) fetch(target *Model, typ AssocType, sel Selector, visited visitedSet) (map[int64]*Object, []int64, error) {
	rel := relation{target.Table, typ}
	if visited[rel] {
		if orm.db.isVerboseLoggingEnabled() {
			orm.db.logf("kvrel: LOAD %s via %s: already expanded, loading flat", target, typ)
		}
		return orm.selectObjects(target, sel)
	}
	visited[rel] = true
	res, err := orm.load(target, sel, ModeObject, visited)
	if err != nil {
		return nil, nil, err
	}
	return res.ByID, res.order, nil
}

func (orm *ORM) resolveHasOne(a *Association, target *Model, objs map[int64]*Object, order []int64, visited visitedSet) error {
	key := a.keyField()
	wanted := make(map[int64]int64, len(order))
	var ids []int64
	for _, id := range order {
		v, ok := objs[id].Get(key)
		if !ok {
			continue
		}
		tid, ok := v.Int()
		if !ok || tid <= 0 {
			continue
		}
		wanted[id] = tid
		ids = append(ids, tid)
	}
	if len(ids) == 0 {
		return nil
	}

	targets, _, err := orm.fetch(target, a.Type, ByIDs(ids...), visited)
	if err != nil {
		return err
	}
	for id, tid := range wanted {
		if t := targets[tid]; t != nil {
			objs[id].setOne(a.Name, t)
		}
	}
	return nil
}

func (orm *ORM) resolveOneToMany(a *Association, target *Model, objs map[int64]*Object, order []int64, visited visitedSet) error {
	if len(order) == 0 {
		return nil
	}
	owners := make(map[int64]bool, len(order))
	for _, id := range order {
		owners[id] = true
	}
	fk := a.ForeignKey
	sel := Where(func(rec *Record) bool {
		v, ok := rec.Get(fk)
		if !ok {
			return false
		}
		n, ok := v.Int()
		return ok && owners[n]
	})

	targets, torder, err := orm.fetch(target, a.Type, sel, visited)
	if err != nil {
		return err
	}
	groups := make(map[int64][]*Object)
	for _, tid := range torder {
		t := targets[tid]
		if owner, ok := foreignID(t, fk); ok {
			groups[owner] = append(groups[owner], t)
		}
	}
	for _, id := range order {
		if g := groups[id]; g != nil {
			objs[id].setMany(a.Name, g)
		}
	}
	return nil
}

// foreignID reads the owner id stored in fk, preferring the id of an
// already resolved object under the same name.
func foreignID(obj *Object, fk string) (int64, bool) {
	if o := obj.One[fk]; o != nil {
		return o.ID, true
	}
	v, ok := obj.Get(fk)
	if !ok {
		return 0, false
	}
	return v.Int()
}

func (orm *ORM) resolveManyToMany(a *Association, target *Model, objs map[int64]*Object, order []int64, visited visitedSet) error {
	lists := make(map[int64]map[int64]bool)
	var all []int64
	for _, id := range order {
		raw := objs[id].Str(a.Name)
		if raw == "" {
			// absent list leaves the association unset
			continue
		}
		set := make(map[int64]bool)
		for _, s := range ParseIDList(raw) {
			set[s] = true
			all = append(all, s)
		}
		lists[id] = set
	}
	if len(lists) == 0 {
		return nil
	}

	targets, torder, err := orm.fetch(target, a.Type, ByIDs(all...), visited)
	if err != nil {
		return err
	}
	for id, set := range lists {
		list := []*Object{}
		for _, tid := range torder {
			if set[tid] {
				list = append(list, targets[tid])
			}
		}
		objs[id].setMany(a.Name, list)
	}
	return nil
}

// ParseIDList parses "1,2,3" or a single "1". Entries that are not positive
// integers are skipped.
func ParseIDList(s string) []int64 {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		n, ok := Text(part).Int()
		if ok && n > 0 {
			ids = append(ids, n)
		}
	}
	return ids
}

// FormatIDList is the inverse of ParseIDList.
func FormatIDList(ids ...int64) string {
	strs := make([]string, len(ids))
	for i, id := range ids {
		strs[i] = Int(id).String()
	}
	return strings.Join(strs, ",")
}

// Save stores records through model. Only the model's fields, its
// association key fields, id and fid are kept. A record with an id updates
// that record (or inserts it if missing); a record with fid is inserted under
// that id; anything else is inserted with the next autoincrement id. A nil
// record is saved as an empty one.
func (orm *ORM) Save(model *Model, data ...*Record) ([]int64, error) {
	fields := model.saveFields()
	ids := make([]int64, 0, len(data))
	for _, input := range data {
		if input == nil {
			input = &Record{}
		}
		clean := &Record{}
		for _, f := range fields {
			if v, ok := input.Get(f); ok {
				clean.Set(f, v)
			}
		}
		if clean.ID <= 0 && input.ID > 0 {
			clean.setID(input.ID)
		}

		id, err := orm.saveOne(model, clean)
		if err != nil {
			return ids, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (orm *ORM) saveOne(model *Model, rec *Record) (int64, error) {
	fid, hasFID := rec.Get(FIDField)
	rec.Delete(FIDField)

	if rec.ID > 0 {
		updated, err := orm.db.Update(model.Table, ByID(rec.ID), rec)
		if err != nil {
			return 0, err
		}
		if len(updated) > 0 {
			return rec.ID, nil
		}
		return orm.db.Insert(model.Table, rec)
	}
	if hasFID {
		if n, ok := fid.Int(); ok && n > 0 {
			rec.setID(n)
		}
	}
	return orm.db.Insert(model.Table, rec)
}

// Remove deletes the record behind obj. Objects that did not come from Load
// (no Model) or have no id are ignored.
func (orm *ORM) Remove(obj *Object) error {
	if obj == nil || obj.Record == nil || obj.Model == nil || obj.ID <= 0 {
		return nil
	}
	_, err := orm.db.Remove(obj.Model.Table, ByID(obj.ID))
	return err
}
