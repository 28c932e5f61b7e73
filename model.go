package kvrel

import "fmt"

type AssocType string

const (
	HasOne  AssocType = "hasOne"
	HasMany AssocType = "hasMany"
)

// Association declares a relation from the owning model to Model.
//
// HasOne: the owner stores the target id in field LocalKey (or Name).
// HasMany with ForeignKey: each target stores the owner id in ForeignKey.
// HasMany without ForeignKey: the owner stores a comma-separated id list in
// field Name.
type Association struct {
	Name       string    `yaml:"name"`
	Type       AssocType `yaml:"type"`
	Model      string    `yaml:"model"`
	LocalKey   string    `yaml:"localKey,omitempty"`
	ForeignKey string    `yaml:"foreignKey,omitempty"`
}

func (a *Association) IsManyToMany() bool {
	return a.Type == HasMany && a.ForeignKey == ""
}

// keyField is the owner field holding the target id(s).
func (a *Association) keyField() string {
	if a.Type == HasOne && a.LocalKey != "" {
		return a.LocalKey
	}
	return a.Name
}

// Model is a stateless description of a table's fields and associations.
type Model struct {
	Name         string        `yaml:"-"`
	Table        string        `yaml:"table"`
	Fields       []string      `yaml:"fields"`
	Associations []Association `yaml:"associations,omitempty"`
}

func (m *Model) String() string {
	if m.Name != "" {
		return m.Name
	}
	return m.Table
}

func (m *Model) validate() error {
	if err := ValidateName("table", m.Table); err != nil {
		return fmt.Errorf("kvrel: model %s: %w", m, err)
	}
	for _, f := range m.Fields {
		if err := ValidateName("field", f); err != nil {
			return fmt.Errorf("kvrel: model %s: %w", m, err)
		}
	}
	seen := make(map[string]bool)
	for i := range m.Associations {
		a := &m.Associations[i]
		if err := ValidateName("association", a.Name); err != nil {
			return fmt.Errorf("kvrel: model %s: %w", m, err)
		}
		if seen[a.Name] {
			return &AssociationError{m.String(), a.Name, fmt.Errorf("%w: duplicate name", ErrInvalidAssociation)}
		}
		seen[a.Name] = true
		switch a.Type {
		case HasOne, HasMany:
		default:
			return &AssociationError{m.String(), a.Name, fmt.Errorf("%w: unknown type %q", ErrInvalidAssociation, a.Type)}
		}
		if a.Model == "" {
			return &AssociationError{m.String(), a.Name, fmt.Errorf("%w: no target model", ErrInvalidAssociation)}
		}
		for _, k := range []string{a.LocalKey, a.ForeignKey} {
			if k == "" {
				continue
			}
			if err := ValidateName("field", k); err != nil {
				return &AssociationError{m.String(), a.Name, err}
			}
		}
	}
	return nil
}

// saveFields are the fields Save projects from input records.
func (m *Model) saveFields() []string {
	fields := append([]string{IDField, FIDField}, m.Fields...)
	for _, a := range m.Associations {
		if a.Type == HasOne || a.IsManyToMany() {
			fields = append(fields, a.keyField())
		}
	}
	return fields
}
