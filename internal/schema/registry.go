// Package schema holds the closed catalog of feature keys expected by the
// prediction service. No other package spells a schema key.
package schema

import "fmt"

// Key is an exact external feature name. Keys are case- and
// punctuation-sensitive and must match the wire contract byte-for-byte.
type Key string

// Kind classifies how a field is populated.
type Kind int

const (
	KindCategorical Kind = iota
	KindNumeric
	KindMultiSelect
	KindBinaryFlag
	KindScalar
	KindComputed
)

// String returns the kind name used in schema listings
func (k Kind) String() string {
	switch k {
	case KindCategorical:
		return "categorical"
	case KindNumeric:
		return "numeric"
	case KindMultiSelect:
		return "multi_select"
	case KindBinaryFlag:
		return "binary_flag"
	case KindScalar:
		return "scalar"
	case KindComputed:
		return "computed"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// GroupID names a categorical or multi-select group
type GroupID string

const (
	GroupGender    GroupID = "gender"
	GroupBloodTest GroupID = "blood_test"
	GroupTests     GroupID = "tests"
	GroupSymptoms  GroupID = "symptoms"
)

// Keys referenced by name outside the registry tables.
const (
	KeyMotherAge       Key = "Mother's age"
	KeyFatherAge       Key = "Father's age"
	KeyParentalAgeDiff Key = "Parental Age Diff"
	KeySymptomScore    Key = "Symptom Score"
	KeyStatus          Key = "Status"
	KeyFollowUp        Key = "Follow-up"

	// KeyHeartRate is missing its closing parenthesis upstream. The service
	// trains on this exact string, so it must not be corrected here.
	KeyHeartRate Key = "Heart Rate (rates/min"
)

// Field is one entry of the registry
type Field struct {
	Key     Key     `json:"key"`
	Kind    Kind    `json:"-"`
	Group   GroupID `json:"group,omitempty"`
	Index   int     `json:"index"`
	Default float64 `json:"default"`
	Label   string  `json:"label"`
}

// CategoricalGroup is a mutually exclusive, one-hot encoded attribute.
// Options[i] is the selection value that sets Keys[i].
type CategoricalGroup struct {
	ID      GroupID  `json:"id"`
	Label   string   `json:"label"`
	Keys    []Key    `json:"keys"`
	Options []string `json:"options"`
	Default string   `json:"default"`
}

// OptionIndex returns the position of option in the group, or -1
func (g CategoricalGroup) OptionIndex(option string) int {
	for i, o := range g.Options {
		if o == option {
			return i
		}
	}
	return -1
}

func (g CategoricalGroup) clone() CategoricalGroup {
	g.Keys = append([]Key(nil), g.Keys...)
	g.Options = append([]string(nil), g.Options...)
	return g
}

// MultiSelectGroup is a set-valued attribute. Member Keys[i] represents
// selection value i+1.
type MultiSelectGroup struct {
	ID     GroupID  `json:"id"`
	Label  string   `json:"label"`
	Keys   []Key    `json:"keys"`
	Labels []string `json:"labels"`
}

// Size returns the number of selectable values
func (g MultiSelectGroup) Size() int {
	return len(g.Keys)
}

func (g MultiSelectGroup) clone() MultiSelectGroup {
	g.Keys = append([]Key(nil), g.Keys...)
	g.Labels = append([]string(nil), g.Labels...)
	return g
}

// LegendEntry describes a field for the input surface
type LegendEntry struct {
	Label       string `json:"label"`
	Description string `json:"description"`
}

// Registry is the immutable catalog. Obtain it with Default.
type Registry struct {
	fields      []Field
	byKey       map[Key]int
	categorical []CategoricalGroup
	multi       []MultiSelectGroup
	numeric     []Key
	flags       []Key
	visible     map[Key]bool
	legend      []LegendEntry
}

var defaultRegistry = build()

// Default returns the process-wide registry
func Default() *Registry {
	return defaultRegistry
}

// Keys returns every registered key in wire order
func (r *Registry) Keys() []Key {
	out := make([]Key, len(r.fields))
	for i, f := range r.fields {
		out[i] = f.Key
	}
	return out
}

// Len returns the size of the key set
func (r *Registry) Len() int {
	return len(r.fields)
}

// Fields returns a copy of all field descriptors in wire order
func (r *Registry) Fields() []Field {
	out := make([]Field, len(r.fields))
	copy(out, r.fields)
	return out
}

// Field looks up a field by key
func (r *Registry) Field(k Key) (Field, bool) {
	i, ok := r.byKey[k]
	if !ok {
		return Field{}, false
	}
	return r.fields[i], true
}

// Lookup converts an arbitrary string into a registered Key
func (r *Registry) Lookup(name string) (Key, bool) {
	_, ok := r.byKey[Key(name)]
	return Key(name), ok
}

// Has reports whether k is part of the key set
func (r *Registry) Has(k Key) bool {
	_, ok := r.byKey[k]
	return ok
}

// Categorical returns deep copies of the categorical groups in declaration
// order
func (r *Registry) Categorical() []CategoricalGroup {
	out := make([]CategoricalGroup, len(r.categorical))
	for i, g := range r.categorical {
		out[i] = g.clone()
	}
	return out
}

// CategoricalGroup looks up a categorical group by id
func (r *Registry) CategoricalGroup(id GroupID) (CategoricalGroup, bool) {
	for _, g := range r.categorical {
		if g.ID == id {
			return g.clone(), true
		}
	}
	return CategoricalGroup{}, false
}

// MultiSelect returns deep copies of the multi-select groups in declaration
// order
func (r *Registry) MultiSelect() []MultiSelectGroup {
	out := make([]MultiSelectGroup, len(r.multi))
	for i, g := range r.multi {
		out[i] = g.clone()
	}
	return out
}

// MultiSelectGroup looks up a multi-select group by id
func (r *Registry) MultiSelectGroup(id GroupID) (MultiSelectGroup, bool) {
	for _, g := range r.multi {
		if g.ID == id {
			return g.clone(), true
		}
	}
	return MultiSelectGroup{}, false
}

// Numeric returns the numeric keys in registry order
func (r *Registry) Numeric() []Key {
	return append([]Key(nil), r.numeric...)
}

// Flags returns every binary flag key
func (r *Registry) Flags() []Key {
	return append([]Key(nil), r.flags...)
}

// VisibleFlags returns the binary flags exposed to user input
func (r *Registry) VisibleFlags() []Key {
	out := make([]Key, 0, len(r.visible))
	for _, k := range r.flags {
		if r.visible[k] {
			out = append(out, k)
		}
	}
	return out
}

// IsVisible reports whether a binary flag is exposed to user input
func (r *Registry) IsVisible(k Key) bool {
	return r.visible[k]
}

// Legend returns the field descriptions shown next to the input surface
func (r *Registry) Legend() []LegendEntry {
	out := make([]LegendEntry, len(r.legend))
	copy(out, r.legend)
	return out
}
