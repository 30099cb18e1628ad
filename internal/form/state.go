// Package form holds the editable patient form and its mapping to and from
// the prediction service's flat feature payload.
package form

import (
	"fmt"
	"math"
	"sort"

	"github.com/genereveal-server/internal/domain"
	"github.com/genereveal-server/internal/schema"
)

// State is the working model behind the guided input surface. It is created
// with defaults, mutated through its setters or by Decode, and read by Encode.
// A State is not safe for concurrent use.
type State struct {
	reg        *schema.Registry
	selections map[schema.GroupID]string
	sets       map[schema.GroupID]map[int]bool
	numbers    map[schema.Key]float64
	flags      map[schema.Key]float64
	status     float64
	followUp   float64
}

// New returns a State populated with registry defaults
func New(reg *schema.Registry) *State {
	s := &State{reg: reg}
	s.Reset()
	return s
}

// Reset restores every field to its default
func (s *State) Reset() {
	s.selections = make(map[schema.GroupID]string)
	for _, g := range s.reg.Categorical() {
		s.selections[g.ID] = g.Default
	}
	s.sets = make(map[schema.GroupID]map[int]bool)
	for _, g := range s.reg.MultiSelect() {
		s.sets[g.ID] = make(map[int]bool)
	}
	s.numbers = make(map[schema.Key]float64)
	s.flags = make(map[schema.Key]float64)
	for _, k := range s.reg.Flags() {
		s.flags[k] = 0
	}
	s.status = defaultOf(s.reg, schema.KeyStatus)
	s.followUp = defaultOf(s.reg, schema.KeyFollowUp)
}

// Registry returns the registry the state is bound to
func (s *State) Registry() *schema.Registry {
	return s.reg
}

// Clone returns a deep copy
func (s *State) Clone() *State {
	c := &State{
		reg:        s.reg,
		selections: make(map[schema.GroupID]string, len(s.selections)),
		sets:       make(map[schema.GroupID]map[int]bool, len(s.sets)),
		numbers:    make(map[schema.Key]float64, len(s.numbers)),
		flags:      make(map[schema.Key]float64, len(s.flags)),
		status:     s.status,
		followUp:   s.followUp,
	}
	for k, v := range s.selections {
		c.selections[k] = v
	}
	for id, set := range s.sets {
		cs := make(map[int]bool, len(set))
		for v := range set {
			cs[v] = true
		}
		c.sets[id] = cs
	}
	for k, v := range s.numbers {
		c.numbers[k] = v
	}
	for k, v := range s.flags {
		c.flags[k] = v
	}
	return c
}

// Select sets the option of a categorical group
func (s *State) Select(group schema.GroupID, option string) error {
	g, ok := s.reg.CategoricalGroup(group)
	if !ok {
		return domain.NewValidationError(string(group), "unknown categorical group", option)
	}
	if g.OptionIndex(option) < 0 {
		return domain.NewValidationError(string(group), fmt.Sprintf("unknown option %q", option), option)
	}
	s.selections[group] = option
	return nil
}

// Selection returns the current option of a categorical group
func (s *State) Selection(group schema.GroupID) string {
	return s.selections[group]
}

// Toggle flips value v (1-based) in a multi-select group
func (s *State) Toggle(group schema.GroupID, v int) error {
	set, err := s.member(group, v)
	if err != nil {
		return err
	}
	if set[v] {
		delete(set, v)
	} else {
		set[v] = true
	}
	return nil
}

// SetSelected replaces the whole selection of a multi-select group
func (s *State) SetSelected(group schema.GroupID, values []int) error {
	g, ok := s.reg.MultiSelectGroup(group)
	if !ok {
		return domain.NewValidationError(string(group), "unknown multi-select group", values)
	}
	next := make(map[int]bool, len(values))
	for _, v := range values {
		if v < 1 || v > g.Size() {
			return domain.NewValidationError(string(group), fmt.Sprintf("value %d outside 1..%d", v, g.Size()), v)
		}
		next[v] = true
	}
	s.sets[group] = next
	return nil
}

// Selected returns the sorted values selected in a multi-select group
func (s *State) Selected(group schema.GroupID) []int {
	out := make([]int, 0, len(s.sets[group]))
	for v := range s.sets[group] {
		out = append(out, v)
	}
	sort.Ints(out)
	return out
}

// IsSelected reports whether value v is selected in group
func (s *State) IsSelected(group schema.GroupID, v int) bool {
	return s.sets[group][v]
}

// SetNumber stores a numeric input. Finiteness is checked by Encode, not
// here, so that partially typed input can be held.
func (s *State) SetNumber(key schema.Key, v float64) error {
	if err := s.requireKind(key, schema.KindNumeric); err != nil {
		return err
	}
	s.numbers[key] = v
	return nil
}

// ClearNumber marks a numeric input as unset
func (s *State) ClearNumber(key schema.Key) error {
	if err := s.requireKind(key, schema.KindNumeric); err != nil {
		return err
	}
	delete(s.numbers, key)
	return nil
}

// Number returns a numeric input and whether it is set
func (s *State) Number(key schema.Key) (float64, bool) {
	v, ok := s.numbers[key]
	return v, ok
}

// SetFlag stores a 0/1 answer. Only flags in the visible subset accept input.
func (s *State) SetFlag(key schema.Key, v int) error {
	if err := s.requireKind(key, schema.KindBinaryFlag); err != nil {
		return err
	}
	if !s.reg.IsVisible(key) {
		return domain.NewValidationError(string(key), "flag is not exposed for input", v)
	}
	if v != 0 && v != 1 {
		return domain.NewValidationError(string(key), "value must be 0 or 1", v)
	}
	s.flags[key] = float64(v)
	return nil
}

// Flag returns the stored value of a binary flag
func (s *State) Flag(key schema.Key) float64 {
	return s.flags[key]
}

// SetStatus stores alive (1) or deceased (0)
func (s *State) SetStatus(v int) error {
	if v != 0 && v != 1 {
		return domain.NewValidationError(string(schema.KeyStatus), "value must be 0 or 1", v)
	}
	s.status = float64(v)
	return nil
}

// Status returns alive (1) or deceased (0)
func (s *State) Status() float64 {
	return s.status
}

// SetFollowUp stores high (1) or low (0) follow-up risk
func (s *State) SetFollowUp(v int) error {
	if v != 0 && v != 1 {
		return domain.NewValidationError(string(schema.KeyFollowUp), "value must be 0 or 1", v)
	}
	s.followUp = float64(v)
	return nil
}

// FollowUp returns the follow-up risk level
func (s *State) FollowUp() float64 {
	return s.followUp
}

// ParentalAgeDiff returns |father - mother| and false when either age is
// unset or not finite.
func (s *State) ParentalAgeDiff() (float64, bool) {
	m, mok := s.numbers[schema.KeyMotherAge]
	f, fok := s.numbers[schema.KeyFatherAge]
	if !mok || !fok || !finite(m) || !finite(f) {
		return 0, false
	}
	return math.Abs(f - m), true
}

// SymptomScore returns the number of selected symptoms
func (s *State) SymptomScore() int {
	return len(s.sets[schema.GroupSymptoms])
}

func (s *State) member(group schema.GroupID, v int) (map[int]bool, error) {
	g, ok := s.reg.MultiSelectGroup(group)
	if !ok {
		return nil, domain.NewValidationError(string(group), "unknown multi-select group", v)
	}
	if v < 1 || v > g.Size() {
		return nil, domain.NewValidationError(string(group), fmt.Sprintf("value %d outside 1..%d", v, g.Size()), v)
	}
	set := s.sets[group]
	if set == nil {
		set = make(map[int]bool)
		s.sets[group] = set
	}
	return set, nil
}

func (s *State) requireKind(key schema.Key, kind schema.Kind) error {
	f, ok := s.reg.Field(key)
	if !ok {
		return domain.NewValidationError(string(key), "unknown schema key", nil)
	}
	if f.Kind != kind {
		return domain.NewValidationError(string(key), fmt.Sprintf("field is %s, not %s", f.Kind, kind), nil)
	}
	return nil
}

func defaultOf(reg *schema.Registry, key schema.Key) float64 {
	f, _ := reg.Field(key)
	return f.Default
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
