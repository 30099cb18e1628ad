package form

import (
	"sort"

	"github.com/genereveal-server/internal/domain"
	"github.com/genereveal-server/internal/schema"
)

// Input is a batch of edits as received from a client. Keys are checked
// against the registry when the batch is applied.
type Input struct {
	Selections map[string]string   `json:"selections,omitempty"`
	Sets       map[string][]int    `json:"sets,omitempty"`
	Numbers    map[string]*float64 `json:"numbers,omitempty"` // null clears the value
	Flags      map[string]int      `json:"flags,omitempty"`
	Status     *int                `json:"status,omitempty"`
	FollowUp   *int                `json:"follow_up,omitempty"`
}

// Apply performs every edit in the batch or none of them
func (s *State) Apply(in Input) error {
	next := s.Clone()
	if err := next.apply(in); err != nil {
		return err
	}
	*s = *next
	return nil
}

// apply walks each part of the batch in registry order so that the first
// failing entry is the same on every call. Names the registry does not
// know come last, sorted.
func (s *State) apply(in Input) error {
	var groups []string
	for _, g := range s.reg.Categorical() {
		groups = append(groups, string(g.ID))
	}
	for _, group := range inOrder(in.Selections, groups) {
		if err := s.Select(schema.GroupID(group), in.Selections[group]); err != nil {
			return err
		}
	}

	groups = groups[:0]
	for _, g := range s.reg.MultiSelect() {
		groups = append(groups, string(g.ID))
	}
	for _, group := range inOrder(in.Sets, groups) {
		if err := s.SetSelected(schema.GroupID(group), in.Sets[group]); err != nil {
			return err
		}
	}

	keys := make([]string, 0, s.reg.Len())
	for _, k := range s.reg.Keys() {
		keys = append(keys, string(k))
	}
	for _, name := range inOrder(in.Numbers, keys) {
		v := in.Numbers[name]
		key, ok := s.reg.Lookup(name)
		if !ok {
			return domain.NewValidationError(name, "unknown schema key", v)
		}
		if v == nil {
			if err := s.ClearNumber(key); err != nil {
				return err
			}
			continue
		}
		if err := s.SetNumber(key, *v); err != nil {
			return err
		}
	}
	for _, name := range inOrder(in.Flags, keys) {
		v := in.Flags[name]
		key, ok := s.reg.Lookup(name)
		if !ok {
			return domain.NewValidationError(name, "unknown schema key", v)
		}
		if err := s.SetFlag(key, v); err != nil {
			return err
		}
	}
	if in.Status != nil {
		if err := s.SetStatus(*in.Status); err != nil {
			return err
		}
	}
	if in.FollowUp != nil {
		if err := s.SetFollowUp(*in.FollowUp); err != nil {
			return err
		}
	}
	return nil
}

// inOrder returns the names present in m, following order first and then
// the remaining names sorted
func inOrder[V any](m map[string]V, order []string) []string {
	out := make([]string, 0, len(m))
	seen := make(map[string]bool, len(m))
	for _, name := range order {
		if _, ok := m[name]; ok && !seen[name] {
			out = append(out, name)
			seen[name] = true
		}
	}
	rest := make([]string, 0, len(m)-len(out))
	for name := range m {
		if !seen[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}

// Snapshot is a read-only JSON view of a State, including computed values
type Snapshot struct {
	Selections      map[schema.GroupID]string `json:"selections"`
	Sets            map[schema.GroupID][]int  `json:"sets"`
	Numbers         map[schema.Key]float64    `json:"numbers"`
	Flags           map[schema.Key]float64    `json:"flags"`
	Status          float64                   `json:"status"`
	FollowUp        float64                   `json:"follow_up"`
	ParentalAgeDiff *float64                  `json:"parental_age_diff"`
	SymptomScore    int                       `json:"symptom_score"`
}

// Snapshot captures the current values. Only visible flags are listed.
func (s *State) Snapshot() Snapshot {
	snap := Snapshot{
		Selections:   make(map[schema.GroupID]string, len(s.selections)),
		Sets:         make(map[schema.GroupID][]int, len(s.sets)),
		Numbers:      make(map[schema.Key]float64, len(s.numbers)),
		Flags:        make(map[schema.Key]float64),
		Status:       s.status,
		FollowUp:     s.followUp,
		SymptomScore: s.SymptomScore(),
	}
	for k, v := range s.selections {
		snap.Selections[k] = v
	}
	for _, g := range s.reg.MultiSelect() {
		snap.Sets[g.ID] = s.Selected(g.ID)
	}
	for k, v := range s.numbers {
		if finite(v) {
			snap.Numbers[k] = v
		}
	}
	for _, k := range s.reg.VisibleFlags() {
		snap.Flags[k] = s.flags[k]
	}
	if diff, ok := s.ParentalAgeDiff(); ok {
		snap.ParentalAgeDiff = &diff
	}
	return snap
}
