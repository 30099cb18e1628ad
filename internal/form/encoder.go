package form

import (
	"fmt"

	"github.com/genereveal-server/internal/domain"
	"github.com/genereveal-server/internal/schema"
)

// Encode converts a form state into the payload expected by the prediction
// service. It either returns a payload covering the full key set or fails
// before any network call could be attempted.
//
// Numeric inputs are checked in registry order and the first missing or
// non-finite one is reported by its exact key.
func Encode(s *State) (*schema.Payload, error) {
	reg := s.reg
	p := reg.NewPayload()

	for _, g := range reg.Categorical() {
		selected := s.selections[g.ID]
		idx := g.OptionIndex(selected)
		if idx < 0 {
			return nil, domain.NewEncodingError(string(g.ID), fmt.Sprintf("selection %q is not a declared option", selected), selected)
		}
		for i, k := range g.Keys {
			if err := p.Set(k, oneIf(i == idx)); err != nil {
				return nil, domain.NewEncodingError(string(g.ID), err.Error(), k)
			}
		}
	}

	for _, k := range reg.Numeric() {
		v, ok := s.numbers[k]
		if !ok || !finite(v) {
			return nil, domain.NewValidationError(string(k), fmt.Sprintf("missing or invalid value for %q", string(k)), nil)
		}
		if err := p.Set(k, v); err != nil {
			return nil, domain.NewEncodingError("", err.Error(), k)
		}
	}

	// Both ages are validated above, so the fallback to 0 only guards
	// against states built around the setters.
	ageGap, _ := s.ParentalAgeDiff()
	computed := map[schema.Key]float64{
		schema.KeyParentalAgeDiff: ageGap,
		schema.KeySymptomScore:    float64(s.SymptomScore()),
	}
	for k, v := range computed {
		if err := p.Set(k, v); err != nil {
			return nil, domain.NewEncodingError("", err.Error(), k)
		}
	}

	for _, g := range reg.MultiSelect() {
		for i, k := range g.Keys {
			if err := p.Set(k, oneIf(s.sets[g.ID][i+1])); err != nil {
				return nil, domain.NewEncodingError(string(g.ID), err.Error(), k)
			}
		}
	}

	for _, k := range reg.Flags() {
		v := 0.0
		if reg.IsVisible(k) {
			v = s.flags[k]
		}
		if err := p.Set(k, v); err != nil {
			return nil, domain.NewEncodingError("", err.Error(), k)
		}
	}

	if err := p.Set(schema.KeyStatus, s.status); err != nil {
		return nil, domain.NewEncodingError("", err.Error(), schema.KeyStatus)
	}
	if err := p.Set(schema.KeyFollowUp, s.followUp); err != nil {
		return nil, domain.NewEncodingError("", err.Error(), schema.KeyFollowUp)
	}

	if missing := p.Missing(); len(missing) > 0 {
		return nil, domain.NewEncodingError("", fmt.Sprintf("payload is missing %d keys, first %q", len(missing), missing[0]), missing)
	}
	return p, nil
}

func oneIf(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
