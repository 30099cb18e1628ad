package form

import (
	"github.com/genereveal-server/internal/schema"
)

// Sample is an externally shaped payload used to pre-fill the form.
// Keys outside the registry are ignored; missing keys read as absent.
type Sample map[string]float64

// Decode rebuilds a form state from a sample payload.
//
// The mapping is deliberately lossy: multi-select groups are not restored,
// flags outside the visible subset are forced to 0 and follow-up is reset to
// 0, whatever the sample says. Decode never fails.
func Decode(reg *schema.Registry, sample Sample) *State {
	s := New(reg)

	for _, g := range reg.Categorical() {
		selected := g.Default
		for i, k := range g.Keys {
			if v, ok := sample[string(k)]; ok && v == 1 {
				selected = g.Options[i]
				break
			}
		}
		s.selections[g.ID] = selected
	}

	for _, k := range reg.Numeric() {
		if v, ok := sample[string(k)]; ok {
			s.numbers[k] = v
		}
	}

	for _, k := range reg.Flags() {
		s.flags[k] = 0
		if !reg.IsVisible(k) {
			continue
		}
		if v, ok := sample[string(k)]; ok {
			s.flags[k] = v
		}
	}

	if v, ok := sample[string(schema.KeyStatus)]; ok {
		s.status = v
	}
	s.followUp = 0

	return s
}

// SamplePayload returns the built-in known-good example, limited to the
// keys of reg
func SamplePayload(reg *schema.Registry) Sample {
	example := schema.ExampleValues()
	out := make(Sample, reg.Len())
	for _, k := range reg.Keys() {
		if v, ok := example[k]; ok {
			out[string(k)] = v
		}
	}
	return out
}
