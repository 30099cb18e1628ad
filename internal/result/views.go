package result

import (
	"math"
	"sort"
)

const secondaryTopN = 3

// Entry is one class of a confidence distribution
type Entry struct {
	Label       string  `json:"label"`
	Probability float64 `json:"probability"`
	Percent     string  `json:"percent"`
}

func newEntry(label string, p float64) Entry {
	return Entry{Label: label, Probability: p, Percent: FormatPercent(p)}
}

// View is a confidence breakdown for one role. Featured is nil when the
// resolved target has no distribution.
type View struct {
	Role     Role    `json:"role"`
	Target   string  `json:"target"`
	Featured *Entry  `json:"featured,omitempty"`
	Others   []Entry `json:"others"`
}

// PrimaryView features the most likely class of the primary target and lists
// every other class in response order.
func PrimaryView(r *PredictionResult) View {
	target := Resolve(r).Primary
	v := View{Role: RolePrimary, Target: target, Others: []Entry{}}

	dist, ok := r.Distribution(target)
	if !ok || dist.Len() == 0 {
		return v
	}

	best := -1
	for i := 0; i < dist.Len(); i++ {
		_, p := dist.At(i)
		if math.IsNaN(p) {
			continue
		}
		if best < 0 {
			best = i
			continue
		}
		if _, bp := dist.At(best); p > bp {
			best = i
		}
	}
	if best < 0 {
		best = 0
	}

	label, p := dist.At(best)
	featured := newEntry(label, p)
	v.Featured = &featured
	for i := 0; i < dist.Len(); i++ {
		l, p := dist.At(i)
		if l == featured.Label {
			continue
		}
		v.Others = append(v.Others, newEntry(l, p))
	}
	return v
}

// SecondaryView ranks the classes of the secondary target by descending
// probability and keeps the top three. Ties keep response order.
func SecondaryView(r *PredictionResult) View {
	target := Resolve(r).Secondary
	v := View{Role: RoleSecondary, Target: target, Others: []Entry{}}

	dist, ok := r.Distribution(target)
	if !ok || dist.Len() == 0 {
		return v
	}

	ranked := make([]Entry, 0, dist.Len())
	for i := 0; i < dist.Len(); i++ {
		l, p := dist.At(i)
		ranked = append(ranked, newEntry(l, p))
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Probability > ranked[j].Probability
	})
	if len(ranked) > secondaryTopN {
		ranked = ranked[:secondaryTopN]
	}

	v.Featured = &ranked[0]
	v.Others = ranked[1:]
	return v
}

// ViewFor returns the breakdown for role
func ViewFor(r *PredictionResult, role Role) (View, bool) {
	switch role {
	case RolePrimary:
		return PrimaryView(r), true
	case RoleSecondary:
		return SecondaryView(r), true
	default:
		return View{}, false
	}
}

// Tile is one entry of the results summary
type Tile struct {
	Role          Role   `json:"role"`
	Title         string `json:"title"`
	Target        string `json:"target"`
	Label         string `json:"label"`
	HasConfidence bool   `json:"has_confidence"`
}

// Summary builds the two result tiles. The primary label falls back to the
// first prediction; the secondary to the second, then the first.
func Summary(r *PredictionResult) []Tile {
	roles := Resolve(r)

	primary := Tile{Role: RolePrimary, Title: "Predicted Genetic Disorder", Target: roles.Primary}
	primary.Label = firstOf(r, roles.Primary, 0)
	_, primary.HasConfidence = r.Distribution(roles.Primary)

	secondary := Tile{Role: RoleSecondary, Title: "Predicted Disorder Subclass", Target: roles.Secondary}
	secondary.Label = firstOf(r, roles.Secondary, 1, 0)
	_, secondary.HasConfidence = r.Distribution(roles.Secondary)

	return []Tile{primary, secondary}
}

// ReportLabels returns the labels printed on the report. Unlike the summary,
// the secondary label never falls back to the first prediction.
func ReportLabels(r *PredictionResult) (primary, secondary string) {
	roles := Resolve(r)
	return firstOf(r, roles.Primary, 0), firstOf(r, roles.Secondary, 1)
}

// firstOf returns the prediction for target, else the first prediction found
// at the given positions, else Placeholder.
func firstOf(r *PredictionResult, target string, positions ...int) string {
	if l, ok := r.Prediction(target); ok {
		return l
	}
	for _, i := range positions {
		if l, ok := r.PredictionAt(i); ok {
			return l
		}
	}
	return Placeholder
}
