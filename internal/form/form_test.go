package form

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/genereveal-server/internal/domain"
	"github.com/genereveal-server/internal/schema"
)

// filledState returns a state with every numeric input set
func filledState(t *testing.T) *State {
	t.Helper()
	s := New(schema.Default())
	for i, k := range schema.Default().Numeric() {
		require.NoError(t, s.SetNumber(k, float64(10+i)))
	}
	return s
}

func TestNew_Defaults(t *testing.T) {
	s := New(schema.Default())

	assert.Equal(t, "female", s.Selection(schema.GroupGender))
	assert.Equal(t, "normal", s.Selection(schema.GroupBloodTest))
	assert.Empty(t, s.Selected(schema.GroupTests))
	assert.Empty(t, s.Selected(schema.GroupSymptoms))
	assert.Equal(t, 1.0, s.Status())
	assert.Equal(t, 0.0, s.FollowUp())
	_, ok := s.Number("Patient Age")
	assert.False(t, ok)
}

func TestEncode_KeySetMatchesRegistry(t *testing.T) {
	reg := schema.Default()
	p, err := Encode(filledState(t))
	require.NoError(t, err)

	assert.True(t, p.Complete())
	assert.Equal(t, reg.Len(), p.Len())

	got := p.Map()
	assert.Len(t, got, reg.Len())
	for _, k := range reg.Keys() {
		_, ok := got[string(k)]
		assert.True(t, ok, "missing %q", k)
	}
}

func TestEncode_MissingNumericNamesField(t *testing.T) {
	reg := schema.Default()

	for _, key := range reg.Numeric() {
		t.Run(string(key), func(t *testing.T) {
			s := filledState(t)
			require.NoError(t, s.ClearNumber(key))

			p, err := Encode(s)
			require.Error(t, err)
			assert.Nil(t, p)

			var verr *domain.ValidationError
			require.True(t, errors.As(err, &verr))
			assert.Equal(t, string(key), verr.Field)
			assert.Contains(t, err.Error(), string(key))
		})
	}
}

func TestEncode_FirstOffendingFieldReported(t *testing.T) {
	s := New(schema.Default())

	_, err := Encode(s)
	var verr *domain.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Equal(t, "Patient Age", verr.Field)
}

func TestEncode_NonFiniteNumeric(t *testing.T) {
	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
		s := filledState(t)
		require.NoError(t, s.SetNumber(schema.KeyHeartRate, v))

		_, err := Encode(s)
		var verr *domain.ValidationError
		require.True(t, errors.As(err, &verr))
		assert.Equal(t, "Heart Rate (rates/min", verr.Field)
	}
}

func TestEncode_NumericCopiedVerbatim(t *testing.T) {
	s := filledState(t)
	require.NoError(t, s.SetNumber("Blood cell count (mcL)", 4.987654321))

	p, err := Encode(s)
	require.NoError(t, err)

	v, _ := p.Get("Blood cell count (mcL)")
	assert.Equal(t, 4.987654321, v)
}

func TestEncode_CategoricalOneHot(t *testing.T) {
	reg := schema.Default()

	for _, g := range reg.Categorical() {
		for _, option := range g.Options {
			s := filledState(t)
			require.NoError(t, s.Select(g.ID, option))

			p, err := Encode(s)
			require.NoError(t, err)

			sum := 0.0
			for i, k := range g.Keys {
				v, _ := p.Get(k)
				sum += v
				if g.Options[i] == option {
					assert.Equal(t, 1.0, v, "%s/%s", g.ID, option)
				}
			}
			assert.Equal(t, 1.0, sum, "%s/%s", g.ID, option)
		}
	}
}

func TestEncode_UndeclaredSelection(t *testing.T) {
	s := filledState(t)
	s.selections[schema.GroupGender] = "other"

	_, err := Encode(s)
	var eerr *domain.EncodingError
	require.True(t, errors.As(err, &eerr))
	assert.Equal(t, "gender", eerr.Group)
}

func TestEncode_SymptomScore(t *testing.T) {
	tests := []struct {
		name     string
		symptoms []int
	}{
		{"empty", nil},
		{"one", []int{3}},
		{"all", []int{1, 2, 3, 4, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := filledState(t)
			require.NoError(t, s.SetSelected(schema.GroupSymptoms, tt.symptoms))

			p, err := Encode(s)
			require.NoError(t, err)

			score, _ := p.Get(schema.KeySymptomScore)
			assert.Equal(t, float64(len(tt.symptoms)), score)

			g, _ := schema.Default().MultiSelectGroup(schema.GroupSymptoms)
			for i, k := range g.Keys {
				v, _ := p.Get(k)
				assert.Equal(t, oneIf(s.IsSelected(schema.GroupSymptoms, i+1)), v, k)
			}
		})
	}
}

func TestEncode_MultiSelectIndependent(t *testing.T) {
	s := filledState(t)
	require.NoError(t, s.Toggle(schema.GroupTests, 2))
	require.NoError(t, s.Toggle(schema.GroupTests, 5))
	require.NoError(t, s.Toggle(schema.GroupTests, 5))
	require.NoError(t, s.Toggle(schema.GroupSymptoms, 1))

	p, err := Encode(s)
	require.NoError(t, err)

	want := map[schema.Key]float64{
		"Test 1": 0, "Test 2": 1, "Test 3": 0, "Test 4": 0, "Test 5": 0,
		"Symptom 1": 1, "Symptom 2": 0,
	}
	for k, v := range want {
		got, _ := p.Get(k)
		assert.Equal(t, v, got, k)
	}
}

func TestEncode_ParentalAgeDiff(t *testing.T) {
	tests := []struct {
		mother, father, want float64
	}{
		{34, 50, 16},
		{50, 34, 16},
		{30, 30, 0},
		{28.5, 31, 2.5},
	}

	for _, tt := range tests {
		s := filledState(t)
		require.NoError(t, s.SetNumber(schema.KeyMotherAge, tt.mother))
		require.NoError(t, s.SetNumber(schema.KeyFatherAge, tt.father))

		p, err := Encode(s)
		require.NoError(t, err)

		got, _ := p.Get(schema.KeyParentalAgeDiff)
		assert.Equal(t, tt.want, got)
	}
}

func TestParentalAgeDiff_NonFinite(t *testing.T) {
	s := filledState(t)
	require.NoError(t, s.SetNumber(schema.KeyFatherAge, math.NaN()))

	diff, ok := s.ParentalAgeDiff()
	assert.False(t, ok)
	assert.Equal(t, 0.0, diff)

	require.NoError(t, s.ClearNumber(schema.KeyFatherAge))
	_, ok = s.ParentalAgeDiff()
	assert.False(t, ok)
}

func TestEncode_FlagsAndScalars(t *testing.T) {
	s := filledState(t)
	require.NoError(t, s.SetFlag("Maternal gene", 1))
	require.NoError(t, s.SetStatus(0))
	require.NoError(t, s.SetFollowUp(1))
	// hidden flags can only be non-zero if something bypassed the setters
	s.flags["Birth defects"] = 1

	p, err := Encode(s)
	require.NoError(t, err)

	v, _ := p.Get("Maternal gene")
	assert.Equal(t, 1.0, v)
	v, _ = p.Get("Paternal gene")
	assert.Equal(t, 0.0, v)
	v, _ = p.Get("Birth defects")
	assert.Equal(t, 0.0, v)
	v, _ = p.Get(schema.KeyStatus)
	assert.Equal(t, 0.0, v)
	v, _ = p.Get(schema.KeyFollowUp)
	assert.Equal(t, 1.0, v)
}

func TestSetters_Reject(t *testing.T) {
	s := New(schema.Default())

	assert.Error(t, s.Select(schema.GroupGender, "unknown"))
	assert.Error(t, s.Select("eye_color", "blue"))
	assert.Error(t, s.Toggle(schema.GroupSymptoms, 0))
	assert.Error(t, s.Toggle(schema.GroupSymptoms, 6))
	assert.Error(t, s.SetSelected(schema.GroupTests, []int{1, 9}))
	assert.Error(t, s.SetNumber("Heart Rate (rates/min)", 80))
	assert.Error(t, s.SetNumber(schema.KeyStatus, 1))
	assert.Error(t, s.SetFlag("Birth defects", 1))
	assert.Error(t, s.SetFlag("Maternal gene", 2))
	assert.Error(t, s.SetStatus(3))
	assert.Error(t, s.SetFollowUp(-1))
}

func TestApply_AllOrNothing(t *testing.T) {
	s := New(schema.Default())
	age := 12.0

	err := s.Apply(Input{
		Selections: map[string]string{"gender": "male"},
		Numbers:    map[string]*float64{"Patient Age": &age, "Pulse": &age},
	})
	require.Error(t, err)
	assert.Equal(t, "female", s.Selection(schema.GroupGender))
	_, ok := s.Number("Patient Age")
	assert.False(t, ok)

	status := 0
	require.NoError(t, s.Apply(Input{
		Selections: map[string]string{"gender": "male", "blood_test": "slightly abnormal"},
		Sets:       map[string][]int{"symptoms": {1, 4}},
		Numbers:    map[string]*float64{"Patient Age": &age},
		Flags:      map[string]int{"Paternal gene": 1},
		Status:     &status,
	}))
	assert.Equal(t, "male", s.Selection(schema.GroupGender))
	assert.Equal(t, []int{1, 4}, s.Selected(schema.GroupSymptoms))
	assert.Equal(t, 1.0, s.Flag("Paternal gene"))
	assert.Equal(t, 0.0, s.Status())

	require.NoError(t, s.Apply(Input{Numbers: map[string]*float64{"Patient Age": nil}}))
	_, ok = s.Number("Patient Age")
	assert.False(t, ok)
}

func TestSnapshot(t *testing.T) {
	s := filledState(t)
	require.NoError(t, s.SetSelected(schema.GroupSymptoms, []int{2, 5}))

	snap := s.Snapshot()
	assert.Equal(t, 2, snap.SymptomScore)
	require.NotNil(t, snap.ParentalAgeDiff)
	assert.Equal(t, 1.0, *snap.ParentalAgeDiff)
	assert.Len(t, snap.Flags, 4)
	assert.Equal(t, []int{2, 5}, snap.Sets[schema.GroupSymptoms])
}

func TestApply_FirstFailureFollowsRegistryOrder(t *testing.T) {
	v := 1.0
	tests := []struct {
		name  string
		in    Input
		field string
	}{
		{
			name:  "categorical groups",
			in:    Input{Selections: map[string]string{"zz": "x", "blood_test": "nope", "gender": "nope"}},
			field: "gender",
		},
		{
			name:  "multi-select groups",
			in:    Input{Sets: map[string][]int{"zz": {1}, "symptoms": {99}, "tests": {99}}},
			field: "tests",
		},
		{
			name:  "known keys before unknown ones",
			in:    Input{Numbers: map[string]*float64{"Zzz": &v, "Paternal gene": &v, "Aaa": &v}},
			field: "Paternal gene",
		},
		{
			name:  "unknown keys sorted",
			in:    Input{Flags: map[string]int{"Zzz": 1, "Mmm": 1, "Aaa": 1}},
			field: "Aaa",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 50; i++ {
				err := New(schema.Default()).Apply(tt.in)
				var verr *domain.ValidationError
				require.True(t, errors.As(err, &verr))
				require.Equal(t, tt.field, verr.Field)
			}
		})
	}
}
