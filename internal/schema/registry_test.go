package schema

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry_KeySet(t *testing.T) {
	reg := Default()

	keys := reg.Keys()
	assert.Len(t, keys, 42)

	seen := make(map[Key]bool)
	for _, k := range keys {
		assert.False(t, seen[k], "duplicate key %q", k)
		seen[k] = true
	}

	// every group member, numeric, flag, scalar and computed key is registered
	for _, g := range reg.Categorical() {
		for _, k := range g.Keys {
			assert.True(t, reg.Has(k), k)
		}
	}
	for _, g := range reg.MultiSelect() {
		for _, k := range g.Keys {
			assert.True(t, reg.Has(k), k)
		}
	}
	for _, k := range append(reg.Numeric(), reg.Flags()...) {
		assert.True(t, reg.Has(k), k)
	}
	for _, k := range []Key{KeyStatus, KeyFollowUp, KeyParentalAgeDiff, KeySymptomScore} {
		assert.True(t, reg.Has(k), k)
	}
}

func TestDefaultRegistry_MalformedHeartRateKey(t *testing.T) {
	reg := Default()

	_, ok := reg.Lookup("Heart Rate (rates/min")
	assert.True(t, ok)

	_, ok = reg.Lookup("Heart Rate (rates/min)")
	assert.False(t, ok, "the corrected spelling must not be part of the contract")

	f, ok := reg.Field(KeyHeartRate)
	require.True(t, ok)
	assert.Equal(t, KindNumeric, f.Kind)
	assert.Equal(t, "Heart Rate (rates/min)", f.Label)
}

func TestDefaultRegistry_Groups(t *testing.T) {
	reg := Default()

	gender, ok := reg.CategoricalGroup(GroupGender)
	require.True(t, ok)
	assert.Equal(t, []string{"ambiguous", "female", "male"}, gender.Options)
	assert.Equal(t, "female", gender.Default)
	assert.Equal(t, 2, gender.OptionIndex("male"))
	assert.Equal(t, -1, gender.OptionIndex("unknown"))

	blood, ok := reg.CategoricalGroup(GroupBloodTest)
	require.True(t, ok)
	assert.Equal(t, "normal", blood.Default)
	assert.Equal(t, Key("Blood test result_slightly abnormal"), blood.Keys[3])

	symptoms, ok := reg.MultiSelectGroup(GroupSymptoms)
	require.True(t, ok)
	assert.Equal(t, 5, symptoms.Size())

	_, ok = reg.CategoricalGroup(GroupTests)
	assert.False(t, ok)
}

func TestDefaultRegistry_VisibleFlags(t *testing.T) {
	reg := Default()

	visible := reg.VisibleFlags()
	assert.Equal(t, []Key{"Genes in mother's side", "Inherited from father", "Maternal gene", "Paternal gene"}, visible)
	assert.Len(t, reg.Flags(), 13)
	assert.False(t, reg.IsVisible("Birth defects"))
	assert.False(t, reg.IsVisible(KeyStatus))
}

func TestDefaultRegistry_ReturnsCopies(t *testing.T) {
	reg := Default()

	numeric := reg.Numeric()
	numeric[0] = "tampered"
	assert.Equal(t, Key("Patient Age"), reg.Numeric()[0])

	groups := reg.Categorical()
	groups[0].ID = "tampered"
	groups[0].Options[1] = "tampered"
	groups[0].Keys[1] = "tampered"
	gender, ok := reg.CategoricalGroup(GroupGender)
	require.True(t, ok)
	assert.Equal(t, []string{"ambiguous", "female", "male"}, gender.Options)
	assert.Equal(t, Key("Gender_female"), gender.Keys[1])

	gender.Options[0] = "tampered"
	again, _ := reg.CategoricalGroup(GroupGender)
	assert.Equal(t, "ambiguous", again.Options[0])

	multi := reg.MultiSelect()
	multi[0].Keys[0] = "tampered"
	multi[0].Labels[0] = "tampered"
	fresh, ok := reg.MultiSelectGroup(multi[0].ID)
	require.True(t, ok)
	assert.NotEqual(t, Key("tampered"), fresh.Keys[0])
	assert.NotEqual(t, "tampered", fresh.Labels[0])

	fresh.Keys[0] = "tampered"
	assert.NotEqual(t, Key("tampered"), reg.MultiSelect()[0].Keys[0])
}

func TestPayload_RejectsUnknownKeys(t *testing.T) {
	p := Default().NewPayload()

	err := p.Set("Heart Rate (rates/min)", 80)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown schema key")

	require.NoError(t, p.Set(KeyHeartRate, 80))
	v, ok := p.Get(KeyHeartRate)
	assert.True(t, ok)
	assert.Equal(t, 80.0, v)
	assert.False(t, p.Complete())
	assert.Len(t, p.Missing(), 41)
}

func TestPayload_MarshalJSONWireOrder(t *testing.T) {
	reg := Default()
	p := reg.NewPayload()
	for i, k := range reg.Keys() {
		require.NoError(t, p.Set(k, float64(i)))
	}
	require.True(t, p.Complete())

	data, err := json.Marshal(p)
	require.NoError(t, err)

	body := string(data)
	assert.True(t, strings.HasPrefix(body, `{"Gender_ambiguous":0,"Gender_female":1`))
	assert.Contains(t, body, `"Heart Rate (rates/min":31`)
	assert.True(t, strings.HasSuffix(body, `"Birth defects":41}`))

	var decoded map[string]float64
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Len(t, decoded, reg.Len())
}
