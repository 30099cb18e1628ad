package schema

import "fmt"

var categoricalTable = []CategoricalGroup{
	{
		ID:      GroupGender,
		Label:   "Gender",
		Keys:    []Key{"Gender_ambiguous", "Gender_female", "Gender_male"},
		Options: []string{"ambiguous", "female", "male"},
		Default: "female",
	},
	{
		ID:    GroupBloodTest,
		Label: "Blood Test Result",
		Keys: []Key{
			"Blood test result_abnormal",
			"Blood test result_inconclusive",
			"Blood test result_normal",
			"Blood test result_slightly abnormal",
		},
		Options: []string{"abnormal", "inconclusive", "normal", "slightly abnormal"},
		Default: "normal",
	},
}

var multiSelectTable = []MultiSelectGroup{
	{
		ID:    GroupTests,
		Label: "Clinical Tests",
		Keys:  []Key{"Test 1", "Test 2", "Test 3", "Test 4", "Test 5"},
		Labels: []string{
			"Karyotyping / Chromosomal Analysis",
			"PCR / Molecular Genetic Test",
			"Enzyme Assay / Biochemical Test",
			"Prenatal Imaging / Ultrasound",
			"Hormone / Metabolic Panel",
		},
	},
	{
		ID:    GroupSymptoms,
		Label: "Symptoms",
		Keys:  []Key{"Symptom 1", "Symptom 2", "Symptom 3", "Symptom 4", "Symptom 5"},
		Labels: []string{
			"Developmental Delay / Growth Issues",
			"Neurological Symptoms (Seizures, Weakness)",
			"Respiratory Difficulties",
			"Cardiac Abnormalities",
			"Physical Traits / Dysmorphic Features",
		},
	},
}

var numericTable = []Key{
	"Patient Age",
	"Blood cell count (mcL)",
	KeyMotherAge,
	KeyFatherAge,
	"No. of previous abortion",
	"White Blood cell count (thousand per microliter)",
	"Respiratory Rate (breaths/min)",
	KeyHeartRate,
}

var flagTable = []Key{
	"Genes in mother's side",
	"Inherited from father",
	"Maternal gene",
	"Paternal gene",
	"Birth asphyxia",
	"Autopsy shows birth defect (if applicable)",
	"Folic acid details (peri-conceptional)",
	"H/O serious maternal illness",
	"H/O radiation exposure (x-ray)",
	"H/O substance abuse",
	"Assisted conception IVF/ART",
	"History of anomalies in previous pregnancies",
	"Birth defects",
}

var visibleFlagTable = []Key{
	"Genes in mother's side",
	"Inherited from father",
	"Maternal gene",
	"Paternal gene",
}

// wireOrder is the feature order of the training schema
var wireOrder = []Key{
	"Gender_ambiguous",
	"Gender_female",
	"Gender_male",
	"Blood test result_abnormal",
	"Blood test result_inconclusive",
	"Blood test result_normal",
	"Blood test result_slightly abnormal",
	"Patient Age",
	"Blood cell count (mcL)",
	KeyMotherAge,
	KeyFatherAge,
	"Test 1",
	"Test 2",
	"Test 3",
	"Test 4",
	"Test 5",
	"No. of previous abortion",
	"White Blood cell count (thousand per microliter)",
	"Symptom 1",
	"Symptom 2",
	"Symptom 3",
	"Symptom 4",
	"Symptom 5",
	KeyParentalAgeDiff,
	KeySymptomScore,
	"Genes in mother's side",
	"Inherited from father",
	"Maternal gene",
	"Paternal gene",
	KeyStatus,
	"Respiratory Rate (breaths/min)",
	KeyHeartRate,
	KeyFollowUp,
	"Birth asphyxia",
	"Autopsy shows birth defect (if applicable)",
	"Folic acid details (peri-conceptional)",
	"H/O serious maternal illness",
	"H/O radiation exposure (x-ray)",
	"H/O substance abuse",
	"Assisted conception IVF/ART",
	"History of anomalies in previous pregnancies",
	"Birth defects",
}

var legendTable = []LegendEntry{
	{"Patient Age", "Represents the age of a patient"},
	{"Genes in mother's side", "Represents a gene defect in a patient's mother"},
	{"Inherited from father", "Represents a gene defect in a patient's father"},
	{"Maternal gene", "Represents a gene defect in the patient's maternal side of the family"},
	{"Paternal gene", "Represents a gene defect in a patient's paternal side of the family"},
	{"Blood cell count (mcL)", "Represents the blood cell count of a patient"},
	{"Mother's age", "Represents a patient's mother's age"},
	{"Father's age", "Represents a patient's father's age"},
	{"Status", "Represents whether a patient is deceased"},
	{"Respiratory Rate (breaths/min)", "Represents a patient's respiratory breathing rate"},
	{"Heart Rate (rates/min)", "Represents a patient's heart rate"},
	{"Test 1 - Test 5", "Represents different (masked) tests that were conducted on a patient"},
	{"Follow-up", "Represents a patient's level of risk (how intense their condition is)"},
	{"Gender", "Represents a patient's gender"},
	{"Birth asphyxia", "Represents whether a patient suffered from birth asphyxia"},
	{"Autopsy shows birth defect (if applicable)", "Represents whether a patient's autopsy showed any birth defects"},
	{"Folic acid details (peri-conceptional)", "Represents the periconceptional folic acid supplementation details of a patient"},
	{"H/O serious maternal illness", "Represents an unexpected outcome of labor and delivery that resulted in significant short or long-term consequences to a patient's mother"},
	{"H/O radiation exposure (x-ray)", "Represents whether a patient has any radiation exposure history"},
	{"H/O substance abuse", "Represents whether a parent has a history of drug addiction"},
	{"Assisted conception IVF/ART", "Represents the type of treatment used for infertility"},
	{"History of anomalies in previous pregnancies", "Represents whether the mother had any anomalies in her previous pregnancies"},
	{"No. of previous abortion", "Represents the number of abortions that a mother had"},
	{"Birth defects", "Represents whether a patient has birth defects"},
	{"White Blood cell count (thousand per microliter)", "Represents a patient's white blood cell count"},
	{"Blood test result", "Represents a patient's blood test result"},
	{"Symptom 1 - Symptom 5", "Represents (masked) different types of symptoms that a patient had"},
	{"Genetic Disorder", "Represents the genetic disorder that a patient has"},
	{"Disorder Subclass", "Represents the subclass of the disorder"},
}

// build assembles the registry from the tables and panics on any
// inconsistency, since a broken table is a programming error.
func build() *Registry {
	described := make(map[Key]Field, len(wireOrder))
	add := func(f Field) {
		if _, dup := described[f.Key]; dup {
			panic(fmt.Sprintf("schema: key %q declared twice", f.Key))
		}
		described[f.Key] = f
	}

	for _, g := range categoricalTable {
		if len(g.Keys) != len(g.Options) {
			panic(fmt.Sprintf("schema: group %s has %d keys and %d options", g.ID, len(g.Keys), len(g.Options)))
		}
		if g.OptionIndex(g.Default) < 0 {
			panic(fmt.Sprintf("schema: group %s default %q is not an option", g.ID, g.Default))
		}
		for i, k := range g.Keys {
			def := 0.0
			if g.Options[i] == g.Default {
				def = 1
			}
			add(Field{Key: k, Kind: KindCategorical, Group: g.ID, Index: i, Default: def, Label: g.Options[i]})
		}
	}
	for _, g := range multiSelectTable {
		for i, k := range g.Keys {
			add(Field{Key: k, Kind: KindMultiSelect, Group: g.ID, Index: i, Label: g.Labels[i]})
		}
	}
	for i, k := range numericTable {
		label := string(k)
		if k == KeyHeartRate {
			label = "Heart Rate (rates/min)"
		}
		add(Field{Key: k, Kind: KindNumeric, Index: i, Label: label})
	}
	for i, k := range flagTable {
		add(Field{Key: k, Kind: KindBinaryFlag, Index: i, Label: string(k)})
	}
	add(Field{Key: KeyStatus, Kind: KindScalar, Default: 1, Label: "Status (alive)"})
	add(Field{Key: KeyFollowUp, Kind: KindScalar, Index: 1, Label: "Follow-up (high risk)"})
	add(Field{Key: KeyParentalAgeDiff, Kind: KindComputed, Label: "Parental Age Diff"})
	add(Field{Key: KeySymptomScore, Kind: KindComputed, Index: 1, Label: "Symptom Score"})

	if len(described) != len(wireOrder) {
		panic(fmt.Sprintf("schema: %d fields described but wire order lists %d", len(described), len(wireOrder)))
	}

	r := &Registry{
		fields:      make([]Field, 0, len(wireOrder)),
		byKey:       make(map[Key]int, len(wireOrder)),
		categorical: categoricalTable,
		multi:       multiSelectTable,
		numeric:     numericTable,
		flags:       flagTable,
		visible:     make(map[Key]bool, len(visibleFlagTable)),
		legend:      legendTable,
	}
	for _, k := range wireOrder {
		f, ok := described[k]
		if !ok {
			panic(fmt.Sprintf("schema: wire key %q has no description", k))
		}
		if _, dup := r.byKey[k]; dup {
			panic(fmt.Sprintf("schema: wire key %q listed twice", k))
		}
		r.byKey[k] = len(r.fields)
		r.fields = append(r.fields, f)
	}
	for _, k := range visibleFlagTable {
		if f, ok := described[k]; !ok || f.Kind != KindBinaryFlag {
			panic(fmt.Sprintf("schema: visible key %q is not a binary flag", k))
		}
		r.visible[k] = true
	}
	return r
}
