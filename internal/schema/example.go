package schema

// ExampleValues returns a known-good payload from the service's training
// data, used to pre-fill the form.
func ExampleValues() map[Key]float64 {
	return map[Key]float64{
		"Gender_ambiguous":                                 0,
		"Gender_female":                                    1,
		"Gender_male":                                      0,
		"Blood test result_abnormal":                       0,
		"Blood test result_inconclusive":                   0,
		"Blood test result_normal":                         0,
		"Blood test result_slightly abnormal":              1,
		"Patient Age":                                      13,
		"Blood cell count (mcL)":                           5000,
		"Mother's age":                                     34,
		"Father's age":                                     50,
		"Test 1":                                           0,
		"Test 2":                                           0,
		"Test 3":                                           0,
		"Test 4":                                           0,
		"Test 5":                                           0,
		"No. of previous abortion":                         1,
		"White Blood cell count (thousand per microliter)": 12,
		"Symptom 1":                                        1,
		"Symptom 2":                                        0,
		"Symptom 3":                                        0,
		"Symptom 4":                                        0,
		"Symptom 5":                                        1,
		"Parental Age Diff":                                4,
		"Symptom Score":                                    2,
		"Genes in mother's side":                           0,
		"Inherited from father":                            1,
		"Maternal gene":                                    1,
		"Paternal gene":                                    1,
		"Status":                                           1,
		"Respiratory Rate (breaths/min)":                   10,
		"Heart Rate (rates/min":                            92,
		"Follow-up":                                        0,
		"Birth asphyxia":                                   0,
		"Autopsy shows birth defect (if applicable)":       0,
		"Folic acid details (peri-conceptional)":           0,
		"H/O serious maternal illness":                     0,
		"H/O radiation exposure (x-ray)":                   0,
		"H/O substance abuse":                              0,
		"Assisted conception IVF/ART":                      0,
		"History of anomalies in previous pregnancies":     0,
		"Birth defects":                                    0,
	}
}
