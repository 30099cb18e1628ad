// Package report builds the standalone printable report of a prediction.
package report

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strconv"

	"github.com/genereveal-server/internal/form"
	"github.com/genereveal-server/internal/result"
	"github.com/genereveal-server/internal/schema"
)

// ContentType of a synthesized document
const ContentType = "text/html; charset=utf-8"

const noNote = "No note."

// ErrNoResult is returned when there is no prediction to report on
var ErrNoResult = errors.New("no prediction result to report")

// Row is a labelled value
type Row struct {
	Label string
	Value string
}

// Section is the confidence distribution of one target
type Section struct {
	Target string
	Rows   []Row
}

// Data is everything the report shows, already formatted as text
type Data struct {
	Patient     []Row
	Outcomes    []Row
	Confidences []Section
	Note        string
}

// Document is a rendered report
type Document struct {
	Title string
	HTML  []byte
	Data  *Data
}

// Build collects the report contents. Patient rows follow a fixed order:
// gender, blood test, numerics in registry order, parental age gap and
// symptom score.
func Build(reg *schema.Registry, state *form.State, r *result.PredictionResult) (*Data, error) {
	if r == nil {
		return nil, ErrNoResult
	}
	if reg == nil {
		reg = schema.Default()
	}
	if state == nil {
		state = form.New(reg)
	}

	d := &Data{Note: r.Note}
	if d.Note == "" {
		d.Note = noNote
	}

	d.Patient = append(d.Patient,
		Row{"Gender", state.Selection(schema.GroupGender)},
		Row{"Blood Test Result", state.Selection(schema.GroupBloodTest)},
	)
	for _, k := range reg.Numeric() {
		v, ok := state.Number(k)
		d.Patient = append(d.Patient, Row{string(k), formatNumber(v, ok)})
	}
	diff, ok := state.ParentalAgeDiff()
	d.Patient = append(d.Patient,
		Row{"Parental Age Diff", formatNumber(diff, ok)},
		Row{"Symptom Score", strconv.Itoa(state.SymptomScore())},
	)

	primary, secondary := result.ReportLabels(r)
	d.Outcomes = []Row{
		{"Genetic Disorder", primary},
		{"Disorder Subclass", secondary},
	}

	for i := 0; i < r.Confidences.Len(); i++ {
		target, dist := r.Confidences.At(i)
		sec := Section{Target: target}
		for j := 0; j < dist.Len(); j++ {
			label, p := dist.At(j)
			sec.Rows = append(sec.Rows, Row{label, result.FormatPercent(p)})
		}
		d.Confidences = append(d.Confidences, sec)
	}
	return d, nil
}

// Synthesize renders the report as a self-contained HTML document. Every
// interpolated value is escaped; the document loads no external resources
// and carries no script.
func Synthesize(reg *schema.Registry, state *form.State, r *result.PredictionResult) (*Document, error) {
	d, err := Build(reg, state, r)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := htmlReport.Execute(&buf, d); err != nil {
		return nil, fmt.Errorf("failed to render report: %w", err)
	}
	return &Document{Title: title, HTML: buf.Bytes(), Data: d}, nil
}

// formatNumber prints the shortest exact decimal, or nothing when the value
// is unset or not finite
func formatNumber(v float64, ok bool) string {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}
