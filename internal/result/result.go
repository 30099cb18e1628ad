// Package result turns a prediction service response into presentation data:
// resolved target roles, summary tiles and confidence breakdowns.
package result

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/genereveal-server/internal/domain"
)

// Placeholder is shown wherever a value is missing
const Placeholder = "—"

// Label is a predicted class name. Non-string JSON scalars are kept as their
// literal text. Predictions hold *Label so that a null member stays distinct
// from an empty string.
type Label string

// UnmarshalJSON accepts strings, numbers and booleans
func (l *Label) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*l = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*l = Label(s)
		return nil
	}
	if len(data) > 0 && (data[0] == '{' || data[0] == '[') {
		return fmt.Errorf("label must be a scalar, got %s", data)
	}
	*l = Label(data)
	return nil
}

// Distribution maps class label to probability
type Distribution = Ordered[float64]

// PredictionResult is the response of the prediction service. It comes from
// an untrusted source, so every member is optional.
type PredictionResult struct {
	ModelID     string                `json:"model_id,omitempty"`
	Targets     []string              `json:"targets,omitempty"`
	Predictions Ordered[*Label]       `json:"predictions"`
	Confidences Ordered[Distribution] `json:"confidences"`
	Note        string                `json:"note,omitempty"`
}

// Parse decodes a response body. Anything but a JSON object is malformed.
func Parse(data []byte) (*PredictionResult, error) {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return nil, &domain.MalformedResultError{Reason: "body is not a JSON object"}
	}
	var r PredictionResult
	if err := json.Unmarshal(trimmed, &r); err != nil {
		return nil, &domain.MalformedResultError{Reason: err.Error()}
	}
	return &r, nil
}

// Check reports the expected members that are absent or empty. Rendering does
// not depend on it; callers use it to log degraded results.
func (r *PredictionResult) Check() error {
	if r == nil {
		return &domain.MalformedResultError{Missing: []string{"predictions", "confidences"}}
	}
	var missing []string
	if r.Predictions.Len() == 0 {
		missing = append(missing, "predictions")
	}
	if r.Confidences.Len() == 0 {
		missing = append(missing, "confidences")
	}
	if len(missing) > 0 {
		return &domain.MalformedResultError{Missing: missing}
	}
	return nil
}

// Prediction returns the predicted label of a target. A null label counts as
// absent.
func (r *PredictionResult) Prediction(target string) (string, bool) {
	if r == nil || target == "" {
		return "", false
	}
	l, ok := r.Predictions.Get(target)
	if !ok || l == nil {
		return "", false
	}
	return string(*l), true
}

// PredictionAt returns the i-th predicted label in response order. Null
// members keep their position but count as absent.
func (r *PredictionResult) PredictionAt(i int) (string, bool) {
	if r == nil || i < 0 || i >= r.Predictions.Len() {
		return "", false
	}
	_, l := r.Predictions.At(i)
	if l == nil {
		return "", false
	}
	return string(*l), true
}

// Distribution returns the confidence distribution of a target
func (r *PredictionResult) Distribution(target string) (Distribution, bool) {
	if r == nil || target == "" {
		return Distribution{}, false
	}
	return r.Confidences.Get(target)
}

// FormatPercent renders a probability as a percentage with two decimals
func FormatPercent(p float64) string {
	return fmt.Sprintf("%.2f%%", p*100)
}
