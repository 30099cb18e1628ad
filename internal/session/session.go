// Package session holds the interactive state of one user: the form, the last
// prediction and the request bookkeeping that keeps stale responses out.
package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/genereveal-server/internal/form"
	"github.com/genereveal-server/internal/result"
	"github.com/genereveal-server/internal/schema"
)

// ErrSuperseded is returned to a submission whose response arrived after a
// newer request was issued. The response is discarded.
var ErrSuperseded = errors.New("response superseded by a newer request")

// Predictor submits encoded payloads
type Predictor interface {
	Predict(ctx context.Context, payload *schema.Payload, modelID string) (*result.PredictionResult, error)
}

// PredictorFunc adapts a function to Predictor
type PredictorFunc func(ctx context.Context, payload *schema.Payload, modelID string) (*result.PredictionResult, error)

// Predict calls f
func (f PredictorFunc) Predict(ctx context.Context, payload *schema.Payload, modelID string) (*result.PredictionResult, error) {
	return f(ctx, payload, modelID)
}

// Session is safe for concurrent use. The prediction call runs outside the
// lock; only the latest issued request may store its outcome.
type Session struct {
	id     string
	logger *logrus.Entry

	mu        sync.Mutex
	form      *form.State
	modelID   string
	result    *result.PredictionResult
	lastErr   string
	loading   bool
	token     uint64
	createdAt time.Time
	updatedAt time.Time
}

// View is a JSON snapshot of a session
type View struct {
	ID        string                   `json:"id"`
	Form      form.Snapshot            `json:"form"`
	ModelID   string                   `json:"model_id,omitempty"`
	Loading   bool                     `json:"loading"`
	Error     string                   `json:"error,omitempty"`
	Result    *result.PredictionResult `json:"result,omitempty"`
	Token     uint64                   `json:"token"`
	CreatedAt time.Time                `json:"created_at"`
	UpdatedAt time.Time                `json:"updated_at"`
}

func newSession(id string, reg *schema.Registry, logger *logrus.Logger) *Session {
	now := time.Now().UTC()
	return &Session{
		id:        id,
		logger:    logger.WithField("session_id", id),
		form:      form.New(reg),
		createdAt: now,
		updatedAt: now,
	}
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// View returns a snapshot of the session
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()

	return View{
		ID:        s.id,
		Form:      s.form.Snapshot(),
		ModelID:   s.modelID,
		Loading:   s.loading,
		Error:     s.lastErr,
		Result:    s.result,
		Token:     s.token,
		CreatedAt: s.createdAt,
		UpdatedAt: s.updatedAt,
	}
}

// Apply edits the form. Nothing changes if any edit is rejected.
func (s *Session) Apply(in form.Input) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.form.Apply(in); err != nil {
		return err
	}
	s.touch()
	return nil
}

// SetModelID selects the model used by later submissions
func (s *Session) SetModelID(modelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.modelID = modelID
	s.touch()
}

// LoadSample replaces the form with the decoded built-in sample and drops the
// current result, error and any request in flight.
func (s *Session) LoadSample() {
	s.mu.Lock()
	defer s.mu.Unlock()

	reg := s.form.Registry()
	s.form = form.Decode(reg, form.SamplePayload(reg))
	s.discardOutcome()
}

// Clear resets the form to defaults and drops the current result, error and
// any request in flight.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.form.Reset()
	s.discardOutcome()
}

// Submit encodes the form and sends it. An encoding failure is recorded and
// returned without contacting the service.
func (s *Session) Submit(ctx context.Context, p Predictor) (*result.PredictionResult, error) {
	s.mu.Lock()
	s.lastErr = ""
	s.result = nil
	payload, err := form.Encode(s.form)
	if err != nil {
		s.lastErr = err.Error()
		s.touch()
		s.mu.Unlock()
		return nil, err
	}
	s.token++
	token := s.token
	modelID := s.modelID
	s.loading = true
	s.touch()
	s.mu.Unlock()

	r, err := p.Predict(ctx, payload, modelID)

	s.mu.Lock()
	defer s.mu.Unlock()

	if token != s.token {
		s.logger.WithFields(logrus.Fields{
			"token":  token,
			"latest": s.token,
		}).Info("Discarding stale prediction response")
		return nil, ErrSuperseded
	}

	s.loading = false
	s.touch()
	if err != nil {
		s.lastErr = err.Error()
		return nil, err
	}
	s.result = r
	if cerr := r.Check(); cerr != nil {
		s.logger.WithError(cerr).Warn("Prediction result is incomplete")
	}
	return r, nil
}

// Result returns the last applied prediction
func (s *Session) Result() (*result.PredictionResult, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.result, s.result != nil
}

// Current returns a copy of the form together with the last prediction, taken
// under one lock so the two are consistent.
func (s *Session) Current() (*form.State, *result.PredictionResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.form.Clone(), s.result
}

// discardOutcome invalidates any in-flight request. Callers hold mu.
func (s *Session) discardOutcome() {
	s.token++
	s.loading = false
	s.result = nil
	s.lastErr = ""
	s.touch()
}

func (s *Session) touch() {
	s.updatedAt = time.Now().UTC()
}
