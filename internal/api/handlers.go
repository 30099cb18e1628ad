package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/genereveal-server/internal/domain"
	"github.com/genereveal-server/internal/export"
	"github.com/genereveal-server/internal/form"
	"github.com/genereveal-server/internal/report"
	"github.com/genereveal-server/internal/result"
	"github.com/genereveal-server/internal/schema"
)

// ReportLocationHeader carries where an exported report was stored
const ReportLocationHeader = "X-Report-Location"

type fieldView struct {
	schema.Field
	Kind string `json:"kind"`
}

type schemaResponse struct {
	Fields       []fieldView               `json:"fields"`
	Categorical  []schema.CategoricalGroup `json:"categorical"`
	MultiSelect  []schema.MultiSelectGroup `json:"multi_select"`
	Numeric      []schema.Key              `json:"numeric"`
	VisibleFlags []schema.Key              `json:"visible_flags"`
	Legend       []schema.LegendEntry      `json:"legend"`
}

// formUpdate is a batch of form edits plus an optional model selection
type formUpdate struct {
	form.Input
	ModelID *string `json:"model_id,omitempty"`
}

type predictResponse struct {
	Result  *result.PredictionResult `json:"result"`
	Roles   result.Roles             `json:"roles"`
	Summary []result.Tile            `json:"summary"`
}

func (s *Server) handleSchema(c *gin.Context) {
	fields := s.registry.Fields()
	views := make([]fieldView, len(fields))
	for i, f := range fields {
		views[i] = fieldView{Field: f, Kind: f.Kind.String()}
	}

	c.JSON(http.StatusOK, schemaResponse{
		Fields:       views,
		Categorical:  s.registry.Categorical(),
		MultiSelect:  s.registry.MultiSelect(),
		Numeric:      s.registry.Numeric(),
		VisibleFlags: s.registry.VisibleFlags(),
		Legend:       s.registry.Legend(),
	})
}

func (s *Server) handleSample(c *gin.Context) {
	c.JSON(http.StatusOK, form.SamplePayload(s.registry))
}

// handleEncode applies the edits to a default form and returns the payload
// that would be sent
func (s *Server) handleEncode(c *gin.Context) {
	var in form.Input
	if err := c.ShouldBindJSON(&in); err != nil {
		abort(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid form JSON: "+err.Error())
		return
	}

	state := form.New(s.registry)
	if err := state.Apply(in); err != nil {
		s.respondError(c, err)
		return
	}
	payload, err := form.Encode(state)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, payload)
}

func (s *Server) handleDecode(c *gin.Context) {
	var sample form.Sample
	if err := c.ShouldBindJSON(&sample); err != nil {
		abort(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid payload JSON: "+err.Error())
		return
	}
	c.JSON(http.StatusOK, form.Decode(s.registry, sample).Snapshot())
}

func (s *Server) handleListModels(c *gin.Context) {
	models, err := s.predictor.ListModels(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"available": models})
}

func (s *Server) handleModelInfo(c *gin.Context) {
	info, err := s.predictor.ModelInfo(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *Server) handleCreateSession(c *gin.Context) {
	sess := s.sessions.Create()
	c.JSON(http.StatusCreated, sess.View())
}

func (s *Server) handleGetSession(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, sess.View())
}

func (s *Server) handleDeleteSession(c *gin.Context) {
	if !s.sessions.Delete(c.Param("id")) {
		abort(c, http.StatusNotFound, domain.ErrNotFound, "Session not found")
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) handleUpdateForm(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}

	var update formUpdate
	if err := c.ShouldBindJSON(&update); err != nil {
		abort(c, http.StatusBadRequest, domain.ErrInvalidInput, "Invalid form JSON: "+err.Error())
		return
	}
	if err := sess.Apply(update.Input); err != nil {
		s.respondError(c, err)
		return
	}
	if update.ModelID != nil {
		sess.SetModelID(*update.ModelID)
	}
	c.JSON(http.StatusOK, sess.View())
}

func (s *Server) handleLoadSample(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	sess.LoadSample()
	c.JSON(http.StatusOK, sess.View())
}

func (s *Server) handleClear(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	sess.Clear()
	c.JSON(http.StatusOK, sess.View())
}

// handlePredict encodes the session form and submits it. A response that
// lost the race to a newer request is answered with 409.
func (s *Server) handlePredict(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}

	r, err := sess.Submit(c.Request.Context(), s.predictor)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, predictResponse{
		Result:  r,
		Roles:   result.Resolve(r),
		Summary: result.Summary(r),
	})
}

func (s *Server) handleSummary(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	r, ok := latestResult(c, sess)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"tiles": result.Summary(r)})
}

func (s *Server) handleConfidence(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}
	r, ok := latestResult(c, sess)
	if !ok {
		return
	}

	view, ok := result.ViewFor(r, result.Role(c.Param("role")))
	if !ok {
		abort(c, http.StatusBadRequest, domain.ErrInvalidInput, "Role must be primary or secondary")
		return
	}
	c.JSON(http.StatusOK, view)
}

// handleReport renders the printable report. With ?export=true the document
// is also stored through the configured sink.
func (s *Server) handleReport(c *gin.Context) {
	sess, ok := s.lookup(c)
	if !ok {
		return
	}

	state, r := sess.Current()
	doc, err := report.Synthesize(s.registry, state, r)
	if errors.Is(err, report.ErrNoResult) {
		abort(c, http.StatusConflict, domain.ErrNoResult, "No prediction result yet")
		return
	}
	if err != nil {
		s.respondError(c, err)
		return
	}

	if exp, _ := strconv.ParseBool(c.DefaultQuery("export", "false")); exp {
		if s.sink == nil {
			abort(c, http.StatusServiceUnavailable, domain.ErrExport, "Report export is not configured")
			return
		}
		name := export.ReportName(sess.ID(), time.Now())
		location, err := s.sink.Put(c.Request.Context(), name, report.ContentType, doc.HTML)
		if err != nil {
			s.logger.WithError(err).WithField("session_id", sess.ID()).Error("Failed to export report")
			abort(c, http.StatusBadGateway, domain.ErrExport, "Failed to export report")
			return
		}
		s.logger.WithFields(logrus.Fields{
			"session_id": sess.ID(),
			"location":   location,
		}).Info("Report exported")
		c.Header(ReportLocationHeader, location)
	}

	c.Data(http.StatusOK, report.ContentType, doc.HTML)
}
