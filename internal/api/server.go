// Package api exposes the form, session and report operations over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/genereveal-server/internal/domain"
	"github.com/genereveal-server/internal/export"
	"github.com/genereveal-server/internal/middleware"
	"github.com/genereveal-server/internal/result"
	"github.com/genereveal-server/internal/schema"
	"github.com/genereveal-server/internal/session"
	"github.com/genereveal-server/pkg/predictor"
)

const (
	version       = "1.0.0"
	healthTimeout = 5 * time.Second
)

// Predictor is the part of the prediction service client used by the server
type Predictor interface {
	session.Predictor
	ListModels(ctx context.Context) ([]string, error)
	ModelInfo(ctx context.Context, modelID string) (*predictor.ModelInfo, error)
	Health(ctx context.Context) (string, error)
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	registry      *schema.Registry
	predictor     Predictor
	sessions      *session.Store
	sink          export.Sink
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance. sink may be nil, in which
// case report export is unavailable.
func NewServer(configManager domain.ConfigManager, logger *logrus.Logger, client Predictor, sessions *session.Store, sink export.Sink) *Server {
	cfg := configManager.GetConfig()

	if gin.Mode() != gin.TestMode {
		if cfg.Logging.Level == "debug" {
			gin.SetMode(gin.DebugMode)
		} else {
			gin.SetMode(gin.ReleaseMode)
		}
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.AuditLogger(logger))
	router.Use(middleware.SecurityHeaders())
	router.Use(middleware.CORS(cfg.Server.AllowedOrigins))
	router.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))

	server := &Server{
		configManager: configManager,
		logger:        logger,
		registry:      schema.Default(),
		predictor:     client,
		sessions:      sessions,
		sink:          sink,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Handler returns the router, mainly for tests
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until ctx is canceled, then shuts down gracefully
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.WithField("addr", addr).Info("HTTP server listening")
		if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	v1 := s.router.Group("/api/v1")
	{
		v1.GET("/schema", s.handleSchema)
		v1.GET("/sample", s.handleSample)
		v1.POST("/encode", s.handleEncode)
		v1.POST("/decode", s.handleDecode)

		v1.GET("/models", s.handleListModels)
		v1.GET("/models/:id", s.handleModelInfo)

		v1.POST("/sessions", s.handleCreateSession)
		sessions := v1.Group("/sessions/:id")
		{
			sessions.GET("", s.handleGetSession)
			sessions.DELETE("", s.handleDeleteSession)
			sessions.PATCH("/form", s.handleUpdateForm)
			sessions.POST("/sample", s.handleLoadSample)
			sessions.POST("/clear", s.handleClear)
			sessions.POST("/predict", s.handlePredict)
			sessions.GET("/summary", s.handleSummary)
			sessions.GET("/confidence/:role", s.handleConfidence)
			sessions.GET("/report", s.handleReport)
		}
	}
}

// handleHealth reports liveness. An unreachable prediction service degrades
// the status but does not fail the probe.
func (s *Server) handleHealth(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthTimeout)
	defer cancel()

	status := "healthy"
	upstream := gin.H{"status": "ok"}
	if state, err := s.predictor.Health(ctx); err != nil {
		status = "degraded"
		upstream = gin.H{"status": "unavailable", "error": err.Error()}
	} else if state != "" {
		upstream["status"] = state
	}

	c.JSON(http.StatusOK, gin.H{
		"status":     status,
		"timestamp":  time.Now().UTC(),
		"version":    version,
		"sessions":   s.sessions.Len(),
		"prediction": upstream,
	})
}

// respondError maps domain errors onto status codes and the APIError body
func (s *Server) respondError(c *gin.Context, err error) {
	requestID := c.GetString(middleware.CorrelationIDKey)

	var (
		validationErr *domain.ValidationError
		encodingErr   *domain.EncodingError
		requestErr    *domain.RequestError
		malformedErr  *domain.MalformedResultError
	)

	status := http.StatusInternalServerError
	apiErr := domain.NewAPIError(domain.ErrInternalServer, "Internal server error", "", requestID)

	switch {
	case errors.As(err, &validationErr):
		status = http.StatusBadRequest
		apiErr = domain.NewAPIError(domain.ErrValidation, validationErr.Error(), validationErr.Field, requestID)
	case errors.As(err, &encodingErr):
		apiErr = domain.NewAPIError(domain.ErrEncoding, encodingErr.Error(), encodingErr.Group, requestID)
	case errors.As(err, &malformedErr):
		status = http.StatusBadGateway
		apiErr = domain.NewAPIError(domain.ErrMalformedResult, malformedErr.Error(), "", requestID)
	case errors.As(err, &requestErr):
		status = http.StatusBadGateway
		apiErr = domain.NewAPIError(domain.ErrPredictionService, requestErr.Error(), "", requestID)
	case errors.Is(err, session.ErrSuperseded):
		status = http.StatusConflict
		apiErr = domain.NewAPIError(domain.ErrSuperseded, err.Error(), "", requestID)
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
		apiErr = domain.NewAPIError(domain.ErrPredictionService, "Request failed: timeout", "", requestID)
	}

	if status >= http.StatusInternalServerError {
		s.logger.WithError(err).WithFields(logrus.Fields{
			"correlation_id": requestID,
			"code":           apiErr.Code,
		}).Error("Request failed")
	}

	_ = c.Error(err)
	c.AbortWithStatusJSON(status, apiErr)
}

// abort responds with an explicit code
func abort(c *gin.Context, status int, code, message string) {
	c.AbortWithStatusJSON(status, domain.NewAPIError(code, message, "", c.GetString(middleware.CorrelationIDKey)))
}

// lookup resolves the :id session or responds 404
func (s *Server) lookup(c *gin.Context) (*session.Session, bool) {
	sess, ok := s.sessions.Get(c.Param("id"))
	if !ok {
		abort(c, http.StatusNotFound, domain.ErrNotFound, "Session not found")
		return nil, false
	}
	return sess, true
}

// latestResult returns the session's applied result or responds 409
func latestResult(c *gin.Context, sess *session.Session) (*result.PredictionResult, bool) {
	r, ok := sess.Result()
	if !ok {
		abort(c, http.StatusConflict, domain.ErrNoResult, "No prediction result yet")
		return nil, false
	}
	return r, true
}
