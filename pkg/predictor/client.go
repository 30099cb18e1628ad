// Package predictor is the HTTP client of the external prediction service.
package predictor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/genereveal-server/internal/domain"
	"github.com/genereveal-server/internal/result"
	"github.com/genereveal-server/internal/schema"
)

const maxBodySize = 10 << 20

// Feature describes one input column expected by a model
type Feature struct {
	Name      string `json:"name"`
	DType     string `json:"dtype,omitempty"`
	AllowNull *bool  `json:"allow_null,omitempty"`
}

// ModelSchema is the input schema published by a model
type ModelSchema struct {
	Features []Feature `json:"features"`
}

// ModelInfo is the metadata of one model version
type ModelInfo struct {
	ModelID string              `json:"model_id"`
	Targets []string            `json:"targets"`
	Classes map[string][]string `json:"classes"`
	Schema  ModelSchema         `json:"schema"`
}

// MetadataCache stores model metadata by model id
type MetadataCache interface {
	Get(ctx context.Context, modelID string) (*ModelInfo, bool)
	Set(ctx context.Context, modelID string, info *ModelInfo)
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithCache enables caching of model metadata
func WithCache(cache MetadataCache) Option {
	return func(c *Client) { c.cache = cache }
}

// Client talks to the prediction service through a rate limiter and a
// circuit breaker
type Client struct {
	baseURL    string
	modelID    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	cache      MetadataCache
	logger     *logrus.Logger
}

// NewClient creates a prediction service client
func NewClient(config domain.PredictorConfig, logger *logrus.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = logrus.New()
	}

	limit := rate.Inf
	if config.RateLimit > 0 {
		limit = rate.Limit(config.RateLimit)
	}
	burst := config.Burst
	if burst < 1 {
		burst = 1
	}

	cb := config.CircuitBreaker
	if cb.MinRequests == 0 {
		cb.MinRequests = 3
	}
	if cb.FailureRatio <= 0 {
		cb.FailureRatio = 0.6
	}

	c := &Client{
		baseURL: strings.TrimRight(config.BaseURL, "/"),
		modelID: config.ModelID,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
		limiter: rate.NewLimiter(limit, burst),
		logger:  logger,
	}

	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "PredictionService",
		MaxRequests: cb.MaxRequests,
		Interval:    cb.Interval,
		Timeout:     cb.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= cb.MinRequests && failureRatio >= cb.FailureRatio
		},
		IsSuccessful: isSuccessful,
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"circuit_breaker": name,
				"from_state":      from.String(),
				"to_state":        to.String(),
			}).Warn("Circuit breaker state changed")
		},
	})

	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close releases idle connections
func (c *Client) Close() {
	c.httpClient.CloseIdleConnections()
}

// DefaultModelID returns the model used when a call names none
func (c *Client) DefaultModelID() string {
	return c.modelID
}

// Predict submits a payload. modelID overrides the configured default when
// non-empty.
func (c *Client) Predict(ctx context.Context, payload *schema.Payload, modelID string) (*result.PredictionResult, error) {
	if payload == nil {
		return nil, domain.NewEncodingError("", "nil payload", nil)
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	if modelID == "" {
		modelID = c.modelID
	}
	query := url.Values{}
	if modelID != "" {
		query.Set("model_id", modelID)
	}

	start := time.Now()
	data, err := c.do(ctx, http.MethodPost, "/predict", query, body)
	if err != nil {
		c.logger.WithError(err).WithField("model_id", modelID).Warn("Prediction request failed")
		return nil, err
	}

	r, err := result.Parse(data)
	if err != nil {
		return nil, err
	}
	c.logger.WithFields(logrus.Fields{
		"model_id": r.ModelID,
		"targets":  len(r.Confidences.Keys()),
		"duration": time.Since(start).String(),
	}).Debug("Prediction received")
	return r, nil
}

// ListModels returns the ids of the models the service can load
func (c *Client) ListModels(ctx context.Context) ([]string, error) {
	data, err := c.do(ctx, http.MethodGet, "/models", nil, nil)
	if err != nil {
		return nil, err
	}

	var resp struct {
		Available []string `json:"available"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return nil, fmt.Errorf("failed to parse model list: %w", err)
	}
	return resp.Available, nil
}

// ModelInfo returns the metadata of a model, served from the cache when
// possible. An empty id selects the configured default model.
func (c *Client) ModelInfo(ctx context.Context, modelID string) (*ModelInfo, error) {
	if modelID == "" {
		modelID = c.modelID
	}
	if modelID == "" {
		return nil, domain.NewValidationError("model_id", "model id is required", modelID)
	}

	if c.cache != nil {
		if info, ok := c.cache.Get(ctx, modelID); ok {
			return info, nil
		}
	}

	data, err := c.do(ctx, http.MethodGet, "/models/"+url.PathEscape(modelID), nil, nil)
	if err != nil {
		return nil, err
	}

	var info ModelInfo
	if err := json.Unmarshal(data, &info); err != nil {
		return nil, fmt.Errorf("failed to parse model metadata: %w", err)
	}

	if c.cache != nil {
		c.cache.Set(ctx, modelID, &info)
	}
	return &info, nil
}

// Health probes the service and returns the reported status
func (c *Client) Health(ctx context.Context) (string, error) {
	data, err := c.do(ctx, http.MethodGet, "/health", nil, nil)
	if err != nil {
		return "", err
	}

	var resp struct {
		Status string `json:"status"`
	}
	if err := json.Unmarshal(data, &resp); err != nil {
		return "", fmt.Errorf("failed to parse health response: %w", err)
	}
	return resp.Status, nil
}

// do performs one request and maps every failure onto a RequestError
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, domain.NewTransportError(0, err)
	}

	out, err := c.breaker.Execute(func() (interface{}, error) {
		return c.roundTrip(ctx, method, path, query, body)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, domain.NewTransportError(0, err)
		}
		return nil, err
	}
	return out.([]byte), nil
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body []byte) ([]byte, error) {
	fullURL := c.baseURL + path
	if len(query) > 0 {
		fullURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, fullURL, reader)
	if err != nil {
		return nil, domain.NewTransportError(0, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, domain.NewTransportError(0, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, domain.NewTransportError(resp.StatusCode, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if detail, ok := errorDetail(data); ok {
			return nil, domain.NewServerError(resp.StatusCode, detail)
		}
		return nil, domain.NewTransportError(resp.StatusCode, fmt.Errorf("status %d", resp.StatusCode))
	}
	return data, nil
}

// errorDetail extracts a non-empty string "detail" member from an error body
func errorDetail(data []byte) (string, bool) {
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(data, &body); err != nil || len(body.Detail) == 0 {
		return "", false
	}
	var detail string
	if err := json.Unmarshal(body.Detail, &detail); err != nil || detail == "" {
		return "", false
	}
	return detail, true
}

// isSuccessful keeps client errors (4xx) from tripping the breaker
func isSuccessful(err error) bool {
	if err == nil {
		return true
	}
	var reqErr *domain.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.StatusCode >= 400 && reqErr.StatusCode < 500
	}
	return false
}
