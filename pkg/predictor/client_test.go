package predictor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/genereveal-server/internal/domain"
	"github.com/genereveal-server/internal/form"
	"github.com/genereveal-server/internal/schema"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const predictResponse = `{
	"model_id": "v2",
	"targets": ["Genetic Disorder", "Disorder Subclass"],
	"predictions": {"Genetic Disorder": "Mitochondrial genetic inheritance disorders", "Disorder Subclass": "Leigh syndrome"},
	"confidences": {"Genetic Disorder": {"Mitochondrial genetic inheritance disorders": 0.8, "Single-gene inheritance diseases": 0.2}},
	"note": "ok"
}`

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestClient(t *testing.T, url string, mutate func(*domain.PredictorConfig), opts ...Option) *Client {
	t.Helper()
	cfg := domain.PredictorConfig{
		BaseURL: url,
		Timeout: 5 * time.Second,
		CircuitBreaker: domain.CircuitBreakerConfig{
			MaxRequests: 1,
			Timeout:     time.Minute,
		},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	c := NewClient(cfg, quietLogger(), opts...)
	t.Cleanup(c.Close)
	return c
}

func samplePayload(t *testing.T) *schema.Payload {
	t.Helper()
	reg := schema.Default()
	p, err := form.Encode(form.Decode(reg, form.SamplePayload(reg)))
	require.NoError(t, err)
	return p
}

func TestClient_Predict(t *testing.T) {
	var gotQuery, gotContentType string
	var gotBody []byte
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/predict", r.URL.Path)
		gotQuery = r.URL.Query().Get("model_id")
		gotContentType = r.Header.Get("Content-Type")
		gotBody, _ = io.ReadAll(r.Body)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, predictResponse)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL+"/", nil)
	r, err := client.Predict(context.Background(), samplePayload(t), "rf v2/β")
	require.NoError(t, err)

	assert.Equal(t, "rf v2/β", gotQuery)
	assert.Equal(t, "application/json", gotContentType)
	assert.True(t, strings.HasPrefix(string(gotBody), `{"Gender_ambiguous":0,"Gender_female":1,`))

	var sent map[string]float64
	require.NoError(t, json.Unmarshal(gotBody, &sent))
	assert.Len(t, sent, schema.Default().Len())

	assert.Equal(t, "v2", r.ModelID)
	assert.Equal(t, "ok", r.Note)
	assert.NoError(t, r.Check())
}

func TestClient_PredictModelIDQuery(t *testing.T) {
	tests := []struct {
		name       string
		configured string
		given      string
		wantRaw    string
	}{
		{"none", "", "", ""},
		{"configured default", "base", "", "model_id=base"},
		{"override", "base", "other", "model_id=other"},
		{"encoded", "", "a&b=c", "model_id=a%26b%3Dc"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var raw string
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				raw = r.URL.RawQuery
				fmt.Fprint(w, predictResponse)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, func(c *domain.PredictorConfig) { c.ModelID = tt.configured })
			_, err := client.Predict(context.Background(), samplePayload(t), tt.given)
			require.NoError(t, err)
			assert.Equal(t, tt.wantRaw, raw)
		})
	}
}

func TestClient_ErrorContract(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		origin  string
		message string
	}{
		{"string detail", http.StatusInternalServerError, `{"detail":"Model not loaded"}`, domain.OriginServer, "Server: Model not loaded"},
		{"structured detail", http.StatusUnprocessableEntity, `{"detail":[{"loc":["body"],"msg":"bad"}]}`, domain.OriginTransport, "Request failed: status 422"},
		{"empty detail", http.StatusBadRequest, `{"detail":""}`, domain.OriginTransport, "Request failed: status 400"},
		{"plain body", http.StatusBadGateway, `upstream down`, domain.OriginTransport, "Request failed: status 502"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				fmt.Fprint(w, tt.body)
			}))
			defer server.Close()

			client := newTestClient(t, server.URL, nil)
			r, err := client.Predict(context.Background(), samplePayload(t), "")
			require.Error(t, err)
			assert.Nil(t, r)

			var reqErr *domain.RequestError
			require.True(t, errors.As(err, &reqErr))
			assert.Equal(t, tt.origin, reqErr.Origin)
			assert.Equal(t, tt.status, reqErr.StatusCode)
			assert.Equal(t, tt.message, err.Error())
		})
	}
}

func TestClient_TransportFailure(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	client := newTestClient(t, url, nil)
	_, err := client.Predict(context.Background(), samplePayload(t), "")

	var reqErr *domain.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, domain.OriginTransport, reqErr.Origin)
	assert.NotNil(t, reqErr.Err)
	assert.True(t, strings.HasPrefix(err.Error(), "Request failed: "))
}

func TestClient_MalformedBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `["not", "an", "object"]`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	_, err := client.Predict(context.Background(), samplePayload(t), "")

	var malformed *domain.MalformedResultError
	assert.True(t, errors.As(err, &malformed))
}

func TestClient_CircuitBreakerOpens(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, func(c *domain.PredictorConfig) {
		c.CircuitBreaker.MinRequests = 2
		c.CircuitBreaker.FailureRatio = 0.5
	})

	for i := 0; i < 2; i++ {
		_, err := client.Predict(context.Background(), samplePayload(t), "")
		require.Error(t, err)
	}

	_, err := client.Predict(context.Background(), samplePayload(t), "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, gobreaker.ErrOpenState))
	assert.True(t, strings.HasPrefix(err.Error(), "Request failed: "))
	assert.Equal(t, int32(2), hits.Load())
}

func TestClient_ClientErrorsDoNotTrip(t *testing.T) {
	var hits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"detail":"bad payload"}`)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, func(c *domain.PredictorConfig) {
		c.CircuitBreaker.MinRequests = 2
		c.CircuitBreaker.FailureRatio = 0.5
	})

	for i := 0; i < 5; i++ {
		_, err := client.Predict(context.Background(), samplePayload(t), "")
		assert.EqualError(t, err, "Server: bad payload")
	}
	assert.Equal(t, int32(5), hits.Load())
}

func TestClient_CanceledContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, predictResponse)
	}))
	defer server.Close()

	client := newTestClient(t, server.URL, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.Predict(ctx, samplePayload(t), "")
	var reqErr *domain.RequestError
	require.True(t, errors.As(err, &reqErr))
	assert.Equal(t, domain.OriginTransport, reqErr.Origin)
}

type mapCache struct {
	mu    sync.Mutex
	items map[string]*ModelInfo
}

func (m *mapCache) Get(_ context.Context, id string) (*ModelInfo, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	info, ok := m.items[id]
	return info, ok
}

func (m *mapCache) Set(_ context.Context, id string, info *ModelInfo) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.items[id] = info
}

func TestClient_ModelsAndHealth(t *testing.T) {
	var metaHits atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/models", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"available":["default","rf-v2"]}`)
	})
	mux.HandleFunc("/models/rf-v2", func(w http.ResponseWriter, r *http.Request) {
		metaHits.Add(1)
		fmt.Fprint(w, `{"model_id":"rf-v2","targets":["Genetic Disorder"],"classes":{"Genetic Disorder":["A","B"]},"schema":{"features":[{"name":"Patient Age","dtype":"float"}]}}`)
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"status":"ok"}`)
	})
	server := httptest.NewServer(mux)
	defer server.Close()

	cache := &mapCache{items: map[string]*ModelInfo{}}
	client := newTestClient(t, server.URL, nil, WithCache(cache))
	ctx := context.Background()

	models, err := client.ListModels(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"default", "rf-v2"}, models)

	want := &ModelInfo{
		ModelID: "rf-v2",
		Targets: []string{"Genetic Disorder"},
		Classes: map[string][]string{"Genetic Disorder": {"A", "B"}},
		Schema:  ModelSchema{Features: []Feature{{Name: "Patient Age", DType: "float"}}},
	}
	for i := 0; i < 3; i++ {
		info, err := client.ModelInfo(ctx, "rf-v2")
		require.NoError(t, err)
		if diff := cmp.Diff(want, info); diff != "" {
			t.Fatalf("model info mismatch (-want +got):\n%s", diff)
		}
	}
	assert.Equal(t, int32(1), metaHits.Load())

	_, err = client.ModelInfo(ctx, "")
	var verr *domain.ValidationError
	assert.True(t, errors.As(err, &verr))

	status, err := client.Health(ctx)
	require.NoError(t, err)
	assert.Equal(t, "ok", status)
}
