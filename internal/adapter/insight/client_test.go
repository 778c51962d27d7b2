package insight

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/precip-map/internal/config"
	"github.com/couchcryptid/precip-map/internal/domain"
	"github.com/couchcryptid/precip-map/internal/observability"
)

const (
	testAppID         = "test-app"
	testAppKey        = "test-key"
	contentTypeJSON   = "application/json"
	headerContentType = "Content-Type"
)

var testWindow = domain.Window{
	Start: time.Date(2016, time.April, 1, 0, 0, 0, 0, time.UTC),
	End:   time.Date(2016, time.June, 30, 0, 0, 0, 0, time.UTC),
}

func testClient(baseURL string, maxRetries int) *Client {
	return &Client{
		appID:          testAppID,
		appKey:         testAppKey,
		httpClient:     &http.Client{Timeout: 5 * time.Second},
		baseURL:        baseURL,
		maxRetries:     maxRetries,
		initialBackoff: time.Millisecond,
		maxBackoff:     5 * time.Millisecond,
		metrics:        observability.NewMetricsForTesting(),
		logger:         slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	w.Header().Set(headerContentType, contentTypeJSON)
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestNewClient_FromConfig(t *testing.T) {
	cfg := &config.Config{
		InsightBaseURL:    "http://insight.local/",
		InsightAppID:      testAppID,
		InsightAppKey:     testAppKey,
		InsightTimeout:    7 * time.Second,
		InsightMaxRetries: 2,
	}
	c := NewClient(cfg, observability.NewMetricsForTesting(), slog.Default())

	assert.Equal(t, "http://insight.local", c.baseURL)
	assert.Equal(t, 7*time.Second, c.httpClient.Timeout)
	assert.Equal(t, 2, c.maxRetries)
}

func TestClient_Create_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/assets", r.URL.Path)
		assert.Equal(t, contentTypeJSON, r.Header.Get(headerContentType))
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, testAppID, user)
		assert.Equal(t, testAppKey, pass)

		var body map[string]json.RawMessage
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.JSONEq(t, `"Cleveland"`, string(body["description"]))
		assert.JSONEq(t, `{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1]]]}`, string(body["shape"]))

		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"id":314,"description":"Cleveland","shape":{"type":"Polygon","coordinates":[[[0,0],[0,1],[1,1]]]}}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	asset, err := c.Create(context.Background(), domain.NewAsset{
		Description: "Cleveland",
		Shape:       domain.Shape{Type: "Polygon", Coordinates: json.RawMessage(`[[[0,0],[0,1],[1,1]]]`)},
	})
	require.NoError(t, err)

	assert.Equal(t, domain.AssetID("314"), asset.ID)
	assert.Equal(t, "Cleveland", asset.Description)
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.APIRequests.WithLabelValues(opCreate, "success")))
}

func TestClient_Create_MissingID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(t, w, map[string]string{"description": "Cleveland"})
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 0).Create(context.Background(), domain.NewAsset{Description: "Cleveland"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no asset id")
}

func TestClient_Find_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/assets/a%2Fb", r.URL.EscapedPath())
		writeJSON(t, w, domain.Asset{ID: "a/b", Description: "Payne"})
	}))
	defer srv.Close()

	asset, err := testClient(srv.URL, 0).Find(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, domain.AssetID("a/b"), asset.ID)
	assert.Equal(t, "Payne", asset.Description)
}

func TestClient_FindAll(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assets", r.URL.Path)
		_, _ = w.Write([]byte(`[{"id":1,"description":"Kay"},{"id":"2","description":"Noble"}]`))
	}))
	defer srv.Close()

	assets, err := testClient(srv.URL, 0).FindAll(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 2)
	assert.Equal(t, domain.AssetID("1"), assets[0].ID)
	assert.Equal(t, domain.AssetID("2"), assets[1].ID)
}

func TestClient_Destroy(t *testing.T) {
	var method, path string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		method, path = r.Method, r.URL.Path
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	require.NoError(t, testClient(srv.URL, 0).Destroy(context.Background(), "77"))
	assert.Equal(t, http.MethodDelete, method)
	assert.Equal(t, "/assets/77", path)
}

func TestClient_DailyPrecipitation(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/assets/12/daily-precipitation", r.URL.Path)
		assert.Equal(t, "2016-04-01", r.URL.Query().Get("start"))
		assert.Equal(t, "2016-06-30", r.URL.Query().Get("end"))
		_, _ = w.Write([]byte(`{"accumulationStatistics":{"mean":275.25,"min":180.5,"max":341,"sum":1101}}`))
	}))
	defer srv.Close()

	stats, err := testClient(srv.URL, 0).DailyPrecipitation(context.Background(), "12", testWindow)
	require.NoError(t, err)
	assert.Equal(t, 275.25, stats.Mean)
	require.NotNil(t, stats.Max)
	assert.Equal(t, 341.0, *stats.Max)
}

func TestClient_DailyPrecipitation_MissingStatistics(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"series":[]}`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 0).DailyPrecipitation(context.Background(), "12", testWindow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "asset 12")
	assert.Contains(t, err.Error(), "accumulationStatistics")
}

func TestClient_APIError_NotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"asset not found"}`))
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	_, err := c.Find(context.Background(), "404")
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusNotFound, apiErr.StatusCode)
	assert.Equal(t, domain.AssetID("404"), apiErr.AssetID)
	assert.Contains(t, err.Error(), "insight find asset 404: status 404")
	assert.True(t, IsNotFound(err))
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.APIRequests.WithLabelValues(opFind, "error")))
}

func TestClient_TransientErrorRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		writeJSON(t, w, domain.Asset{ID: "9", Description: "Logan"})
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	asset, err := c.Find(context.Background(), "9")
	require.NoError(t, err)
	assert.Equal(t, "Logan", asset.Description)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, 2.0, testutil.ToFloat64(c.metrics.APIRetries.WithLabelValues(opFind)))
}

func TestClient_Create_NotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusGatewayTimeout)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 3)
	_, err := c.Create(context.Background(), domain.NewAsset{Description: "Logan"})
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusGatewayTimeout, apiErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Equal(t, 0.0, testutil.ToFloat64(c.metrics.APIRetries.WithLabelValues(opCreate)))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.metrics.APIRequests.WithLabelValues(opCreate, "error")))
}

func TestClient_RetriesExhausted(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 2).DailyPrecipitation(context.Background(), "5", testWindow)
	require.Error(t, err)

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr))
	assert.True(t, apiErr.Temporary())
	assert.Equal(t, int32(3), calls.Load())
}

func TestClient_DecodeErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{not json`))
	}))
	defer srv.Close()

	_, err := testClient(srv.URL, 3).FindAll(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "decode response")
	assert.Equal(t, int32(1), calls.Load())
}

func TestClient_Timeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	c := testClient(srv.URL, 0)
	c.httpClient = &http.Client{Timeout: 50 * time.Millisecond}

	_, err := c.Find(context.Background(), "1")
	require.Error(t, err)
}

func TestClient_ContextCancelled(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := testClient(srv.URL, 5).Find(ctx, "1")
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestAPIError_Error(t *testing.T) {
	err := &APIError{Operation: opFindAll, StatusCode: 500}
	assert.Equal(t, "insight find_all: status 500", err.Error())

	err = &APIError{Operation: opDestroy, AssetID: "3", StatusCode: 403, Body: "forbidden"}
	assert.Equal(t, "insight destroy asset 3: status 403: forbidden", err.Error())
	assert.False(t, err.Temporary())
}
