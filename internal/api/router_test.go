package api_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/crowdpollen/crowdpollen/internal/api"
	"github.com/crowdpollen/crowdpollen/internal/clock"
	"github.com/crowdpollen/crowdpollen/internal/fusion"
	"github.com/crowdpollen/crowdpollen/internal/pollen"
	"github.com/crowdpollen/crowdpollen/internal/submission"
)

// newTestRouter builds a router backed by the synthetic fallback
// generator (no provider) and an in-memory submission store.
func newTestRouter(t *testing.T, store submission.Store) http.Handler {
	t.Helper()

	fake := clock.NewFake(time.Date(2026, 4, 15, 12, 0, 0, 0, time.UTC))
	forecasts := pollen.NewService(pollen.ServiceConfig{
		Clock:  fake,
		Logger: zerolog.Nop(),
	})
	engine := fusion.NewEngine(fusion.EngineConfig{
		Forecasts:   forecasts,
		Submissions: store,
		Clock:       fake,
		Logger:      zerolog.Nop(),
	})

	return api.NewRouter(api.RouterConfig{
		Version:   "test",
		BuildTime: "now",
		Logger:    zerolog.Nop(),
		Fusion:    engine,
		Forecasts: forecasts,
		Clock:     fake,
	})
}

func TestRouter_HealthCheck(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/health", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"OK"`)
	assert.NotEmpty(t, rec.Header().Get("X-Request-Id"))
}

func TestRouter_ReadinessCheck(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/ops/ready", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRouter_GetForecast(t *testing.T) {
	router := newTestRouter(t, submission.NewMemoryStore())

	req := httptest.NewRequest(http.MethodGet, "/v1/forecast?lat=40.7128&lon=-74.0060&days=3", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Days []struct {
			Date     string `json:"date"`
			Readings []struct {
				Category string `json:"category"`
				Level    int    `json:"level"`
			} `json:"readings"`
			Estimate struct {
				DataSource string  `json:"dataSource"`
				Confidence float64 `json:"confidence"`
			} `json:"estimate"`
		} `json:"days"`
		Source                string `json:"source"`
		Provider              string `json:"provider"`
		SubmissionsConsidered int    `json:"submissionsConsidered"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	assert.Len(t, resp.Days, 3)
	assert.Equal(t, "synthetic", resp.Source)
	assert.Equal(t, pollen.FallbackProviderName, resp.Provider)
	for _, day := range resp.Days {
		assert.Len(t, day.Readings, 3)
		assert.Equal(t, "AUTHORITATIVE_ONLY", day.Estimate.DataSource)
		assert.InDelta(t, 0.85, day.Estimate.Confidence, 1e-9)
	}
}

func TestRouter_GetForecast_HybridWithSubmissions(t *testing.T) {
	store := submission.NewMemoryStore()
	lat, lon := 40.713, -74.006
	status := submission.StatusValidated
	for i := 0; i < 3; i++ {
		store.Add(submission.Submission{
			ID:               string(rune('a' + i)),
			Latitude:         &lat,
			Longitude:        &lon,
			Level:            2,
			CreatedAt:        time.Date(2026, 4, 15, 11, 0, 0, 0, time.UTC),
			ValidationStatus: &status,
		})
	}
	router := newTestRouter(t, store)

	req := httptest.NewRequest(http.MethodGet, "/v1/forecast?lat=40.7128&lon=-74.0060&days=1", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `"dataSource":"HYBRID"`)
	assert.Contains(t, body, `"submissionsConsidered":3`)
}

func TestRouter_GetForecast_InvalidParams(t *testing.T) {
	router := newTestRouter(t, nil)

	tests := []struct {
		name string
		url  string
	}{
		{"missing coordinates", "/v1/forecast"},
		{"non-numeric lat", "/v1/forecast?lat=abc&lon=4.9"},
		{"out of range lat", "/v1/forecast?lat=95&lon=4.9"},
		{"days too large", "/v1/forecast?lat=52.37&lon=4.9&days=9"},
		{"non-numeric days", "/v1/forecast?lat=52.37&lon=4.9&days=soon"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, tt.url, http.NoBody)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "application/problem+json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestRouter_ValidateSubmission(t *testing.T) {
	router := newTestRouter(t, nil)

	body := `{"location":{"lat":40.7128,"lon":-74.0060},"level":3}`
	req := httptest.NewRequest(http.MethodPost, "/v1/submissions:validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Status string `json:"status"`
		Note   string `json:"note"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, []string{"VALIDATED", "VARIANCE", "SIGNIFICANT_VARIANCE"}, resp.Status)
	assert.NotEmpty(t, resp.Note)
}

func TestRouter_ValidateSubmission_BadLevel(t *testing.T) {
	router := newTestRouter(t, nil)

	body := `{"location":{"lat":40.7128,"lon":-74.0060},"level":9}`
	req := httptest.NewRequest(http.MethodPost, "/v1/submissions:validate", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRouter_Enums(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/metadata/enums", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "TREE")
	assert.Contains(t, body, "SIGNIFICANT_VARIANCE")
	assert.Contains(t, body, "HYBRID")
}

func TestRouter_HeatmapWithoutProvider(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/heatmap/TREE_UPI/3/2/1", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRouter_NotFound(t *testing.T) {
	router := newTestRouter(t, nil)

	req := httptest.NewRequest(http.MethodGet, "/v1/nope", http.NoBody)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}
