package observability

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	return rr.Body.String()
}

func TestMetricsHandlerExposesPrometheusMetrics(t *testing.T) {
	metrics := NewMetrics()
	metrics.SetControllers(2)

	body := scrape(t, metrics)
	assert.Contains(t, body, "memberdash_list_controllers 2")
	assert.Contains(t, body, "memberdash_list_stale_discards_total 0")
}

func TestMetricsMiddlewareRecordsRequest(t *testing.T) {
	metrics := NewMetrics()

	handler := metrics.Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	routeCtx := chi.NewRouteContext()
	routeCtx.RoutePatterns = append(routeCtx.RoutePatterns, "/test")

	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	ctx := context.WithValue(req.Context(), chi.RouteCtxKey, routeCtx)
	req = req.WithContext(ctx)

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)
	assert.Equal(t, http.StatusTeapot, rr.Code)

	body := scrape(t, metrics)
	assert.Contains(t, body, `memberdash_http_requests_total{code="418",route="/test"} 1`)
	assert.Contains(t, body, `memberdash_http_request_duration_seconds_bucket{route="/test"`)
}

func TestFetchAndDiscardCounters(t *testing.T) {
	metrics := NewMetrics()
	metrics.ObserveFetch("ok", 20*time.Millisecond)
	metrics.ObserveFetch("ok", 30*time.Millisecond)
	metrics.ObserveFetch("auth", time.Millisecond)
	metrics.ObserveStaleDiscard()
	metrics.ObserveOverviewLoad("cache")

	body := scrape(t, metrics)
	assert.Contains(t, body, `memberdash_collection_fetch_total{outcome="ok"} 2`)
	assert.Contains(t, body, `memberdash_collection_fetch_total{outcome="auth"} 1`)
	assert.Contains(t, body, `memberdash_collection_fetch_duration_seconds_count{outcome="ok"} 2`)
	assert.Contains(t, body, "memberdash_list_stale_discards_total 1")
	assert.Contains(t, body, `memberdash_overview_loads_total{source="cache"} 1`)
}

func TestNilMetricsAreSafe(t *testing.T) {
	var metrics *Metrics
	metrics.ObserveFetch("ok", time.Second)
	metrics.ObserveStaleDiscard()
	metrics.SetControllers(1)
	metrics.ObserveOverviewLoad("remote")

	rr := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
}
