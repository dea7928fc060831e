package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMiddlewareLabelsByRoutePattern(t *testing.T) {
	t.Parallel()

	m := New()
	router := chi.NewRouter()
	router.Use(m.Middleware)
	router.Get("/api/admin/loads/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/admin/loads/abc", nil))

	body := scrape(t, m)
	require.Contains(t, body, `backoffice_http_requests_total{code="404",method="GET",route="/api/admin/loads/{id}"} 1`)
}

func TestRecordAuthz(t *testing.T) {
	t.Parallel()

	m := New()
	m.RecordAuthz(true)
	m.RecordAuthz(false)
	m.RecordAuthz(false)

	body := scrape(t, m)
	require.Contains(t, body, `authz_decisions_total{result="allowed"} 1`)
	require.Contains(t, body, `authz_decisions_total{result="denied"} 2`)
}

func TestNilMetricsIsInert(t *testing.T) {
	t.Parallel()

	var m *Metrics
	require.NotPanics(t, func() {
		m.RecordAuthz(true)
		require.NoError(t, m.RegisterPool(nil))
	})

	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {})
	require.NotNil(t, m.Middleware(next))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
