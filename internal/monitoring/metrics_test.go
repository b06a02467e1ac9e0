package monitoring

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_CountersAndHandler(t *testing.T) {
	m := NewMetrics()

	m.CacheLookups.WithLabelValues("place", "hit").Inc()
	m.CacheLookups.WithLabelValues("place", "hit").Inc()
	m.UpstreamFetches.WithLabelValues("place", "success").Inc()

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.Contains(t, string(body), `placemap_query_cache_lookups_total{query="place",result="hit"} 2`)
	assert.Contains(t, string(body), `placemap_query_upstream_fetches_total{outcome="success",query="place"} 1`)
	assert.Contains(t, string(body), "go_goroutines")
}

func TestMetrics_GaugeFunc(t *testing.T) {
	m := NewMetrics()
	n := 3.0
	m.GaugeFunc("dashboard", "sessions", "Live sessions.", func() float64 { return n })

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "placemap_dashboard_sessions 3")
}
