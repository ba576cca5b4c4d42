package metrics

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.ObserveHTTP("/api/receivables", http.MethodGet, 200, time.Millisecond)
	m.RecordMutation("receivable", "upsert")
	m.RecordEventPublish(nil)
	m.RecordRateLimited()
	m.RecordExport(errors.New("boom"), time.Second)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCounters(t *testing.T) {
	m := New()
	m.RecordMutation("payment", "delete")
	m.RecordMutation("payment", "delete")
	m.RecordRateLimited()
	m.RecordExport(nil, time.Second)
	m.RecordExport(errors.New("quota"), time.Second)
	m.RecordEventPublish(errors.New("closed"))

	assert.Equal(t, 2.0, testutil.ToFloat64(m.ledgerMutations.WithLabelValues("payment", "delete")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.rateLimitDenied))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportRuns.WithLabelValues(ExportOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.exportRuns.WithLabelValues(ExportError)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.eventsPublished.WithLabelValues(ExportError)))
}

func TestHandlerExposesHTTPMetrics(t *testing.T) {
	m := New()
	m.ObserveHTTP("/api/customers", http.MethodGet, 200, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `receivables_http_requests_total{method="GET",route="/api/customers",status="200"} 1`), body)
	assert.Contains(t, body, "go_goroutines")
}
