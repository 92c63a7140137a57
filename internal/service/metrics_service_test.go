package service

import (
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/coach-lineup-api/internal/models"
)

func scrape(t *testing.T, m *MetricsService) string {
	t.Helper()
	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, w.Code)
	body, err := io.ReadAll(w.Body)
	require.NoError(t, err)
	return string(body)
}

func TestMetricsServiceCounters(t *testing.T) {
	m := NewMetricsService()

	m.RecordLineupWarnings([]models.LineupWarning{{Type: models.WarningStatus}, {Type: models.WarningStatus}, {Type: models.WarningDuplicate}})
	m.RecordImportRows("created", 3)
	m.RecordImportRows("skipped", 0)
	m.RecordCacheOperation(true, time.Millisecond)
	m.RecordCacheOperation(false, time.Millisecond)
	m.ObserveBackup("restore", errors.New("boom"), time.Second)
	m.ObserveHTTPRequest(http.MethodGet, "/api/teams", http.StatusOK, 10*time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `lineup_warnings_total{type="status"} 2`)
	assert.Contains(t, body, `lineup_warnings_total{type="duplicate"} 1`)
	assert.Contains(t, body, `roster_import_rows_total{outcome="created"} 3`)
	assert.NotContains(t, body, `outcome="skipped"`)
	assert.Contains(t, body, `cache_hit_ratio 0.5`)
	assert.Contains(t, body, `backup_operation_seconds_count{operation="restore",result="error"} 1`)
	assert.Contains(t, body, `http_requests_total{method="GET",path="/api/teams",status="200"} 1`)
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var m *MetricsService
	m.RecordLineupWarnings([]models.LineupWarning{{Type: models.WarningStatus}})
	m.ObserveHTTPRequest(http.MethodGet, "/", 200, time.Millisecond)
	m.ObserveBackup("create", nil, time.Millisecond)

	w := httptest.NewRecorder()
	m.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
}
