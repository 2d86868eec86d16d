package service

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsServiceSnapshotAndExposition(t *testing.T) {
	metrics := NewMetricsService()
	metrics.ObserveHTTPRequest(http.MethodPost, "/api/v1/attendance/check-in", http.StatusOK, 15*time.Millisecond)
	metrics.ObserveSweep(5, 2, 1, 40*time.Millisecond)
	metrics.ObserveTransition("sweep", "ABSENT")
	metrics.ObserveAdjustment("DEDUCT", "recorded")
	metrics.ObserveHolidayImport(3)

	snapshot := metrics.Snapshot()
	assert.Equal(t, uint64(1), snapshot.RequestsTotal)
	assert.Equal(t, uint64(1), snapshot.SweepRuns)
	assert.Equal(t, uint64(2), snapshot.SweepTransitioned)
	assert.Equal(t, uint64(1), snapshot.SweepFailed)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, `attendance_transitions_total{event="sweep",status="ABSENT"} 1`)
	assert.Contains(t, body, `enrollment_adjustments_total{result="recorded",type="DEDUCT"} 1`)
	assert.Contains(t, body, "holiday_entries_imported_total 3")
}

func TestMetricsServiceNilSafe(t *testing.T) {
	var metrics *MetricsService
	metrics.ObserveSweep(1, 1, 0, time.Second)
	metrics.ObserveTransition("check_in", "PRESENT")
	assert.Zero(t, metrics.Snapshot().SweepRuns)

	rec := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
