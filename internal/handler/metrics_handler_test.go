package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-attendance/internal/models"
	"github.com/noah-isme/academy-attendance/internal/service"
)

func TestMetricsHandlerEndpoints(t *testing.T) {
	gin.SetMode(gin.TestMode)
	metrics := service.NewMetricsService()
	metrics.ObserveSweep(2, 1, 0, 0)

	dbDown := false
	h := NewMetricsHandler(metrics, map[string]ReadinessCheck{
		"database": func(ctx context.Context) error {
			if dbDown {
				return errors.New("connection refused")
			}
			return nil
		},
	})
	r := gin.New()
	r.GET("/health", h.Health)
	r.GET("/ready", h.Ready)
	r.GET("/metrics", h.Prometheus)
	r.GET("/metrics/summary", h.Summary)

	w := doJSON(r, http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusOK, w.Code)
	dbDown = true
	w = doJSON(r, http.MethodGet, "/ready", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "connection refused")

	w = doJSON(r, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "attendance_sweep_runs_total 1")

	w = doJSON(r, http.MethodGet, "/metrics/summary", "")
	require.Equal(t, http.StatusOK, w.Code)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(1), data["sweep_transitioned"])
}

type ledgerMock struct {
	entries []models.EnrollmentAdjustment
}

func (m *ledgerMock) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentAdjustment, error) {
	return m.entries, nil
}

func TestEnrollmentHandlerAdjustments(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewEnrollmentHandler(&ledgerMock{entries: []models.EnrollmentAdjustment{
		{TransitionID: "rec-1:AUTO_ABSENT", Type: models.AdjustmentDeduct, CountChange: -1},
		{TransitionID: "rec-1:v3:RESTORE_CREDIT", Type: models.AdjustmentRestore, CountChange: 1},
		{TransitionID: "rec-2:AUTO_ABSENT", Type: models.AdjustmentDeduct, CountChange: -1},
	}})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodGet, "/students/stu-1/adjustments", nil)
	c.Params = gin.Params{{Key: "id", Value: "stu-1"}}

	h.Adjustments(c)
	require.Equal(t, http.StatusOK, w.Code)
	meta := decodeEnvelope(t, w)["meta"].(map[string]interface{})
	assert.Equal(t, float64(3), meta["count"])
	assert.Equal(t, float64(-1), meta["net_change"])
}
