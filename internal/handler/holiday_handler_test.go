package handler

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-attendance/internal/dto"
	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
)

type holidayServiceMock struct {
	entries    []models.HolidayEntry
	created    *models.HolidayEntry
	err        error
	lastYear   int
	lastCreate dto.CreateHolidayRequest
	deletedID  string
	imported   string
	seeded     int
}

func (m *holidayServiceMock) List(ctx context.Context, year int) ([]models.HolidayEntry, error) {
	m.lastYear = year
	return m.entries, m.err
}

func (m *holidayServiceMock) Create(ctx context.Context, req dto.CreateHolidayRequest) (*models.HolidayEntry, error) {
	m.lastCreate = req
	return m.created, m.err
}

func (m *holidayServiceMock) Delete(ctx context.Context, id string) error {
	m.deletedID = id
	return m.err
}

func (m *holidayServiceMock) ImportICS(ctx context.Context, r io.Reader) (*dto.HolidayImportResult, error) {
	raw, _ := io.ReadAll(r)
	m.imported = string(raw)
	return &dto.HolidayImportResult{Created: 1}, m.err
}

func (m *holidayServiceMock) SeedDefaults(ctx context.Context, year int) (int, error) {
	m.lastYear = year
	return m.seeded, m.err
}

func holidayRouter(h *HolidayHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/holidays", h.List)
	r.POST("/holidays", h.Create)
	r.POST("/holidays/import", h.Import)
	r.POST("/holidays/seed", h.Seed)
	r.DELETE("/holidays/:id", h.Delete)
	return r
}

func TestHolidayHandlerList(t *testing.T) {
	svc := &holidayServiceMock{entries: []models.HolidayEntry{{ID: "h1", Name: "Founders Day"}}}
	h := NewHolidayHandler(svc)
	h.now = func() time.Time { return time.Date(2026, 5, 1, 0, 0, 0, 0, time.UTC) }
	r := holidayRouter(h)

	w := doJSON(r, http.MethodGet, "/holidays", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2026, svc.lastYear)

	w = doJSON(r, http.MethodGet, "/holidays?year=2024", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2024, svc.lastYear)

	w = doJSON(r, http.MethodGet, "/holidays?year=next", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHolidayHandlerCreate(t *testing.T) {
	svc := &holidayServiceMock{created: &models.HolidayEntry{ID: "h1", Name: "Founders Day"}}
	r := holidayRouter(NewHolidayHandler(svc))

	w := doJSON(r, http.MethodPost, "/holidays", `{"date":"2024-03-06","name":"Founders Day"}`)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "2024-03-06", svc.lastCreate.Date)

	svc.err = appErrors.Clone(appErrors.ErrConflict, "holiday already registered on 2024-03-06")
	w = doJSON(r, http.MethodPost, "/holidays", `{"date":"2024-03-06","name":"Founders Day"}`)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestHolidayHandlerDelete(t *testing.T) {
	svc := &holidayServiceMock{}
	r := holidayRouter(NewHolidayHandler(svc))

	w := doJSON(r, http.MethodDelete, "/holidays/h1", "")
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "h1", svc.deletedID)

	svc.err = appErrors.ErrNotFound
	w = doJSON(r, http.MethodDelete, "/holidays/h2", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHolidayHandlerImportAndSeed(t *testing.T) {
	svc := &holidayServiceMock{seeded: 8}
	r := holidayRouter(NewHolidayHandler(svc))

	req := httptest.NewRequest(http.MethodPost, "/holidays/import", bytes.NewBufferString("BEGIN:VCALENDAR\r\nEND:VCALENDAR\r\n"))
	req.Header.Set("Content-Type", "text/calendar")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, svc.imported, "BEGIN:VCALENDAR")

	w = doJSON(r, http.MethodPost, "/holidays/seed?year=2025", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 2025, svc.lastYear)
	data := decodeEnvelope(t, w)["data"].(map[string]interface{})
	assert.Equal(t, float64(8), data["created"])
}
