package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-attendance/internal/dto"
	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
	"github.com/noah-isme/academy-attendance/pkg/response"
)

const maxICSUploadSize = 5 << 20

type holidayService interface {
	List(ctx context.Context, year int) ([]models.HolidayEntry, error)
	Create(ctx context.Context, req dto.CreateHolidayRequest) (*models.HolidayEntry, error)
	Delete(ctx context.Context, id string) error
	ImportICS(ctx context.Context, r io.Reader) (*dto.HolidayImportResult, error)
	SeedDefaults(ctx context.Context, year int) (int, error)
}

// HolidayHandler manages the holiday calendar.
type HolidayHandler struct {
	service holidayService
	now     func() time.Time
}

// NewHolidayHandler builds a holiday handler.
func NewHolidayHandler(service holidayService) *HolidayHandler {
	return &HolidayHandler{service: service, now: time.Now}
}

// List godoc
// @Summary List holidays of a year
// @Tags Holidays
// @Produce json
// @Param year query int false "Year, defaults to the current year"
// @Success 200 {object} response.Envelope
// @Router /holidays [get]
func (h *HolidayHandler) List(c *gin.Context) {
	year, err := h.yearQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	entries, err := h.service.List(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, entries, map[string]interface{}{"year": year, "count": len(entries)})
}

// Create godoc
// @Summary Register a holiday
// @Tags Holidays
// @Accept json
// @Produce json
// @Param payload body dto.CreateHolidayRequest true "Holiday payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /holidays [post]
func (h *HolidayHandler) Create(c *gin.Context) {
	var req dto.CreateHolidayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid holiday payload"))
		return
	}
	entry, err := h.service.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, entry)
}

// Delete godoc
// @Summary Delete a holiday
// @Tags Holidays
// @Param id path string true "Holiday ID"
// @Success 204
// @Router /holidays/{id} [delete]
func (h *HolidayHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Import godoc
// @Summary Import holidays from an iCalendar document
// @Tags Holidays
// @Accept text/calendar
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /holidays/import [post]
func (h *HolidayHandler) Import(c *gin.Context) {
	result, err := h.service.ImportICS(c.Request.Context(), io.LimitReader(c.Request.Body, maxICSUploadSize))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, result)
}

// Seed godoc
// @Summary Register the default public holidays
// @Tags Holidays
// @Produce json
// @Param year query int false "Year used to anchor the recurring dates"
// @Success 200 {object} response.Envelope
// @Router /holidays/seed [post]
func (h *HolidayHandler) Seed(c *gin.Context) {
	year, err := h.yearQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}
	created, err := h.service.SeedDefaults(c.Request.Context(), year)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"created": created})
}

func (h *HolidayHandler) yearQuery(c *gin.Context) (int, error) {
	raw := c.Query("year")
	if raw == "" {
		return h.now().Year(), nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, "year must be a number")
	}
	return year, nil
}
