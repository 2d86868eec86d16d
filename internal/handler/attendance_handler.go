package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-attendance/internal/dto"
	"github.com/noah-isme/academy-attendance/internal/middleware"
	"github.com/noah-isme/academy-attendance/internal/models"
	"github.com/noah-isme/academy-attendance/internal/service"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
	"github.com/noah-isme/academy-attendance/pkg/response"
)

type attendanceService interface {
	BookSession(ctx context.Context, req dto.BookSessionRequest) (*models.AttendanceRecord, error)
	CheckIn(ctx context.Context, req dto.CheckInRequest) (*models.AttendanceRecord, error)
	CheckOut(ctx context.Context, recordID string, req dto.CheckOutRequest) (*models.AttendanceRecord, error)
	ManualSetStatus(ctx context.Context, recordID string, req dto.ManualStatusRequest) (*models.AttendanceRecord, error)
	SetClassCompleted(ctx context.Context, recordID string, completed bool) (*models.AttendanceRecord, error)
	Get(ctx context.Context, recordID string) (*models.AttendanceRecord, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error)
	Today() time.Time
}

type absenceSweeper interface {
	RunAbsenceSweep(ctx context.Context, date, now time.Time) (*models.SweepReport, error)
	RunNow(ctx context.Context) (*models.SweepReport, error)
}

type attendanceExporter interface {
	AttendanceSheet(ctx context.Context, date time.Time, format service.ExportFormat) (*service.ExportResult, error)
	Publish(ctx context.Context, date time.Time, format service.ExportFormat) (*dto.ExportLink, error)
	Download(ctx context.Context, token string) (*service.ExportResult, error)
}

// AttendanceHandler exposes check-in, check-out and attendance administration.
type AttendanceHandler struct {
	attendance attendanceService
	sweep      absenceSweeper
	exporter   attendanceExporter
	// downloadBase prefixes the token in published sheet URLs.
	downloadBase string
	now          func() time.Time
}

// NewAttendanceHandler builds the attendance handler.
func NewAttendanceHandler(attendance attendanceService, sweep absenceSweeper, exporter attendanceExporter) *AttendanceHandler {
	return &AttendanceHandler{attendance: attendance, sweep: sweep, exporter: exporter, downloadBase: "/exports", now: time.Now}
}

// WithDownloadBase sets the route prefix used to build download URLs.
func (h *AttendanceHandler) WithDownloadBase(base string) *AttendanceHandler {
	h.downloadBase = strings.TrimSuffix(base, "/")
	return h
}

// Book godoc
// @Summary Book a student into a session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.BookSessionRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/bookings [post]
func (h *AttendanceHandler) Book(c *gin.Context) {
	var req dto.BookSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	record, err := h.attendance.BookSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// CheckIn godoc
// @Summary Check a student in to today's session
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.CheckInRequest true "Check-in payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /attendance/check-in [post]
func (h *AttendanceHandler) CheckIn(c *gin.Context) {
	var req dto.CheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-in payload"))
		return
	}
	record, err := h.attendance.CheckIn(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// CheckOut godoc
// @Summary Check a student out
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance record ID"
// @Param payload body dto.CheckOutRequest false "Check-out time, defaults to now"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id}/check-out [post]
func (h *AttendanceHandler) CheckOut(c *gin.Context) {
	var req dto.CheckOutRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid check-out payload"))
		return
	}
	record, err := h.attendance.CheckOut(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// SetStatus godoc
// @Summary Override an attendance status
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance record ID"
// @Param payload body dto.ManualStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id}/status [patch]
func (h *AttendanceHandler) SetStatus(c *gin.Context) {
	var req dto.ManualStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid status payload"))
		return
	}
	record, err := h.attendance.ManualSetStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// SetClassCompleted godoc
// @Summary Mark whether the class was completed
// @Tags Attendance
// @Accept json
// @Produce json
// @Param id path string true "Attendance record ID"
// @Param payload body dto.ClassCompletedRequest true "Completion flag"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id}/class-completed [patch]
func (h *AttendanceHandler) SetClassCompleted(c *gin.Context) {
	var req dto.ClassCompletedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid class-completed payload"))
		return
	}
	record, err := h.attendance.SetClassCompleted(c.Request.Context(), c.Param("id"), req.Completed)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// Get godoc
// @Summary Get an attendance record
// @Tags Attendance
// @Produce json
// @Param id path string true "Attendance record ID"
// @Success 200 {object} response.Envelope
// @Router /attendance/{id} [get]
func (h *AttendanceHandler) Get(c *gin.Context) {
	record, err := h.attendance.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, record)
}

// List godoc
// @Summary List the attendance records of a day
// @Tags Attendance
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance [get]
func (h *AttendanceHandler) List(c *gin.Context) {
	date, err := h.dateQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	records, err := h.attendance.ListByDate(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetMeta(c, "date", date.Format(models.DateLayout))
	middleware.SetMeta(c, "count", len(records))
	response.OK(c, records, middleware.ExtractMeta(c))
}

// Export godoc
// @Summary Download the attendance sheet of a day
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /attendance/export [get]
func (h *AttendanceHandler) Export(c *gin.Context) {
	date, err := h.dateQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	result, err := h.exporter.AttendanceSheet(c.Request.Context(), date, service.ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Body)
}

// PublishExport godoc
// @Summary Publish the attendance sheet of a day behind a signed link
// @Tags Attendance
// @Produce json
// @Param date query string false "YYYY-MM-DD, defaults to today"
// @Param format query string false "csv or pdf"
// @Success 201 {object} response.Envelope
// @Router /attendance/export/links [post]
func (h *AttendanceHandler) PublishExport(c *gin.Context) {
	date, err := h.dateQuery(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	link, err := h.exporter.Publish(c.Request.Context(), date, service.ExportFormat(c.DefaultQuery("format", "csv")))
	if err != nil {
		response.Error(c, err)
		return
	}
	link.URL = h.downloadBase + "/" + link.Token
	response.Created(c, link)
}

// Download godoc
// @Summary Download a published attendance sheet
// @Tags Attendance
// @Produce text/csv
// @Produce application/pdf
// @Param token path string true "Download token"
// @Success 200 {file} file
// @Failure 404 {object} response.Envelope
// @Router /exports/{token} [get]
func (h *AttendanceHandler) Download(c *gin.Context) {
	result, err := h.exporter.Download(c.Request.Context(), c.Param("token"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Data(http.StatusOK, result.ContentType, result.Body)
}

// Sweep godoc
// @Summary Run the absence sweep now
// @Tags Attendance
// @Accept json
// @Produce json
// @Param payload body dto.SweepRequest false "Date to sweep, defaults to today"
// @Success 200 {object} response.Envelope
// @Router /attendance/sweep [post]
func (h *AttendanceHandler) Sweep(c *gin.Context) {
	var req dto.SweepRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid sweep payload"))
		return
	}

	var (
		report *models.SweepReport
		err    error
	)
	if req.Date == "" {
		report, err = h.sweep.RunNow(c.Request.Context())
	} else {
		date, parseErr := time.Parse(models.DateLayout, req.Date)
		if parseErr != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD"))
			return
		}
		report, err = h.sweep.RunAbsenceSweep(c.Request.Context(), date, h.now())
	}
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

func (h *AttendanceHandler) dateQuery(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return h.attendance.Today(), nil
	}
	date, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be YYYY-MM-DD", key))
	}
	return date, nil
}

// bindOptionalJSON decodes the body into dst when there is one. An empty body,
// chunked or not, leaves dst untouched.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if c.Request.Body == nil || c.Request.Body == http.NoBody {
		return nil
	}
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
