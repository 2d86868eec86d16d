package handler

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-attendance/internal/dto"
	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
	"github.com/noah-isme/academy-attendance/pkg/response"
)

type businessCalendar interface {
	IsHoliday(ctx context.Context, date time.Time) (bool, string, error)
	BusinessDaysBetween(ctx context.Context, start, end time.Time) (int, error)
	AddBusinessDays(ctx context.Context, start time.Time, n int) (time.Time, error)
	EnrollmentEndDate(ctx context.Context, start time.Time, n int) (time.Time, error)
}

// CalendarHandler answers business-day questions.
type CalendarHandler struct {
	calendar businessCalendar
}

// NewCalendarHandler builds a calendar handler.
func NewCalendarHandler(calendar businessCalendar) *CalendarHandler {
	return &CalendarHandler{calendar: calendar}
}

// IsHoliday godoc
// @Summary Check whether a date is a holiday
// @Tags Calendar
// @Produce json
// @Param date query string true "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /calendar/is-holiday [get]
func (h *CalendarHandler) IsHoliday(c *gin.Context) {
	date, err := requiredDate(c, "date")
	if err != nil {
		response.Error(c, err)
		return
	}
	holiday, name, err := h.calendar.IsHoliday(c.Request.Context(), date)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.IsHolidayResponse{Date: date.Format(models.DateLayout), IsHoliday: holiday, Name: name})
}

// BusinessDays godoc
// @Summary Count business days in (start, end]
// @Tags Calendar
// @Produce json
// @Param start query string true "YYYY-MM-DD"
// @Param end query string true "YYYY-MM-DD"
// @Success 200 {object} response.Envelope
// @Router /calendar/business-days [get]
func (h *CalendarHandler) BusinessDays(c *gin.Context) {
	start, err := requiredDate(c, "start")
	if err != nil {
		response.Error(c, err)
		return
	}
	end, err := requiredDate(c, "end")
	if err != nil {
		response.Error(c, err)
		return
	}
	count, err := h.calendar.BusinessDaysBetween(c.Request.Context(), start, end)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.BusinessDaysResponse{
		Start:        start.Format(models.DateLayout),
		End:          end.Format(models.DateLayout),
		BusinessDays: count,
	})
}

// AddBusinessDays godoc
// @Summary Move n business days from a date
// @Tags Calendar
// @Produce json
// @Param start query string true "YYYY-MM-DD"
// @Param n query int true "Business days, negative walks backward"
// @Success 200 {object} response.Envelope
// @Router /calendar/add-business-days [get]
func (h *CalendarHandler) AddBusinessDays(c *gin.Context) {
	h.walk(c, h.calendar.AddBusinessDays)
}

// EnrollmentEnd godoc
// @Summary Last day of an enrollment lasting n business days
// @Tags Calendar
// @Produce json
// @Param start query string true "YYYY-MM-DD"
// @Param n query int true "Enrollment length in business days"
// @Success 200 {object} response.Envelope
// @Router /calendar/enrollment-end [get]
func (h *CalendarHandler) EnrollmentEnd(c *gin.Context) {
	h.walk(c, h.calendar.EnrollmentEndDate)
}

func (h *CalendarHandler) walk(c *gin.Context, fn func(context.Context, time.Time, int) (time.Time, error)) {
	start, err := requiredDate(c, "start")
	if err != nil {
		response.Error(c, err)
		return
	}
	n, err := strconv.Atoi(c.Query("n"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "n must be an integer"))
		return
	}
	date, err := fn(c.Request.Context(), start, n)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.DateResponse{Start: start.Format(models.DateLayout), Days: n, Date: date.Format(models.DateLayout)})
}

func requiredDate(c *gin.Context, key string) (time.Time, error) {
	raw := c.Query(key)
	if raw == "" {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s is required", key))
	}
	date, err := time.Parse(models.DateLayout, raw)
	if err != nil {
		return time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s must be YYYY-MM-DD", key))
	}
	return date, nil
}
