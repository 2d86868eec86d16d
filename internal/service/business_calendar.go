package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
)

// maxCalendarSpanDays bounds business-day arithmetic to roughly ten years.
const maxCalendarSpanDays = 3660

type monthDay struct {
	month time.Month
	day   int
}

// HolidayCalendar answers business-day questions over a fixed set of
// holidays loaded for the years [FromYear, ToYear]. Recurring entries apply
// to every year. It is immutable and safe for concurrent use.
type HolidayCalendar struct {
	FromYear        int
	ToYear          int
	ExcludeWeekends bool

	fixed     map[string]string
	recurring map[monthDay]string
}

// NewHolidayCalendar indexes the entries that cover [fromYear, toYear].
func NewHolidayCalendar(entries []models.HolidayEntry, fromYear, toYear int, excludeWeekends bool) *HolidayCalendar {
	c := &HolidayCalendar{
		FromYear:        fromYear,
		ToYear:          toYear,
		ExcludeWeekends: excludeWeekends,
		fixed:           make(map[string]string),
		recurring:       make(map[monthDay]string),
	}
	for _, entry := range entries {
		if entry.IsRecurring {
			c.recurring[monthDay{entry.Date.Month(), entry.Date.Day()}] = entry.Name
			continue
		}
		c.fixed[entry.Date.Format(models.DateLayout)] = entry.Name
	}
	return c
}

// Covers reports whether fixed holidays of every date in [from, to] are loaded.
func (c *HolidayCalendar) Covers(from, to time.Time) bool {
	return from.Year() >= c.FromYear && to.Year() <= c.ToYear
}

// IsHoliday reports whether date is a fixed or recurring holiday, or a
// weekend when weekends are excluded.
func (c *HolidayCalendar) IsHoliday(date time.Time) bool {
	_, ok := c.HolidayName(date)
	return ok
}

// HolidayName returns the name of the holiday on date.
func (c *HolidayCalendar) HolidayName(date time.Time) (string, bool) {
	date = civilDate(date)
	if name, ok := c.fixed[date.Format(models.DateLayout)]; ok {
		return name, true
	}
	if name, ok := c.recurring[monthDay{date.Month(), date.Day()}]; ok {
		return name, true
	}
	if c.ExcludeWeekends && isWeekend(date) {
		return "weekend", true
	}
	return "", false
}

// IsBusinessDay is the negation of IsHoliday.
func (c *HolidayCalendar) IsBusinessDay(date time.Time) bool {
	return !c.IsHoliday(date)
}

// BusinessDaysBetween counts business days in (start, end]. A reversed range
// yields the negated count of (end, start].
func (c *HolidayCalendar) BusinessDaysBetween(start, end time.Time) (int, error) {
	start, end = civilDate(start), civilDate(end)
	sign := 1
	if end.Before(start) {
		start, end = end, start
		sign = -1
	}
	if daysBetween(start, end) > maxCalendarSpanDays {
		return 0, appErrors.Clone(appErrors.ErrInvalidRange, "date range exceeds ten years")
	}

	count := 0
	for d := start.AddDate(0, 0, 1); !d.After(end); d = d.AddDate(0, 0, 1) {
		if c.IsBusinessDay(d) {
			count++
		}
	}
	return sign * count, nil
}

// AddBusinessDays moves |n| business days from start, forward for positive n
// and backward for negative n. start itself is never counted. The second
// result is false when the walk left the loaded years and must be retried on
// a wider calendar.
func (c *HolidayCalendar) AddBusinessDays(start time.Time, n int) (time.Time, bool, error) {
	start = civilDate(start)
	if n == 0 {
		return start, true, nil
	}
	step := 1
	remaining := n
	if n < 0 {
		step = -1
		remaining = -n
	}
	if err := checkBusinessDayCount(n); err != nil {
		return time.Time{}, true, err
	}

	current := start
	for walked := 0; remaining > 0; walked++ {
		if walked > maxCalendarSpanDays*2 {
			return time.Time{}, true, appErrors.Clone(appErrors.ErrInvalidRange, "no business day within ten years")
		}
		current = current.AddDate(0, 0, step)
		if current.Year() < c.FromYear || current.Year() > c.ToYear {
			return current, false, nil
		}
		if c.IsBusinessDay(current) {
			remaining--
		}
	}
	return current, true, nil
}

// EnrollmentEndDate returns the date on which an enrollment of n business
// days ends. start counts as the first day when it is a business day.
func (c *HolidayCalendar) EnrollmentEndDate(start time.Time, n int) (time.Time, bool, error) {
	if n <= 0 {
		return time.Time{}, true, appErrors.Clone(appErrors.ErrValidation, "enrollment length must be positive")
	}
	start = civilDate(start)
	if c.IsBusinessDay(start) {
		if n == 1 {
			return start, true, nil
		}
		return c.AddBusinessDays(start, n-1)
	}
	return c.AddBusinessDays(start, n)
}

func checkBusinessDayCount(n int) error {
	if n > maxCalendarSpanDays || n < -maxCalendarSpanDays {
		return appErrors.Clone(appErrors.ErrInvalidRange, fmt.Sprintf("cannot move %d business days", n))
	}
	return nil
}

func civilDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(from, to time.Time) int {
	return int(to.Sub(from).Hours() / 24)
}

func isWeekend(date time.Time) bool {
	wd := date.Weekday()
	return wd == time.Saturday || wd == time.Sunday
}
