package service

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-attendance/internal/dto"
	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
	"github.com/noah-isme/academy-attendance/pkg/jobs"
)

const (
	holidayCacheKeyPattern = "holidays:year:*"
	icsMaxFeedSize         = 5 * 1024 * 1024
	icsFetchTimeout        = 30 * time.Second
	maxCalendarWidenings   = 12
)

type holidayStore interface {
	ListHolidays(ctx context.Context, fromYear, toYear int) ([]models.HolidayEntry, error)
	GetByID(ctx context.Context, id string) (*models.HolidayEntry, error)
	ExistsOnDate(ctx context.Context, date time.Time, recurring bool) (bool, error)
	Create(ctx context.Context, entry *models.HolidayEntry) error
	Delete(ctx context.Context, id string) error
}

type holidayCache interface {
	Get(ctx context.Context, key string, dest interface{}) bool
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration)
	Invalidate(ctx context.Context, pattern string)
}

// HolidayServiceConfig tunes the business-day calendar.
type HolidayServiceConfig struct {
	ExcludeWeekends bool
	CacheTTL        time.Duration
	ICSURL          string
	SyncInterval    time.Duration
}

// HolidayService manages holidays and answers business-day questions.
type HolidayService struct {
	store      holidayStore
	cache      holidayCache
	metrics    *MetricsService
	validator  *validator.Validate
	httpClient *http.Client
	cfg        HolidayServiceConfig
	logger     *zap.Logger
}

// NewHolidayService constructs the holiday service. cache may be nil.
func NewHolidayService(store holidayStore, cache holidayCache, metrics *MetricsService, validate *validator.Validate, cfg HolidayServiceConfig, logger *zap.Logger) *HolidayService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HolidayService{
		store:      store,
		cache:      cache,
		metrics:    metrics,
		validator:  ensureValidator(validate),
		httpClient: &http.Client{Timeout: icsFetchTimeout},
		cfg:        cfg,
		logger:     logger,
	}
}

// Calendar loads a calendar covering the years of from and to.
func (s *HolidayService) Calendar(ctx context.Context, from, to time.Time) (*HolidayCalendar, error) {
	if to.Before(from) {
		from, to = to, from
	}
	fromYear, toYear := from.Year(), to.Year()
	seen := make(map[string]struct{})
	var entries []models.HolidayEntry
	for year := fromYear; year <= toYear; year++ {
		yearEntries, err := s.yearEntries(ctx, year)
		if err != nil {
			return nil, err
		}
		for _, entry := range yearEntries {
			if _, dup := seen[entry.ID]; dup {
				continue
			}
			seen[entry.ID] = struct{}{}
			entries = append(entries, entry)
		}
	}
	return NewHolidayCalendar(entries, fromYear, toYear, s.cfg.ExcludeWeekends), nil
}

func (s *HolidayService) yearEntries(ctx context.Context, year int) ([]models.HolidayEntry, error) {
	key := fmt.Sprintf("holidays:year:%d", year)
	var cached []models.HolidayEntry
	if s.cache != nil && s.cache.Get(ctx, key, &cached) {
		return cached, nil
	}
	entries, err := s.store.ListHolidays(ctx, year, year)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		s.cache.Set(ctx, key, entries, s.cfg.CacheTTL)
	}
	return entries, nil
}

// IsHoliday reports whether date is a holiday or, by policy, a weekend.
func (s *HolidayService) IsHoliday(ctx context.Context, date time.Time) (bool, string, error) {
	cal, err := s.Calendar(ctx, date, date)
	if err != nil {
		return false, "", err
	}
	name, ok := cal.HolidayName(date)
	return ok, name, nil
}

// BusinessDaysBetween counts business days in (start, end]; reversed ranges are negative.
func (s *HolidayService) BusinessDaysBetween(ctx context.Context, start, end time.Time) (int, error) {
	lo, hi := civilDate(start), civilDate(end)
	if hi.Before(lo) {
		lo, hi = hi, lo
	}
	if daysBetween(lo, hi) > maxCalendarSpanDays {
		return 0, appErrors.Clone(appErrors.ErrInvalidRange, "date range exceeds ten years")
	}
	cal, err := s.Calendar(ctx, lo, hi)
	if err != nil {
		return 0, err
	}
	return cal.BusinessDaysBetween(start, end)
}

// AddBusinessDays moves n business days from start; negative n walks backward.
func (s *HolidayService) AddBusinessDays(ctx context.Context, start time.Time, n int) (time.Time, error) {
	return s.walk(ctx, start, n, func(cal *HolidayCalendar) (time.Time, bool, error) {
		return cal.AddBusinessDays(start, n)
	})
}

// EnrollmentEndDate returns the last day of an enrollment lasting n business days.
func (s *HolidayService) EnrollmentEndDate(ctx context.Context, start time.Time, n int) (time.Time, error) {
	return s.walk(ctx, start, n, func(cal *HolidayCalendar) (time.Time, bool, error) {
		return cal.EnrollmentEndDate(start, n)
	})
}

// walk loads the years a walk of n business days probably spans and widens
// the calendar by a year whenever the walk runs past it.
func (s *HolidayService) walk(ctx context.Context, start time.Time, n int, fn func(*HolidayCalendar) (time.Time, bool, error)) (time.Time, error) {
	if err := checkBusinessDayCount(n); err != nil {
		return time.Time{}, err
	}
	estimate := start.AddDate(0, 0, n*7/5+sign(n)*14)
	from, to := start, estimate
	if to.Before(from) {
		from, to = to, from
	}
	for i := 0; i < maxCalendarWidenings; i++ {
		cal, err := s.Calendar(ctx, from, to)
		if err != nil {
			return time.Time{}, err
		}
		result, complete, err := fn(cal)
		if err != nil {
			return time.Time{}, err
		}
		if complete {
			return result, nil
		}
		if n < 0 {
			from = from.AddDate(-1, 0, 0)
		} else {
			to = to.AddDate(1, 0, 0)
		}
	}
	return time.Time{}, appErrors.Clone(appErrors.ErrInvalidRange, "business-day walk exceeds ten years")
}

// List returns the holidays that apply to year.
func (s *HolidayService) List(ctx context.Context, year int) ([]models.HolidayEntry, error) {
	if year < 1 || year > 9999 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "year out of range")
	}
	return s.yearEntries(ctx, year)
}

// Create registers a holiday. A second fixed holiday on the same date, or a
// second recurring holiday on the same month and day, is rejected.
func (s *HolidayService) Create(ctx context.Context, req dto.CreateHolidayRequest) (*models.HolidayEntry, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday payload")
	}
	date, err := parseDate(req.Date)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date must be YYYY-MM-DD")
	}
	exists, err := s.store.ExistsOnDate(ctx, date, req.IsRecurring)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check holiday")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("holiday already registered on %s", req.Date))
	}

	entry := &models.HolidayEntry{
		Date:        date,
		Name:        strings.TrimSpace(req.Name),
		IsRecurring: req.IsRecurring,
		Description: req.Description,
	}
	if err := s.store.Create(ctx, entry); err != nil {
		return nil, err
	}
	s.invalidate(ctx)
	s.logger.Info("holiday created", zap.String("date", req.Date), zap.String("name", entry.Name), zap.Bool("recurring", entry.IsRecurring))
	return entry, nil
}

// Delete removes a holiday.
func (s *HolidayService) Delete(ctx context.Context, id string) error {
	if err := s.store.Delete(ctx, id); err != nil {
		return err
	}
	s.invalidate(ctx)
	s.logger.Info("holiday deleted", zap.String("id", id))
	return nil
}

// SeedDefaults registers the default recurring public holidays that are
// missing and returns how many were created.
func (s *HolidayService) SeedDefaults(ctx context.Context, year int) (int, error) {
	created := 0
	for _, def := range models.DefaultFixedHolidays {
		date := time.Date(year, def.Month, def.Day, 0, 0, 0, 0, time.UTC)
		exists, err := s.store.ExistsOnDate(ctx, date, true)
		if err != nil {
			return created, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to seed holidays")
		}
		if exists {
			continue
		}
		entry := &models.HolidayEntry{Date: date, Name: def.Name, IsRecurring: true}
		if err := s.store.Create(ctx, entry); err != nil {
			if appErrors.FromError(err).Code == appErrors.ErrConflict.Code {
				continue
			}
			return created, err
		}
		created++
	}
	if created > 0 {
		s.invalidate(ctx)
		s.logger.Info("default holidays seeded", zap.Int("created", created))
	}
	return created, nil
}

// ImportICS creates a fixed holiday for every all-day or timed VEVENT in the
// feed whose date is not registered yet.
func (s *HolidayService) ImportICS(ctx context.Context, r io.Reader) (*dto.HolidayImportResult, error) {
	cal, err := ics.ParseCalendar(r)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid iCalendar payload")
	}

	result := &dto.HolidayImportResult{}
	for _, evt := range cal.Events() {
		name, date, err := parseHolidayEvent(evt)
		if err != nil {
			result.Skipped++
			result.Errors = append(result.Errors, err.Error())
			continue
		}
		exists, err := s.store.ExistsOnDate(ctx, date, false)
		if err != nil {
			return result, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to import holidays")
		}
		if exists {
			result.Skipped++
			continue
		}
		entry := &models.HolidayEntry{Date: date, Name: name}
		if err := s.store.Create(ctx, entry); err != nil {
			if appErrors.FromError(err).Code == appErrors.ErrConflict.Code {
				result.Skipped++
				continue
			}
			return result, err
		}
		result.Created++
	}
	if result.Created > 0 {
		s.invalidate(ctx)
	}
	s.metrics.ObserveHolidayImport(result.Created)
	s.logger.Info("holiday feed imported", zap.Int("created", result.Created), zap.Int("skipped", result.Skipped))
	return result, nil
}

// SyncFeed downloads the configured ICS feed and imports it.
func (s *HolidayService) SyncFeed(ctx context.Context) (*dto.HolidayImportResult, error) {
	if s.cfg.ICSURL == "" {
		return &dto.HolidayImportResult{}, nil
	}
	url := s.cfg.ICSURL
	if strings.HasPrefix(url, "webcal://") {
		url = "https://" + strings.TrimPrefix(url, "webcal://")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid holiday feed url")
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrCollaboratorUnavailable, err, "holiday feed unavailable")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, appErrors.WrapAs(appErrors.ErrCollaboratorUnavailable, fmt.Errorf("holiday feed returned HTTP %d", resp.StatusCode), "holiday feed unavailable")
	}
	return s.ImportICS(ctx, io.LimitReader(resp.Body, icsMaxFeedSize))
}

// StartSync periodically imports the ICS feed until ctx is cancelled.
func (s *HolidayService) StartSync(ctx context.Context) {
	if s.cfg.ICSURL == "" {
		return
	}
	jobs.RunEvery(ctx, "holiday-sync", s.cfg.SyncInterval, true, s.logger, func(ctx context.Context) {
		if _, err := s.SyncFeed(ctx); err != nil {
			s.logger.Warn("holiday feed sync failed", zap.Error(err))
		}
	})
}

func (s *HolidayService) invalidate(ctx context.Context) {
	if s.cache != nil {
		s.cache.Invalidate(ctx, holidayCacheKeyPattern)
	}
}

func parseHolidayEvent(evt *ics.VEvent) (string, time.Time, error) {
	summary := evt.GetProperty(ics.ComponentPropertySummary)
	if summary == nil || strings.TrimSpace(summary.Value) == "" {
		return "", time.Time{}, fmt.Errorf("event without summary")
	}
	prop := evt.GetProperty(ics.ComponentPropertyDtStart)
	if prop == nil {
		return "", time.Time{}, fmt.Errorf("event %q has no start date", summary.Value)
	}
	for _, layout := range []string{"20060102", "20060102T150405Z", "20060102T150405"} {
		if t, err := time.Parse(layout, prop.Value); err == nil {
			return strings.TrimSpace(summary.Value), civilDate(t), nil
		}
	}
	return "", time.Time{}, fmt.Errorf("event %q has unparseable start %q", summary.Value, prop.Value)
}

func sign(n int) int {
	switch {
	case n < 0:
		return -1
	case n > 0:
		return 1
	default:
		return 0
	}
}
