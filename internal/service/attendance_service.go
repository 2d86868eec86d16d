package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/academy-attendance/internal/dto"
	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
)

type attendanceStore interface {
	Create(ctx context.Context, record *models.AttendanceRecord) error
	GetByID(ctx context.Context, id string) (*models.AttendanceRecord, error)
	FindBySession(ctx context.Context, key models.SessionKey) (*models.AttendanceRecord, error)
	LoadOpenAttendanceRecords(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error)
	ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error)
	Save(ctx context.Context, record *models.AttendanceRecord) error
}

type scheduleLookup interface {
	GetScheduledSession(ctx context.Context, scheduleID string) (*models.ScheduledSession, error)
}

type transitionFunc func(models.AttendanceRecord) (models.AttendanceRecord, []models.SideEffect, error)

// AttendanceService applies user-initiated attendance transitions.
type AttendanceService struct {
	store     attendanceStore
	schedules scheduleLookup
	sink      EnrollmentAdjustmentSink
	machine   AttendanceMachine
	loc       *time.Location
	now       func() time.Time
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewAttendanceService constructs the attendance service. Times are
// interpreted in loc; sink may be nil when credits are not tracked.
func NewAttendanceService(
	store attendanceStore,
	schedules scheduleLookup,
	sink EnrollmentAdjustmentSink,
	machine AttendanceMachine,
	loc *time.Location,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AttendanceService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AttendanceService{
		store:     store,
		schedules: schedules,
		sink:      sink,
		machine:   machine,
		loc:       loc,
		now:       time.Now,
		metrics:   metrics,
		validator: ensureValidator(validate),
		logger:    logger,
	}
}

// WithClock overrides the time source.
func (s *AttendanceService) WithClock(now func() time.Time) *AttendanceService {
	s.now = now
	return s
}

// BookSession creates the UNSET record of a student for one session.
func (s *AttendanceService) BookSession(ctx context.Context, req dto.BookSessionRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	date, err := parseDate(req.SessionDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "session_date must be YYYY-MM-DD")
	}
	if _, err := s.schedules.GetScheduledSession(ctx, req.ScheduleID); err != nil {
		return nil, err
	}

	record := &models.AttendanceRecord{
		StudentID:   req.StudentID,
		ScheduleID:  req.ScheduleID,
		SessionDate: date,
		Status:      models.AttendanceStatusUnset,
		Memo:        req.Memo,
	}
	if err := s.store.Create(ctx, record); err != nil {
		return nil, err
	}
	s.logger.Info("session booked",
		zap.String("record_id", record.ID),
		zap.String("student_id", record.StudentID),
		zap.String("schedule_id", record.ScheduleID),
		zap.String("session_date", req.SessionDate),
	)
	return record, nil
}

// CheckIn records a student's arrival at today's session of the schedule. A
// walk-in without a booking gets its record created on the spot.
func (s *AttendanceService) CheckIn(ctx context.Context, req dto.CheckInRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-in payload")
	}
	var expectedLeave *models.TimeOfDay
	if req.ExpectedLeaveTime != nil {
		leave, err := models.ParseTimeOfDay(*req.ExpectedLeaveTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "expected_leave_time must be HH:MM")
		}
		expectedLeave = &leave
	}

	now := s.now().In(s.loc)
	sessionDate := civilDate(now)
	session, err := s.schedules.GetScheduledSession(ctx, req.ScheduleID)
	if err != nil {
		return nil, err
	}
	start := session.StartOn(sessionDate, s.loc)
	end := session.EndOn(sessionDate, s.loc)

	record, err := s.sessionRecord(ctx, models.SessionKey{StudentID: req.StudentID, ScheduleID: req.ScheduleID, SessionDate: sessionDate})
	if err != nil {
		return nil, err
	}

	next, err := s.mutate(ctx, record, "check_in", func(rec models.AttendanceRecord) (models.AttendanceRecord, []models.SideEffect, error) {
		return s.machine.CheckIn(rec, start, end, now, expectedLeave)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("student checked in",
		zap.String("record_id", next.ID),
		zap.String("student_id", next.StudentID),
		zap.String("status", string(next.Status)),
		zap.Time("scheduled_start", start),
	)
	return next, nil
}

// CheckOut records departure at req.Time, or now when unset.
func (s *AttendanceService) CheckOut(ctx context.Context, recordID string, req dto.CheckOutRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid check-out payload")
	}
	at := s.now().In(s.loc)
	if req.Time != nil {
		parsed, err := time.Parse(time.RFC3339, *req.Time)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, "time must be RFC3339")
		}
		at = parsed
	}

	record, err := s.store.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, record, "check_out", func(rec models.AttendanceRecord) (models.AttendanceRecord, []models.SideEffect, error) {
		return s.machine.CheckOut(rec, at)
	})
}

// ManualSetStatus is the administrative override.
func (s *AttendanceService) ManualSetStatus(ctx context.Context, recordID string, req dto.ManualStatusRequest) (*models.AttendanceRecord, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	status, _ := models.ParseAttendanceStatus(req.Status)

	record, err := s.store.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	next, err := s.mutate(ctx, record, "manual", func(rec models.AttendanceRecord) (models.AttendanceRecord, []models.SideEffect, error) {
		return s.machine.ManualStatusChange(rec, status, req.Reason)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("attendance status overridden",
		zap.String("record_id", next.ID),
		zap.String("from", string(record.Status)),
		zap.String("to", string(next.Status)),
	)
	return next, nil
}

// SetClassCompleted records whether the instructor finished the class.
func (s *AttendanceService) SetClassCompleted(ctx context.Context, recordID string, completed bool) (*models.AttendanceRecord, error) {
	record, err := s.store.GetByID(ctx, recordID)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, record, "class_completed", func(rec models.AttendanceRecord) (models.AttendanceRecord, []models.SideEffect, error) {
		next := rec.Clone()
		next.ClassCompleted = completed
		return next, nil, nil
	})
}

// Get returns one record.
func (s *AttendanceService) Get(ctx context.Context, recordID string) (*models.AttendanceRecord, error) {
	return s.store.GetByID(ctx, recordID)
}

// ListByDate returns the records of a day.
func (s *AttendanceService) ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error) {
	records, err := s.store.ListByDate(ctx, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list attendance")
	}
	return records, nil
}

// Today returns the academy's current calendar date.
func (s *AttendanceService) Today() time.Time {
	return civilDate(s.now().In(s.loc))
}

func (s *AttendanceService) sessionRecord(ctx context.Context, key models.SessionKey) (*models.AttendanceRecord, error) {
	record, err := s.store.FindBySession(ctx, key)
	if err == nil {
		return record, nil
	}
	if !errors.Is(err, appErrors.ErrNotFound) {
		return nil, err
	}

	record = &models.AttendanceRecord{
		StudentID:   key.StudentID,
		ScheduleID:  key.ScheduleID,
		SessionDate: key.SessionDate,
		Status:      models.AttendanceStatusUnset,
	}
	if err := s.store.Create(ctx, record); err != nil {
		if errors.Is(err, appErrors.ErrConflict) {
			return s.store.FindBySession(ctx, key)
		}
		return nil, err
	}
	return record, nil
}

// mutate applies fn and saves the result with the version it was read at. A
// version conflict is retried once against a fresh read.
func (s *AttendanceService) mutate(ctx context.Context, record *models.AttendanceRecord, event string, fn transitionFunc) (*models.AttendanceRecord, error) {
	current := record
	for attempt := 0; ; attempt++ {
		next, effects, err := fn(*current)
		if err != nil {
			return nil, err
		}
		err = s.store.Save(ctx, &next)
		if err == nil {
			s.metrics.ObserveTransition(event, string(next.Status))
			s.deliver(ctx, effects, next.Version)
			return &next, nil
		}
		if !errors.Is(err, appErrors.ErrConcurrentModification) || attempt > 0 {
			return nil, err
		}
		s.logger.Info("attendance record changed concurrently, retrying", zap.String("record_id", current.ID), zap.String("event", event))
		current, err = s.store.GetByID(ctx, current.ID)
		if err != nil {
			return nil, err
		}
	}
}

func (s *AttendanceService) deliver(ctx context.Context, effects []models.SideEffect, version int64) {
	if s.sink == nil {
		return
	}
	for _, effect := range effects {
		if err := s.sink.OnCreditEffect(ctx, effect, version); err != nil {
			s.logger.Error("enrollment adjustment failed",
				zap.String("record_id", effect.RecordID),
				zap.String("effect", string(effect.Kind)),
				zap.Error(err),
			)
		}
	}
}
