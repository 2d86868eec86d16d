package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
	"github.com/noah-isme/academy-attendance/pkg/jobs"
)

// AbsenceSweepService closes open records whose absence cutoff has passed.
type AbsenceSweepService struct {
	store     attendanceStore
	schedules scheduleLookup
	sink      EnrollmentAdjustmentSink
	machine   AttendanceMachine
	loc       *time.Location
	now       func() time.Time
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewAbsenceSweepService constructs the sweep.
func NewAbsenceSweepService(store attendanceStore, schedules scheduleLookup, sink EnrollmentAdjustmentSink, machine AttendanceMachine, loc *time.Location, metrics *MetricsService, logger *zap.Logger) *AbsenceSweepService {
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AbsenceSweepService{
		store:     store,
		schedules: schedules,
		sink:      sink,
		machine:   machine,
		loc:       loc,
		now:       time.Now,
		metrics:   metrics,
		logger:    logger,
	}
}

type sessionStart struct {
	session *models.ScheduledSession
	err     error
}

// RunAbsenceSweep evaluates every open record of date against now. A record
// that cannot be resolved or saved is reported as failed and the run goes on.
func (s *AbsenceSweepService) RunAbsenceSweep(ctx context.Context, date, now time.Time) (*models.SweepReport, error) {
	started := time.Now()
	report := &models.SweepReport{Date: civilDate(date).Format(models.DateLayout)}

	records, err := s.store.LoadOpenAttendanceRecords(ctx, civilDate(date))
	if err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrCollaboratorUnavailable, err, "failed to load open attendance records")
	}

	sessions := make(map[string]sessionStart)
	for _, record := range records {
		report.Evaluated++

		lookup, ok := sessions[record.ScheduleID]
		if !ok {
			session, err := s.schedules.GetScheduledSession(ctx, record.ScheduleID)
			lookup = sessionStart{session: session, err: err}
			sessions[record.ScheduleID] = lookup
		}
		if lookup.err != nil {
			s.fail(report, record.ID, lookup.err)
			continue
		}
		start := lookup.session.StartOn(record.SessionDate, s.loc)

		committed, err := s.sweepRecord(ctx, record, start, now)
		if err != nil {
			s.fail(report, record.ID, err)
			continue
		}
		if committed == nil {
			continue
		}
		report.Transitioned++
		s.metrics.ObserveTransition("sweep", string(committed.Status))
		if s.sink != nil {
			if err := s.sink.OnAutoAbsent(ctx, committed.ID, committed.StudentID, committed.ScheduleID); err != nil {
				s.logger.Error("auto-absent adjustment failed", zap.String("record_id", committed.ID), zap.Error(err))
			}
		}
	}

	s.metrics.ObserveSweep(report.Evaluated, report.Transitioned, report.Failed, time.Since(started))
	s.logger.Info("absence sweep completed",
		zap.String("date", report.Date),
		zap.Int("evaluated", report.Evaluated),
		zap.Int("transitioned", report.Transitioned),
		zap.Int("failed", report.Failed),
	)
	return report, nil
}

// sweepRecord returns the committed record when it was marked absent, nil
// when nothing was due. On a version conflict the record is re-read and
// evaluated once more; if that second attempt does not commit, the conflict
// is returned.
func (s *AbsenceSweepService) sweepRecord(ctx context.Context, record models.AttendanceRecord, start, now time.Time) (*models.AttendanceRecord, error) {
	next, _, outcome := s.machine.SweepEvaluate(record, start, now)
	if outcome != SweepMarkedAbsent {
		return nil, nil
	}
	err := s.store.Save(ctx, &next)
	if err == nil {
		return &next, nil
	}
	if !errors.Is(err, appErrors.ErrConcurrentModification) {
		return nil, err
	}

	fresh, reloadErr := s.store.GetByID(ctx, record.ID)
	if reloadErr != nil {
		return nil, reloadErr
	}
	next, _, outcome = s.machine.SweepEvaluate(*fresh, start, now)
	if outcome != SweepMarkedAbsent {
		return nil, err
	}
	if retryErr := s.store.Save(ctx, &next); retryErr != nil {
		return nil, retryErr
	}
	return &next, nil
}

func (s *AbsenceSweepService) fail(report *models.SweepReport, recordID string, err error) {
	report.Failed++
	report.Failures = append(report.Failures, models.SweepFailure{RecordID: recordID, Error: err.Error()})
	s.logger.Warn("absence sweep skipped record", zap.String("record_id", recordID), zap.Error(err))
}

// RunNow sweeps the academy's current date at the current time.
func (s *AbsenceSweepService) RunNow(ctx context.Context) (*models.SweepReport, error) {
	now := s.now().In(s.loc)
	return s.RunAbsenceSweep(ctx, civilDate(now), now)
}

// StartSweep runs the sweep every interval until ctx is cancelled.
func (s *AbsenceSweepService) StartSweep(ctx context.Context, interval time.Duration) {
	jobs.RunEvery(ctx, "absence-sweep", interval, true, s.logger, func(ctx context.Context) {
		if _, err := s.RunNow(ctx); err != nil {
			s.logger.Error("absence sweep failed", zap.Error(err))
		}
	})
}

// WithClock overrides the time source used by RunNow.
func (s *AbsenceSweepService) WithClock(now func() time.Time) *AbsenceSweepService {
	s.now = now
	return s
}
