package service

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/academy-attendance/internal/models"
	"github.com/noah-isme/academy-attendance/pkg/jobs"
)

const (
	adjustmentQueueName  = "enrollment-adjustments"
	shutdownFlushTimeout = 10 * time.Second
)

// EnrollmentAdjustmentSink is notified once per committed transition that
// changes a student's remaining credits. Implementations dedupe on the
// transition id, so redelivery is harmless.
type EnrollmentAdjustmentSink interface {
	OnAutoAbsent(ctx context.Context, recordID, studentID, scheduleID string) error
	OnCreditEffect(ctx context.Context, effect models.SideEffect, version int64) error
}

type adjustmentLedger interface {
	Record(ctx context.Context, adj *models.EnrollmentAdjustment) (bool, error)
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentAdjustment, error)
}

// EnrollmentAdjustmentService writes credit adjustments to the ledger
// through a retrying background queue.
type EnrollmentAdjustmentService struct {
	ledger  adjustmentLedger
	queue   *jobs.Queue
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEnrollmentAdjustmentService constructs the sink. The queue is idle until Start.
func NewEnrollmentAdjustmentService(ledger adjustmentLedger, metrics *MetricsService, queueCfg jobs.QueueConfig, logger *zap.Logger) *EnrollmentAdjustmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &EnrollmentAdjustmentService{ledger: ledger, metrics: metrics, logger: logger}
	queueCfg.Logger = logger
	queueCfg.OnDrop = func(job jobs.Job, err error) {
		s.metrics.ObserveAdjustment(job.Type, "dropped")
	}
	s.queue = jobs.NewQueue(adjustmentQueueName, s.deliver, queueCfg)
	return s
}

// Start launches the delivery workers.
func (s *EnrollmentAdjustmentService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop waits up to ctx for queued adjustments to settle, then stops the
// workers. Adjustments the queue could not settle are written inline, so a
// committed transition never loses its ledger entry on shutdown.
func (s *EnrollmentAdjustmentService) Stop(ctx context.Context) {
	if err := s.queue.Drain(ctx); err != nil {
		s.logger.Warn("adjustment queue not drained", zap.Int64("pending", s.queue.Pending()), zap.Error(err))
	}
	left := s.queue.Stop()
	if len(left) == 0 {
		return
	}

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownFlushTimeout)
	defer cancel()
	for _, job := range left {
		if err := s.deliver(flushCtx, job); err != nil {
			s.metrics.ObserveAdjustment(job.Type, "dropped")
			s.logger.Error("adjustment lost on shutdown", zap.String("transition_id", job.Key), zap.Error(err))
		}
	}
}

// OnAutoAbsent deducts one credit for a session the sweep closed as ABSENT.
func (s *EnrollmentAdjustmentService) OnAutoAbsent(ctx context.Context, recordID, studentID, scheduleID string) error {
	return s.Submit(ctx, models.EnrollmentAdjustment{
		TransitionID: models.AutoAbsentTransitionID(recordID),
		RecordID:     recordID,
		StudentID:    studentID,
		ScheduleID:   scheduleID,
		Type:         models.AdjustmentDeduct,
		CountChange:  models.CountChangeFor(models.AdjustmentDeduct),
	})
}

// OnCreditEffect turns a manual deduct or restore effect into a ledger entry.
func (s *EnrollmentAdjustmentService) OnCreditEffect(ctx context.Context, effect models.SideEffect, version int64) error {
	var adjType models.AdjustmentType
	switch effect.Kind {
	case models.SideEffectDeductCredit, models.SideEffectAutoAbsent:
		adjType = models.AdjustmentDeduct
	case models.SideEffectRestoreCredit:
		adjType = models.AdjustmentRestore
	default:
		return fmt.Errorf("side effect %s does not adjust credits", effect.Kind)
	}
	adj := models.EnrollmentAdjustment{
		TransitionID: effect.TransitionID(version),
		RecordID:     effect.RecordID,
		StudentID:    effect.StudentID,
		ScheduleID:   effect.ScheduleID,
		Type:         adjType,
		CountChange:  models.CountChangeFor(adjType),
	}
	if effect.Reason != "" {
		reason := effect.Reason
		adj.Reason = &reason
	}
	return s.Submit(ctx, adj)
}

// Submit queues an adjustment. When the queue is not running the adjustment
// is written synchronously.
func (s *EnrollmentAdjustmentService) Submit(ctx context.Context, adj models.EnrollmentAdjustment) error {
	job := jobs.Job{Key: adj.TransitionID, Type: string(adj.Type), Payload: adj}
	if err := s.queue.Enqueue(job); err != nil {
		s.logger.Debug("adjustment queue unavailable, delivering inline", zap.String("transition_id", adj.TransitionID), zap.Error(err))
		return s.deliver(ctx, job)
	}
	return nil
}

// ListByStudent returns a student's adjustment ledger.
func (s *EnrollmentAdjustmentService) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentAdjustment, error) {
	return s.ledger.ListByStudent(ctx, studentID)
}

func (s *EnrollmentAdjustmentService) deliver(ctx context.Context, job jobs.Job) error {
	adj, ok := job.Payload.(models.EnrollmentAdjustment)
	if !ok {
		return fmt.Errorf("unexpected adjustment payload %T", job.Payload)
	}
	inserted, err := s.ledger.Record(ctx, &adj)
	if err != nil {
		s.metrics.ObserveAdjustment(job.Type, "error")
		return err
	}
	if !inserted {
		s.metrics.ObserveAdjustment(job.Type, "duplicate")
		s.logger.Info("duplicate enrollment adjustment ignored", zap.String("transition_id", adj.TransitionID))
		return nil
	}
	s.metrics.ObserveAdjustment(job.Type, "recorded")
	s.logger.Info("enrollment adjustment recorded",
		zap.String("transition_id", adj.TransitionID),
		zap.String("student_id", adj.StudentID),
		zap.String("type", string(adj.Type)),
		zap.Int("count_change", adj.CountChange),
	)
	return nil
}
