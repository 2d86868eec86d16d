package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-attendance/internal/models"
)

const adjustmentColumns = `id, transition_id, record_id, student_id, schedule_id, adjustment_type, count_change, reason, created_at`

// EnrollmentAdjustmentRepository stores the credit adjustment ledger.
type EnrollmentAdjustmentRepository struct {
	db *sqlx.DB
}

// NewEnrollmentAdjustmentRepository constructs the ledger repository.
func NewEnrollmentAdjustmentRepository(db *sqlx.DB) *EnrollmentAdjustmentRepository {
	return &EnrollmentAdjustmentRepository{db: db}
}

// Record appends an adjustment unless one with the same transition id exists.
// It reports whether a new row was written.
func (r *EnrollmentAdjustmentRepository) Record(ctx context.Context, adj *models.EnrollmentAdjustment) (bool, error) {
	if adj.ID == "" {
		adj.ID = uuid.NewString()
	}
	if adj.CreatedAt.IsZero() {
		adj.CreatedAt = time.Now().UTC()
	}
	query := `INSERT INTO enrollment_adjustments (` + adjustmentColumns + `)
VALUES (:id, :transition_id, :record_id, :student_id, :schedule_id, :adjustment_type, :count_change, :reason, :created_at)
ON CONFLICT (transition_id) DO NOTHING`
	res, err := r.db.NamedExecContext(ctx, query, adj)
	if err != nil {
		return false, fmt.Errorf("record enrollment adjustment %s: %w", adj.TransitionID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("record enrollment adjustment %s: %w", adj.TransitionID, err)
	}
	return affected > 0, nil
}

// ListByStudent returns a student's ledger, newest first.
func (r *EnrollmentAdjustmentRepository) ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentAdjustment, error) {
	query := `SELECT ` + adjustmentColumns + ` FROM enrollment_adjustments WHERE student_id = $1 ORDER BY created_at DESC`
	var list []models.EnrollmentAdjustment
	if err := r.db.SelectContext(ctx, &list, query, studentID); err != nil {
		return nil, fmt.Errorf("list enrollment adjustments: %w", err)
	}
	return list, nil
}
