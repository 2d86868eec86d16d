package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
)

// ScheduleRepository reads course schedules owned by the scheduling subsystem.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository constructs a schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// GetScheduledSession resolves the weekly slot of a schedule.
func (r *ScheduleRepository) GetScheduledSession(ctx context.Context, scheduleID string) (*models.ScheduledSession, error) {
	const query = `SELECT id, course_id, day_of_week, start_time, end_time FROM course_schedules WHERE id = $1`
	var session models.ScheduledSession
	if err := r.db.GetContext(ctx, &session, query, scheduleID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "schedule not found")
		}
		return nil, appErrors.WrapAs(appErrors.ErrCollaboratorUnavailable, fmt.Errorf("get schedule %s: %w", scheduleID, err), "schedule lookup unavailable")
	}
	return &session, nil
}
