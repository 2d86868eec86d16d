package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
)

const attendanceColumns = `id, student_id, schedule_id, session_date, status, check_in_time, check_out_time, expected_leave_time, reason, memo, class_completed, version, created_at, updated_at`

const uniqueViolation = "23505"

// AttendanceRepository persists version-stamped attendance records.
type AttendanceRepository struct {
	db *sqlx.DB
}

// NewAttendanceRepository constructs an attendance repository.
func NewAttendanceRepository(db *sqlx.DB) *AttendanceRepository {
	return &AttendanceRepository{db: db}
}

// Create inserts a freshly booked record at version 1.
func (r *AttendanceRepository) Create(ctx context.Context, record *models.AttendanceRecord) error {
	if record.ID == "" {
		record.ID = uuid.NewString()
	}
	if record.Status == "" {
		record.Status = models.AttendanceStatusUnset
	}
	now := time.Now().UTC()
	if record.CreatedAt.IsZero() {
		record.CreatedAt = now
	}
	record.UpdatedAt = now
	record.Version = 1

	query := `INSERT INTO attendance_records (` + attendanceColumns + `)
VALUES (:id, :student_id, :schedule_id, :session_date, :status, :check_in_time, :check_out_time, :expected_leave_time, :reason, :memo, :class_completed, :version, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, record); err != nil {
		if isUniqueViolation(err) {
			return appErrors.WrapAs(appErrors.ErrConflict, err, "attendance record already exists for this session")
		}
		return fmt.Errorf("create attendance record: %w", err)
	}
	return nil
}

// GetByID fetches a record by id.
func (r *AttendanceRepository) GetByID(ctx context.Context, id string) (*models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE id = $1`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, fmt.Errorf("get attendance record %s: %w", id, err)
	}
	return &record, nil
}

// FindBySession fetches the record of one student for one session.
func (r *AttendanceRepository) FindBySession(ctx context.Context, key models.SessionKey) (*models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE student_id = $1 AND schedule_id = $2 AND session_date = $3`
	var record models.AttendanceRecord
	if err := r.db.GetContext(ctx, &record, query, key.StudentID, key.ScheduleID, dateOnly(key.SessionDate)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return nil, fmt.Errorf("find attendance record: %w", err)
	}
	return &record, nil
}

// LoadOpenAttendanceRecords lists records of the date with no check-in that are not ABSENT or EXCUSED.
func (r *AttendanceRepository) LoadOpenAttendanceRecords(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records
WHERE session_date = $1 AND check_in_time IS NULL AND status NOT IN ($2, $3) ORDER BY id`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, dateOnly(date), models.AttendanceStatusAbsent, models.AttendanceStatusExcused); err != nil {
		return nil, fmt.Errorf("load open attendance records: %w", err)
	}
	return records, nil
}

// ListByDate returns every record of the date.
func (r *AttendanceRepository) ListByDate(ctx context.Context, date time.Time) ([]models.AttendanceRecord, error) {
	query := `SELECT ` + attendanceColumns + ` FROM attendance_records WHERE session_date = $1 ORDER BY schedule_id, student_id`
	var records []models.AttendanceRecord
	if err := r.db.SelectContext(ctx, &records, query, dateOnly(date)); err != nil {
		return nil, fmt.Errorf("list attendance records: %w", err)
	}
	return records, nil
}

// Save writes the record only if the stored version still equals record.Version.
// On success record.Version is advanced to the committed version.
func (r *AttendanceRepository) Save(ctx context.Context, record *models.AttendanceRecord) error {
	updatedAt := time.Now().UTC()
	const query = `UPDATE attendance_records SET status = $1, check_in_time = $2, check_out_time = $3, expected_leave_time = $4, reason = $5, memo = $6, class_completed = $7, version = version + 1, updated_at = $8
WHERE id = $9 AND version = $10`
	res, err := r.db.ExecContext(ctx, query,
		record.Status,
		record.CheckInTime,
		record.CheckOutTime,
		record.ExpectedLeaveTime,
		record.Reason,
		record.Memo,
		record.ClassCompleted,
		updatedAt,
		record.ID,
		record.Version,
	)
	if err != nil {
		return fmt.Errorf("save attendance record %s: %w", record.ID, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("save attendance record %s: %w", record.ID, err)
	}
	if affected == 0 {
		var exists bool
		if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM attendance_records WHERE id = $1)`, record.ID); err != nil {
			return fmt.Errorf("check attendance record %s: %w", record.ID, err)
		}
		if !exists {
			return appErrors.Clone(appErrors.ErrNotFound, "attendance record not found")
		}
		return appErrors.Clone(appErrors.ErrConcurrentModification, fmt.Sprintf("attendance record %s changed since version %d", record.ID, record.Version))
	}
	record.Version++
	record.UpdatedAt = updatedAt
	return nil
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}
