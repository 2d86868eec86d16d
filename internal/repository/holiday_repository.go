package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
)

const holidayColumns = `id, holiday_date, name, is_recurring, description, created_at, updated_at`

// HolidayRepository persists holiday entries.
type HolidayRepository struct {
	db *sqlx.DB
}

// NewHolidayRepository constructs a holiday repository.
func NewHolidayRepository(db *sqlx.DB) *HolidayRepository {
	return &HolidayRepository{db: db}
}

// ListHolidays returns the fixed holidays dated within [fromYear, toYear] and every recurring entry.
func (r *HolidayRepository) ListHolidays(ctx context.Context, fromYear, toYear int) ([]models.HolidayEntry, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays
WHERE is_recurring = TRUE OR (holiday_date >= $1 AND holiday_date < $2) ORDER BY holiday_date, name`
	from := time.Date(fromYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(toYear+1, time.January, 1, 0, 0, 0, 0, time.UTC)
	var entries []models.HolidayEntry
	if err := r.db.SelectContext(ctx, &entries, query, from, to); err != nil {
		return nil, appErrors.WrapAs(appErrors.ErrCollaboratorUnavailable, fmt.Errorf("list holidays %d-%d: %w", fromYear, toYear, err), "holiday calendar unavailable")
	}
	return entries, nil
}

// GetByID fetches a holiday entry.
func (r *HolidayRepository) GetByID(ctx context.Context, id string) (*models.HolidayEntry, error) {
	query := `SELECT ` + holidayColumns + ` FROM holidays WHERE id = $1`
	var entry models.HolidayEntry
	if err := r.db.GetContext(ctx, &entry, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
		}
		return nil, fmt.Errorf("get holiday %s: %w", id, err)
	}
	return &entry, nil
}

// ExistsOnDate reports whether an entry already covers the date, either as a
// fixed holiday or, when recurring is set, as a recurring month and day.
func (r *HolidayRepository) ExistsOnDate(ctx context.Context, date time.Time, recurring bool) (bool, error) {
	var (
		exists bool
		query  string
	)
	if recurring {
		query = `SELECT EXISTS(SELECT 1 FROM holidays WHERE is_recurring = TRUE AND EXTRACT(MONTH FROM holiday_date) = EXTRACT(MONTH FROM $1::date) AND EXTRACT(DAY FROM holiday_date) = EXTRACT(DAY FROM $1::date))`
	} else {
		query = `SELECT EXISTS(SELECT 1 FROM holidays WHERE is_recurring = FALSE AND holiday_date = $1)`
	}
	if err := r.db.GetContext(ctx, &exists, query, dateOnly(date)); err != nil {
		return false, fmt.Errorf("check holiday date: %w", err)
	}
	return exists, nil
}

// Create inserts a holiday entry.
func (r *HolidayRepository) Create(ctx context.Context, entry *models.HolidayEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = now
	}
	entry.UpdatedAt = now
	entry.Date = dateOnly(entry.Date)

	query := `INSERT INTO holidays (` + holidayColumns + `)
VALUES (:id, :holiday_date, :name, :is_recurring, :description, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		if isUniqueViolation(err) {
			return appErrors.WrapAs(appErrors.ErrConflict, err, "holiday already registered for this date")
		}
		return fmt.Errorf("create holiday: %w", err)
	}
	return nil
}

// Delete removes a holiday entry.
func (r *HolidayRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM holidays WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete holiday: %w", err)
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "holiday not found")
	}
	return nil
}
