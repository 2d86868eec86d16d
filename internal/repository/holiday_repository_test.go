package repository

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
)

func TestHolidayRepositoryListHolidays(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	rows := sqlmock.NewRows([]string{"id", "holiday_date", "name", "is_recurring", "description", "created_at", "updated_at"}).
		AddRow("h-1", time.Date(2000, 1, 1, 0, 0, 0, 0, time.UTC), "New Year's Day", true, nil, time.Now(), time.Now()).
		AddRow("h-2", time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), "Academy closure", false, "maintenance", time.Now(), time.Now())
	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_recurring = TRUE OR (holiday_date >= $1 AND holiday_date < $2)")).
		WithArgs(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(rows)

	entries, err := repo.ListHolidays(context.Background(), 2024, 2024)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.True(t, entries[0].IsRecurring)
	require.NotNil(t, entries[1].Description)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayRepositoryListHolidaysUnavailable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	mock.ExpectQuery("FROM holidays").WillReturnError(errors.New("connection refused"))

	_, err := repo.ListHolidays(context.Background(), 2024, 2024)
	assert.True(t, errors.Is(err, appErrors.ErrCollaboratorUnavailable))
}

func TestHolidayRepositoryCreateDuplicate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO holidays")).
		WillReturnError(&pq.Error{Code: "23505"})

	err := repo.Create(context.Background(), &models.HolidayEntry{Date: time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC), Name: "closure"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))
}

func TestHolidayRepositoryExistsOnDate(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("WHERE is_recurring = FALSE AND holiday_date = $1")).
		WithArgs(time.Date(2024, 3, 6, 0, 0, 0, 0, time.UTC)).
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	exists, err := repo.ExistsOnDate(context.Background(), time.Date(2024, 3, 6, 9, 0, 0, 0, time.UTC), false)
	require.NoError(t, err)
	assert.True(t, exists)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestHolidayRepositoryDeleteMissing(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()
	repo := NewHolidayRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM holidays WHERE id = $1")).
		WithArgs("h-9").
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Delete(context.Background(), "h-9")
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}
