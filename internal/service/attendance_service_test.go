package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/academy-attendance/internal/dto"
	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
)

func newAttendanceServiceForTest(store *memoryAttendanceStore, sink EnrollmentAdjustmentSink, now time.Time) *AttendanceService {
	svc := NewAttendanceService(store, newScheduleStub(), sink, NewAttendanceMachine(0, 0), kst, nil, nil, nil)
	return svc.WithClock(func() time.Time { return now })
}

func TestAttendanceServiceCheckInScenario(t *testing.T) {
	store := newMemoryAttendanceStore(bookedRecord("rec-1", "stu-1", "sch-1"), bookedRecord("rec-2", "stu-2", "sch-1"))

	onTime, err := newAttendanceServiceForTest(store, nil, kstAt(10, 9)).
		CheckIn(context.Background(), dto.CheckInRequest{StudentID: "stu-1", ScheduleID: "sch-1"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, onTime.Status)
	assert.Equal(t, "rec-1", onTime.ID)
	assert.Equal(t, int64(2), onTime.Version)

	late, err := newAttendanceServiceForTest(store, nil, kstAt(10, 11)).
		CheckIn(context.Background(), dto.CheckInRequest{StudentID: "stu-2", ScheduleID: "sch-1"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, late.Status)
}

func TestAttendanceServiceCheckInUsesAcademyTimezone(t *testing.T) {
	store := newMemoryAttendanceStore(bookedRecord("rec-1", "stu-1", "sch-1"))
	// 01:05 UTC is 10:05 in Seoul on the same day.
	now := time.Date(2024, 3, 4, 1, 5, 0, 0, time.UTC)

	rec, err := newAttendanceServiceForTest(store, nil, now).
		CheckIn(context.Background(), dto.CheckInRequest{StudentID: "stu-1", ScheduleID: "sch-1"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, rec.Status)
}

func TestAttendanceServiceCheckInCreatesWalkInRecord(t *testing.T) {
	store := newMemoryAttendanceStore()
	leave := "12:15"

	rec, err := newAttendanceServiceForTest(store, nil, kstAt(10, 2)).
		CheckIn(context.Background(), dto.CheckInRequest{StudentID: "stu-9", ScheduleID: "sch-1", ExpectedLeaveTime: &leave})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusPresent, rec.Status)
	assert.Equal(t, "12:15", rec.ExpectedLeaveTime.String())
	assert.Len(t, store.records, 1)
}

func TestAttendanceServiceCheckInTwiceFails(t *testing.T) {
	store := newMemoryAttendanceStore(bookedRecord("rec-1", "stu-1", "sch-1"))
	svc := newAttendanceServiceForTest(store, nil, kstAt(10, 2))

	_, err := svc.CheckIn(context.Background(), dto.CheckInRequest{StudentID: "stu-1", ScheduleID: "sch-1"})
	require.NoError(t, err)
	_, err = svc.CheckIn(context.Background(), dto.CheckInRequest{StudentID: "stu-1", ScheduleID: "sch-1"})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))
}

func TestAttendanceServiceCheckInUnknownSchedule(t *testing.T) {
	svc := newAttendanceServiceForTest(newMemoryAttendanceStore(), nil, kstAt(10, 2))
	_, err := svc.CheckIn(context.Background(), dto.CheckInRequest{StudentID: "stu-1", ScheduleID: "missing"})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAttendanceServiceCheckInRacesSweep(t *testing.T) {
	store := newMemoryAttendanceStore(bookedRecord("rec-1", "stu-1", "sch-1"))
	machine := NewAttendanceMachine(0, 0)
	store.beforeSave = func(id string) {
		store.commit(id, func(rec *models.AttendanceRecord) {
			next, _, outcome := machine.SweepEvaluate(*rec, kstAt(10, 0), kstAt(10, 21))
			require.Equal(t, SweepMarkedAbsent, outcome)
			*rec = next
		})
	}

	rec, err := newAttendanceServiceForTest(store, nil, kstAt(10, 21)).
		CheckIn(context.Background(), dto.CheckInRequest{StudentID: "stu-1", ScheduleID: "sch-1"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusLate, rec.Status)
	require.NotNil(t, rec.CheckInTime)
	assert.Equal(t, int64(3), rec.Version)
}

func TestAttendanceServiceSurfacesRepeatedConflict(t *testing.T) {
	store := newMemoryAttendanceStore(bookedRecord("rec-1", "stu-1", "sch-1"))
	store.saveErrs["rec-1"] = appErrors.Clone(appErrors.ErrConcurrentModification, "busy")

	_, err := newAttendanceServiceForTest(store, nil, kstAt(10, 5)).
		ManualSetStatus(context.Background(), "rec-1", dto.ManualStatusRequest{Status: "excused"})
	assert.True(t, errors.Is(err, appErrors.ErrConcurrentModification))
	assert.Equal(t, 2, store.saves)
}

func TestAttendanceServiceManualAbsentDeductsThenRestores(t *testing.T) {
	store := newMemoryAttendanceStore(bookedRecord("rec-1", "stu-1", "sch-1"))
	sink := &recordingSink{}
	svc := newAttendanceServiceForTest(store, sink, kstAt(10, 5))

	absent, err := svc.ManualSetStatus(context.Background(), "rec-1", dto.ManualStatusRequest{Status: "absent", Reason: "called in"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusAbsent, absent.Status)

	_, err = svc.ManualSetStatus(context.Background(), "rec-1", dto.ManualStatusRequest{Status: "PRESENT", Reason: "mistake"})
	require.NoError(t, err)

	require.Len(t, sink.effects, 2)
	assert.Equal(t, models.SideEffectDeductCredit, sink.effects[0].Kind)
	assert.Equal(t, models.SideEffectRestoreCredit, sink.effects[1].Kind)
	assert.Equal(t, []int64{2, 3}, sink.versions)
	assert.NotEqual(t, sink.effects[0].TransitionID(sink.versions[0]), sink.effects[1].TransitionID(sink.versions[1]))
}

func TestAttendanceServiceManualStatusValidation(t *testing.T) {
	store := newMemoryAttendanceStore(bookedRecord("rec-1", "stu-1", "sch-1"))
	_, err := newAttendanceServiceForTest(store, nil, kstAt(10, 5)).
		ManualSetStatus(context.Background(), "rec-1", dto.ManualStatusRequest{Status: "sleeping"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAttendanceServiceCheckOut(t *testing.T) {
	store := newMemoryAttendanceStore(bookedRecord("rec-1", "stu-1", "sch-1"))
	svc := newAttendanceServiceForTest(store, nil, kstAt(10, 5))

	_, err := svc.CheckOut(context.Background(), "rec-1", dto.CheckOutRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrInvalidTransition))

	_, err = svc.CheckIn(context.Background(), dto.CheckInRequest{StudentID: "stu-1", ScheduleID: "sch-1"})
	require.NoError(t, err)

	at := "2024-03-04T11:20:00+09:00"
	rec, err := svc.CheckOut(context.Background(), "rec-1", dto.CheckOutRequest{Time: &at})
	require.NoError(t, err)
	require.NotNil(t, rec.CheckOutTime)
	assert.True(t, rec.CheckOutTime.Equal(kstAt(11, 20)))

	_, err = svc.CheckOut(context.Background(), "missing", dto.CheckOutRequest{})
	assert.True(t, errors.Is(err, appErrors.ErrNotFound))
}

func TestAttendanceServiceBookSession(t *testing.T) {
	store := newMemoryAttendanceStore()
	svc := newAttendanceServiceForTest(store, nil, kstAt(9, 0))

	rec, err := svc.BookSession(context.Background(), dto.BookSessionRequest{StudentID: "stu-1", ScheduleID: "sch-1", SessionDate: "2024-03-04"})
	require.NoError(t, err)
	assert.Equal(t, models.AttendanceStatusUnset, rec.Status)
	assert.Equal(t, int64(1), rec.Version)

	_, err = svc.BookSession(context.Background(), dto.BookSessionRequest{StudentID: "stu-1", ScheduleID: "sch-1", SessionDate: "2024-03-04"})
	assert.True(t, errors.Is(err, appErrors.ErrConflict))

	_, err = svc.BookSession(context.Background(), dto.BookSessionRequest{StudentID: "stu-1", ScheduleID: "sch-1", SessionDate: "04/03/2024"})
	assert.True(t, errors.Is(err, appErrors.ErrValidation))
}

func TestAttendanceServiceSetClassCompleted(t *testing.T) {
	store := newMemoryAttendanceStore(bookedRecord("rec-1", "stu-1", "sch-1"))
	rec, err := newAttendanceServiceForTest(store, nil, kstAt(12, 0)).SetClassCompleted(context.Background(), "rec-1", true)
	require.NoError(t, err)
	assert.True(t, rec.ClassCompleted)
	assert.True(t, store.get("rec-1").ClassCompleted)
}
