package service

import (
	"fmt"
	"time"

	"github.com/noah-isme/academy-attendance/internal/models"
	appErrors "github.com/noah-isme/academy-attendance/pkg/errors"
)

// Default grace windows measured from the scheduled start.
const (
	DefaultLateGrace   = 10 * time.Minute
	DefaultAbsentGrace = 20 * time.Minute
)

// SweepOutcome reports what SweepEvaluate decided for a record.
type SweepOutcome int

const (
	// SweepNotApplicable means the record is checked in or already closed.
	SweepNotApplicable SweepOutcome = iota
	// SweepNotDue means the absence cutoff has not passed yet.
	SweepNotDue
	// SweepMarkedAbsent means the record transitioned to ABSENT.
	SweepMarkedAbsent
)

func (o SweepOutcome) String() string {
	switch o {
	case SweepNotDue:
		return "not_due"
	case SweepMarkedAbsent:
		return "marked_absent"
	default:
		return "not_applicable"
	}
}

// AttendanceMachine holds the attendance transition rules. Every transition
// takes a record by value and returns the next record; the input is never
// modified.
type AttendanceMachine struct {
	LateGrace   time.Duration
	AbsentGrace time.Duration
}

// NewAttendanceMachine builds a machine, substituting defaults for non-positive windows.
func NewAttendanceMachine(lateGrace, absentGrace time.Duration) AttendanceMachine {
	if lateGrace <= 0 {
		lateGrace = DefaultLateGrace
	}
	if absentGrace <= 0 {
		absentGrace = DefaultAbsentGrace
	}
	return AttendanceMachine{LateGrace: lateGrace, AbsentGrace: absentGrace}
}

// AutoAbsentReason is the reason stamped on records closed by the sweep.
func (m AttendanceMachine) AutoAbsentReason() string {
	return fmt.Sprintf("auto-absent: no check-in within %d minutes", int(m.AbsentGrace/time.Minute))
}

// CheckIn records arrival. Arrivals after start+LateGrace are LATE, the rest PRESENT.
// The expected leave time defaults to the session end.
func (m AttendanceMachine) CheckIn(record models.AttendanceRecord, scheduleStart, scheduleEnd, at time.Time, expectedLeave *models.TimeOfDay) (models.AttendanceRecord, []models.SideEffect, error) {
	if record.CheckInTime != nil {
		return record, nil, appErrors.Clone(appErrors.ErrInvalidTransition, "student already checked in")
	}

	next := record.Clone()
	checkIn := at
	next.CheckInTime = &checkIn
	if at.After(scheduleStart.Add(m.LateGrace)) {
		next.Status = models.AttendanceStatusLate
	} else {
		next.Status = models.AttendanceStatusPresent
	}

	leave := models.TimeOfDayFrom(scheduleEnd)
	if expectedLeave != nil {
		leave = *expectedLeave
	}
	next.ExpectedLeaveTime = &leave
	return next, nil, nil
}

// CheckOut records departure. It requires a prior check-in and no earlier check-out.
func (m AttendanceMachine) CheckOut(record models.AttendanceRecord, at time.Time) (models.AttendanceRecord, []models.SideEffect, error) {
	if record.CheckInTime == nil {
		return record, nil, appErrors.Clone(appErrors.ErrInvalidTransition, "cannot check out before checking in")
	}
	if record.CheckOutTime != nil {
		return record, nil, appErrors.Clone(appErrors.ErrInvalidTransition, "student already checked out")
	}
	if at.Before(*record.CheckInTime) {
		return record, nil, appErrors.Clone(appErrors.ErrInvalidTransition, "check-out time precedes check-in time")
	}

	next := record.Clone()
	checkOut := at
	next.CheckOutTime = &checkOut
	return next, nil, nil
}

// ManualStatusChange is an administrative override and is always permitted for
// a known status. Check-in and check-out history is kept. Entering ABSENT
// deducts a credit and leaving it restores one.
func (m AttendanceMachine) ManualStatusChange(record models.AttendanceRecord, status models.AttendanceStatus, reason string) (models.AttendanceRecord, []models.SideEffect, error) {
	if !status.Valid() || status == models.AttendanceStatusUnset {
		return record, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unsupported attendance status %q", status))
	}

	next := record.Clone()
	next.Status = status
	if reason != "" {
		r := reason
		next.Reason = &r
	} else {
		next.Reason = nil
	}

	var effects []models.SideEffect
	wasAbsent := record.Status == models.AttendanceStatusAbsent
	isAbsent := status == models.AttendanceStatusAbsent
	switch {
	case isAbsent && !wasAbsent:
		effects = append(effects, m.effect(record, models.SideEffectDeductCredit, reason))
	case wasAbsent && !isAbsent:
		effects = append(effects, m.effect(record, models.SideEffectRestoreCredit, reason))
	}
	return next, effects, nil
}

// SweepEvaluate closes a record as ABSENT once now is past start+AbsentGrace.
// Re-evaluating a record the sweep already closed is a no-op.
func (m AttendanceMachine) SweepEvaluate(record models.AttendanceRecord, scheduleStart, now time.Time) (models.AttendanceRecord, []models.SideEffect, SweepOutcome) {
	if !record.OpenForSweep() {
		return record, nil, SweepNotApplicable
	}
	if !now.After(scheduleStart.Add(m.AbsentGrace)) {
		return record, nil, SweepNotDue
	}

	reason := m.AutoAbsentReason()
	next := record.Clone()
	next.Status = models.AttendanceStatusAbsent
	next.Reason = &reason
	return next, []models.SideEffect{m.effect(record, models.SideEffectAutoAbsent, reason)}, SweepMarkedAbsent
}

func (m AttendanceMachine) effect(record models.AttendanceRecord, kind models.SideEffectKind, reason string) models.SideEffect {
	return models.SideEffect{
		Kind:       kind,
		RecordID:   record.ID,
		StudentID:  record.StudentID,
		ScheduleID: record.ScheduleID,
		Reason:     reason,
	}
}
