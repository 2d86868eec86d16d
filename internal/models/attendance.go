package models

import (
	"strings"
	"time"
)

// AttendanceStatus enumerates the attendance outcomes of a session.
type AttendanceStatus string

const (
	// AttendanceStatusUnset marks a booked session with no decision yet.
	AttendanceStatusUnset      AttendanceStatus = "UNSET"
	AttendanceStatusPresent    AttendanceStatus = "PRESENT"
	AttendanceStatusLate       AttendanceStatus = "LATE"
	AttendanceStatusAbsent     AttendanceStatus = "ABSENT"
	AttendanceStatusExcused    AttendanceStatus = "EXCUSED"
	AttendanceStatusEarlyLeave AttendanceStatus = "EARLY_LEAVE"
)

// AttendanceStatuses lists every status in display order.
var AttendanceStatuses = []AttendanceStatus{
	AttendanceStatusUnset,
	AttendanceStatusPresent,
	AttendanceStatusLate,
	AttendanceStatusAbsent,
	AttendanceStatusExcused,
	AttendanceStatusEarlyLeave,
}

// Valid reports whether the status is one of the known values.
func (s AttendanceStatus) Valid() bool {
	for _, known := range AttendanceStatuses {
		if s == known {
			return true
		}
	}
	return false
}

// Closed reports whether the sweep must leave a record in this status alone.
func (s AttendanceStatus) Closed() bool {
	return s == AttendanceStatusAbsent || s == AttendanceStatusExcused
}

// ParseAttendanceStatus normalises user input into a known status.
func ParseAttendanceStatus(raw string) (AttendanceStatus, bool) {
	status := AttendanceStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return status, status.Valid()
}

// AttendanceRecord is the outcome of one student's attendance at one session.
type AttendanceRecord struct {
	ID                string           `db:"id" json:"id"`
	StudentID         string           `db:"student_id" json:"student_id"`
	ScheduleID        string           `db:"schedule_id" json:"schedule_id"`
	SessionDate       time.Time        `db:"session_date" json:"session_date"`
	Status            AttendanceStatus `db:"status" json:"status"`
	CheckInTime       *time.Time       `db:"check_in_time" json:"check_in_time,omitempty"`
	CheckOutTime      *time.Time       `db:"check_out_time" json:"check_out_time,omitempty"`
	ExpectedLeaveTime *TimeOfDay       `db:"expected_leave_time" json:"expected_leave_time,omitempty"`
	Reason            *string          `db:"reason" json:"reason,omitempty"`
	Memo              *string          `db:"memo" json:"memo,omitempty"`
	ClassCompleted    bool             `db:"class_completed" json:"class_completed"`
	Version           int64            `db:"version" json:"version"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
	UpdatedAt         time.Time        `db:"updated_at" json:"updated_at"`
}

// Clone returns a deep copy so pointer fields are never shared.
func (r AttendanceRecord) Clone() AttendanceRecord {
	out := r
	if r.CheckInTime != nil {
		t := *r.CheckInTime
		out.CheckInTime = &t
	}
	if r.CheckOutTime != nil {
		t := *r.CheckOutTime
		out.CheckOutTime = &t
	}
	if r.ExpectedLeaveTime != nil {
		t := *r.ExpectedLeaveTime
		out.ExpectedLeaveTime = &t
	}
	if r.Reason != nil {
		s := *r.Reason
		out.Reason = &s
	}
	if r.Memo != nil {
		s := *r.Memo
		out.Memo = &s
	}
	return out
}

// OpenForSweep reports whether the absence sweep may still act on the record.
func (r AttendanceRecord) OpenForSweep() bool {
	return r.CheckInTime == nil && !r.Status.Closed()
}

// SessionDateString renders the session date as YYYY-MM-DD.
func (r AttendanceRecord) SessionDateString() string {
	return r.SessionDate.Format(DateLayout)
}

// DateLayout is the wire format used for calendar dates.
const DateLayout = "2006-01-02"

// SessionKey identifies the single record allowed per student, schedule and date.
type SessionKey struct {
	StudentID   string
	ScheduleID  string
	SessionDate time.Time
}
