package dto

// BookSessionRequest reserves a student's seat in one session.
type BookSessionRequest struct {
	StudentID   string  `json:"student_id" validate:"required"`
	ScheduleID  string  `json:"schedule_id" validate:"required"`
	SessionDate string  `json:"session_date" validate:"required,calendar_date"`
	Memo        *string `json:"memo" validate:"omitempty,max=500"`
}

// CheckInRequest records a student's arrival at today's session.
type CheckInRequest struct {
	StudentID         string  `json:"student_id" validate:"required"`
	ScheduleID        string  `json:"schedule_id" validate:"required"`
	ExpectedLeaveTime *string `json:"expected_leave_time" validate:"omitempty,clock_time"`
}

// CheckOutRequest records departure. Time defaults to now.
type CheckOutRequest struct {
	Time *string `json:"time" validate:"omitempty,datetime=2006-01-02T15:04:05Z07:00"`
}

// ManualStatusRequest is an administrative status override.
type ManualStatusRequest struct {
	Status string `json:"status" validate:"required,attendance_status"`
	Reason string `json:"reason" validate:"max=500"`
}

// ClassCompletedRequest toggles the instructor's completion flag.
type ClassCompletedRequest struct {
	Completed bool `json:"completed"`
}

// SweepRequest triggers an absence sweep for a date, today by default.
type SweepRequest struct {
	Date string `json:"date" validate:"omitempty,calendar_date"`
}
