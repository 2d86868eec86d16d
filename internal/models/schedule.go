package models

import "time"

// ScheduledSession is the read-only view of a recurring weekly course slot.
type ScheduledSession struct {
	ID        string       `db:"id" json:"id"`
	CourseID  string       `db:"course_id" json:"course_id"`
	Weekday   time.Weekday `db:"day_of_week" json:"weekday"`
	StartTime TimeOfDay    `db:"start_time" json:"start_time"`
	EndTime   TimeOfDay    `db:"end_time" json:"end_time"`
}

// StartOn returns the instant the session starts on the given date.
func (s ScheduledSession) StartOn(date time.Time, loc *time.Location) time.Time {
	return s.StartTime.On(date, loc)
}

// EndOn returns the instant the session ends on the given date.
func (s ScheduledSession) EndOn(date time.Time, loc *time.Location) time.Time {
	return s.EndTime.On(date, loc)
}
