package models

import "time"

// HolidayEntry is a non-business day. Recurring entries repeat on the same
// month and day every year.
type HolidayEntry struct {
	ID          string    `db:"id" json:"id"`
	Date        time.Time `db:"holiday_date" json:"date"`
	Name        string    `db:"name" json:"name"`
	IsRecurring bool      `db:"is_recurring" json:"is_recurring"`
	Description *string   `db:"description" json:"description,omitempty"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// DefaultFixedHolidays lists the recurring public holidays seeded on first start.
var DefaultFixedHolidays = []struct {
	Month time.Month
	Day   int
	Name  string
}{
	{time.January, 1, "New Year's Day"},
	{time.March, 1, "Independence Movement Day"},
	{time.May, 5, "Children's Day"},
	{time.June, 6, "Memorial Day"},
	{time.August, 15, "Liberation Day"},
	{time.October, 3, "National Foundation Day"},
	{time.October, 9, "Hangul Day"},
	{time.December, 25, "Christmas Day"},
}
