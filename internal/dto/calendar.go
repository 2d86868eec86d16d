package dto

// CreateHolidayRequest registers a holiday.
type CreateHolidayRequest struct {
	Date        string  `json:"date" validate:"required,calendar_date"`
	Name        string  `json:"name" validate:"required,max=100"`
	IsRecurring bool    `json:"is_recurring"`
	Description *string `json:"description" validate:"omitempty,max=500"`
}

// HolidayImportResult summarises an ICS import.
type HolidayImportResult struct {
	Created int      `json:"created"`
	Skipped int      `json:"skipped"`
	Errors  []string `json:"errors,omitempty"`
}

// IsHolidayResponse answers a holiday lookup.
type IsHolidayResponse struct {
	Date      string `json:"date"`
	IsHoliday bool   `json:"is_holiday"`
	Name      string `json:"name,omitempty"`
}

// BusinessDaysResponse answers a business-day count.
type BusinessDaysResponse struct {
	Start        string `json:"start"`
	End          string `json:"end"`
	BusinessDays int    `json:"business_days"`
}

// DateResponse carries a computed date.
type DateResponse struct {
	Start string `json:"start"`
	Days  int    `json:"days"`
	Date  string `json:"date"`
}
