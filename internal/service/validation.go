package service

import (
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/noah-isme/academy-attendance/internal/models"
)

// NewValidator returns a validator with the attendance-specific tags registered.
func NewValidator() *validator.Validate {
	v := validator.New()
	registerValidations(v)
	return v
}

func registerValidations(v *validator.Validate) {
	_ = v.RegisterValidation("attendance_status", func(fl validator.FieldLevel) bool {
		status, ok := models.ParseAttendanceStatus(fl.Field().String())
		return ok && status != models.AttendanceStatusUnset
	})
	_ = v.RegisterValidation("clock_time", func(fl validator.FieldLevel) bool {
		_, err := models.ParseTimeOfDay(fl.Field().String())
		return err == nil
	})
	_ = v.RegisterValidation("calendar_date", func(fl validator.FieldLevel) bool {
		_, err := time.Parse(models.DateLayout, fl.Field().String())
		return err == nil
	})
}

func ensureValidator(v *validator.Validate) *validator.Validate {
	if v == nil {
		return NewValidator()
	}
	registerValidations(v)
	return v
}

func parseDate(raw string) (time.Time, error) {
	return time.Parse(models.DateLayout, raw)
}
