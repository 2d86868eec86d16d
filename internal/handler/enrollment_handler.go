package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/academy-attendance/internal/models"
	"github.com/noah-isme/academy-attendance/pkg/response"
)

type adjustmentLedger interface {
	ListByStudent(ctx context.Context, studentID string) ([]models.EnrollmentAdjustment, error)
}

// EnrollmentHandler exposes the enrollment credit ledger.
type EnrollmentHandler struct {
	ledger adjustmentLedger
}

// NewEnrollmentHandler builds an enrollment handler.
func NewEnrollmentHandler(ledger adjustmentLedger) *EnrollmentHandler {
	return &EnrollmentHandler{ledger: ledger}
}

// Adjustments godoc
// @Summary List a student's enrollment adjustments
// @Tags Enrollments
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /students/{id}/adjustments [get]
func (h *EnrollmentHandler) Adjustments(c *gin.Context) {
	entries, err := h.ledger.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	balance := 0
	for _, adj := range entries {
		balance += adj.CountChange
	}
	response.OK(c, entries, map[string]interface{}{"count": len(entries), "net_change": balance})
}
