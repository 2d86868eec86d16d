package models

import "time"

// AdjustmentType classifies a change to an enrollment's remaining credits.
type AdjustmentType string

const (
	AdjustmentDeduct  AdjustmentType = "DEDUCT"
	AdjustmentAdd     AdjustmentType = "ADD"
	AdjustmentRestore AdjustmentType = "RESTORE"
)

// EnrollmentAdjustment is a ledger entry keyed by the transition that caused it.
type EnrollmentAdjustment struct {
	ID           string         `db:"id" json:"id"`
	TransitionID string         `db:"transition_id" json:"transition_id"`
	RecordID     string         `db:"record_id" json:"record_id"`
	StudentID    string         `db:"student_id" json:"student_id"`
	ScheduleID   string         `db:"schedule_id" json:"schedule_id"`
	Type         AdjustmentType `db:"adjustment_type" json:"type"`
	CountChange  int            `db:"count_change" json:"count_change"`
	Reason       *string        `db:"reason" json:"reason,omitempty"`
	CreatedAt    time.Time      `db:"created_at" json:"created_at"`
}

// CountChangeFor returns the signed credit delta of an adjustment type.
func CountChangeFor(t AdjustmentType) int {
	if t == AdjustmentDeduct {
		return -1
	}
	return 1
}
