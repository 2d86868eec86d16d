package models

import "fmt"

// SideEffectKind names what a committed transition asks of collaborators.
type SideEffectKind string

const (
	SideEffectAutoAbsent    SideEffectKind = "AUTO_ABSENT"
	SideEffectDeductCredit  SideEffectKind = "DEDUCT_CREDIT"
	SideEffectRestoreCredit SideEffectKind = "RESTORE_CREDIT"
)

// SideEffect is emitted by a transition and delivered only after the record is saved.
type SideEffect struct {
	Kind       SideEffectKind
	RecordID   string
	StudentID  string
	ScheduleID string
	Reason     string
}

// TransitionID derives the idempotency key of the effect once the record
// has been committed at version.
func (e SideEffect) TransitionID(version int64) string {
	return fmt.Sprintf("%s:v%d:%s", e.RecordID, version, e.Kind)
}

// AutoAbsentTransitionID is the idempotency key for the sweep's absence
// deduction. A session is auto-absented at most once.
func AutoAbsentTransitionID(recordID string) string {
	return fmt.Sprintf("%s:%s", recordID, SideEffectAutoAbsent)
}

// SweepFailure describes one record the sweep could not settle.
type SweepFailure struct {
	RecordID string `json:"record_id"`
	Error    string `json:"error"`
}

// SweepReport summarises one absence sweep run.
type SweepReport struct {
	Date         string         `json:"date"`
	Evaluated    int            `json:"evaluated"`
	Transitioned int            `json:"transitioned"`
	Failed       int            `json:"failed"`
	Failures     []SweepFailure `json:"failures,omitempty"`
}
