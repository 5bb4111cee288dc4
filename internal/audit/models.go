package audit

import (
	"time"

	"gorm.io/gorm"
)

// Event kinds
const (
	KindBreachRecorded   = "BREACH_RECORDED"
	KindOverrideCreated  = "OVERRIDE_CREATED"
	KindOverrideRevoked  = "OVERRIDE_REVOKED"
	KindDecisionComputed = "DECISION_COMPUTED"
)

// Event is one structured governance record. The event ID is caller-supplied
// where the source is itself content-addressed (breach events) so re-emission
// is a no-op; elsewhere a fresh uuid is used.
type Event struct {
	gorm.Model `json:"-"`
	EventID    string    `gorm:"uniqueIndex" json:"event_id"`
	Kind       string    `json:"kind"`
	Actor      string    `json:"actor,omitempty"`
	SubjectID  string    `json:"subject_id"`
	Payload    string    `json:"payload"` // JSON
	OccurredAt time.Time `json:"occurred_at"`
	CreatedAt  time.Time `json:"created_at"`
}
