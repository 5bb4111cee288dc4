package breach

import (
	"time"

	"gorm.io/gorm"
)

// Breach event types
const (
	TypeECRCaution      = "ECR_CAUTION"
	TypeECRBreach       = "ECR_BREACH"
	TypeHardstopCaution = "HARDSTOP_CAUTION"
	TypeHardstopBreach  = "HARDSTOP_BREACH"
	TypeBufferNegative  = "BUFFER_NEGATIVE"
)

// Event levels
const (
	LevelInfo     = "INFO"
	LevelWarn     = "WARN"
	LevelCritical = "CRITICAL"
)

// BreachEvent is an append-only record of a threshold condition firing. The
// event ID is content-addressed: identical conditions within the same minute
// collapse to the same ID, so a second append is a no-op.
type BreachEvent struct {
	gorm.Model `json:"-"`
	EventID    string    `gorm:"uniqueIndex" json:"event_id"`
	OccurredAt time.Time `json:"occurred_at"`
	Type       string    `json:"type"`
	Level      string    `json:"level"` // INFO, WARN, CRITICAL
	Message    string    `json:"message"`
	Snapshot   string    `json:"snapshot"` // JSON copy of the snapshot that triggered it
	CreatedAt  time.Time `json:"created_at"`
}
