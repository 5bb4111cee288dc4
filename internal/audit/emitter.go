package audit

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/bullionx/capital-api/internal/breach"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// Emitter writes governance events. Emission is idempotent on event ID and a
// failure is logged but never propagated: the underlying state change stands
// whether or not the audit write lands.
type Emitter struct {
	db *gorm.DB
}

func NewEmitter(db *gorm.DB) *Emitter {
	return &Emitter{db: db}
}

// Emit persists the event; a duplicate event ID is a silent no-op.
func (e *Emitter) Emit(event *Event) error {
	if event.EventID == "" {
		event.EventID = uuid.New().String()
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	event.CreatedAt = time.Now()

	var existing Event
	err := e.db.Where("event_id = ?", event.EventID).First(&existing).Error
	if err == nil {
		return nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("failed to check for existing audit event: %w", err)
	}

	if err := e.db.Create(event).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil
		}
		return fmt.Errorf("failed to write audit event: %w", err)
	}
	return nil
}

// RecordBreach emits the governance record for a newly persisted breach
// event, keyed by the breach event's own content-addressed ID.
func (e *Emitter) RecordBreach(event *breach.BreachEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		payload = []byte("{}")
	}
	return e.Emit(&Event{
		EventID:    "AUD_" + event.EventID,
		Kind:       KindBreachRecorded,
		SubjectID:  event.EventID,
		Payload:    string(payload),
		OccurredAt: event.OccurredAt,
	})
}

// RecordOverride emits a creation or revocation record for an override.
// Failures are logged here so callers never branch on audit outcomes.
func (e *Emitter) RecordOverride(kind, overrideID, actor string, payload interface{}) {
	data, err := json.Marshal(payload)
	if err != nil {
		data = []byte("{}")
	}
	if err := e.Emit(&Event{
		Kind:      kind,
		Actor:     actor,
		SubjectID: overrideID,
		Payload:   string(data),
	}); err != nil {
		log.Error().Err(err).
			Str("service", "audit").
			Str("kind", kind).
			Str("subject_id", overrideID).
			Msg("audit emission failed")
	}
}

// GetEventsSince returns governance events at or after the cutoff, newest
// first.
func (e *Emitter) GetEventsSince(cutoff time.Time) ([]Event, error) {
	var events []Event
	if err := e.db.Where("occurred_at >= ?", cutoff).
		Order("occurred_at DESC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch audit events: %w", err)
	}
	return events, nil
}
