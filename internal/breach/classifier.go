package breach

import (
	"encoding/json"
	"fmt"

	"github.com/bullionx/capital-api/internal/capital"
	"github.com/rs/zerolog/log"
)

// Recorder receives governance audit records for newly persisted events.
// Emission failures never roll back the event append.
type Recorder interface {
	RecordBreach(event *BreachEvent) error
}

// Classifier evaluates snapshots into deduplicated breach events and persists
// the new ones.
type Classifier struct {
	db       *Database
	recorder Recorder
}

func NewClassifier(db *Database, recorder Recorder) *Classifier {
	return &Classifier{db: db, recorder: recorder}
}

// Evaluate runs the five independent breach conditions against a snapshot and
// returns every candidate event, content-addressed. Pure; persistence happens
// in Sweep.
func Evaluate(snap capital.CapitalSnapshot, cfg capital.RiskConfig) []BreachEvent {
	var events []BreachEvent

	add := func(eventType, level, message string) {
		events = append(events, BreachEvent{
			EventID:    fingerprint(eventType, snap.AsOf, snap.BreachLevel, snap.HardstopUtilization, snap.ECR),
			OccurredAt: snap.AsOf,
			Type:       eventType,
			Level:      level,
			Message:    message,
			Snapshot:   marshalSnapshot(snap),
			CreatedAt:  snap.AsOf,
		})
	}

	if snap.ECR >= cfg.TargetECR*cfg.ECRCriticalMultiplier {
		add(TypeECRBreach, LevelCritical,
			fmt.Sprintf("ECR %.4f breached critical threshold %.4f", snap.ECR, cfg.TargetECR*cfg.ECRCriticalMultiplier))
	}
	if snap.ECR >= cfg.TargetECR {
		add(TypeECRCaution, LevelWarn,
			fmt.Sprintf("ECR %.4f at or above target %.4f", snap.ECR, cfg.TargetECR))
	}
	if snap.HardstopUtilization >= cfg.HardstopFail {
		add(TypeHardstopBreach, LevelCritical,
			fmt.Sprintf("hardstop utilization %.4f at or above %.2f", snap.HardstopUtilization, cfg.HardstopFail))
	}
	if snap.HardstopUtilization >= cfg.HardstopWarn && snap.HardstopUtilization < cfg.HardstopFail {
		add(TypeHardstopCaution, LevelWarn,
			fmt.Sprintf("hardstop utilization %.4f in caution band", snap.HardstopUtilization))
	}
	if snap.BufferVsTVaR99 < 0 {
		add(TypeBufferNegative, LevelWarn,
			fmt.Sprintf("capital buffer vs TVaR99 negative: %.2f", snap.BufferVsTVaR99))
	}

	return events
}

// Sweep evaluates the snapshot and appends any events not already in the
// store. Already-seen IDs are skipped silently: no error, no duplicate audit
// record. Returns the events that were newly persisted.
func (c *Classifier) Sweep(snap capital.CapitalSnapshot, cfg capital.RiskConfig) ([]BreachEvent, error) {
	logger := log.With().
		Str("service", "breach").
		Time("as_of", snap.AsOf).
		Logger()

	candidates := Evaluate(snap, cfg)
	if len(candidates) == 0 {
		return nil, nil
	}

	var appended []BreachEvent
	for _, event := range candidates {
		created, err := c.db.AppendEvent(&event)
		if err != nil {
			logger.Error().Err(err).
				Str("event_id", event.EventID).
				Str("type", event.Type).
				Msg("failed to append breach event")
			return appended, fmt.Errorf("failed to append breach event %s: %w", event.EventID, err)
		}
		if !created {
			continue
		}

		logger.Info().
			Str("event_id", event.EventID).
			Str("type", event.Type).
			Str("level", event.Level).
			Msg("recorded breach event")

		if c.recorder != nil {
			if err := c.recorder.RecordBreach(&event); err != nil {
				logger.Error().Err(err).
					Str("event_id", event.EventID).
					Msg("audit emission failed for breach event")
			}
		}
		appended = append(appended, event)
	}

	return appended, nil
}

func marshalSnapshot(snap capital.CapitalSnapshot) string {
	data, err := json.Marshal(snap)
	if err != nil {
		return "{}"
	}
	return string(data)
}
