package engine

import (
	"fmt"
	"time"

	"github.com/bullionx/capital-api/internal/audit"
	"github.com/bullionx/capital-api/internal/breach"
	"github.com/bullionx/capital-api/internal/capital"
	"github.com/bullionx/capital-api/internal/control"
	"github.com/bullionx/capital-api/internal/override"
	"github.com/bullionx/capital-api/internal/tri"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// EffectiveDecision is the merged output the action gates consult: the raw
// control decision plus the overrides in force and the block matrix after
// applying them.
type EffectiveDecision struct {
	Snapshot  capital.CapitalSnapshot    `json:"snapshot"`
	Decision  control.ControlDecision    `json:"decision"`
	Overrides []override.CapitalOverride `json:"overrides"`
	Blocks    map[control.ActionKey]bool `json:"blocks"`
}

// Service runs the capital-adequacy pipeline: aggregate state in, effective
// decision out.
type Service struct {
	db         *Database
	capitalDB  *capital.Database
	breachDB   *breach.Database
	classifier *breach.Classifier
	governor   *override.Governor
	emitter    *audit.Emitter
}

func NewService(gormDB *gorm.DB) *Service {
	emitter := audit.NewEmitter(gormDB)
	breachDB := breach.NewDatabase(gormDB)
	return &Service{
		db:         NewDatabase(gormDB),
		capitalDB:  capital.NewDatabase(gormDB),
		breachDB:   breachDB,
		classifier: breach.NewClassifier(breachDB, emitter),
		governor:   override.NewGovernor(override.NewDatabase(gormDB)),
		emitter:    emitter,
	}
}

// Snapshot computes the current capital snapshot without touching the breach
// or override stores.
func (s *Service) Snapshot(now time.Time) (capital.CapitalSnapshot, error) {
	cfg := s.capitalDB.LoadActiveConfig()
	inputs, err := s.db.LoadExposureInputs()
	if err != nil {
		return capital.CapitalSnapshot{}, fmt.Errorf("failed to load exposure inputs: %w", err)
	}
	return capital.ComputeSnapshot(inputs, cfg, now), nil
}

// Evaluate runs the full pipeline: snapshot, breach sweep, control decision,
// override merge. The breach and override stores are allowed to fail without
// failing the evaluation; only the exposure inputs are load-bearing.
func (s *Service) Evaluate(now time.Time) (*EffectiveDecision, error) {
	logger := log.With().
		Str("service", "engine").
		Time("as_of", now).
		Logger()

	cfg := s.capitalDB.LoadActiveConfig()

	inputs, err := s.db.LoadExposureInputs()
	if err != nil {
		logger.Error().Err(err).Msg("failed to load exposure inputs")
		return nil, fmt.Errorf("failed to load exposure inputs: %w", err)
	}

	snap := capital.ComputeSnapshot(inputs, cfg, now)

	logger.Debug().
		Float64("gross_exposure", snap.GrossExposureNotional).
		Float64("ecr", snap.ECR).
		Float64("hardstop_utilization", snap.HardstopUtilization).
		Str("breach_level", snap.BreachLevel).
		Msg("computed capital snapshot")

	if _, err := s.classifier.Sweep(snap, cfg); err != nil {
		// Breach persistence failing must not take down the decision.
		logger.Error().Err(err).Msg("breach sweep failed, continuing evaluation")
	}

	recent, err := s.breachDB.GetEventsSince(now.Add(-60 * time.Minute))
	if err != nil {
		// Degraded lookback: no recent breach known.
		logger.Warn().Err(err).Msg("breach history unavailable, evaluating without lookback")
		recent = nil
	}

	decision := control.Evaluate(snap, recent, cfg)

	overrides, err := s.governor.ActiveOverrides(now)
	if err != nil {
		logger.Warn().Err(err).Msg("override store unavailable, applying no overrides")
		overrides = nil
	}

	logger.Info().
		Str("mode", string(decision.Mode)).
		Int("active_overrides", len(overrides)).
		Str("snapshot_hash", decision.SnapshotHash).
		Msg("control decision computed")

	return &EffectiveDecision{
		Snapshot:  snap,
		Decision:  decision,
		Overrides: overrides,
		Blocks:    override.ApplyOverrides(decision, overrides, now),
	}, nil
}

// Authorize reports whether an action is currently permitted. Any evaluation
// failure is treated as the most restrictive state: the action is blocked and
// the error is surfaced so the gate can report "decision unavailable".
func (s *Service) Authorize(action control.ActionKey, now time.Time) (bool, string, error) {
	if !control.ValidAction(action) {
		return false, "unknown action key", nil
	}

	effective, err := s.Evaluate(now)
	if err != nil {
		return false, "decision unavailable, treating as EMERGENCY_HALT", err
	}

	if effective.Blocks[action] {
		return false, fmt.Sprintf("blocked by control mode %s", effective.Decision.Mode), nil
	}
	return true, string(effective.Decision.Mode), nil
}

// CreateOverride runs the governor against the current control mode and emits
// the governance record.
func (s *Service) CreateOverride(req override.CreateRequest, actor override.Actor, now time.Time) (*override.CapitalOverride, error) {
	effective, err := s.Evaluate(now)
	if err != nil {
		return nil, fmt.Errorf("cannot create override while decision is unavailable: %w", err)
	}

	created, err := s.governor.Create(req, actor, effective.Decision.Mode, now)
	if err != nil {
		return nil, err
	}

	s.emitter.RecordOverride(audit.KindOverrideCreated, created.OverrideID, actor.UserID, created)
	return created, nil
}

// RevokeOverride revokes via the governor and emits the governance record.
func (s *Service) RevokeOverride(overrideID string, actor override.Actor, now time.Time) (*override.CapitalOverride, error) {
	revoked, err := s.governor.Revoke(overrideID, actor, now)
	if err != nil {
		return nil, err
	}

	s.emitter.RecordOverride(audit.KindOverrideRevoked, revoked.OverrideID, actor.UserID, revoked)
	return revoked, nil
}

// ListOverrides returns recent overrides with lazily resolved statuses.
func (s *Service) ListOverrides(limit int, now time.Time) ([]override.CapitalOverride, error) {
	return s.governor.ListOverrides(limit, now)
}

// BreachEvents returns the breach history since the cutoff.
func (s *Service) BreachEvents(since time.Time) ([]breach.BreachEvent, error) {
	return s.breachDB.GetEventsSince(since)
}

// AssessTransaction scores a prospective transaction against the current
// capital state: TRI, blockers and approval tier.
func (s *Service) AssessTransaction(counterpartyID, corridorID, hubID string, amount float64, now time.Time) (*tri.Assessment, error) {
	cfg := s.capitalDB.LoadActiveConfig()

	counterparty, err := s.db.GetCounterparty(counterpartyID)
	if err != nil {
		return nil, err
	}
	corridor, err := s.db.GetCorridor(corridorID)
	if err != nil {
		return nil, err
	}
	hub, err := s.db.GetHub(hubID)
	if err != nil {
		return nil, err
	}

	inputs, err := s.db.LoadExposureInputs()
	if err != nil {
		return nil, fmt.Errorf("failed to load exposure inputs: %w", err)
	}
	snap := capital.ComputeSnapshot(inputs, cfg, now)

	assessment := tri.Assess(tri.Input{
		AmountNotional:        amount,
		CounterpartyRiskLevel: counterparty.RiskLevel,
		CounterpartyStatus:    counterparty.Status,
		CorridorRiskLevel:     corridor.RiskLevel,
		CorridorStatus:        corridor.Status,
		HubStatus:             hub.Status,
		CapitalBase:           snap.CapitalBase,
		HardstopLimit:         snap.HardstopLimit,
		GrossExposure:         snap.GrossExposureNotional,
	}, cfg)

	log.Info().
		Str("service", "engine").
		Str("counterparty_id", counterpartyID).
		Int("tri_score", assessment.Result.Score).
		Str("band", assessment.Result.Band).
		Str("approval_tier", assessment.ApprovalTier).
		Bool("blocked", assessment.Blocked).
		Msg("transaction risk assessed")

	return &assessment, nil
}
