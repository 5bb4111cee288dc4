package control

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/bullionx/capital-api/internal/breach"
	"github.com/bullionx/capital-api/internal/capital"
)

// bufferLookback is the window in which a BUFFER_NEGATIVE breach event forces
// an emergency halt.
const bufferLookback = 60 * time.Minute

// Evaluate derives the control decision from the snapshot and recent breach
// history. The transition logic is computed fresh on every call; nothing is
// carried over from prior evaluations.
func Evaluate(snap capital.CapitalSnapshot, recent []breach.BreachEvent, cfg capital.RiskConfig) ControlDecision {
	decision := ControlDecision{
		AsOf:         snap.AsOf,
		Mode:         ModeNormal,
		Reasons:      []string{},
		SnapshotHash: snapshotHash(snap),
	}

	switch {
	case snap.HardstopUtilization >= 1.0:
		decision.Mode = ModeEmergencyHalt
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("hardstop limit exceeded: utilization %.4f", snap.HardstopUtilization))

	case hasRecentBufferNegative(recent, snap.AsOf):
		decision.Mode = ModeEmergencyHalt
		decision.Reasons = append(decision.Reasons,
			"negative TVaR99 buffer recorded within the last 60 minutes")

	case snap.BreachLevel == capital.LevelBreach:
		decision.Mode = ModeFreezeMarketplace
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("capital breach: hardstop utilization %.4f", snap.HardstopUtilization))

	case snap.BreachLevel == capital.LevelCaution:
		evaluateCaution(snap, cfg, &decision)

	default:
		decision.Reasons = append(decision.Reasons, "capital position clear")
	}

	decision.Blocks = blockMatrix(decision.Mode)

	if decision.Mode == ModeThrottleReservations {
		remaining := snap.HardstopLimit - snap.GrossExposureNotional
		if remaining < 0 {
			remaining = 0
		}
		decision.Limits = &AdvisoryLimits{
			ReservationNotionalCap: remaining * cfg.ThrottleCapFraction,
		}
	}

	return decision
}

// evaluateCaution resolves the CAUTION band: conversion-freeze triggers are
// checked first, then reservation throttling; if neither fires the mode stays
// NORMAL with informational reasons only.
func evaluateCaution(snap capital.CapitalSnapshot, cfg capital.RiskConfig, decision *ControlDecision) {
	freezeECR := cfg.TargetECR * cfg.ECRFreezeMultiplier

	switch {
	case snap.ECR >= freezeECR:
		decision.Mode = ModeFreezeConversions
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("ECR %.4f at or above freeze threshold %.4f", snap.ECR, freezeECR))

	case snap.HardstopUtilization >= cfg.HardstopFreeze:
		decision.Mode = ModeFreezeConversions
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("hardstop utilization %.4f at or above freeze threshold %.2f", snap.HardstopUtilization, cfg.HardstopFreeze))

	case reservationsAreTopDriver(snap):
		decision.Mode = ModeThrottleReservations
		decision.Reasons = append(decision.Reasons,
			"reserved notional is the leading exposure driver")

	case snap.HardstopUtilization >= cfg.HardstopThrottle:
		decision.Mode = ModeThrottleReservations
		decision.Reasons = append(decision.Reasons,
			fmt.Sprintf("hardstop utilization %.4f at or above throttle threshold %.2f", snap.HardstopUtilization, cfg.HardstopThrottle))

	default:
		decision.Reasons = append(decision.Reasons, decisionCautionReasons(snap)...)
	}
}

func decisionCautionReasons(snap capital.CapitalSnapshot) []string {
	if len(snap.BreachReasons) > 0 {
		return snap.BreachReasons
	}
	return []string{"capital caution, no control triggers met"}
}

func reservationsAreTopDriver(snap capital.CapitalSnapshot) bool {
	return len(snap.TopDrivers) > 0 && snap.TopDrivers[0].Source == capital.DriverReservation
}

func hasRecentBufferNegative(recent []breach.BreachEvent, asOf time.Time) bool {
	cutoff := asOf.Add(-bufferLookback)
	for _, event := range recent {
		if event.Type == breach.TypeBufferNegative && !event.OccurredAt.Before(cutoff) {
			return true
		}
	}
	return false
}

// blockMatrix maps each mode to its fixed block set. The matrices expand
// monotonically with severity.
func blockMatrix(mode ControlMode) map[ActionKey]bool {
	blocks := make(map[ActionKey]bool, len(ActionKeys))
	for _, key := range ActionKeys {
		blocks[key] = false
	}

	severity := mode.Severity()
	if severity >= ModeThrottleReservations.Severity() {
		blocks[ActionCreateReservation] = true
	}
	if severity >= ModeFreezeConversions.Severity() {
		blocks[ActionConvertReservation] = true
	}
	if severity >= ModeFreezeMarketplace.Severity() {
		blocks[ActionPublishListing] = true
	}
	if severity >= ModeEmergencyHalt.Severity() {
		blocks[ActionOpenSettlement] = true
		blocks[ActionExecuteDvP] = true
	}
	return blocks
}

// snapshotHash binds a decision to the snapshot minute and key ratios so an
// override cannot be replayed against a stale risk state.
func snapshotHash(snap capital.CapitalSnapshot) string {
	input := fmt.Sprintf("%s|%.4f|%.4f|%.4f",
		snap.AsOf.UTC().Truncate(time.Minute).Format(time.RFC3339),
		snap.HardstopUtilization,
		snap.ECR,
		snap.BufferVsTVaR99,
	)
	sum := sha256.Sum256([]byte(input))
	return hex.EncodeToString(sum[:16])
}
