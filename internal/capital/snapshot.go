package capital

import (
	"fmt"
	"sort"
	"time"

	"github.com/bullionx/capital-api/internal/types"
)

// ComputeSnapshot aggregates the platform's current exposure state into a
// capital snapshot. Pure: all state arrives in the inputs and the config, the
// same inputs always produce the same snapshot.
func ComputeSnapshot(in ExposureInputs, cfg RiskConfig, now time.Time) CapitalSnapshot {
	snap := CapitalSnapshot{
		AsOf:          now,
		CapitalBase:   in.CapitalBase,
		HardstopLimit: in.HardstopLimit,
		TVaR99:        in.TVaR99,
		BreachLevel:   LevelClear,
		BreachReasons: []string{},
		ConfigVersion: cfg.Version,
	}

	// Reserved: ACTIVE reservations at their locked price.
	// Allocated: CONVERTED reservations, plus inventory weight allocated on a
	// listing beyond what those conversions already cover, priced at the
	// listing's average open-order price.
	coveredWeight := make(map[string]float64)
	for _, r := range in.Reservations {
		notional := r.WeightGrams * r.LockedPricePerGram
		switch r.State {
		case types.ReservationActive:
			snap.ReservedNotional += notional
		case types.ReservationConverted:
			snap.AllocatedNotional += notional
			coveredWeight[r.ListingID] += r.WeightGrams
		}
	}

	avgPrice := averageOrderPriceByListing(in.Orders)
	for _, pos := range in.Inventory {
		uncovered := pos.AllocatedWeightGrams - coveredWeight[pos.ListingID]
		if uncovered <= 0 {
			continue
		}
		snap.AllocatedNotional += uncovered * avgPrice[pos.ListingID]
	}

	for _, c := range in.SettlementCases {
		switch {
		case isOpenCase(c.Status):
			snap.SettlementNotionalOpen += c.Notional
		case c.Status == types.CaseSettled && sameDay(c.UpdatedAt, now):
			snap.SettledNotionalToday += c.Notional
		}
	}

	snap.GrossExposureNotional = snap.AllocatedNotional +
		snap.SettlementNotionalOpen +
		snap.ReservedNotional*cfg.ReserveHaircut

	if in.CapitalBase > 0 {
		snap.ECR = snap.GrossExposureNotional / in.CapitalBase
	}
	if in.HardstopLimit > 0 {
		snap.HardstopUtilization = snap.GrossExposureNotional / in.HardstopLimit
	}
	snap.BufferVsTVaR99 = in.CapitalBase - in.TVaR99 - snap.GrossExposureNotional*cfg.TVaRAddonFactor

	classifyBreach(&snap, cfg)
	snap.TopDrivers = topDrivers(in, cfg, 5)

	return snap
}

// classifyBreach walks the breach checks in severity order. Every applicable
// reason is appended; the level only ever escalates.
func classifyBreach(snap *CapitalSnapshot, cfg RiskConfig) {
	util := snap.HardstopUtilization

	if util >= 1.0 {
		snap.BreachLevel = LevelBreach
		snap.BreachReasons = append(snap.BreachReasons,
			fmt.Sprintf("HARDSTOP EXCEEDED: utilization %.2f%% of limit", util*100))
	}
	if util >= cfg.HardstopFail {
		snap.BreachLevel = LevelBreach
		snap.BreachReasons = append(snap.BreachReasons,
			fmt.Sprintf("hardstop utilization %.2f%% at or above fail threshold %.0f%%", util*100, cfg.HardstopFail*100))
	}
	if snap.BreachLevel == LevelClear && util >= cfg.HardstopWarn && util < cfg.HardstopFail {
		snap.BreachLevel = LevelCaution
		snap.BreachReasons = append(snap.BreachReasons,
			fmt.Sprintf("hardstop utilization %.2f%% in caution band", util*100))
	}
	if snap.ECR >= cfg.TargetECR {
		if snap.BreachLevel == LevelClear {
			snap.BreachLevel = LevelCaution
		}
		snap.BreachReasons = append(snap.BreachReasons,
			fmt.Sprintf("ECR %.2f at or above target %.2f", snap.ECR, cfg.TargetECR))
	}
	if snap.BufferVsTVaR99 < 0 {
		if snap.BreachLevel == LevelClear {
			snap.BreachLevel = LevelCaution
		}
		snap.BreachReasons = append(snap.BreachReasons,
			fmt.Sprintf("capital buffer vs TVaR99 negative: %.2f", snap.BufferVsTVaR99))
	}
}

// topDrivers ranks the individual exposure contributors: haircut-adjusted
// active reservations, non-terminal orders and open settlement cases.
func topDrivers(in ExposureInputs, cfg RiskConfig, limit int) []ExposureDriver {
	drivers := make([]ExposureDriver, 0, len(in.Reservations)+len(in.Orders)+len(in.SettlementCases))

	for _, r := range in.Reservations {
		if r.State != types.ReservationActive {
			continue
		}
		drivers = append(drivers, ExposureDriver{
			Label:  fmt.Sprintf("Reservation %s (%.0fg)", r.ReservationID, r.WeightGrams),
			Value:  r.WeightGrams * r.LockedPricePerGram * cfg.ReserveHaircut,
			ID:     r.ReservationID,
			Source: DriverReservation,
		})
	}
	for _, o := range in.Orders {
		if o.Status == types.OrderCancelled || o.Status == types.OrderFailed {
			continue
		}
		drivers = append(drivers, ExposureDriver{
			Label:  fmt.Sprintf("Order %s (%.0fg)", o.OrderID, o.WeightGrams),
			Value:  o.WeightGrams * o.PricePerGram,
			ID:     o.OrderID,
			Source: DriverOrder,
		})
	}
	for _, c := range in.SettlementCases {
		if !isOpenCase(c.Status) {
			continue
		}
		drivers = append(drivers, ExposureDriver{
			Label:  fmt.Sprintf("Settlement case %s", c.CaseID),
			Value:  c.Notional,
			ID:     c.CaseID,
			Source: DriverSettlement,
		})
	}

	sort.Slice(drivers, func(i, j int) bool { return drivers[i].Value > drivers[j].Value })
	if len(drivers) > limit {
		drivers = drivers[:limit]
	}
	return drivers
}

func averageOrderPriceByListing(orders []types.Order) map[string]float64 {
	sum := make(map[string]float64)
	count := make(map[string]int)
	for _, o := range orders {
		if o.Status == types.OrderCancelled || o.Status == types.OrderFailed {
			continue
		}
		sum[o.ListingID] += o.PricePerGram
		count[o.ListingID]++
	}
	avg := make(map[string]float64, len(sum))
	for listing, total := range sum {
		avg[listing] = total / float64(count[listing])
	}
	return avg
}

func isOpenCase(status string) bool {
	for _, s := range types.OpenCaseStatuses {
		if status == s {
			return true
		}
	}
	return false
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}
