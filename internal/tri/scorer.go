package tri

import (
	"fmt"
	"math"

	"github.com/bullionx/capital-api/internal/capital"
	"github.com/bullionx/capital-api/internal/types"
)

// Factor weights. Counterparty quality dominates; corridor, concentration and
// operational status fill out the index.
const (
	weightCounterpartyRisk    = 0.40
	weightCorridorRisk        = 0.25
	weightAmountConcentration = 0.20
	weightCounterpartyStatus  = 0.15
)

// Score computes the transaction risk index: four normalized factors,
// weighted, rounded and clamped to [1,10].
func Score(in Input, cfg capital.RiskConfig) TRIResult {
	cpRisk := riskLevelScore(in.CounterpartyRiskLevel)
	corRisk := riskLevelScore(in.CorridorRiskLevel)
	amtScore := amountConcentrationScore(in.AmountNotional, in.HardstopLimit)
	statusScore := counterpartyStatusScore(in.CounterpartyStatus)

	result := TRIResult{
		CounterpartyRisk:    component(weightCounterpartyRisk, cpRisk),
		CorridorRisk:        component(weightCorridorRisk, corRisk),
		AmountConcentration: component(weightAmountConcentration, amtScore),
		CounterpartyStatus:  component(weightCounterpartyStatus, statusScore),
	}

	weighted := result.CounterpartyRisk.Weighted +
		result.CorridorRisk.Weighted +
		result.AmountConcentration.Weighted +
		result.CounterpartyStatus.Weighted

	score := int(math.Round(weighted))
	if score < 1 {
		score = 1
	}
	if score > 10 {
		score = 10
	}
	result.Score = score
	result.Band = band(score, cfg)
	result.Formula = fmt.Sprintf(
		"%.0f*%.2f + %.0f*%.2f + %.0f*%.2f + %.0f*%.2f = %.2f -> %d (%s)",
		cpRisk, weightCounterpartyRisk,
		corRisk, weightCorridorRisk,
		amtScore, weightAmountConcentration,
		statusScore, weightCounterpartyStatus,
		weighted, score, result.Band,
	)

	return result
}

func component(weight, raw float64) Component {
	return Component{Weight: weight, Raw: raw, Weighted: weight * raw}
}

func band(score int, cfg capital.RiskConfig) string {
	switch {
	case score <= cfg.TRIGreenMax:
		return BandGreen
	case score >= cfg.TRIRedMin:
		return BandRed
	default:
		return BandAmber
	}
}

// riskLevelScore maps the four risk levels onto the 1-10 scale. Unknown
// levels score as critical: an unclassified counterparty is not a safe one.
func riskLevelScore(level string) float64 {
	switch level {
	case types.RiskLow:
		return 1
	case types.RiskMedium:
		return 3
	case types.RiskHigh:
		return 6
	case types.RiskCritical:
		return 9
	default:
		return 9
	}
}

// amountConcentrationScore scales the transaction's share of the hardstop
// limit onto 1-10. A zero limit means no headroom at all, scored 10.
func amountConcentrationScore(amount, hardstopLimit float64) float64 {
	if hardstopLimit <= 0 {
		return 10
	}
	scaled := (amount / hardstopLimit) * 20
	return math.Ceil(math.Min(10, math.Max(1, scaled)))
}

func counterpartyStatusScore(status string) float64 {
	switch status {
	case types.StatusActive:
		return 0
	case types.StatusPending:
		return 2
	case types.StatusUnderReview:
		return 4
	case types.StatusRestricted, types.StatusDegraded:
		return 6
	case types.StatusSuspended:
		return 8
	default:
		return 8
	}
}
