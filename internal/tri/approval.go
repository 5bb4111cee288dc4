package tri

import (
	"math"

	"github.com/bullionx/capital-api/internal/capital"
)

// approvalRule is one rung of the ladder: a tier applies when the score and
// the amount both fit under its ceilings.
type approvalRule struct {
	tier           string
	maxScore       int
	maxAmountCents int64
}

// ApprovalTier walks the ladder in ascending severity and returns the first
// tier whose ceilings accommodate the transaction. Anything that fits no rung
// goes to the board.
func ApprovalTier(result TRIResult, amountNotional float64, cfg capital.RiskConfig) string {
	amountCents := int64(math.Round(amountNotional * 100))

	ladder := []approvalRule{
		{tier: TierAuto, maxScore: cfg.TRIGreenMax, maxAmountCents: cfg.AutoLimitCents},
		{tier: TierDeskHead, maxScore: cfg.TRIRedMin - 1, maxAmountCents: cfg.DeskHeadLimitCents},
		{tier: TierCreditCommittee, maxScore: 9, maxAmountCents: cfg.CommitteeLimitCents},
	}

	for _, rule := range ladder {
		if result.Score <= rule.maxScore && amountCents <= rule.maxAmountCents {
			return rule.tier
		}
	}
	return TierBoard
}

// Assess runs the full per-transaction evaluation: score, blockers, approval
// tier.
func Assess(in Input, cfg capital.RiskConfig) Assessment {
	result := Score(in, cfg)
	findings := EvaluateBlockers(in, result, cfg)
	return Assessment{
		Result:       result,
		Findings:     findings,
		ApprovalTier: ApprovalTier(result, in.AmountNotional, cfg),
		Blocked:      HasBlock(findings),
	}
}
