package tri

import (
	"fmt"

	"github.com/bullionx/capital-api/internal/capital"
	"github.com/bullionx/capital-api/internal/types"
)

// EvaluateBlockers produces the BLOCK/WARN/INFO findings for a transaction.
// Suspension anywhere in the chain blocks outright; review and degradation
// states warn; capacity rules block on the amount itself.
func EvaluateBlockers(in Input, result TRIResult, cfg capital.RiskConfig) []Finding {
	findings := []Finding{}

	findings = append(findings, statusFindings("counterparty", in.CounterpartyStatus)...)
	findings = append(findings, statusFindings("corridor", in.CorridorStatus)...)
	findings = append(findings, statusFindings("hub", in.HubStatus)...)

	remaining := in.HardstopLimit - in.GrossExposure
	if remaining < 0 {
		remaining = 0
	}

	if in.AmountNotional > remaining {
		findings = append(findings, Finding{
			Severity: SeverityBlock,
			Code:     "HARDSTOP_CAPACITY",
			Message: fmt.Sprintf("amount %.2f exceeds remaining hardstop capacity %.2f",
				in.AmountNotional, remaining),
		})
	}

	if in.CapitalBase > 0 {
		postECR := (in.GrossExposure + in.AmountNotional) / in.CapitalBase
		if postECR > cfg.MaxECRPostTransaction {
			findings = append(findings, Finding{
				Severity: SeverityBlock,
				Code:     "POST_TRANSACTION_ECR",
				Message: fmt.Sprintf("post-transaction ECR %.4f exceeds limit %.4f",
					postECR, cfg.MaxECRPostTransaction),
			})
		}
	}

	if result.Score >= cfg.TRIRedMin && in.AmountNotional > remaining*cfg.TRICapacityFraction {
		findings = append(findings, Finding{
			Severity: SeverityBlock,
			Code:     "HIGH_TRI_CONCENTRATION",
			Message: fmt.Sprintf("TRI %d with amount %.2f above %.0f%% of remaining capacity",
				result.Score, in.AmountNotional, cfg.TRICapacityFraction*100),
		})
	}

	return findings
}

func statusFindings(entity, status string) []Finding {
	switch status {
	case types.StatusSuspended:
		return []Finding{{
			Severity: SeverityBlock,
			Code:     "ENTITY_SUSPENDED",
			Message:  fmt.Sprintf("%s is suspended", entity),
		}}
	case types.StatusUnderReview, types.StatusRestricted, types.StatusDegraded:
		return []Finding{{
			Severity: SeverityWarn,
			Code:     "ENTITY_IMPAIRED",
			Message:  fmt.Sprintf("%s status is %s", entity, status),
		}}
	case types.StatusPending:
		return []Finding{{
			Severity: SeverityInfo,
			Code:     "ENTITY_PENDING",
			Message:  fmt.Sprintf("%s onboarding is pending", entity),
		}}
	default:
		return nil
	}
}

// HasBlock reports whether any finding is a BLOCK.
func HasBlock(findings []Finding) bool {
	for _, f := range findings {
		if f.Severity == SeverityBlock {
			return true
		}
	}
	return false
}
