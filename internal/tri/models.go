package tri

// Bands
const (
	BandGreen = "green"
	BandAmber = "amber"
	BandRed   = "red"
)

// Finding severities
const (
	SeverityBlock = "BLOCK"
	SeverityWarn  = "WARN"
	SeverityInfo  = "INFO"
)

// Approval tiers, in ascending severity.
const (
	TierAuto            = "auto"
	TierDeskHead        = "desk_head"
	TierCreditCommittee = "credit_committee"
	TierBoard           = "board"
)

// Component is one weighted factor of the index.
type Component struct {
	Weight   float64 `json:"weight"`
	Raw      float64 `json:"raw"`
	Weighted float64 `json:"weighted"`
}

// TRIResult is the transaction risk index for a single transaction: an
// integer score in [1,10], its band, the per-factor breakdown and a formula
// string for audit replay.
type TRIResult struct {
	Score int    `json:"score"`
	Band  string `json:"band"`

	CounterpartyRisk    Component `json:"counterparty_risk"`
	CorridorRisk        Component `json:"corridor_risk"`
	AmountConcentration Component `json:"amount_concentration"`
	CounterpartyStatus  Component `json:"counterparty_status"`

	Formula string `json:"formula"`
}

// Finding is one blocker-evaluator verdict.
type Finding struct {
	Severity string `json:"severity"` // BLOCK, WARN, INFO
	Code     string `json:"code"`
	Message  string `json:"message"`
}

// Input carries everything needed to score a transaction and evaluate its
// blockers. All state is computed by collaborators before the call.
type Input struct {
	AmountNotional float64

	CounterpartyRiskLevel string
	CounterpartyStatus    string
	CorridorRiskLevel     string
	CorridorStatus        string
	HubStatus             string

	CapitalBase   float64
	HardstopLimit float64
	GrossExposure float64
}

// Assessment bundles the scorer, blocker and approval outputs for one
// transaction.
type Assessment struct {
	Result       TRIResult `json:"result"`
	Findings     []Finding `json:"findings"`
	ApprovalTier string    `json:"approval_tier"`
	Blocked      bool      `json:"blocked"`
}
