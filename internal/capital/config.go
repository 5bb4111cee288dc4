package capital

import (
	"time"

	"gorm.io/gorm"
)

// RiskConfig carries every numeric threshold the engine uses. It is passed by
// value into the pure evaluation functions so a snapshot, decision or TRI
// result can always be reproduced from the config version that produced it.
type RiskConfig struct {
	// ECR thresholds
	TargetECR             float64 `json:"target_ecr"`
	ECRFreezeMultiplier   float64 `json:"ecr_freeze_multiplier"`
	ECRCriticalMultiplier float64 `json:"ecr_critical_multiplier"`

	// Hardstop utilization bands
	HardstopWarn     float64 `json:"hardstop_warn"`
	HardstopThrottle float64 `json:"hardstop_throttle"`
	HardstopFreeze   float64 `json:"hardstop_freeze"`
	HardstopFail     float64 `json:"hardstop_fail"`

	// Exposure adjustments
	ReserveHaircut  float64 `json:"reserve_haircut"`
	TVaRAddonFactor float64 `json:"tvar_addon_factor"`

	// Advisory throttle cap as a fraction of remaining hardstop capacity
	ThrottleCapFraction float64 `json:"throttle_cap_fraction"`

	// TRI bands and blockers
	TRIGreenMax           int     `json:"tri_green_max"`
	TRIRedMin             int     `json:"tri_red_min"`
	TRICapacityFraction   float64 `json:"tri_capacity_fraction"`
	MaxECRPostTransaction float64 `json:"max_ecr_post_transaction"`

	// Approval tier limits, in cents so the ladder is exact
	AutoLimitCents      int64 `json:"auto_limit_cents"`
	DeskHeadLimitCents  int64 `json:"desk_head_limit_cents"`
	CommitteeLimitCents int64 `json:"committee_limit_cents"`

	Version int `json:"version"`
}

// DefaultRiskConfig returns the compiled-in threshold set. It is used whenever
// the stored configuration cannot be loaded, so evaluation never blocks on a
// configuration outage.
func DefaultRiskConfig() RiskConfig {
	return RiskConfig{
		TargetECR:             8.0,
		ECRFreezeMultiplier:   1.05,
		ECRCriticalMultiplier: 1.2,

		HardstopWarn:     0.80,
		HardstopThrottle: 0.90,
		HardstopFreeze:   0.93,
		HardstopFail:     0.95,

		ReserveHaircut:  0.35,
		TVaRAddonFactor: 0.12,

		ThrottleCapFraction: 0.50,

		TRIGreenMax:           3,
		TRIRedMin:             7,
		TRICapacityFraction:   0.25,
		MaxECRPostTransaction: 8.0,

		AutoLimitCents:      25_000_000,    // $250k
		DeskHeadLimitCents:  100_000_000,   // $1M
		CommitteeLimitCents: 1_000_000_000, // $10M

		Version: 1,
	}
}

// RiskConfigRecord is the persisted form of a RiskConfig. Exactly one record
// is active at a time; operators retune thresholds by inserting a new version
// and flipping the active flag.
type RiskConfigRecord struct {
	gorm.Model `json:"-"`
	Version    int  `gorm:"uniqueIndex" json:"version"`
	Active     bool `json:"active"`

	TargetECR             float64 `json:"target_ecr"`
	ECRFreezeMultiplier   float64 `json:"ecr_freeze_multiplier"`
	ECRCriticalMultiplier float64 `json:"ecr_critical_multiplier"`
	HardstopWarn          float64 `json:"hardstop_warn"`
	HardstopThrottle      float64 `json:"hardstop_throttle"`
	HardstopFreeze        float64 `json:"hardstop_freeze"`
	HardstopFail          float64 `json:"hardstop_fail"`
	ReserveHaircut        float64 `json:"reserve_haircut"`
	TVaRAddonFactor       float64 `json:"tvar_addon_factor"`
	ThrottleCapFraction   float64 `json:"throttle_cap_fraction"`
	TRIGreenMax           int     `json:"tri_green_max"`
	TRIRedMin             int     `json:"tri_red_min"`
	TRICapacityFraction   float64 `json:"tri_capacity_fraction"`
	MaxECRPostTransaction float64 `json:"max_ecr_post_transaction"`
	AutoLimitCents        int64   `json:"auto_limit_cents"`
	DeskHeadLimitCents    int64   `json:"desk_head_limit_cents"`
	CommitteeLimitCents   int64   `json:"committee_limit_cents"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Config converts the stored record into the value type the evaluators take.
func (r *RiskConfigRecord) Config() RiskConfig {
	return RiskConfig{
		TargetECR:             r.TargetECR,
		ECRFreezeMultiplier:   r.ECRFreezeMultiplier,
		ECRCriticalMultiplier: r.ECRCriticalMultiplier,
		HardstopWarn:          r.HardstopWarn,
		HardstopThrottle:      r.HardstopThrottle,
		HardstopFreeze:        r.HardstopFreeze,
		HardstopFail:          r.HardstopFail,
		ReserveHaircut:        r.ReserveHaircut,
		TVaRAddonFactor:       r.TVaRAddonFactor,
		ThrottleCapFraction:   r.ThrottleCapFraction,
		TRIGreenMax:           r.TRIGreenMax,
		TRIRedMin:             r.TRIRedMin,
		TRICapacityFraction:   r.TRICapacityFraction,
		MaxECRPostTransaction: r.MaxECRPostTransaction,
		AutoLimitCents:        r.AutoLimitCents,
		DeskHeadLimitCents:    r.DeskHeadLimitCents,
		CommitteeLimitCents:   r.CommitteeLimitCents,
		Version:               r.Version,
	}
}

// RecordFromConfig builds a persistable record from a config value.
func RecordFromConfig(cfg RiskConfig, active bool) *RiskConfigRecord {
	return &RiskConfigRecord{
		Version:               cfg.Version,
		Active:                active,
		TargetECR:             cfg.TargetECR,
		ECRFreezeMultiplier:   cfg.ECRFreezeMultiplier,
		ECRCriticalMultiplier: cfg.ECRCriticalMultiplier,
		HardstopWarn:          cfg.HardstopWarn,
		HardstopThrottle:      cfg.HardstopThrottle,
		HardstopFreeze:        cfg.HardstopFreeze,
		HardstopFail:          cfg.HardstopFail,
		ReserveHaircut:        cfg.ReserveHaircut,
		TVaRAddonFactor:       cfg.TVaRAddonFactor,
		ThrottleCapFraction:   cfg.ThrottleCapFraction,
		TRIGreenMax:           cfg.TRIGreenMax,
		TRIRedMin:             cfg.TRIRedMin,
		TRICapacityFraction:   cfg.TRICapacityFraction,
		MaxECRPostTransaction: cfg.MaxECRPostTransaction,
		AutoLimitCents:        cfg.AutoLimitCents,
		DeskHeadLimitCents:    cfg.DeskHeadLimitCents,
		CommitteeLimitCents:   cfg.CommitteeLimitCents,
		CreatedAt:             time.Now(),
		UpdatedAt:             time.Now(),
	}
}
