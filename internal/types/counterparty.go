package types

import (
	"time"

	"gorm.io/gorm"
)

// Counterparty / corridor / hub statuses
const (
	StatusActive      = "ACTIVE"
	StatusPending     = "PENDING"
	StatusUnderReview = "UNDER_REVIEW"
	StatusRestricted  = "RESTRICTED"
	StatusDegraded    = "DEGRADED"
	StatusSuspended   = "SUSPENDED"
)

// Risk levels
const (
	RiskLow      = "LOW"
	RiskMedium   = "MEDIUM"
	RiskHigh     = "HIGH"
	RiskCritical = "CRITICAL"
)

type Counterparty struct {
	gorm.Model     `json:"-"`
	CounterpartyID string    `gorm:"uniqueIndex" json:"counterparty_id"`
	Name           string    `json:"name"`
	Status         string    `json:"status"`
	RiskLevel      string    `json:"risk_level"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

type Corridor struct {
	gorm.Model `json:"-"`
	CorridorID string    `gorm:"uniqueIndex" json:"corridor_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	RiskLevel  string    `json:"risk_level"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

type Hub struct {
	gorm.Model `json:"-"`
	HubID      string    `gorm:"uniqueIndex" json:"hub_id"`
	Name       string    `json:"name"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}
