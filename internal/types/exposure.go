package types

import (
	"time"

	"gorm.io/gorm"
)

// Reservation states
const (
	ReservationActive    = "ACTIVE"
	ReservationConverted = "CONVERTED"
	ReservationLapsed    = "LAPSED"
	ReservationCancelled = "CANCELLED"
)

// Order statuses. CANCELLED and FAILED are terminal and excluded from exposure.
const (
	OrderPending   = "PENDING"
	OrderOpen      = "OPEN"
	OrderFilled    = "FILLED"
	OrderCancelled = "CANCELLED"
	OrderFailed    = "FAILED"
)

// Settlement case statuses
const (
	CaseEscrowOpen           = "ESCROW_OPEN"
	CaseAwaitingFunds        = "AWAITING_FUNDS"
	CaseAwaitingGold         = "AWAITING_GOLD"
	CaseAwaitingVerification = "AWAITING_VERIFICATION"
	CaseReadyToSettle        = "READY_TO_SETTLE"
	CaseAuthorized           = "AUTHORIZED"
	CaseSettled              = "SETTLED"
	CaseCancelled            = "CANCELLED"
	CaseFailed               = "FAILED"
)

// OpenCaseStatuses is the set of settlement states that still carry exposure.
var OpenCaseStatuses = []string{
	CaseEscrowOpen,
	CaseAwaitingFunds,
	CaseAwaitingGold,
	CaseAwaitingVerification,
	CaseReadyToSettle,
	CaseAuthorized,
}

type Reservation struct {
	gorm.Model         `json:"-"`
	ReservationID      string    `gorm:"uniqueIndex" json:"reservation_id"`
	ListingID          string    `json:"listing_id"`
	ClientID           string    `json:"client_id"`
	State              string    `json:"state"` // ACTIVE, CONVERTED, LAPSED, CANCELLED
	WeightGrams        float64   `json:"weight_grams"`
	LockedPricePerGram float64   `json:"locked_price_per_gram"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

type Order struct {
	gorm.Model   `json:"-"`
	OrderID      string    `gorm:"uniqueIndex" json:"order_id"`
	ListingID    string    `json:"listing_id"`
	ClientID     string    `json:"client_id"`
	Status       string    `json:"status"` // PENDING, OPEN, FILLED, CANCELLED, FAILED
	WeightGrams  float64   `json:"weight_grams"`
	PricePerGram float64   `json:"price_per_gram"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type InventoryPosition struct {
	gorm.Model           `json:"-"`
	ListingID            string    `gorm:"uniqueIndex" json:"listing_id"`
	AllocatedWeightGrams float64   `json:"allocated_weight_grams"`
	UpdatedAt            time.Time `json:"updated_at"`
}

type SettlementCase struct {
	gorm.Model `json:"-"`
	CaseID     string    `gorm:"uniqueIndex" json:"case_id"`
	ClientID   string    `json:"client_id"`
	Status     string    `json:"status"`
	Notional   float64   `json:"notional"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// CapitalAccount holds the externally maintained capital figures. A single
// row is kept current by the treasury collaborator.
type CapitalAccount struct {
	gorm.Model    `json:"-"`
	CapitalBase   float64   `json:"capital_base"`
	HardstopLimit float64   `json:"hardstop_limit"`
	TVaR99        float64   `json:"tvar99"`
	UpdatedAt     time.Time `json:"updated_at"`
}
