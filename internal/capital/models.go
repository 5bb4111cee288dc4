package capital

import (
	"time"

	"github.com/bullionx/capital-api/internal/types"
)

// Breach levels, in ascending severity.
const (
	LevelClear   = "CLEAR"
	LevelCaution = "CAUTION"
	LevelBreach  = "BREACH"
)

// Driver sources
const (
	DriverReservation = "RESERVATION"
	DriverOrder       = "ORDER"
	DriverSettlement  = "SETTLEMENT"
)

// ExposureDriver is one ranked contributor to gross exposure.
type ExposureDriver struct {
	Label  string  `json:"label"`
	Value  float64 `json:"value"`
	ID     string  `json:"id,omitempty"`
	Source string  `json:"source"`
}

// CapitalSnapshot is the point-in-time solvency picture. It is recomputed on
// demand from current aggregate state and never mutated after construction.
type CapitalSnapshot struct {
	AsOf time.Time `json:"as_of"`

	CapitalBase   float64 `json:"capital_base"`
	HardstopLimit float64 `json:"hardstop_limit"`
	TVaR99        float64 `json:"tvar99"`

	ReservedNotional       float64 `json:"reserved_notional"`
	AllocatedNotional      float64 `json:"allocated_notional"`
	SettlementNotionalOpen float64 `json:"settlement_notional_open"`
	SettledNotionalToday   float64 `json:"settled_notional_today"`
	GrossExposureNotional  float64 `json:"gross_exposure_notional"`

	ECR                 float64 `json:"ecr"`
	HardstopUtilization float64 `json:"hardstop_utilization"`
	BufferVsTVaR99      float64 `json:"buffer_vs_tvar99"`

	BreachLevel   string           `json:"breach_level"` // CLEAR, CAUTION, BREACH
	BreachReasons []string         `json:"breach_reasons"`
	TopDrivers    []ExposureDriver `json:"top_drivers"`

	ConfigVersion int `json:"config_version"`
}

// ExposureInputs is the aggregate state the calculator consumes. Everything
// here is loaded by collaborators before evaluation; the calculator itself
// performs no I/O.
type ExposureInputs struct {
	CapitalBase   float64
	HardstopLimit float64
	TVaR99        float64

	Reservations    []types.Reservation
	Orders          []types.Order
	Inventory       []types.InventoryPosition
	SettlementCases []types.SettlementCase
}
