package control

import "time"

// ControlMode is the platform-wide severity state gating mutating actions.
type ControlMode string

const (
	ModeNormal               ControlMode = "NORMAL"
	ModeThrottleReservations ControlMode = "THROTTLE_RESERVATIONS"
	ModeFreezeConversions    ControlMode = "FREEZE_CONVERSIONS"
	ModeFreezeMarketplace    ControlMode = "FREEZE_MARKETPLACE"
	ModeEmergencyHalt        ControlMode = "EMERGENCY_HALT"
)

// modeSeverity orders the modes; higher blocks strictly more.
var modeSeverity = map[ControlMode]int{
	ModeNormal:               0,
	ModeThrottleReservations: 1,
	ModeFreezeConversions:    2,
	ModeFreezeMarketplace:    3,
	ModeEmergencyHalt:        4,
}

// Severity returns the mode's index in the severity order, 0 (NORMAL) through
// 4 (EMERGENCY_HALT).
func (m ControlMode) Severity() int {
	return modeSeverity[m]
}

// ActionKey identifies a gated mutating action.
type ActionKey string

const (
	ActionCreateReservation  ActionKey = "CREATE_RESERVATION"
	ActionConvertReservation ActionKey = "CONVERT_RESERVATION"
	ActionPublishListing     ActionKey = "PUBLISH_LISTING"
	ActionOpenSettlement     ActionKey = "OPEN_SETTLEMENT"
	ActionExecuteDvP         ActionKey = "EXECUTE_DVP"
)

// ActionKeys lists every gated action.
var ActionKeys = []ActionKey{
	ActionCreateReservation,
	ActionConvertReservation,
	ActionPublishListing,
	ActionOpenSettlement,
	ActionExecuteDvP,
}

// ValidAction reports whether the key names a gated action.
func ValidAction(key ActionKey) bool {
	for _, k := range ActionKeys {
		if k == key {
			return true
		}
	}
	return false
}

// AdvisoryLimits are non-binding caps attached to a decision.
type AdvisoryLimits struct {
	ReservationNotionalCap float64 `json:"reservation_notional_cap"`
}

// ControlDecision is the full output of one evaluation: mode, per-action
// block matrix, advisory limits and a hash binding it to the snapshot it was
// computed from. Recomputed per evaluation, never persisted.
type ControlDecision struct {
	AsOf         time.Time          `json:"as_of"`
	Mode         ControlMode        `json:"mode"`
	Reasons      []string           `json:"reasons"`
	Blocks       map[ActionKey]bool `json:"blocks"`
	Limits       *AdvisoryLimits    `json:"limits,omitempty"`
	SnapshotHash string             `json:"snapshot_hash"`
}
