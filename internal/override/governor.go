package override

import (
	"errors"
	"fmt"
	"time"

	"github.com/bullionx/capital-api/internal/control"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

const minReasonLength = 20

// Validation failures are returned with specific messages so callers can
// surface them directly; none of them leaves a partial write behind.
var (
	ErrRoleNotAllowed     = errors.New("actor role is not permitted to create overrides")
	ErrRevokeNotAllowed   = errors.New("actor role is not permitted to revoke overrides")
	ErrReasonTooShort     = fmt.Errorf("override reason must be at least %d characters", minReasonLength)
	ErrExpiryInPast       = errors.New("override expiry must be in the future")
	ErrInvalidScope       = errors.New("override scope must be GLOBAL or ACTION")
	ErrActionKeyRequired  = errors.New("action-scoped overrides require a valid action key")
	ErrActionKeyForbidden = errors.New("global overrides must not carry an action key")
	ErrModeNotOverridable = errors.New("global overrides are only permitted during THROTTLE_RESERVATIONS or FREEZE_CONVERSIONS")
)

var createRoles = map[string]bool{
	RoleRiskOfficer:      true,
	RoleChiefRiskOfficer: true,
}

var revokeRoles = map[string]bool{
	RoleRiskOfficer:      true,
	RoleChiefRiskOfficer: true,
	RoleOpsAdmin:         true,
}

// globallyOverridable are the only modes a GLOBAL override may be created
// under. This enforces the one-severity-level downgrade cap: an override can
// never unfreeze the marketplace or lift an emergency halt.
var globallyOverridable = map[control.ControlMode]bool{
	control.ModeThrottleReservations: true,
	control.ModeFreezeConversions:    true,
}

// Actor identifies who is creating or revoking an override, taken from the
// authenticated session.
type Actor struct {
	Role   string
	UserID string
	Name   string
}

// Governor handles role-gated creation and revocation of capital overrides.
type Governor struct {
	db *Database
}

func NewGovernor(db *Database) *Governor {
	return &Governor{db: db}
}

// Create validates and persists a new override. currentMode is the control
// mode in force at creation time; it gates the GLOBAL scope.
func (g *Governor) Create(req CreateRequest, actor Actor, currentMode control.ControlMode, now time.Time) (*CapitalOverride, error) {
	logger := log.With().
		Str("service", "override").
		Str("actor_role", actor.Role).
		Str("scope", req.Scope).
		Logger()

	if !createRoles[actor.Role] {
		return nil, ErrRoleNotAllowed
	}
	if len(req.Reason) < minReasonLength {
		return nil, ErrReasonTooShort
	}
	if !req.ExpiresAt.After(now) {
		return nil, ErrExpiryInPast
	}

	switch req.Scope {
	case ScopeAction:
		if !control.ValidAction(control.ActionKey(req.ActionKey)) {
			return nil, ErrActionKeyRequired
		}
	case ScopeGlobal:
		if req.ActionKey != "" {
			return nil, ErrActionKeyForbidden
		}
		if !globallyOverridable[currentMode] {
			return nil, ErrModeNotOverridable
		}
	default:
		return nil, ErrInvalidScope
	}

	override := &CapitalOverride{
		OverrideID:  "OVR_" + uuid.New().String(),
		Scope:       req.Scope,
		ActionKey:   req.ActionKey,
		Reason:      req.Reason,
		ExpiresAt:   req.ExpiresAt,
		Status:      StatusActive,
		ActorRole:   actor.Role,
		ActorUserID: actor.UserID,
		ActorName:   actor.Name,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := g.db.CreateOverride(override); err != nil {
		logger.Error().Err(err).Msg("failed to persist override")
		return nil, fmt.Errorf("failed to persist override: %w", err)
	}

	logger.Info().
		Str("override_id", override.OverrideID).
		Str("action_key", override.ActionKey).
		Time("expires_at", override.ExpiresAt).
		Msg("capital override created")

	return override, nil
}

// Revoke transitions an ACTIVE override to REVOKED. Only legal while the
// override is still active; terminal states are final.
func (g *Governor) Revoke(overrideID string, actor Actor, now time.Time) (*CapitalOverride, error) {
	logger := log.With().
		Str("service", "override").
		Str("override_id", overrideID).
		Str("actor_role", actor.Role).
		Logger()

	if !revokeRoles[actor.Role] {
		return nil, ErrRevokeNotAllowed
	}

	if err := g.db.RevokeOverride(overrideID, now); err != nil {
		if errors.Is(err, ErrNotActive) {
			logger.Warn().Msg("revoke rejected: override not active")
			return nil, ErrNotActive
		}
		logger.Error().Err(err).Msg("failed to revoke override")
		return nil, fmt.Errorf("failed to revoke override: %w", err)
	}

	logger.Info().Msg("capital override revoked")
	return g.db.GetOverride(overrideID)
}

// ActiveOverrides returns the overrides currently in force.
func (g *Governor) ActiveOverrides(now time.Time) ([]CapitalOverride, error) {
	return g.db.GetActiveOverrides(now)
}

// ListOverrides returns recent overrides regardless of status, with effective
// statuses resolved at read time.
func (g *Governor) ListOverrides(limit int, now time.Time) ([]CapitalOverride, error) {
	overrides, err := g.db.ListOverrides(limit)
	if err != nil {
		return nil, err
	}
	for i := range overrides {
		overrides[i].Status = overrides[i].EffectiveStatus(now)
	}
	return overrides, nil
}

// ApplyOverrides merges active overrides into a decision's block matrix. An
// ACTION override suppresses the one matching block; a GLOBAL override
// suppresses all blocks, but only while the decision's mode is still one of
// the two globally-overridable modes. A grant legally created under
// THROTTLE_RESERVATIONS goes dormant once the mode escalates past
// FREEZE_CONVERSIONS, so it can never unfreeze the marketplace or lift an
// emergency halt.
func ApplyOverrides(decision control.ControlDecision, overrides []CapitalOverride, now time.Time) map[control.ActionKey]bool {
	effective := make(map[control.ActionKey]bool, len(decision.Blocks))
	for key, blocked := range decision.Blocks {
		effective[key] = blocked
	}

	for _, o := range overrides {
		if o.EffectiveStatus(now) != StatusActive {
			continue
		}
		switch o.Scope {
		case ScopeGlobal:
			if !globallyOverridable[decision.Mode] {
				continue
			}
			for key := range effective {
				effective[key] = false
			}
		case ScopeAction:
			effective[control.ActionKey(o.ActionKey)] = false
		}
	}
	return effective
}

// IsValidationError reports whether err is one of the governor's synchronous
// rejection reasons, as opposed to a storage failure.
func IsValidationError(err error) bool {
	for _, sentinel := range []error{
		ErrRoleNotAllowed,
		ErrRevokeNotAllowed,
		ErrReasonTooShort,
		ErrExpiryInPast,
		ErrInvalidScope,
		ErrActionKeyRequired,
		ErrActionKeyForbidden,
		ErrModeNotOverridable,
		ErrNotActive,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
