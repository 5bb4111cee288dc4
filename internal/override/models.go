package override

import (
	"time"

	"gorm.io/gorm"
)

// Override scopes
const (
	ScopeGlobal = "GLOBAL"
	ScopeAction = "ACTION"
)

// Override statuses. EXPIRED and REVOKED are terminal.
const (
	StatusActive  = "ACTIVE"
	StatusExpired = "EXPIRED"
	StatusRevoked = "REVOKED"
)

// Actor roles permitted to create overrides; RoleOpsAdmin may additionally
// revoke.
const (
	RoleRiskOfficer      = "risk_officer"
	RoleChiefRiskOfficer = "chief_risk_officer"
	RoleOpsAdmin         = "ops_admin"
)

// CapitalOverride is a time-boxed capability grant that relaxes the control
// decision's block matrix by at most one severity level.
type CapitalOverride struct {
	gorm.Model  `json:"-"`
	OverrideID  string     `gorm:"uniqueIndex" json:"override_id"`
	Scope       string     `json:"scope"`                // GLOBAL or ACTION
	ActionKey   string     `json:"action_key,omitempty"` // set iff scope is ACTION
	Reason      string     `json:"reason"`
	ExpiresAt   time.Time  `json:"expires_at"`
	Status      string     `json:"status"` // ACTIVE, EXPIRED, REVOKED
	ActorRole   string     `json:"actor_role"`
	ActorUserID string     `json:"actor_user_id"`
	ActorName   string     `json:"actor_name"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	RevokedAt   *time.Time `json:"revoked_at,omitempty"`
}

// EffectiveStatus applies lazy expiry: an ACTIVE override whose expiry has
// passed reads as EXPIRED whether or not the sweeper has caught up with it.
func (o *CapitalOverride) EffectiveStatus(now time.Time) string {
	if o.Status == StatusActive && !o.ExpiresAt.After(now) {
		return StatusExpired
	}
	return o.Status
}

// CreateRequest is the inbound payload for creating an override. Actor fields
// come from the authenticated session, not the body.
type CreateRequest struct {
	Scope     string    `json:"scope" binding:"required"`
	ActionKey string    `json:"action_key"`
	Reason    string    `json:"reason" binding:"required"`
	ExpiresAt time.Time `json:"expires_at" binding:"required"`
}
