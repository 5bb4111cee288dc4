package override

import (
	"testing"
	"time"

	"github.com/bullionx/capital-api/internal/control"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

func newTestGovernor(t *testing.T) (*Governor, *Database) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&CapitalOverride{}))
	store := NewDatabase(db)
	return NewGovernor(store), store
}

func validRequest() CreateRequest {
	return CreateRequest{
		Scope:     ScopeAction,
		ActionKey: string(control.ActionCreateReservation),
		Reason:    "verified client settlement pipeline backlog",
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func riskOfficer() Actor {
	return Actor{Role: RoleRiskOfficer, UserID: "user-1", Name: "Dana Keller"}
}

func TestCreateOverrideValidation(t *testing.T) {
	governor, _ := newTestGovernor(t)
	now := time.Now()

	tests := []struct {
		name    string
		mutate  func(*CreateRequest)
		actor   Actor
		mode    control.ControlMode
		wantErr error
	}{
		{
			name:    "role not allowed",
			mutate:  func(r *CreateRequest) {},
			actor:   Actor{Role: "trader"},
			mode:    control.ModeThrottleReservations,
			wantErr: ErrRoleNotAllowed,
		},
		{
			name:    "reason too short",
			mutate:  func(r *CreateRequest) { r.Reason = "because" },
			actor:   riskOfficer(),
			mode:    control.ModeThrottleReservations,
			wantErr: ErrReasonTooShort,
		},
		{
			name:    "expiry in past",
			mutate:  func(r *CreateRequest) { r.ExpiresAt = now.Add(-time.Minute) },
			actor:   riskOfficer(),
			mode:    control.ModeThrottleReservations,
			wantErr: ErrExpiryInPast,
		},
		{
			name:    "invalid scope",
			mutate:  func(r *CreateRequest) { r.Scope = "PARTIAL" },
			actor:   riskOfficer(),
			mode:    control.ModeThrottleReservations,
			wantErr: ErrInvalidScope,
		},
		{
			name:    "action scope requires valid key",
			mutate:  func(r *CreateRequest) { r.ActionKey = "DELETE_EVERYTHING" },
			actor:   riskOfficer(),
			mode:    control.ModeThrottleReservations,
			wantErr: ErrActionKeyRequired,
		},
		{
			name: "global scope rejects action key",
			mutate: func(r *CreateRequest) {
				r.Scope = ScopeGlobal
			},
			actor:   riskOfficer(),
			mode:    control.ModeThrottleReservations,
			wantErr: ErrActionKeyForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			_, err := governor.Create(req, tt.actor, tt.mode, now)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestGlobalOverrideModeInvariant(t *testing.T) {
	governor, _ := newTestGovernor(t)
	now := time.Now()

	req := CreateRequest{
		Scope:     ScopeGlobal,
		Reason:    "liquidity relief approved by risk committee",
		ExpiresAt: now.Add(time.Hour),
	}

	for _, mode := range []control.ControlMode{
		control.ModeThrottleReservations,
		control.ModeFreezeConversions,
	} {
		created, err := governor.Create(req, riskOfficer(), mode, now)
		require.NoError(t, err, "mode %s should allow global overrides", mode)
		assert.Equal(t, StatusActive, created.Status)
	}

	for _, mode := range []control.ControlMode{
		control.ModeNormal,
		control.ModeFreezeMarketplace,
		control.ModeEmergencyHalt,
	} {
		_, err := governor.Create(req, riskOfficer(), mode, now)
		assert.ErrorIs(t, err, ErrModeNotOverridable, "mode %s must reject global overrides", mode)
	}
}

func TestRevokeOverrideTransitions(t *testing.T) {
	governor, _ := newTestGovernor(t)
	now := time.Now()

	created, err := governor.Create(validRequest(), riskOfficer(), control.ModeThrottleReservations, now)
	require.NoError(t, err)

	_, err = governor.Revoke(created.OverrideID, Actor{Role: "trader"}, now)
	assert.ErrorIs(t, err, ErrRevokeNotAllowed)

	revoked, err := governor.Revoke(created.OverrideID, Actor{Role: RoleOpsAdmin, UserID: "ops-1"}, now)
	require.NoError(t, err)
	assert.Equal(t, StatusRevoked, revoked.Status)
	require.NotNil(t, revoked.RevokedAt)

	// Terminal states are final: the guarded update loses the second time.
	_, err = governor.Revoke(created.OverrideID, riskOfficer(), now)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestLazyExpiry(t *testing.T) {
	governor, store := newTestGovernor(t)
	now := time.Now()

	created, err := governor.Create(validRequest(), riskOfficer(), control.ModeThrottleReservations, now)
	require.NoError(t, err)

	future := created.ExpiresAt.Add(time.Minute)

	// The stored status is still ACTIVE but the effective status has lapsed.
	assert.Equal(t, StatusExpired, created.EffectiveStatus(future))

	active, err := store.GetActiveOverrides(future)
	require.NoError(t, err)
	assert.Empty(t, active)

	// A lapsed override cannot be revoked into a terminal state twice over:
	// the sweep expires it and the revoke loses the CAS.
	expired, err := store.ExpireStale(future)
	require.NoError(t, err)
	assert.EqualValues(t, 1, expired)

	_, err = governor.Revoke(created.OverrideID, riskOfficer(), future)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestApplyOverridesActionScope(t *testing.T) {
	now := time.Now()
	decision := control.ControlDecision{
		Mode: control.ModeThrottleReservations,
		Blocks: map[control.ActionKey]bool{
			control.ActionCreateReservation:  true,
			control.ActionConvertReservation: false,
			control.ActionPublishListing:     false,
			control.ActionOpenSettlement:     false,
			control.ActionExecuteDvP:         false,
		},
	}

	overrides := []CapitalOverride{{
		OverrideID: "OVR_1",
		Scope:      ScopeAction,
		ActionKey:  string(control.ActionCreateReservation),
		Status:     StatusActive,
		ExpiresAt:  now.Add(time.Hour),
	}}

	blocks := ApplyOverrides(decision, overrides, now)

	assert.False(t, blocks[control.ActionCreateReservation])
	assert.False(t, blocks[control.ActionConvertReservation])
	// The decision itself is untouched.
	assert.True(t, decision.Blocks[control.ActionCreateReservation])
}

func TestApplyOverridesSkipsLapsedGrants(t *testing.T) {
	now := time.Now()
	decision := control.ControlDecision{
		Blocks: map[control.ActionKey]bool{
			control.ActionCreateReservation: true,
		},
	}

	overrides := []CapitalOverride{{
		Scope:     ScopeAction,
		ActionKey: string(control.ActionCreateReservation),
		Status:    StatusActive,
		ExpiresAt: now.Add(-time.Minute),
	}}

	blocks := ApplyOverrides(decision, overrides, now)
	assert.True(t, blocks[control.ActionCreateReservation])
}

func TestApplyOverridesGlobalDormantAfterEscalation(t *testing.T) {
	now := time.Now()

	// A grant created under THROTTLE_RESERVATIONS is still ACTIVE, but the
	// mode has since escalated. The grant must not relax the stricter matrix.
	overrides := []CapitalOverride{{
		OverrideID: "OVR_1",
		Scope:      ScopeGlobal,
		Status:     StatusActive,
		ExpiresAt:  now.Add(time.Hour),
	}}

	halt := control.ControlDecision{
		Mode: control.ModeEmergencyHalt,
		Blocks: map[control.ActionKey]bool{
			control.ActionCreateReservation:  true,
			control.ActionConvertReservation: true,
			control.ActionPublishListing:     true,
			control.ActionOpenSettlement:     true,
			control.ActionExecuteDvP:         true,
		},
	}

	blocks := ApplyOverrides(halt, overrides, now)
	for _, key := range control.ActionKeys {
		assert.True(t, blocks[key], "action %s must stay blocked during EMERGENCY_HALT", key)
	}

	freeze := control.ControlDecision{
		Mode: control.ModeFreezeMarketplace,
		Blocks: map[control.ActionKey]bool{
			control.ActionCreateReservation:  true,
			control.ActionConvertReservation: true,
			control.ActionPublishListing:     true,
			control.ActionOpenSettlement:     false,
			control.ActionExecuteDvP:         false,
		},
	}

	blocks = ApplyOverrides(freeze, overrides, now)
	assert.True(t, blocks[control.ActionPublishListing],
		"a global grant must not unfreeze the marketplace")
	assert.True(t, blocks[control.ActionCreateReservation])
}

func TestApplyOverridesGlobalScope(t *testing.T) {
	now := time.Now()
	decision := control.ControlDecision{
		Mode: control.ModeFreezeConversions,
		Blocks: map[control.ActionKey]bool{
			control.ActionCreateReservation:  true,
			control.ActionConvertReservation: true,
			control.ActionPublishListing:     false,
			control.ActionOpenSettlement:     false,
			control.ActionExecuteDvP:         false,
		},
	}

	overrides := []CapitalOverride{{
		Scope:     ScopeGlobal,
		Status:    StatusActive,
		ExpiresAt: now.Add(time.Hour),
	}}

	blocks := ApplyOverrides(decision, overrides, now)
	for key, blocked := range blocks {
		assert.False(t, blocked, "action %s should be unblocked", key)
	}
}
