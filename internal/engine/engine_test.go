package engine

import (
	"testing"
	"time"

	"github.com/bullionx/capital-api/internal/audit"
	"github.com/bullionx/capital-api/internal/breach"
	"github.com/bullionx/capital-api/internal/capital"
	"github.com/bullionx/capital-api/internal/control"
	"github.com/bullionx/capital-api/internal/override"
	"github.com/bullionx/capital-api/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestService(t *testing.T) (*Service, *gorm.DB) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&types.Reservation{},
		&types.Order{},
		&types.InventoryPosition{},
		&types.SettlementCase{},
		&types.CapitalAccount{},
		&types.Counterparty{},
		&types.Corridor{},
		&types.Hub{},
		&capital.RiskConfigRecord{},
		&breach.BreachEvent{},
		&override.CapitalOverride{},
		&audit.Event{},
	))
	return NewService(db), db
}

func seedCapitalAccount(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&types.CapitalAccount{
		CapitalBase:   100_000_000,
		HardstopLimit: 50_000_000,
		TVaR99:        5_000_000,
	}).Error)
}

func seedSettlementExposure(t *testing.T, db *gorm.DB, notional float64) {
	t.Helper()
	require.NoError(t, db.Create(&types.SettlementCase{
		CaseID:   "CSE_" + time.Now().Format("150405.000000"),
		ClientID: "CLT_1",
		Status:   types.CaseEscrowOpen,
		Notional: notional,
	}).Error)
}

func TestSnapshotAggregatesExposure(t *testing.T) {
	service, db := newTestService(t)
	seedCapitalAccount(t, db)

	// Allocated inventory priced off the listing's open orders.
	require.NoError(t, db.Create(&types.InventoryPosition{
		ListingID:            "LST_1",
		AllocatedWeightGrams: 100_000,
	}).Error)
	require.NoError(t, db.Create(&types.Order{
		OrderID:      "ORD_1",
		ListingID:    "LST_1",
		Status:       types.OrderOpen,
		WeightGrams:  100_000,
		PricePerGram: 100,
	}).Error)

	// An active reservation carries the 35% haircut.
	require.NoError(t, db.Create(&types.Reservation{
		ReservationID:      "RSV_1",
		ListingID:          "LST_2",
		State:              types.ReservationActive,
		WeightGrams:        50_000,
		LockedPricePerGram: 100,
	}).Error)

	seedSettlementExposure(t, db, 2_000_000)

	snap, err := service.Snapshot(time.Now())
	require.NoError(t, err)

	// 10M allocated + 2M open settlement + 5M reserved * 0.35
	assert.InDelta(t, 13_750_000, snap.GrossExposureNotional, 0.01)
	assert.InDelta(t, 0.275, snap.HardstopUtilization, 0.0001)
	assert.InDelta(t, 0.1375, snap.ECR, 0.0001)
	assert.Equal(t, capital.LevelClear, snap.BreachLevel)
	assert.NotEmpty(t, snap.TopDrivers)
}

func TestEvaluateFreezeMarketplacePipeline(t *testing.T) {
	service, db := newTestService(t)
	seedCapitalAccount(t, db)
	seedSettlementExposure(t, db, 49_000_000) // utilization 0.98

	now := time.Now()
	effective, err := service.Evaluate(now)
	require.NoError(t, err)

	assert.Equal(t, capital.LevelBreach, effective.Snapshot.BreachLevel)
	assert.Equal(t, control.ModeFreezeMarketplace, effective.Decision.Mode)
	assert.True(t, effective.Blocks[control.ActionPublishListing])
	assert.True(t, effective.Blocks[control.ActionCreateReservation])
	assert.True(t, effective.Blocks[control.ActionConvertReservation])
	assert.False(t, effective.Blocks[control.ActionOpenSettlement])
	assert.False(t, effective.Blocks[control.ActionExecuteDvP])

	// The sweep persisted the hardstop breach and emitted its audit record.
	events, err := service.BreachEvents(now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, breach.TypeHardstopBreach, events[0].Type)

	var auditCount int64
	require.NoError(t, db.Model(&audit.Event{}).
		Where("kind = ?", audit.KindBreachRecorded).Count(&auditCount).Error)
	assert.EqualValues(t, 1, auditCount)
}

func TestAuthorizeGates(t *testing.T) {
	service, db := newTestService(t)
	seedCapitalAccount(t, db)
	seedSettlementExposure(t, db, 49_000_000)

	now := time.Now()

	allowed, reason, err := service.Authorize(control.ActionPublishListing, now)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Contains(t, reason, string(control.ModeFreezeMarketplace))

	allowed, _, err = service.Authorize(control.ActionExecuteDvP, now)
	require.NoError(t, err)
	assert.True(t, allowed)

	allowed, reason, err = service.Authorize(control.ActionKey("DELETE_EVERYTHING"), now)
	require.NoError(t, err)
	assert.False(t, allowed)
	assert.Equal(t, "unknown action key", reason)
}

func TestAuthorizeFailsClosedWithoutCapitalAccount(t *testing.T) {
	service, _ := newTestService(t)

	allowed, reason, err := service.Authorize(control.ActionCreateReservation, time.Now())
	assert.Error(t, err)
	assert.False(t, allowed)
	assert.Contains(t, reason, "EMERGENCY_HALT")
}

func TestOverrideLifecycleThroughService(t *testing.T) {
	service, db := newTestService(t)
	seedCapitalAccount(t, db)
	seedSettlementExposure(t, db, 45_500_000) // utilization 0.91 -> throttle

	now := time.Now()
	actor := override.Actor{Role: override.RoleRiskOfficer, UserID: "user-7", Name: "Priya Shah"}

	effective, err := service.Evaluate(now)
	require.NoError(t, err)
	require.Equal(t, control.ModeThrottleReservations, effective.Decision.Mode)
	require.True(t, effective.Blocks[control.ActionCreateReservation])

	created, err := service.CreateOverride(override.CreateRequest{
		Scope:     override.ScopeGlobal,
		Reason:    "board approved temporary reservation relief",
		ExpiresAt: now.Add(time.Hour),
	}, actor, now)
	require.NoError(t, err)
	assert.Equal(t, override.StatusActive, created.Status)

	effective, err = service.Evaluate(now)
	require.NoError(t, err)
	assert.Equal(t, control.ModeThrottleReservations, effective.Decision.Mode)
	assert.False(t, effective.Blocks[control.ActionCreateReservation])
	require.Len(t, effective.Overrides, 1)

	revoked, err := service.RevokeOverride(created.OverrideID, actor, now)
	require.NoError(t, err)
	assert.Equal(t, override.StatusRevoked, revoked.Status)

	effective, err = service.Evaluate(now)
	require.NoError(t, err)
	assert.True(t, effective.Blocks[control.ActionCreateReservation])

	var auditCount int64
	require.NoError(t, db.Model(&audit.Event{}).
		Where("kind IN ?", []string{audit.KindOverrideCreated, audit.KindOverrideRevoked}).
		Count(&auditCount).Error)
	assert.EqualValues(t, 2, auditCount)
}

func TestCreateOverrideRejectedInNormalMode(t *testing.T) {
	service, db := newTestService(t)
	seedCapitalAccount(t, db)
	seedSettlementExposure(t, db, 10_000_000)

	now := time.Now()
	_, err := service.CreateOverride(override.CreateRequest{
		Scope:     override.ScopeGlobal,
		Reason:    "no relief needed but requested anyway",
		ExpiresAt: now.Add(time.Hour),
	}, override.Actor{Role: override.RoleRiskOfficer, UserID: "user-7"}, now)

	assert.ErrorIs(t, err, override.ErrModeNotOverridable)
}

func TestAssessTransactionEndToEnd(t *testing.T) {
	service, db := newTestService(t)
	seedCapitalAccount(t, db)
	seedSettlementExposure(t, db, 10_000_000)

	require.NoError(t, db.Create(&types.Counterparty{
		CounterpartyID: "CPT_1",
		Name:           "Aurum Trading DMCC",
		Status:         types.StatusActive,
		RiskLevel:      types.RiskHigh,
	}).Error)
	require.NoError(t, db.Create(&types.Corridor{
		CorridorID: "COR_1",
		Name:       "AE-IN",
		Status:     types.StatusActive,
		RiskLevel:  types.RiskMedium,
	}).Error)
	require.NoError(t, db.Create(&types.Hub{
		HubID:  "HUB_1",
		Name:   "Dubai Vault Hub",
		Status: types.StatusActive,
	}).Error)

	assessment, err := service.AssessTransaction("CPT_1", "COR_1", "HUB_1", 5_000_000, time.Now())
	require.NoError(t, err)

	assert.GreaterOrEqual(t, assessment.Result.Score, 1)
	assert.LessOrEqual(t, assessment.Result.Score, 10)
	assert.False(t, assessment.Blocked)
	assert.NotEmpty(t, assessment.ApprovalTier)

	_, err = service.AssessTransaction("CPT_MISSING", "COR_1", "HUB_1", 5_000_000, time.Now())
	assert.Error(t, err)
}
