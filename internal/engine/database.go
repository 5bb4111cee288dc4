package engine

import (
	"fmt"

	"github.com/bullionx/capital-api/internal/capital"
	"github.com/bullionx/capital-api/internal/types"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// LoadExposureInputs gathers the aggregate state the snapshot calculator
// consumes: capital figures plus the reservation, order, inventory and
// settlement collections maintained by the marketplace collaborators.
func (d *Database) LoadExposureInputs() (capital.ExposureInputs, error) {
	var in capital.ExposureInputs

	var account types.CapitalAccount
	if err := d.db.Order("updated_at DESC").First(&account).Error; err != nil {
		return in, fmt.Errorf("failed to fetch capital account: %w", err)
	}
	in.CapitalBase = account.CapitalBase
	in.HardstopLimit = account.HardstopLimit
	in.TVaR99 = account.TVaR99

	if err := d.db.Where("state IN ?", []string{types.ReservationActive, types.ReservationConverted}).
		Find(&in.Reservations).Error; err != nil {
		return in, fmt.Errorf("failed to fetch reservations: %w", err)
	}

	if err := d.db.Where("status NOT IN ?", []string{types.OrderCancelled, types.OrderFailed}).
		Find(&in.Orders).Error; err != nil {
		return in, fmt.Errorf("failed to fetch orders: %w", err)
	}

	if err := d.db.Find(&in.Inventory).Error; err != nil {
		return in, fmt.Errorf("failed to fetch inventory positions: %w", err)
	}

	if err := d.db.Find(&in.SettlementCases).Error; err != nil {
		return in, fmt.Errorf("failed to fetch settlement cases: %w", err)
	}

	return in, nil
}

func (d *Database) GetCounterparty(counterpartyID string) (*types.Counterparty, error) {
	var cp types.Counterparty
	if err := d.db.Where("counterparty_id = ?", counterpartyID).First(&cp).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch counterparty: %w", err)
	}
	return &cp, nil
}

func (d *Database) GetCorridor(corridorID string) (*types.Corridor, error) {
	var corridor types.Corridor
	if err := d.db.Where("corridor_id = ?", corridorID).First(&corridor).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch corridor: %w", err)
	}
	return &corridor, nil
}

func (d *Database) GetHub(hubID string) (*types.Hub, error) {
	var hub types.Hub
	if err := d.db.Where("hub_id = ?", hubID).First(&hub).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch hub: %w", err)
	}
	return &hub, nil
}
