package database

import (
	"fmt"
	"os"

	"github.com/bullionx/capital-api/internal/audit"
	"github.com/bullionx/capital-api/internal/capital"
	"github.com/bullionx/capital-api/internal/database/migrations"
	"github.com/bullionx/capital-api/internal/types"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// NewDatabase initializes and returns a new GORM DB connection
func NewDatabase() (*gorm.DB, error) {
	path := os.Getenv("DATABASE_PATH")
	if path == "" {
		path = "capital.db"
	}

	// TranslateError maps driver unique-constraint failures onto
	// gorm.ErrDuplicatedKey, which the breach and audit appenders treat as a
	// no-op.
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	// Run migrations
	if err := migrations.AddBreachEvents(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := migrations.AddCapitalOverrides(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	// Auto-migrate other schemas
	err = db.AutoMigrate(
		&types.Reservation{},
		&types.Order{},
		&types.InventoryPosition{},
		&types.SettlementCase{},
		&types.CapitalAccount{},
		&types.Counterparty{},
		&types.Corridor{},
		&types.Hub{},
		&capital.RiskConfigRecord{},
		&audit.Event{},
	)
	if err != nil {
		return nil, err
	}

	return db, nil
}
