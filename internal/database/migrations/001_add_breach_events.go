package migrations

import (
	"github.com/bullionx/capital-api/internal/breach"
	"gorm.io/gorm"
)

// AddBreachEvents creates the breach event table and required indexes
func AddBreachEvents(db *gorm.DB) error {
	// Create the breach events table
	if err := db.AutoMigrate(&breach.BreachEvent{}); err != nil {
		return err
	}

	// Add indexes for better query performance
	// Using raw SQL for index creation to have more control over index types
	indexes := []string{
		// Index for the 60-minute lookback and history queries
		`CREATE INDEX IF NOT EXISTS idx_breach_events_occurred_at
		 ON breach_events(occurred_at)`,

		// Composite index for type-scoped window queries
		`CREATE INDEX IF NOT EXISTS idx_breach_events_type_occurred_at
		 ON breach_events(type, occurred_at)`,

		// Index for level filtering on dashboards
		`CREATE INDEX IF NOT EXISTS idx_breach_events_level
		 ON breach_events(level)`,
	}

	// Execute each index creation
	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
