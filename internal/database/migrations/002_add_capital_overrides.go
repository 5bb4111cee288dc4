package migrations

import (
	"github.com/bullionx/capital-api/internal/override"
	"gorm.io/gorm"
)

// AddCapitalOverrides creates the capital override table and required indexes
func AddCapitalOverrides(db *gorm.DB) error {
	if err := db.AutoMigrate(&override.CapitalOverride{}); err != nil {
		return err
	}

	indexes := []string{
		// Composite index for the active-override lookup on every evaluation
		`CREATE INDEX IF NOT EXISTS idx_capital_overrides_status_expires_at
		 ON capital_overrides(status, expires_at)`,

		// Index for scope filtering
		`CREATE INDEX IF NOT EXISTS idx_capital_overrides_scope
		 ON capital_overrides(scope)`,

		// Index for actor audit queries
		`CREATE INDEX IF NOT EXISTS idx_capital_overrides_actor_user_id
		 ON capital_overrides(actor_user_id)`,
	}

	for _, idx := range indexes {
		if err := db.Exec(idx).Error; err != nil {
			return err
		}
	}

	return nil
}
