package capital

import (
	"fmt"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// LoadActiveConfig returns the active stored configuration, falling back to
// the compiled-in defaults when no record can be loaded. Evaluation must never
// block on a configuration outage.
func (d *Database) LoadActiveConfig() RiskConfig {
	var record RiskConfigRecord
	if err := d.db.Where("active = ?", true).
		Order("version DESC").
		First(&record).Error; err != nil {
		log.Warn().
			Err(err).
			Str("service", "capital").
			Msg("risk configuration unavailable, using compiled-in defaults")
		return DefaultRiskConfig()
	}
	return record.Config()
}

// SaveConfig persists a new configuration version and deactivates prior ones
// in the same transaction.
func (d *Database) SaveConfig(cfg RiskConfig) error {
	return d.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&RiskConfigRecord{}).
			Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("failed to deactivate prior config: %w", err)
		}
		if err := tx.Create(RecordFromConfig(cfg, true)).Error; err != nil {
			return fmt.Errorf("failed to save config version %d: %w", cfg.Version, err)
		}
		return nil
	})
}
