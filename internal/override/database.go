package override

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

var ErrNotActive = errors.New("override is not active")

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

func (d *Database) CreateOverride(override *CapitalOverride) error {
	return d.db.Create(override).Error
}

func (d *Database) GetOverride(overrideID string) (*CapitalOverride, error) {
	var override CapitalOverride
	if err := d.db.Where("override_id = ?", overrideID).First(&override).Error; err != nil {
		return nil, err
	}
	return &override, nil
}

// GetActiveOverrides returns overrides that are stored ACTIVE and not yet
// past expiry. The expiry comparison happens in the query so a stale stored
// status cannot leak a lapsed grant.
func (d *Database) GetActiveOverrides(now time.Time) ([]CapitalOverride, error) {
	var overrides []CapitalOverride
	if err := d.db.Where("status = ? AND expires_at > ?", StatusActive, now).
		Order("created_at DESC").
		Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch active overrides: %w", err)
	}
	return overrides, nil
}

func (d *Database) ListOverrides(limit int) ([]CapitalOverride, error) {
	var overrides []CapitalOverride
	if err := d.db.Order("created_at DESC").
		Limit(limit).
		Find(&overrides).Error; err != nil {
		return nil, fmt.Errorf("failed to list overrides: %w", err)
	}
	return overrides, nil
}

// RevokeOverride flips an ACTIVE override to REVOKED. The status guard in the
// WHERE clause makes the transition a compare-and-swap: a concurrent revoke
// or expiry sweep loses with ErrNotActive instead of double-transitioning.
func (d *Database) RevokeOverride(overrideID string, now time.Time) error {
	result := d.db.Model(&CapitalOverride{}).
		Where("override_id = ? AND status = ?", overrideID, StatusActive).
		Updates(map[string]interface{}{
			"status":     StatusRevoked,
			"revoked_at": now,
			"updated_at": now,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrNotActive
	}
	return nil
}

// ExpireStale flips ACTIVE overrides whose expiry has passed to EXPIRED,
// returning the number transitioned. Uses the same guarded update as
// revocation so it cannot race a revoke.
func (d *Database) ExpireStale(now time.Time) (int64, error) {
	result := d.db.Model(&CapitalOverride{}).
		Where("status = ? AND expires_at <= ?", StatusActive, now).
		Updates(map[string]interface{}{
			"status":     StatusExpired,
			"updated_at": now,
		})

	if result.Error != nil {
		return 0, result.Error
	}
	return result.RowsAffected, nil
}
