package breach

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"
)

type Database struct {
	db *gorm.DB
}

func NewDatabase(db *gorm.DB) *Database {
	return &Database{db: db}
}

// AppendEvent inserts a breach event if its content-addressed ID is not
// already present. Returns whether a row was created. Concurrent sweeps
// computing the same ID converge without coordination: the loser's insert is
// treated as a no-op.
func (d *Database) AppendEvent(event *BreachEvent) (bool, error) {
	var existing BreachEvent
	err := d.db.Where("event_id = ?", event.EventID).First(&existing).Error
	if err == nil {
		return false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return false, fmt.Errorf("failed to check for existing event: %w", err)
	}

	if err := d.db.Create(event).Error; err != nil {
		// A concurrent sweep may have appended the same ID between the check
		// and the insert; the unique index makes that a no-op.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// GetEventsSince returns events that occurred at or after the cutoff, newest
// first.
func (d *Database) GetEventsSince(cutoff time.Time) ([]BreachEvent, error) {
	var events []BreachEvent
	if err := d.db.Where("occurred_at >= ?", cutoff).
		Order("occurred_at DESC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch breach events: %w", err)
	}
	return events, nil
}

// GetEventsByType returns events of one type within a window.
func (d *Database) GetEventsByType(eventType string, cutoff time.Time) ([]BreachEvent, error) {
	var events []BreachEvent
	if err := d.db.Where("type = ? AND occurred_at >= ?", eventType, cutoff).
		Order("occurred_at DESC").
		Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to fetch breach events by type: %w", err)
	}
	return events, nil
}
