package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// Settings keys.
const (
	SettingSiteTitle           = "site_title"
	SettingOwnerPin            = "owner_pin"
	SettingSubscriptionExpires = "subscription_expires"
)

// GetSetting returns the value for a settings key.
func (db *DB) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	query := `SELECT value FROM settings WHERE key = ?`
	err := db.GetContext(ctx, &value, query, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting %s: %w", key, err)
	}
	return value, nil
}

// SetSetting upserts a settings key.
func (db *DB) SetSetting(ctx context.Context, key, value string) error {
	query := `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := db.ExecContext(ctx, query, key, value, time.Now()); err != nil {
		return fmt.Errorf("failed to set setting %s: %w", key, err)
	}
	return nil
}

// SeedDefaultSettings inserts defaults for keys that do not exist yet.
// Existing values are left untouched.
func (db *DB) SeedDefaultSettings(ctx context.Context, defaults map[string]string) error {
	query := `INSERT OR IGNORE INTO settings (key, value) VALUES (?, ?)`
	for key, value := range defaults {
		if _, err := db.ExecContext(ctx, query, key, value); err != nil {
			return fmt.Errorf("failed to seed setting %s: %w", key, err)
		}
	}
	return nil
}

// SubscriptionActive reports whether the configured subscription date has
// not passed yet. The value is a YYYY-MM-DD date and stays active through
// the end of that day. A missing or unparseable value counts as expired.
func (db *DB) SubscriptionActive(ctx context.Context) (bool, error) {
	value, err := db.GetSetting(ctx, SettingSubscriptionExpires)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	expiry, err := time.Parse("2006-01-02", value)
	if err != nil {
		return false, nil
	}
	endOfDay := time.Date(expiry.Year(), expiry.Month(), expiry.Day(), 23, 59, 59, 0, time.Local)
	return !time.Now().After(endOfDay), nil
}
