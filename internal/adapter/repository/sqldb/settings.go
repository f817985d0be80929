// Package sqldb stores device settings in a SQL database through sqlx.
// Queries are written with ? placeholders and rebound for the driver.
package sqldb

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"
)

type settingDB struct {
	Name  string `db:"name"`
	Value string `db:"value"`
}

type SettingsRepository struct {
	db *sqlx.DB
}

func NewSettingsRepository(db *sqlx.DB) *SettingsRepository {
	return &SettingsRepository{db: db}
}

// Load returns every setting of deviceID keyed by name.
func (r *SettingsRepository) Load(ctx context.Context, deviceID string) (map[string]string, error) {
	const op = "adapter.repository.sqldb.SettingsRepository.Load"
	query := r.db.Rebind(`SELECT name, value FROM settings WHERE device_id = ?`)

	var rows []settingDB

	if err := r.db.SelectContext(ctx, &rows, query, deviceID); err != nil {
		return nil, fmt.Errorf("%s: failed to select from settings table: %w", op, err)
	}

	settings := make(map[string]string, len(rows))
	for _, row := range rows {
		settings[row.Name] = row.Value
	}

	return settings, nil
}

// Save inserts or replaces one setting.
func (r *SettingsRepository) Save(ctx context.Context, deviceID, name, value string) error {
	const op = "adapter.repository.sqldb.SettingsRepository.Save"
	query := r.db.Rebind(`INSERT INTO settings(device_id, name, value, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT (device_id, name) DO UPDATE
		SET value = excluded.value, updated_at = excluded.updated_at`)

	if _, err := r.db.ExecContext(ctx, query, deviceID, name, value); err != nil {
		return fmt.Errorf("%s: failed to upsert into settings table: %w", op, err)
	}

	return nil
}

// Delete removes one setting. Removing a missing setting is not an error.
func (r *SettingsRepository) Delete(ctx context.Context, deviceID, name string) error {
	const op = "adapter.repository.sqldb.SettingsRepository.Delete"
	query := r.db.Rebind(`DELETE FROM settings WHERE device_id = ? AND name = ?`)

	if _, err := r.db.ExecContext(ctx, query, deviceID, name); err != nil {
		return fmt.Errorf("%s: failed to delete from settings table: %w", op, err)
	}

	return nil
}
