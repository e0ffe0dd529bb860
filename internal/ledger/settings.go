package ledger

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// Setting returns the stored value for key.
func (s *Store) Setting(ctx context.Context, key string) (string, bool, error) {
	ctx = ensureContext(ctx)
	var value string
	err := s.db.QueryRowContext(ctx, "SELECT value FROM kiosk_settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read setting %s: %w", key, err)
	}
	return value, true, nil
}

// Settings returns the stored values for the requested keys. Missing keys are absent from the map.
func (s *Store) Settings(ctx context.Context, keys ...string) (map[string]string, error) {
	ctx = ensureContext(ctx)
	out := make(map[string]string, len(keys))
	if len(keys) == 0 {
		return out, nil
	}
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}
	rows, err := s.db.QueryContext(ctx,
		"SELECT key, value FROM kiosk_settings WHERE key IN ("+makePlaceholders(len(keys))+")", args...)
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var k, v string
		if err := rows.Scan(&k, &v); err != nil {
			return nil, fmt.Errorf("scan setting: %w", err)
		}
		out[k] = v
	}
	return out, rows.Err()
}

// SetSettings upserts values and, when audit is non-nil, appends it in the same transaction.
func (s *Store) SetSettings(ctx context.Context, values map[string]string, ts float64, audit *Event) error {
	if audit != nil {
		if err := validateEvent(*audit); err != nil {
			return err
		}
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for k, v := range values {
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO kiosk_settings (key, value, updated_at) VALUES (?, ?, ?)
				 ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
				k, v, ts,
			); err != nil {
				return fmt.Errorf("write setting %s: %w", k, err)
			}
		}
		if audit != nil {
			if _, err := insertEvent(ctx, tx, *audit); err != nil {
				return err
			}
		}
		return nil
	})
}

// DeleteSettings removes keys and, when audit is non-nil, appends it in the same transaction.
func (s *Store) DeleteSettings(ctx context.Context, keys []string, audit *Event) error {
	if audit != nil {
		if err := validateEvent(*audit); err != nil {
			return err
		}
	}
	return s.withWriteTx(ctx, func(tx *sql.Tx) error {
		for _, k := range keys {
			if _, err := tx.ExecContext(ctx, "DELETE FROM kiosk_settings WHERE key = ?", k); err != nil {
				return fmt.Errorf("delete setting %s: %w", k, err)
			}
		}
		if audit != nil {
			if _, err := insertEvent(ctx, tx, *audit); err != nil {
				return err
			}
		}
		return nil
	})
}
