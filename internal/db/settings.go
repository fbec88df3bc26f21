package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
)

// GetSetting returns one setting, NOT_FOUND if the key was never set.
func GetSetting(ctx context.Context, q dbx.DBTX, key string) (*diary.Setting, error) {
	s := diary.Setting{Key: key}
	err := q.QueryRowContext(ctx, `SELECT value, updated_at FROM settings WHERE key = ?`, key).Scan(&s.Value, &s.UpdatedAt)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("setting", key)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &s, nil
}

// SetSetting upserts a setting.
func SetSetting(ctx context.Context, q dbx.DBTX, key, value string) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO settings (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`, key, value, time.Now().UnixMilli())
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListSettings returns every setting sorted by key.
func ListSettings(ctx context.Context, q dbx.DBTX) ([]diary.Setting, error) {
	rows, err := q.QueryContext(ctx, `SELECT key, value, updated_at FROM settings ORDER BY key`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	settings := []diary.Setting{}
	for rows.Next() {
		var s diary.Setting
		if err := rows.Scan(&s.Key, &s.Value, &s.UpdatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		settings = append(settings, s)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return settings, nil
}
