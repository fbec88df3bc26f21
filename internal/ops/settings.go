package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
	"github.com/hpungsan/daybook/internal/images"
)

// GetSetting returns the setting stored under key, or nil.
func GetSetting(ctx context.Context, database *sql.DB, key string) (*diary.Setting, error) {
	return notFoundToNil(db.GetSetting(ctx, database, strings.TrimSpace(key)))
}

// ListSettings returns every setting sorted by key.
func ListSettings(ctx context.Context, database *sql.DB) ([]diary.Setting, error) {
	return db.ListSettings(ctx, database)
}

// SetSettingOutput contains the result of the SetSetting operation.
type SetSettingOutput struct {
	Setting  *diary.Setting `json:"setting"`
	Released []string       `json:"-"`
}

// SetSetting stores value under key. The avatar key is an image field: its
// old and new values are reference-counted like any other.
func SetSetting(ctx context.Context, database *sql.DB, key, value string) (*SetSettingOutput, error) {
	key = strings.TrimSpace(key)
	if key == "" {
		return nil, errors.NewInvalidRequest("key is required")
	}

	out := &SetSettingOutput{}
	err := dbx.WithTx(ctx, database, func(ctx context.Context, tx dbx.DBTX) error {
		if key == diary.SettingAvatar {
			previous, err := notFoundToNil(db.GetSetting(ctx, tx, key))
			if err != nil {
				return err
			}
			change := fieldChange{new: images.ExtractImageIDs(value)}
			if previous != nil {
				change.old = images.ExtractImageIDs(previous.Value)
			}
			released, err := syncFields(ctx, tx, change)
			if err != nil {
				return err
			}
			out.Released = released
		}

		if err := db.SetSetting(ctx, tx, key, value); err != nil {
			return err
		}
		setting, err := db.GetSetting(ctx, tx, key)
		if err != nil {
			return err
		}
		out.Setting = setting
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListTags returns every tag with its entry count, most used first.
func ListTags(ctx context.Context, database *sql.DB) ([]diary.Tag, error) {
	return db.ListTags(ctx, database)
}

// Stats returns row counts for the UI header.
func Stats(ctx context.Context, database *sql.DB) (*db.Stats, error) {
	return db.CountStats(ctx, database)
}
