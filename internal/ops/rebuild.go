package ops

import (
	"context"
	"database/sql"

	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/images"
)

// RebuildImageRefsOutput contains the result of the RebuildImageRefs operation.
type RebuildImageRefsOutput struct {
	// Counts is the recomputed reference count of every referenced image.
	Counts map[string]int `json:"counts"`

	// Released are ids that had a row but are no longer referenced.
	Released []string `json:"released"`
}

// RebuildImageRefs recomputes every reference count from the image fields
// currently stored (entry content, archive main image and image list, the
// avatar setting) and replaces the table in one transaction.
func RebuildImageRefs(ctx context.Context, database *sql.DB) (*RebuildImageRefsOutput, error) {
	out := &RebuildImageRefsOutput{Counts: map[string]int{}}
	count := func(ids []string) {
		for _, id := range ids {
			out.Counts[id]++
		}
	}

	err := dbx.WithTx(ctx, database, func(ctx context.Context, tx dbx.DBTX) error {
		err := db.ForEachDiaryContent(ctx, tx, func(_, content string) error {
			count(images.ExtractImageIDs(content))
			return nil
		})
		if err != nil {
			return err
		}

		archives, err := db.ListArchives(ctx, tx, "")
		if err != nil {
			return err
		}
		for _, a := range archives {
			count(images.ExtractImageIDs(a.MainImage))
			count(images.ExtractImageIDs(a.Images...))
		}

		avatar, err := notFoundToNil(db.GetSetting(ctx, tx, diary.SettingAvatar))
		if err != nil {
			return err
		}
		if avatar != nil {
			count(images.ExtractImageIDs(avatar.Value))
		}

		released, err := db.ReplaceImageRefs(ctx, tx, out.Counts)
		if err != nil {
			return err
		}
		out.Released = released
		return nil
	})
	if err != nil {
		return nil, err
	}
	if out.Released == nil {
		out.Released = []string{}
	}
	return out, nil
}
