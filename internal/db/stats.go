package db

import (
	"context"

	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/errors"
)

// Stats are row counts for the UI header.
type Stats struct {
	Entries  int `json:"entries"`
	Archives int `json:"archives"`
	Tags     int `json:"tags"`
	Images   int `json:"images"`
}

// CountStats counts entries, archives, tags and referenced images in one query.
func CountStats(ctx context.Context, q dbx.DBTX) (*Stats, error) {
	var s Stats
	err := q.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM diaries),
			(SELECT COUNT(*) FROM archives),
			(SELECT COUNT(*) FROM tags),
			(SELECT COUNT(*) FROM image_refs)
	`).Scan(&s.Entries, &s.Archives, &s.Tags, &s.Images)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return &s, nil
}
