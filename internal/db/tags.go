package db

import (
	"context"

	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
)

// ReplaceDiaryTags drops every tag link of an entry and links the given names,
// creating missing tags. Tag cardinality per entry is small, so no diffing.
func ReplaceDiaryTags(ctx context.Context, q dbx.DBTX, diaryID string, tags []string) error {
	if _, err := q.ExecContext(ctx, `DELETE FROM diary_tags WHERE diary_id = ?`, diaryID); err != nil {
		return errors.NewInternal(err)
	}
	for _, name := range tags {
		if _, err := q.ExecContext(ctx, `INSERT INTO tags (name) VALUES (?) ON CONFLICT(name) DO NOTHING`, name); err != nil {
			return errors.NewInternal(err)
		}
		if _, err := q.ExecContext(ctx, `
			INSERT OR IGNORE INTO diary_tags (diary_id, tag_id)
			SELECT ?, id FROM tags WHERE name = ?
		`, diaryID, name); err != nil {
			return errors.NewInternal(err)
		}
	}
	return nil
}

// DiaryTags returns the tag names of one entry, sorted by name.
func DiaryTags(ctx context.Context, q dbx.DBTX, diaryID string) ([]string, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.name FROM diary_tags dt
		JOIN tags t ON t.id = dt.tag_id
		WHERE dt.diary_id = ?
		ORDER BY t.name
	`, diaryID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	tags := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, errors.NewInternal(err)
		}
		tags = append(tags, name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return tags, nil
}

// TagsForDiaries returns tag names keyed by entry id for a batch of entries.
func TagsForDiaries(ctx context.Context, q dbx.DBTX, ids []string) (map[string][]string, error) {
	result := make(map[string][]string, len(ids))
	if len(ids) == 0 {
		return result, nil
	}

	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	rows, err := q.QueryContext(ctx, `
		SELECT dt.diary_id, t.name FROM diary_tags dt
		JOIN tags t ON t.id = dt.tag_id
		WHERE dt.diary_id IN (`+placeholders(len(ids))+`)
		ORDER BY t.name
	`, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, name string
		if err := rows.Scan(&id, &name); err != nil {
			return nil, errors.NewInternal(err)
		}
		result[id] = append(result[id], name)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return result, nil
}

// ListTags returns every tag with the number of entries carrying it, most used first.
// Tags no entry uses any more are kept and reported with a zero count.
func ListTags(ctx context.Context, q dbx.DBTX) ([]diary.Tag, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT t.id, t.name, COUNT(dt.diary_id) AS n
		FROM tags t
		LEFT JOIN diary_tags dt ON dt.tag_id = t.id
		GROUP BY t.id, t.name
		ORDER BY n DESC, t.name ASC
	`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	tags := []diary.Tag{}
	for rows.Next() {
		var t diary.Tag
		if err := rows.Scan(&t.ID, &t.Name, &t.Count); err != nil {
			return nil, errors.NewInternal(err)
		}
		tags = append(tags, t)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return tags, nil
}
