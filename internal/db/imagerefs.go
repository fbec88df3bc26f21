package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"sort"
	"time"

	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/errors"
)

// DiffIDs returns the ids present only in newIDs (added) and only in oldIDs (removed).
func DiffIDs(oldIDs, newIDs []string) (added, removed []string) {
	oldSet := make(map[string]bool, len(oldIDs))
	for _, id := range oldIDs {
		oldSet[id] = true
	}
	newSet := make(map[string]bool, len(newIDs))
	for _, id := range newIDs {
		newSet[id] = true
	}

	for _, id := range newIDs {
		if !oldSet[id] {
			added = append(added, id)
			oldSet[id] = true // dedupe repeated ids in newIDs
		}
	}
	for _, id := range oldIDs {
		if !newSet[id] {
			removed = append(removed, id)
			newSet[id] = true
		}
	}
	return added, removed
}

// SyncImageRefs moves one field's references from oldIDs to newIDs inside the
// caller's transaction: added ids gain a reference, removed ids lose one, and
// ids whose count reaches zero have their row deleted and are returned as
// released. The caller deletes the released files after commit.
func SyncImageRefs(ctx context.Context, q dbx.DBTX, oldIDs, newIDs []string) ([]string, error) {
	added, removed := DiffIDs(oldIDs, newIDs)
	now := time.Now().UnixMilli()

	for _, id := range added {
		if _, err := q.ExecContext(ctx, `
			INSERT INTO image_refs (image_id, ref_count, updated_at) VALUES (?, 1, ?)
			ON CONFLICT(image_id) DO UPDATE SET ref_count = ref_count + 1, updated_at = excluded.updated_at
		`, id, now); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	var released []string
	for _, id := range removed {
		var count int
		err := q.QueryRowContext(ctx, `SELECT ref_count FROM image_refs WHERE image_id = ?`, id).Scan(&count)
		if stderrors.Is(err, sql.ErrNoRows) {
			// No row means no field holds it.
			released = append(released, id)
			continue
		}
		if err != nil {
			return nil, errors.NewInternal(err)
		}

		if count <= 1 {
			if _, err := q.ExecContext(ctx, `DELETE FROM image_refs WHERE image_id = ?`, id); err != nil {
				return nil, errors.NewInternal(err)
			}
			released = append(released, id)
			continue
		}
		if _, err := q.ExecContext(ctx, `
			UPDATE image_refs SET ref_count = ref_count - 1, updated_at = ? WHERE image_id = ?
		`, now, id); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	return released, nil
}

// SyncImageRefsTx runs SyncImageRefs in its own transaction. It opens no
// transaction when there is nothing to change.
func SyncImageRefsTx(ctx context.Context, db *sql.DB, oldIDs, newIDs []string) ([]string, error) {
	added, removed := DiffIDs(oldIDs, newIDs)
	if len(added) == 0 && len(removed) == 0 {
		return nil, nil
	}

	var released []string
	err := dbx.WithTx(ctx, db, func(ctx context.Context, tx dbx.DBTX) error {
		var err error
		released, err = SyncImageRefs(ctx, tx, oldIDs, newIDs)
		return err
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

// GetRefCount returns the reference count of an image id, 0 if it has no row.
func GetRefCount(ctx context.Context, q dbx.DBTX, id string) (int, error) {
	var count int
	err := q.QueryRowContext(ctx, `SELECT ref_count FROM image_refs WHERE image_id = ?`, id).Scan(&count)
	if stderrors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, errors.NewInternal(err)
	}
	return count, nil
}

// ListImageRefs returns every counted image id with its count.
func ListImageRefs(ctx context.Context, q dbx.DBTX) (map[string]int, error) {
	rows, err := q.QueryContext(ctx, `SELECT image_id, ref_count FROM image_refs`)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	refs := make(map[string]int)
	for rows.Next() {
		var id string
		var count int
		if err := rows.Scan(&id, &count); err != nil {
			return nil, errors.NewInternal(err)
		}
		refs[id] = count
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return refs, nil
}

// ReplaceImageRefs overwrites the whole table with counts and returns the ids
// that had a row before and have none now, sorted.
func ReplaceImageRefs(ctx context.Context, q dbx.DBTX, counts map[string]int) ([]string, error) {
	existing, err := ListImageRefs(ctx, q)
	if err != nil {
		return nil, err
	}

	if _, err := q.ExecContext(ctx, `DELETE FROM image_refs`); err != nil {
		return nil, errors.NewInternal(err)
	}
	now := time.Now().UnixMilli()
	for id, count := range counts {
		if count <= 0 {
			continue
		}
		if _, err := q.ExecContext(ctx, `
			INSERT INTO image_refs (image_id, ref_count, updated_at) VALUES (?, ?, ?)
		`, id, count, now); err != nil {
			return nil, errors.NewInternal(err)
		}
	}

	var released []string
	for id := range existing {
		if counts[id] <= 0 {
			released = append(released, id)
		}
	}
	sort.Strings(released)
	return released, nil
}
