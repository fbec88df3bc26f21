package db

import (
	"context"

	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
)

// InsertAttachment records a stored attachment file.
func InsertAttachment(ctx context.Context, q dbx.DBTX, a *diary.Attachment) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO attachments (id, diary_id, file_name, stored_name, size, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, a.ID, a.DiaryID, a.FileName, a.StoredName, a.Size, a.CreatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ListAttachments returns the attachments of an entry, oldest first.
func ListAttachments(ctx context.Context, q dbx.DBTX, diaryID string) ([]diary.Attachment, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT id, diary_id, file_name, stored_name, size, created_at
		FROM attachments WHERE diary_id = ?
		ORDER BY created_at ASC, id ASC
	`, diaryID)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	attachments := []diary.Attachment{}
	for rows.Next() {
		var a diary.Attachment
		if err := rows.Scan(&a.ID, &a.DiaryID, &a.FileName, &a.StoredName, &a.Size, &a.CreatedAt); err != nil {
			return nil, errors.NewInternal(err)
		}
		attachments = append(attachments, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return attachments, nil
}
