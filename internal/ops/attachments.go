package ops

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
)

// MaxAttachmentNameChars bounds the original file name kept for display.
const MaxAttachmentNameChars = 255

// AddAttachmentInput contains parameters for the AddAttachment operation.
type AddAttachmentInput struct {
	DiaryID  string // required, must exist
	FileName string // required, only the base name is kept
	Data     []byte
}

// AddAttachment stores a file under dir and links it to an entry. The stored
// name is a fresh ULID keeping the original extension.
func AddAttachment(ctx context.Context, database *sql.DB, dir string, input AddAttachmentInput) (*diary.Attachment, error) {
	diaryID := strings.TrimSpace(input.DiaryID)
	if diaryID == "" {
		return nil, errors.NewInvalidRequest("diary_id is required")
	}
	fileName := filepath.Base(strings.TrimSpace(input.FileName))
	if fileName == "" || fileName == "." || fileName == string(filepath.Separator) {
		return nil, errors.NewInvalidRequest("file_name is required")
	}
	if len([]rune(fileName)) > MaxAttachmentNameChars {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("file_name exceeds %d characters", MaxAttachmentNameChars))
	}

	entry, err := GetDiary(ctx, database, diaryID)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, errors.NewNotFound("diary", diaryID)
	}

	id, err := generateULID()
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	a := &diary.Attachment{
		ID:         id,
		DiaryID:    diaryID,
		FileName:   fileName,
		StoredName: id + safeExt(fileName),
		Size:       int64(len(input.Data)),
		CreatedAt:  nowMillis(),
	}

	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, errors.NewInternal(err)
	}
	path := filepath.Join(dir, a.StoredName)
	if err := os.WriteFile(path, input.Data, 0600); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to write attachment: %w", err))
	}
	if err := db.InsertAttachment(ctx, database, a); err != nil {
		os.Remove(path)
		return nil, err
	}
	return a, nil
}

// ListAttachments returns the attachments of an entry, oldest first.
func ListAttachments(ctx context.Context, database *sql.DB, diaryID string) ([]diary.Attachment, error) {
	return db.ListAttachments(ctx, database, strings.TrimSpace(diaryID))
}

// safeExt returns the lowercased extension of name when it is short and
// alphanumeric, else "".
func safeExt(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if len(ext) < 2 || len(ext) > 10 {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
