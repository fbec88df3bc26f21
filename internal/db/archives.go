package db

import (
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"

	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
)

const archiveColumns = `id, name, aliases, description, type, main_image, images_json, created_at, updated_at`

// InsertArchive stores a new archive.
func InsertArchive(ctx context.Context, q dbx.DBTX, a *diary.Archive) error {
	imagesJSON, err := marshalImages(a.Images)
	if err != nil {
		return err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO archives (`+archiveColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, a.ID, a.Name, diary.JoinAliases(a.Aliases), a.Description, string(a.Type),
		a.MainImage, imagesJSON, a.CreatedAt, a.UpdatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// UpdateArchive replaces every mutable field of an archive.
func UpdateArchive(ctx context.Context, q dbx.DBTX, a *diary.Archive) error {
	imagesJSON, err := marshalImages(a.Images)
	if err != nil {
		return err
	}
	result, err := q.ExecContext(ctx, `
		UPDATE archives
		SET name = ?, aliases = ?, description = ?, type = ?, main_image = ?, images_json = ?, updated_at = ?
		WHERE id = ?
	`, a.Name, diary.JoinAliases(a.Aliases), a.Description, string(a.Type),
		a.MainImage, imagesJSON, a.UpdatedAt, a.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rows == 0 {
		return errors.NewNotFound("archive", a.ID)
	}
	return nil
}

// GetArchive retrieves an archive by id, NOT_FOUND if missing.
func GetArchive(ctx context.Context, q dbx.DBTX, id string) (*diary.Archive, error) {
	row := q.QueryRowContext(ctx, `SELECT `+archiveColumns+` FROM archives WHERE id = ?`, id)
	a, err := scanArchive(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("archive", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return a, nil
}

// ListArchives returns archives, most recently updated first. An empty
// archiveType returns every type.
func ListArchives(ctx context.Context, q dbx.DBTX, archiveType diary.ArchiveType) ([]diary.Archive, error) {
	query := `SELECT ` + archiveColumns + ` FROM archives`
	var args []any
	if archiveType != "" {
		query += ` WHERE type = ?`
		args = append(args, string(archiveType))
	}
	query += ` ORDER BY updated_at DESC, id DESC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	archives := []diary.Archive{}
	for rows.Next() {
		a, err := scanArchive(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		archives = append(archives, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return archives, nil
}

// DeleteArchive removes an archive. Returns false if the id did not exist.
func DeleteArchive(ctx context.Context, q dbx.DBTX, id string) (bool, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM archives WHERE id = ?`, id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return rows > 0, nil
}

func scanArchive(s scanner) (*diary.Archive, error) {
	var a diary.Archive
	var aliases, archiveType, imagesJSON string
	if err := s.Scan(&a.ID, &a.Name, &aliases, &a.Description, &archiveType,
		&a.MainImage, &imagesJSON, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	a.Aliases = diary.ParseAliases(aliases, a.Name)
	a.Type = diary.ArchiveType(archiveType)
	a.Images = []string{}
	if imagesJSON != "" {
		if err := json.Unmarshal([]byte(imagesJSON), &a.Images); err != nil {
			return nil, err
		}
	}
	return &a, nil
}

func marshalImages(images []string) (string, error) {
	if images == nil {
		images = []string{}
	}
	data, err := json.Marshal(images)
	if err != nil {
		return "", errors.NewInternal(err)
	}
	return string(data), nil
}
