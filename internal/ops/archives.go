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

// SaveArchiveInput contains parameters for the SaveArchive operation.
type SaveArchiveInput struct {
	ID          string // optional; an unknown id creates a new archive
	Name        string // required
	Aliases     []string
	Description string
	Type        string // person (default), object or other
	MainImage   string
	Images      []string
}

// SaveArchiveOutput contains the result of the SaveArchive operation.
type SaveArchiveOutput struct {
	Archive *diary.Archive `json:"archive"`
	Created bool           `json:"created"`

	Released []string `json:"-"`
}

// SaveArchive creates or updates an archive. The main image and the image
// list are reference-counted as two separate fields.
func SaveArchive(ctx context.Context, database *sql.DB, input SaveArchiveInput) (*SaveArchiveOutput, error) {
	name := diary.CleanName(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	archiveType, err := diary.ParseArchiveType(input.Type)
	if err != nil {
		return nil, err
	}

	gallery := make([]string, 0, len(input.Images))
	for _, img := range input.Images {
		if img = strings.TrimSpace(img); img != "" {
			gallery = append(gallery, img)
		}
	}

	a := &diary.Archive{
		ID:          strings.TrimSpace(input.ID),
		Name:        name,
		Aliases:     diary.CleanAliases(input.Aliases, name),
		Description: strings.TrimSpace(input.Description),
		Type:        archiveType,
		MainImage:   strings.TrimSpace(input.MainImage),
		Images:      gallery,
		UpdatedAt:   nowMillis(),
	}
	out := &SaveArchiveOutput{Archive: a}

	err = dbx.WithTx(ctx, database, func(ctx context.Context, tx dbx.DBTX) error {
		var previous *diary.Archive
		if a.ID != "" {
			existing, err := notFoundToNil(db.GetArchive(ctx, tx, a.ID))
			if err != nil {
				return err
			}
			previous = existing
		}

		main := fieldChange{new: images.ExtractImageIDs(a.MainImage)}
		list := fieldChange{new: images.ExtractImageIDs(a.Images...)}
		if previous != nil {
			a.CreatedAt = previous.CreatedAt
			main.old = images.ExtractImageIDs(previous.MainImage)
			list.old = images.ExtractImageIDs(previous.Images...)
			if err := db.UpdateArchive(ctx, tx, a); err != nil {
				return err
			}
		} else {
			id, err := generateULID()
			if err != nil {
				return errors.NewInternal(err)
			}
			a.ID = id
			a.CreatedAt = a.UpdatedAt
			if err := db.InsertArchive(ctx, tx, a); err != nil {
				return err
			}
			out.Created = true
		}

		released, err := syncFields(ctx, tx, main, list)
		if err != nil {
			return err
		}
		out.Released = released
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetArchive returns the archive with id, or nil if there is none.
func GetArchive(ctx context.Context, database *sql.DB, id string) (*diary.Archive, error) {
	return notFoundToNil(db.GetArchive(ctx, database, id))
}

// ListArchives returns archives of one type, or all when archiveType is empty.
func ListArchives(ctx context.Context, database *sql.DB, archiveType string) ([]diary.Archive, error) {
	var t diary.ArchiveType
	if strings.TrimSpace(archiveType) != "" {
		parsed, err := diary.ParseArchiveType(archiveType)
		if err != nil {
			return nil, err
		}
		t = parsed
	}
	return db.ListArchives(ctx, database, t)
}

// DeleteArchiveOutput contains the result of the DeleteArchive operation.
type DeleteArchiveOutput struct {
	Deleted  bool     `json:"deleted"`
	Released []string `json:"-"`
}

// DeleteArchive removes an archive and releases its images. Deleting a
// missing id is a no-op.
func DeleteArchive(ctx context.Context, database *sql.DB, id string) (*DeleteArchiveOutput, error) {
	out := &DeleteArchiveOutput{}
	err := dbx.WithTx(ctx, database, func(ctx context.Context, tx dbx.DBTX) error {
		existing, err := notFoundToNil(db.GetArchive(ctx, tx, id))
		if err != nil || existing == nil {
			return err
		}
		if _, err := db.DeleteArchive(ctx, tx, id); err != nil {
			return err
		}
		released, err := syncFields(ctx, tx,
			fieldChange{old: images.ExtractImageIDs(existing.MainImage)},
			fieldChange{old: images.ExtractImageIDs(existing.Images...)},
		)
		if err != nil {
			return err
		}
		out.Deleted = true
		out.Released = released
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
