package ops

import (
	"context"
	"database/sql"
	"sort"
	"strings"
	"time"

	"github.com/hpungsan/daybook/internal/content"
	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
	"github.com/hpungsan/daybook/internal/images"
	"github.com/hpungsan/daybook/internal/search"
)

// SaveDiaryInput contains parameters for the SaveDiary operation.
type SaveDiaryInput struct {
	ID        string // optional; an unknown id creates a new entry with a fresh id
	Title     string
	Content   string // rich markup, sanitized before storage
	Mood      string // default: neutral
	Tags      []string
	Weather   *string
	CreatedAt int64 // optional, used only when creating; default: now
}

// SaveDiaryOutput contains the result of the SaveDiary operation.
type SaveDiaryOutput struct {
	Entry   *diary.Entry `json:"entry"`
	Created bool         `json:"created"`

	// Released are image ids no longer referenced anywhere.
	Released []string `json:"-"`
}

// SaveDiary creates or updates an entry. Content is sanitized, the plain-text
// mirror recomputed, tags replaced and image references moved from the old
// content to the new one, all in one transaction.
func SaveDiary(ctx context.Context, database *sql.DB, input SaveDiaryInput) (*SaveDiaryOutput, error) {
	mood, err := diary.ParseMood(input.Mood)
	if err != nil {
		return nil, err
	}
	title := strings.TrimSpace(input.Title)
	sanitized, plain := content.Prepare(input.Content)
	if title == "" && plain == "" && len(images.ExtractImageIDs(sanitized)) == 0 {
		return nil, errors.NewInvalidRequest("title or content is required")
	}

	entry := &diary.Entry{
		ID:           strings.TrimSpace(input.ID),
		Title:        title,
		Content:      sanitized,
		PlainContent: plain,
		Mood:         mood,
		Tags:         diary.NormalizeTags(input.Tags),
		Weather:      cleanOptionalString(input.Weather),
		UpdatedAt:    nowMillis(),
	}
	out := &SaveDiaryOutput{Entry: entry}

	err = dbx.WithTx(ctx, database, func(ctx context.Context, tx dbx.DBTX) error {
		var previous *diary.Entry
		if entry.ID != "" {
			existing, err := notFoundToNil(db.GetDiary(ctx, tx, entry.ID))
			if err != nil {
				return err
			}
			previous = existing
		}

		oldIDs := []string{}
		if previous != nil {
			entry.CreatedAt = previous.CreatedAt
			oldIDs = images.ExtractImageIDs(previous.Content)
			if err := db.UpdateDiary(ctx, tx, entry); err != nil {
				return err
			}
		} else {
			id, err := generateULID()
			if err != nil {
				return errors.NewInternal(err)
			}
			entry.ID = id
			entry.CreatedAt = input.CreatedAt
			if entry.CreatedAt <= 0 {
				entry.CreatedAt = entry.UpdatedAt
			}
			if err := db.InsertDiary(ctx, tx, entry); err != nil {
				return err
			}
			out.Created = true
		}

		if err := db.ReplaceDiaryTags(ctx, tx, entry.ID, entry.Tags); err != nil {
			return err
		}

		released, err := syncFields(ctx, tx, fieldChange{old: oldIDs, new: images.ExtractImageIDs(entry.Content)})
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

// DeleteDiaryOutput contains the result of the DeleteDiary operation.
type DeleteDiaryOutput struct {
	Deleted bool `json:"deleted"`

	Released []string `json:"-"`

	// Attachments are the stored file names to remove from the attachments directory.
	Attachments []string `json:"-"`
}

// DeleteDiary removes an entry with its tag links and attachments and
// releases its image references. Deleting a missing id is a no-op.
func DeleteDiary(ctx context.Context, database *sql.DB, id string) (*DeleteDiaryOutput, error) {
	out := &DeleteDiaryOutput{}
	err := dbx.WithTx(ctx, database, func(ctx context.Context, tx dbx.DBTX) error {
		existing, err := notFoundToNil(db.GetDiary(ctx, tx, id))
		if err != nil || existing == nil {
			return err
		}

		attachments, err := db.ListAttachments(ctx, tx, id)
		if err != nil {
			return err
		}
		if _, err := db.DeleteDiary(ctx, tx, id); err != nil {
			return err
		}
		released, err := syncFields(ctx, tx, fieldChange{old: images.ExtractImageIDs(existing.Content)})
		if err != nil {
			return err
		}

		out.Deleted = true
		out.Released = released
		for _, a := range attachments {
			out.Attachments = append(out.Attachments, a.StoredName)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetDiary returns the entry with id, or nil if there is none.
func GetDiary(ctx context.Context, database *sql.DB, id string) (*diary.Entry, error) {
	return notFoundToNil(db.GetDiary(ctx, database, id))
}

// ListDiariesInput contains parameters for the ListDiaries operation.
type ListDiariesInput struct {
	Limit       int // default: 20, max: 100
	Offset      int
	Lightweight bool // content holds the plain-text mirror instead of markup
}

// ListDiariesOutput contains the result of the ListDiaries operation.
type ListDiariesOutput struct {
	Items      []diary.Entry `json:"items"`
	Pagination Pagination    `json:"pagination"`
}

// ListDiaries returns entries newest first with pagination.
func ListDiaries(ctx context.Context, database *sql.DB, input ListDiariesInput) (*ListDiariesOutput, error) {
	limit, offset := clampPage(input.Limit, input.Offset, DefaultListLimit, MaxListLimit)

	entries, total, err := db.ListDiaries(ctx, database, limit, offset, input.Lightweight)
	if err != nil {
		return nil, err
	}
	if entries == nil {
		entries = []diary.Entry{}
	}

	return &ListDiariesOutput{
		Items:      entries,
		Pagination: newPagination(limit, offset, len(entries), total),
	}, nil
}

// DiaryByDate returns the newest entry created on the local calendar day
// (YYYY-MM-DD), or nil if that day has none.
func DiaryByDate(ctx context.Context, database *sql.DB, day string, loc *time.Location) (*diary.Entry, error) {
	from, to, err := search.DayBounds(strings.TrimSpace(day), locOrLocal(loc))
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	return notFoundToNil(db.LatestDiaryBetween(ctx, database, from, to))
}

// DiaryDates returns the distinct local dates (YYYY-MM-DD) in a month
// (YYYY-MM) that have at least one entry, ascending.
func DiaryDates(ctx context.Context, database *sql.DB, month string, loc *time.Location) ([]string, error) {
	loc = locOrLocal(loc)
	from, to, err := search.MonthBounds(strings.TrimSpace(month), loc)
	if err != nil {
		return nil, errors.NewInvalidRequest(err.Error())
	}
	times, err := db.DiaryTimesBetween(ctx, database, from, to)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	dates := []string{}
	for _, ts := range times {
		day := search.LocalDay(ts, loc)
		if !seen[day] {
			seen[day] = true
			dates = append(dates, day)
		}
	}
	sort.Strings(dates)
	return dates, nil
}

func locOrLocal(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
