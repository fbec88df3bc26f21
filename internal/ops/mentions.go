package ops

import (
	"context"
	"database/sql"
	"strings"

	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
	"github.com/hpungsan/daybook/internal/mention"
)

// MentionStats returns how often each person archive is mentioned across all
// entries, highest first. People never mentioned are omitted.
func MentionStats(ctx context.Context, database *sql.DB) ([]mention.Stat, error) {
	matcher, err := personMatcher(ctx, database)
	if err != nil {
		return nil, err
	}
	return mention.ComputeStats(matcher, diaryTexts(ctx, database))
}

// MentionDetailsInput contains parameters for the MentionDetails operation.
type MentionDetailsInput struct {
	Name   string // person name, or an alias owned by a single person
	Limit  int    // default: 20, max: 200
	Offset int
}

// MentionDetailsOutput contains the result of the MentionDetails operation.
type MentionDetailsOutput struct {
	*mention.Details
	Pagination Pagination `json:"pagination"`
}

// MentionDetails lists the entries mentioning one person, newest first. The
// full result is computed once and kept in cache until the next mutation;
// later pages are sliced from it. An unknown name yields an empty result.
func MentionDetails(ctx context.Context, database *sql.DB, cache *mention.Cache, input MentionDetailsInput) (*MentionDetailsOutput, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, errors.NewInvalidRequest("name is required")
	}
	limit, offset := clampPage(input.Limit, input.Offset, DefaultMentionPage, MaxMentionPage)

	details, ok := cache.Get(name)
	if !ok {
		matcher, err := personMatcher(ctx, database)
		if err != nil {
			return nil, err
		}
		idx, found := matcher.Find(name)
		if !found {
			return &MentionDetailsOutput{
				Details: &mention.Details{
					Name:     name,
					Keywords: []string{},
					Entries:  []mention.EntryMention{},
				},
				Pagination: newPagination(limit, offset, 0, 0),
			}, nil
		}

		details, err = mention.ComputeDetails(matcher, idx, diaryTexts(ctx, database))
		if err != nil {
			return nil, err
		}
		cache.Add(details.Name, details)
		if !strings.EqualFold(details.Name, name) {
			cache.Add(name, details)
		}
	}

	page := details.Page(limit, offset)
	return &MentionDetailsOutput{
		Details:    page,
		Pagination: newPagination(limit, offset, len(page.Entries), page.Total),
	}, nil
}

func personMatcher(ctx context.Context, database *sql.DB) (*mention.Matcher, error) {
	people, err := db.ListArchives(ctx, database, diary.ArchivePerson)
	if err != nil {
		return nil, err
	}
	return mention.NewMatcher(people), nil
}

func diaryTexts(ctx context.Context, database *sql.DB) mention.Source {
	return func(fn func(mention.Text) error) error {
		return db.ForEachDiaryText(ctx, database, func(t db.DiaryText) error {
			return fn(mention.Text{
				ID:           t.ID,
				Title:        t.Title,
				PlainContent: t.PlainContent,
				Mood:         t.Mood,
				CreatedAt:    t.CreatedAt,
			})
		})
	}
}
