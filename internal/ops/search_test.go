package ops

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daybook/internal/errors"
)

func entryIDs(out *SearchOutput) map[string]bool {
	ids := make(map[string]bool)
	for _, e := range out.Entries {
		ids[e.Title] = true
	}
	return ids
}

func TestSearch_AliasExpansion(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	_, err := SaveArchive(ctx, database, SaveArchiveInput{Name: "Bob", Aliases: []string{"Bobby"}})
	require.NoError(t, err)
	for _, in := range []SaveDiaryInput{
		{Title: "one", Content: "<p>Lunch with Bob</p>"},
		{Title: "two", Content: "<p>Bobby called</p>"},
		{Title: "three", Content: "<p>Alone today</p>"},
	} {
		_, err := SaveDiary(ctx, database, in)
		require.NoError(t, err)
	}

	out, err := Search(ctx, database, SearchInput{Keyword: "Bob"})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	assert.Equal(t, map[string]bool{"one": true, "two": true}, entryIDs(out))
	assert.Contains(t, out.ExpandedKeywords, "Bobby")
}

func TestSearch_TermsAreAnded(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	for _, in := range []SaveDiaryInput{
		{Title: "both", Content: "<p>rainy park walk</p>"},
		{Title: "park only", Content: "<p>sunny park</p>"},
	} {
		_, err := SaveDiary(ctx, database, in)
		require.NoError(t, err)
	}

	out, err := Search(ctx, database, SearchInput{Keyword: "park  rainy"})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"both": true}, entryIDs(out))
	assert.Nil(t, out.ExpandedKeywords)
}

func TestSearch_CJKSubstring(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	_, err := SaveDiary(ctx, database, SaveDiaryInput{Title: "散步", Content: "<p>今天和小明去公园散步</p>"})
	require.NoError(t, err)

	out, err := Search(ctx, database, SearchInput{Keyword: "公园"})
	require.NoError(t, err)
	assert.Equal(t, 1, out.Total)
}

func TestSearch_Filters(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()
	at := func(d int) int64 { return time.Date(2024, 5, d, 12, 0, 0, 0, time.UTC).UnixMilli() }

	for _, in := range []SaveDiaryInput{
		{Title: "a", Mood: "happy", Tags: []string{"travel", "food"}, CreatedAt: at(1)},
		{Title: "b", Mood: "happy", Tags: []string{"travel"}, CreatedAt: at(10)},
		{Title: "c", Mood: "sad", Tags: []string{"travel", "food", "work"}, CreatedAt: at(20)},
	} {
		_, err := SaveDiary(ctx, database, in)
		require.NoError(t, err)
	}

	out, err := Search(ctx, database, SearchInput{Tags: []string{"travel", "food"}})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"a": true, "c": true}, entryIDs(out))

	out, err = Search(ctx, database, SearchInput{Tags: []string{"travel", "food", "work"}, Mood: "happy"})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Total)

	out, err = Search(ctx, database, SearchInput{DateFrom: "2024-05-10", DateTo: "2024-05-20", Location: time.UTC})
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"b": true, "c": true}, entryIDs(out), "end date includes the whole day")

	out, err = Search(ctx, database, SearchInput{Mood: "happy", Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, out.Total)
	assert.Len(t, out.Entries, 1)
	assert.True(t, out.Pagination.HasMore)
	assert.Equal(t, "b", out.Entries[0].Title)
}

func TestSearch_EmptyParamsReturnNothing(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	_, err := SaveDiary(ctx, database, SaveDiaryInput{Title: "x"})
	require.NoError(t, err)

	out, err := Search(ctx, database, SearchInput{Keyword: "   ", Tags: []string{" "}})
	require.NoError(t, err)
	assert.Equal(t, 0, out.Total)
	assert.NotNil(t, out.Entries)
	assert.Equal(t, DefaultSearchLimit, out.Pagination.Limit)
}

func TestSearch_Validation(t *testing.T) {
	database := newTestDB(t)
	ctx := context.Background()

	_, err := Search(ctx, database, SearchInput{Keyword: strings.Repeat("x", 501)})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Search(ctx, database, SearchInput{Mood: "meh"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))

	_, err = Search(ctx, database, SearchInput{DateFrom: "05/01/2024"})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}
