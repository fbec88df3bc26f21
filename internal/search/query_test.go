package search

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daybook/internal/diary"
)

var bob = diary.Archive{Name: "Bob", Aliases: []string{"Bobby", "Rob"}, Type: diary.ArchivePerson}

func TestTerms(t *testing.T) {
	assert.Equal(t, []string{"hello", "World"}, Terms("  hello\tWorld world "))
	assert.Nil(t, Terms("   "))
}

func TestCompile_NoArchives(t *testing.T) {
	q := Compile("coffee morning", nil)

	assert.Equal(t, [][]string{{"coffee"}, {"morning"}}, q.Groups)
	assert.Equal(t, `("coffee") AND ("morning")`, q.Match)
	assert.Nil(t, q.Expanded)
}

func TestCompile_ExpandsArchiveAliases(t *testing.T) {
	q := Compile("Bob park", []diary.Archive{bob})

	want := [][]string{{"Bob", "Bobby", "Rob"}, {"park"}}
	if diff := cmp.Diff(want, q.Groups); diff != "" {
		t.Errorf("Groups mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, `("Bob" OR "Bobby" OR "Rob") AND ("park")`, q.Match)
	assert.Equal(t, []string{"Bobby", "Rob"}, q.Expanded)
}

func TestCompile_AliasTermExpandsToName(t *testing.T) {
	q := Compile("bobby", []diary.Archive{bob})

	assert.Equal(t, [][]string{{"bobby", "Bob", "Rob"}}, q.Groups)
	assert.Equal(t, []string{"Bob", "Rob"}, q.Expanded)
}

func TestCompile_QuotesSpecialCharacters(t *testing.T) {
	q := Compile(`say "hi" OR NOT*`, nil)

	assert.Equal(t, `("say") AND ("""hi""") AND ("OR") AND ("NOT*")`, q.Match)
}

func TestCompile_Empty(t *testing.T) {
	q := Compile("  ", []diary.Archive{bob})
	assert.True(t, q.Empty())
	assert.Equal(t, "", q.Match)
}

func TestDayBounds(t *testing.T) {
	loc := time.FixedZone("UTC+8", 8*3600)
	start, end, err := DayBounds("2024-03-05", loc)
	require.NoError(t, err)

	assert.Equal(t, time.Date(2024, 3, 5, 0, 0, 0, 0, loc).UnixMilli(), start)
	assert.Equal(t, int64(24*3600*1000), end-start)
	assert.Equal(t, "2024-03-05", LocalDay(end-1, loc))
	assert.Equal(t, "2024-03-06", LocalDay(end, loc))

	_, _, err = DayBounds("03/05/2024", loc)
	assert.Error(t, err)
}

func TestMonthBounds(t *testing.T) {
	start, end, err := MonthBounds("2024-02", time.UTC)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), end)
	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC).UnixMilli(), start)
}
