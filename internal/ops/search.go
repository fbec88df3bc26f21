package ops

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
	"github.com/hpungsan/daybook/internal/search"
)

// SearchInput contains parameters for the Search operation.
type SearchInput struct {
	Keyword  string   // whitespace-separated terms, all required
	Mood     string   // optional exact mood
	Tags     []string // optional, entries must carry all of them
	DateFrom string   // optional YYYY-MM-DD, inclusive
	DateTo   string   // optional YYYY-MM-DD, inclusive of the whole day
	Limit    int      // default: 20, max: 100
	Offset   int

	// Location resolves calendar dates; nil means local time.
	Location *time.Location
}

func (in SearchInput) empty() bool {
	return strings.TrimSpace(in.Keyword) == "" &&
		strings.TrimSpace(in.Mood) == "" &&
		len(diary.NormalizeTags(in.Tags)) == 0 &&
		strings.TrimSpace(in.DateFrom) == "" &&
		strings.TrimSpace(in.DateTo) == ""
}

// SearchOutput contains the result of the Search operation.
type SearchOutput struct {
	Entries []diary.Entry `json:"entries"`
	Total   int           `json:"total"`

	// ExpandedKeywords are the archive names and aliases a term was expanded
	// to; omitted when nothing was expanded.
	ExpandedKeywords []string `json:"expandedKeywords,omitempty"`

	Pagination Pagination `json:"pagination"`
}

// Search finds entries by keyword, mood, tags and date range. Each keyword
// term matches through the full-text index or by substring, and terms naming
// an archive also match that archive's name and aliases. Completely empty
// input returns no entries without querying.
func Search(ctx context.Context, database *sql.DB, input SearchInput) (*SearchOutput, error) {
	limit, offset := clampPage(input.Limit, input.Offset, DefaultSearchLimit, MaxSearchLimit)
	out := &SearchOutput{
		Entries:    []diary.Entry{},
		Pagination: newPagination(limit, offset, 0, 0),
	}
	if input.empty() {
		return out, nil
	}

	if n := utf8.RuneCountInString(input.Keyword); n > db.MaxSearchQueryChars {
		return nil, errors.NewInvalidRequest(fmt.Sprintf("keyword too long: %d characters (max %d)", n, db.MaxSearchQueryChars))
	}

	filter := db.SearchFilter{
		Tags:   diary.NormalizeTags(input.Tags),
		Limit:  limit,
		Offset: offset,
	}

	if strings.TrimSpace(input.Mood) != "" {
		mood, err := diary.ParseMood(input.Mood)
		if err != nil {
			return nil, err
		}
		filter.Mood = string(mood)
	}

	loc := locOrLocal(input.Location)
	if day := strings.TrimSpace(input.DateFrom); day != "" {
		from, _, err := search.DayBounds(day, loc)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		filter.From = from
	}
	if day := strings.TrimSpace(input.DateTo); day != "" {
		_, to, err := search.DayBounds(day, loc)
		if err != nil {
			return nil, errors.NewInvalidRequest(err.Error())
		}
		filter.To = to
	}

	if strings.TrimSpace(input.Keyword) != "" {
		archives, err := db.ListArchives(ctx, database, "")
		if err != nil {
			return nil, err
		}
		q := search.Compile(input.Keyword, archives)
		filter.MatchExpr = q.Match
		filter.LikeGroups = q.Groups
		out.ExpandedKeywords = q.Expanded
	}

	entries, total, err := db.SearchDiaries(ctx, database, filter)
	if err != nil {
		return nil, err
	}
	out.Entries = entries
	out.Total = total
	out.Pagination = newPagination(limit, offset, len(entries), total)
	return out, nil
}
