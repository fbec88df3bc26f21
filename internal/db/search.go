package db

import (
	"context"
	"strings"

	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
)

// MaxSearchQueryChars bounds the raw keyword accepted by search.
const MaxSearchQueryChars = 500

// SearchFilter is a compiled search. Text conditions are satisfied by either
// the FTS5 expression or the substring groups; the remaining filters always apply.
type SearchFilter struct {
	// MatchExpr is an FTS5 MATCH expression, empty for no index condition.
	MatchExpr string

	// LikeGroups are AND-ed groups of OR-ed substrings matched against title and plain_content.
	LikeGroups [][]string

	Mood string

	// Tags must all be present on an entry.
	Tags []string

	// From and To bound created_at (ms) as From <= created_at < To; zero means unbounded.
	From int64
	To   int64

	Limit  int
	Offset int
}

// SearchDiaries runs a compiled filter and returns matching entries newest
// first together with the unpaged total.
func SearchDiaries(ctx context.Context, q dbx.DBTX, f SearchFilter) ([]diary.Entry, int, error) {
	where, args := buildSearchWhere(f)

	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM diaries d`+where, args...).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}
	if total == 0 {
		return []diary.Entry{}, 0, nil
	}

	pageArgs := append(append([]any{}, args...), f.Limit, f.Offset)
	entries, err := queryDiaries(ctx, q, `
		SELECT `+diaryColumns+` FROM diaries d`+where+`
		ORDER BY d.created_at DESC, d.id DESC
		LIMIT ? OFFSET ?
	`, pageArgs...)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

func buildSearchWhere(f SearchFilter) (string, []any) {
	var conds []string
	var args []any

	var text []string
	if f.MatchExpr != "" {
		text = append(text, `d.id IN (SELECT diary_id FROM diaries_fts WHERE diaries_fts MATCH ?)`)
		args = append(args, f.MatchExpr)
	}
	if len(f.LikeGroups) > 0 {
		var groups []string
		for _, group := range f.LikeGroups {
			var alts []string
			for _, term := range group {
				pattern := "%" + escapeLike(term) + "%"
				alts = append(alts, `d.title LIKE ? ESCAPE '\'`, `d.plain_content LIKE ? ESCAPE '\'`)
				args = append(args, pattern, pattern)
			}
			groups = append(groups, "("+strings.Join(alts, " OR ")+")")
		}
		text = append(text, "("+strings.Join(groups, " AND ")+")")
	}
	if len(text) > 0 {
		conds = append(conds, "("+strings.Join(text, " OR ")+")")
	}

	if f.Mood != "" {
		conds = append(conds, `d.mood = ?`)
		args = append(args, f.Mood)
	}

	if len(f.Tags) > 0 {
		conds = append(conds, `d.id IN (
			SELECT dt.diary_id FROM diary_tags dt
			JOIN tags t ON t.id = dt.tag_id
			WHERE t.name IN (`+placeholders(len(f.Tags))+`)
			GROUP BY dt.diary_id
			HAVING COUNT(DISTINCT t.name) = ?
		)`)
		for _, tag := range f.Tags {
			args = append(args, tag)
		}
		args = append(args, len(f.Tags))
	}

	if f.From > 0 {
		conds = append(conds, `d.created_at >= ?`)
		args = append(args, f.From)
	}
	if f.To > 0 {
		conds = append(conds, `d.created_at < ?`)
		args = append(args, f.To)
	}

	if len(conds) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// escapeLike escapes LIKE wildcards so user text matches literally.
func escapeLike(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(s)
}
