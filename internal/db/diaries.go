package db

import (
	"context"
	"database/sql"
	stderrors "errors"
	"strings"

	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
)

const diaryColumns = `d.id, d.title, d.content, d.plain_content, d.mood, d.weather, d.created_at, d.updated_at`

// lightweightColumns ships the plain-text mirror in place of the rich content.
const lightweightColumns = `d.id, d.title, d.plain_content, d.plain_content, d.mood, d.weather, d.created_at, d.updated_at`

// InsertDiary stores a new entry row. Tags are written separately.
func InsertDiary(ctx context.Context, q dbx.DBTX, e *diary.Entry) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO diaries (id, title, content, plain_content, mood, weather, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Title, e.Content, e.PlainContent, string(e.Mood), toNullString(e.Weather), e.CreatedAt, e.UpdatedAt)
	if err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// UpdateDiary replaces the mutable fields of an entry. created_at is never written.
func UpdateDiary(ctx context.Context, q dbx.DBTX, e *diary.Entry) error {
	result, err := q.ExecContext(ctx, `
		UPDATE diaries
		SET title = ?, content = ?, plain_content = ?, mood = ?, weather = ?, updated_at = ?
		WHERE id = ?
	`, e.Title, e.Content, e.PlainContent, string(e.Mood), toNullString(e.Weather), e.UpdatedAt, e.ID)
	if err != nil {
		return errors.NewInternal(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return errors.NewInternal(err)
	}
	if rows == 0 {
		return errors.NewNotFound("diary", e.ID)
	}
	return nil
}

// GetDiary retrieves an entry with its tags. A missing id returns a NOT_FOUND error.
func GetDiary(ctx context.Context, q dbx.DBTX, id string) (*diary.Entry, error) {
	row := q.QueryRowContext(ctx, `SELECT `+diaryColumns+` FROM diaries d WHERE d.id = ?`, id)
	e, err := scanDiary(row)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("diary", id)
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}

	tags, err := DiaryTags(ctx, q, id)
	if err != nil {
		return nil, err
	}
	e.Tags = tags
	return e, nil
}

// DeleteDiary removes an entry; tag links and attachment rows cascade.
// Returns false if the id did not exist.
func DeleteDiary(ctx context.Context, q dbx.DBTX, id string) (bool, error) {
	result, err := q.ExecContext(ctx, `DELETE FROM diaries WHERE id = ?`, id)
	if err != nil {
		return false, errors.NewInternal(err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return false, errors.NewInternal(err)
	}
	return rows > 0, nil
}

// ListDiaries returns entries newest first with the total row count.
// In lightweight mode Content carries the plain-text mirror.
func ListDiaries(ctx context.Context, q dbx.DBTX, limit, offset int, lightweight bool) ([]diary.Entry, int, error) {
	var total int
	if err := q.QueryRowContext(ctx, `SELECT COUNT(*) FROM diaries`).Scan(&total); err != nil {
		return nil, 0, errors.NewInternal(err)
	}

	columns := diaryColumns
	if lightweight {
		columns = lightweightColumns
	}
	entries, err := queryDiaries(ctx, q, `
		SELECT `+columns+` FROM diaries d
		ORDER BY d.created_at DESC, d.id DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}

// LatestDiaryBetween returns the newest entry with from <= created_at < to, or NOT_FOUND.
func LatestDiaryBetween(ctx context.Context, q dbx.DBTX, from, to int64) (*diary.Entry, error) {
	var id string
	err := q.QueryRowContext(ctx, `
		SELECT id FROM diaries
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, from, to).Scan(&id)
	if stderrors.Is(err, sql.ErrNoRows) {
		return nil, errors.NewNotFound("diary", "in range")
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	return GetDiary(ctx, q, id)
}

// DiaryTimesBetween returns created_at of every entry with from <= created_at < to, ascending.
func DiaryTimesBetween(ctx context.Context, q dbx.DBTX, from, to int64) ([]int64, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT created_at FROM diaries
		WHERE created_at >= ? AND created_at < ?
		ORDER BY created_at ASC
	`, from, to)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	var times []int64
	for rows.Next() {
		var ts int64
		if err := rows.Scan(&ts); err != nil {
			return nil, errors.NewInternal(err)
		}
		times = append(times, ts)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return times, nil
}

// DiaryText is the slice of an entry the mention analytics scan.
type DiaryText struct {
	ID           string
	Title        string
	PlainContent string
	Mood         diary.Mood
	CreatedAt    int64
}

// ForEachDiaryText streams every entry newest first.
func ForEachDiaryText(ctx context.Context, q dbx.DBTX, fn func(DiaryText) error) error {
	rows, err := q.QueryContext(ctx, `
		SELECT id, title, plain_content, mood, created_at FROM diaries
		ORDER BY created_at DESC, id DESC
	`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var t DiaryText
		var mood string
		if err := rows.Scan(&t.ID, &t.Title, &t.PlainContent, &mood, &t.CreatedAt); err != nil {
			return errors.NewInternal(err)
		}
		t.Mood = diary.Mood(mood)
		if err := fn(t); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// ForEachDiaryContent streams (id, content) of every entry.
func ForEachDiaryContent(ctx context.Context, q dbx.DBTX, fn func(id, content string) error) error {
	rows, err := q.QueryContext(ctx, `SELECT id, content FROM diaries`)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer rows.Close()

	for rows.Next() {
		var id, content string
		if err := rows.Scan(&id, &content); err != nil {
			return errors.NewInternal(err)
		}
		if err := fn(id, content); err != nil {
			return err
		}
	}
	if err := rows.Err(); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}

// queryDiaries runs a SELECT of diaryColumns (or lightweightColumns) and attaches tags.
func queryDiaries(ctx context.Context, q dbx.DBTX, query string, args ...any) ([]diary.Entry, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer rows.Close()

	entries := []diary.Entry{}
	for rows.Next() {
		e, err := scanDiary(rows)
		if err != nil {
			return nil, errors.NewInternal(err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.NewInternal(err)
	}
	// Close before the tag query so a single-connection pool is not held.
	rows.Close()

	if len(entries) == 0 {
		return entries, nil
	}
	ids := make([]string, len(entries))
	for i := range entries {
		ids[i] = entries[i].ID
	}
	tagsByID, err := TagsForDiaries(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	for i := range entries {
		entries[i].Tags = tagsByID[entries[i].ID]
		if entries[i].Tags == nil {
			entries[i].Tags = []string{}
		}
	}
	return entries, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanDiary(s scanner) (*diary.Entry, error) {
	var e diary.Entry
	var mood string
	var weather sql.NullString
	if err := s.Scan(&e.ID, &e.Title, &e.Content, &e.PlainContent, &mood, &weather, &e.CreatedAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.Mood = diary.Mood(mood)
	e.Weather = fromNullString(weather)
	e.Tags = []string{}
	return &e, nil
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func toNullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func fromNullString(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	return &ns.String
}
