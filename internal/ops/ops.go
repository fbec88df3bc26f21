// Package ops implements the daybook operations on top of the store. Each
// operation takes an Input struct and returns an Output struct; side effects
// outside the database (file deletion, cache invalidation) are reported back
// to the caller rather than performed here.
package ops

import (
	"context"
	"crypto/rand"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/hpungsan/daybook/internal/dbx"
	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/errors"
)

// Pagination limits
const (
	DefaultListLimit   = 20
	MaxListLimit       = 100
	DefaultSearchLimit = 20
	MaxSearchLimit     = 100
	DefaultMentionPage = 20
	MaxMentionPage     = 200
)

// Pagination contains pagination metadata for list operations.
type Pagination struct {
	Limit   int  `json:"limit"`
	Offset  int  `json:"offset"`
	HasMore bool `json:"hasMore"`
	Total   int  `json:"total"`
}

func newPagination(limit, offset, count, total int) Pagination {
	return Pagination{
		Limit:   limit,
		Offset:  offset,
		HasMore: offset+count < total,
		Total:   total,
	}
}

// clampPage applies the default and upper bound to limit and floors offset at 0.
func clampPage(limit, offset, def, maxLimit int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	return limit, max(offset, 0)
}

// Now is the clock used for timestamps. Tests replace it.
var Now = time.Now

func nowMillis() int64 {
	return Now().UnixMilli()
}

// generateULID generates a new ULID.
func generateULID() (string, error) {
	entropy := ulid.Monotonic(rand.Reader, 0)
	id, err := ulid.New(ulid.Timestamp(Now()), entropy)
	if err != nil {
		return "", err
	}
	return id.String(), nil
}

// notFoundToNil turns a NOT_FOUND store error into a nil result.
func notFoundToNil[T any](v *T, err error) (*T, error) {
	if errors.Is(err, errors.ErrNotFound) {
		return nil, nil
	}
	return v, err
}

// fieldChange is the image ids of one image-bearing field before and after a write.
type fieldChange struct {
	old, new []string
}

// syncFields applies the ref-count diff of every changed field inside q and
// returns ids whose count reached zero. An id dropped from one field but added
// to another of the same owner is not released.
func syncFields(ctx context.Context, q dbx.DBTX, changes ...fieldChange) ([]string, error) {
	var candidates []string
	for _, c := range changes {
		released, err := db.SyncImageRefs(ctx, q, c.old, c.new)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, released...)
	}
	if len(changes) == 1 {
		return candidates, nil
	}

	released := make([]string, 0, len(candidates))
	seen := make(map[string]bool)
	for _, id := range candidates {
		if seen[id] {
			continue
		}
		seen[id] = true
		n, err := db.GetRefCount(ctx, q, id)
		if err != nil {
			return nil, err
		}
		if n == 0 {
			released = append(released, id)
		}
	}
	return released, nil
}

func cleanOptionalString(s *string) *string {
	if s == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*s)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}
