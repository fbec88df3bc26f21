package ops

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/hpungsan/daybook/internal/db"
)

const (
	imgA = "aaaaaaaa-aaaa-4aaa-8aaa-aaaaaaaaaaaa"
	imgB = "bbbbbbbb-bbbb-4bbb-8bbb-bbbbbbbbbbbb"
	imgC = "cccccccc-cccc-4ccc-8ccc-cccccccccccc"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	database, err := db.Init(context.Background(), t.TempDir())
	if err != nil {
		t.Fatalf("db.Init failed: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return database
}

// withClock pins Now for the duration of a test.
func withClock(t *testing.T, ts time.Time) {
	t.Helper()
	prev := Now
	Now = func() time.Time { return ts }
	t.Cleanup(func() { Now = prev })
}

func imgTag(id string) string {
	return fmt.Sprintf(`<img src="diary-image://%s.png">`, id)
}

func refCount(t *testing.T, database *sql.DB, id string) int {
	t.Helper()
	n, err := db.GetRefCount(context.Background(), database, id)
	if err != nil {
		t.Fatalf("GetRefCount(%s) failed: %v", id, err)
	}
	return n
}

func stringPtr(s string) *string {
	return &s
}
