package db

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/hpungsan/daybook/internal/config"
	"github.com/hpungsan/daybook/internal/errors"
)

func TestInit(t *testing.T) {
	tmpDir := t.TempDir()

	db, err := Init(context.Background(), tmpDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(filepath.Join(tmpDir, DataFile)); os.IsNotExist(err) {
		t.Errorf("database file not created")
	}

	for _, dir := range []string{ExportsDir, ImagesDir, ThumbnailsDir, AttachmentsDir} {
		info, err := os.Stat(filepath.Join(tmpDir, dir))
		if err != nil || !info.IsDir() {
			t.Errorf("%s directory not created: %v", dir, err)
		}
	}

	var journalMode string
	if err := db.QueryRow("PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		t.Fatalf("failed to query journal_mode: %v", err)
	}
	if journalMode != "wal" {
		t.Errorf("journal_mode = %s, want wal", journalMode)
	}

	var foreignKeys int
	if err := db.QueryRow("PRAGMA foreign_keys;").Scan(&foreignKeys); err != nil {
		t.Fatalf("failed to query foreign_keys: %v", err)
	}
	if foreignKeys != 1 {
		t.Errorf("foreign_keys = %d, want 1", foreignKeys)
	}

	for _, table := range []string{"diaries", "tags", "diary_tags", "archives", "image_refs", "settings", "attachments", "diaries_fts"} {
		var name string
		if err := db.QueryRow("SELECT name FROM sqlite_master WHERE name = ?", table).Scan(&name); err != nil {
			t.Errorf("table %s not found: %v", table, err)
		}
	}
}

func TestInit_CreatesNestedDirectories(t *testing.T) {
	baseDir := filepath.Join(t.TempDir(), "nested", "path", ".daybook")

	db, err := Init(context.Background(), baseDir)
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	if _, err := os.Stat(baseDir); os.IsNotExist(err) {
		t.Errorf("base directory not created at %s", baseDir)
	}
}

func TestSchemaVersion(t *testing.T) {
	ctx := context.Background()
	db, err := Init(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	version, err := SchemaVersion(ctx, db)
	if err != nil {
		t.Fatalf("SchemaVersion() error = %v", err)
	}
	if version != CurrentSchemaVersion {
		t.Errorf("version = %d, want %d", version, CurrentSchemaVersion)
	}
}

func TestInit_MigrationIdempotent(t *testing.T) {
	ctx := context.Background()
	tmpDir := t.TempDir()

	db1, err := Init(ctx, tmpDir)
	if err != nil {
		t.Fatalf("first Init() error = %v", err)
	}
	if _, err := db1.Exec(`INSERT INTO settings (key, value, updated_at) VALUES ('theme', 'dark', 1)`); err != nil {
		t.Fatalf("insert error = %v", err)
	}
	db1.Close()

	db2, err := Init(ctx, tmpDir)
	if err != nil {
		t.Fatalf("second Init() error = %v", err)
	}
	defer db2.Close()

	var value string
	if err := db2.QueryRow(`SELECT value FROM settings WHERE key = 'theme'`).Scan(&value); err != nil {
		t.Fatalf("data lost across reopen: %v", err)
	}
	if value != "dark" {
		t.Errorf("value = %q, want dark", value)
	}
}

func TestInit_RejectsCorruptFile(t *testing.T) {
	tmpDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(tmpDir, DataFile), []byte("this is not a sqlite database at all, just text padding it out"), 0600); err != nil {
		t.Fatalf("WriteFile() error = %v", err)
	}

	if _, err := Init(context.Background(), tmpDir); err == nil {
		t.Fatal("Init() expected error for corrupt database file")
	}
}

func TestCheckpoint(t *testing.T) {
	ctx := context.Background()
	db, err := Init(ctx, t.TempDir())
	if err != nil {
		t.Fatalf("Init() error = %v", err)
	}
	defer db.Close()

	if err := Checkpoint(ctx, db); err != nil {
		t.Errorf("Checkpoint() error = %v", err)
	}
}

func TestHandle_CloseReopen(t *testing.T) {
	ctx := context.Background()
	h, err := Open(ctx, t.TempDir(), config.DefaultConfig())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer h.Close()

	if _, err := h.DB(); err != nil {
		t.Fatalf("DB() error = %v", err)
	}

	if err := h.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if _, err := h.DB(); !errors.Is(err, errors.ErrBusy) {
		t.Errorf("DB() on closed handle error = %v, want BUSY", err)
	}
	if err := h.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	if err := h.Reopen(ctx); err != nil {
		t.Fatalf("Reopen() error = %v", err)
	}
	if _, err := h.DB(); err != nil {
		t.Errorf("DB() after reopen error = %v", err)
	}
}

func TestHandle_MarkFatal(t *testing.T) {
	ctx := context.Background()
	h, err := Open(ctx, t.TempDir(), nil)
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer h.Close()

	fatal := errors.NewRestoreFailed(os.ErrInvalid, os.ErrPermission, "/tmp/rollback")
	h.MarkFatal(fatal)

	if _, err := h.DB(); !errors.Is(err, errors.ErrRestoreFailed) {
		t.Errorf("DB() error = %v, want RESTORE_FAILED", err)
	}
}
