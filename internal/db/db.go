package db

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/hpungsan/daybook/internal/config"
)

const (
	// DataFile is the primary store file inside the data directory.
	DataFile = "diary.db"

	ImagesDir      = "images"
	ThumbnailsDir  = "thumbnails"
	AttachmentsDir = "attachments"
	ExportsDir     = "exports"
)

// CurrentSchemaVersion is the latest migration version.
// Bump this when adding a file under migrations/.
const CurrentSchemaVersion = 1

//go:embed migrations/*.sql
var migrationsFS embed.FS

// AssetDirs lists the data directories that travel with the store in a backup.
var AssetDirs = []string{ImagesDir, ThumbnailsDir, AttachmentsDir}

// SideFiles returns the store file and its WAL/shared-memory companions.
func SideFiles() []string {
	return []string{DataFile, DataFile + "-wal", DataFile + "-shm"}
}

// Init opens the SQLite store at baseDir/diary.db, creating the data
// directories, verifying WAL mode and integrity, and applying pending migrations.
// The baseDir parameter allows tests to use t.TempDir() instead of ~/.daybook.
func Init(ctx context.Context, baseDir string) (*sql.DB, error) {
	if err := ensureDirs(baseDir); err != nil {
		return nil, err
	}

	// Pragmas in the connection string apply to every pooled connection.
	dbPath := filepath.Join(baseDir, DataFile)
	dsn := dbPath + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := verifyWALMode(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := quickCheck(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	if err := migrate(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	// Set file permissions after file exists (best-effort)
	_ = os.Chmod(dbPath, 0600)

	return db, nil
}

func ensureDirs(baseDir string) error {
	if err := os.MkdirAll(baseDir, 0700); err != nil {
		return fmt.Errorf("failed to create base directory: %w", err)
	}
	// Explicit chmod (best-effort, may not work on all platforms)
	_ = os.Chmod(baseDir, 0700)

	for _, name := range append([]string{ExportsDir}, AssetDirs...) {
		dir := filepath.Join(baseDir, name)
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create %s directory: %w", name, err)
		}
		_ = os.Chmod(dir, 0700)
	}
	return nil
}

// ConfigurePool applies connection pool settings from config.
// Only sets limits if explicitly configured (non-zero values).
func ConfigurePool(db *sql.DB, cfg *config.Config) {
	if cfg == nil {
		return
	}
	if cfg.DBMaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.DBMaxOpenConns)
	}
	if cfg.DBMaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.DBMaxIdleConns)
	}
}

// migrate applies pending migrations through a goose Provider. The provider
// keeps no global state and does not print to stdout.
func migrate(ctx context.Context, db *sql.DB) error {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("failed to load migrations: %w", err)
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return fmt.Errorf("failed to create migration provider: %w", err)
	}
	if _, err := provider.Up(ctx); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}
	return nil
}

// SchemaVersion returns the applied migration version.
func SchemaVersion(ctx context.Context, db *sql.DB) (int64, error) {
	fsys, err := fs.Sub(migrationsFS, "migrations")
	if err != nil {
		return 0, err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, db, fsys)
	if err != nil {
		return 0, err
	}
	return provider.GetDBVersion(ctx)
}

// verifyWALMode checks that WAL mode is active (set via connection string).
// It is also the first statement run on a fresh handle, so a file that is
// not a database fails here.
func verifyWALMode(ctx context.Context, db *sql.DB) error {
	var journalMode string
	if err := db.QueryRowContext(ctx, "PRAGMA journal_mode;").Scan(&journalMode); err != nil {
		return fmt.Errorf("failed to verify journal mode: %w", err)
	}
	if journalMode != "wal" {
		return fmt.Errorf("expected WAL mode, got %s", journalMode)
	}
	return nil
}

func quickCheck(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, "PRAGMA quick_check;").Scan(&result); err != nil {
		return fmt.Errorf("integrity check failed: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity check failed: %s", result)
	}
	return nil
}

// Checkpoint folds the write-ahead log into the main store file.
func Checkpoint(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE);"); err != nil {
		return fmt.Errorf("wal checkpoint failed: %w", err)
	}
	return nil
}
