package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/daybook/internal/backup"
	"github.com/hpungsan/daybook/internal/config"
	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/errors"
	"github.com/hpungsan/daybook/internal/logging"
)

// ImportInput contains parameters for the Import operation.
type ImportInput struct {
	Path string // required
}

// ImportOutput contains the result of the Import operation.
type ImportOutput struct {
	Path       string           `json:"path"`
	Metadata   *backup.Metadata `json:"metadata,omitempty"`
	Stats      *db.Stats        `json:"stats"`
	ImportedAt int64            `json:"importedAt"`
}

// Import replaces the live data with a bundle. The current data is moved
// aside first; if the bundle cannot be installed or opened, it is moved back.
// If moving it back fails too, the handle is marked fatal and a RESTORE_FAILED
// error naming both failures is returned.
func Import(ctx context.Context, h *db.Handle, cfg *config.Config, log logging.Logger, input ImportInput) (*ImportOutput, error) {
	baseDir := h.BaseDir()
	path := strings.TrimSpace(input.Path)
	if err := backup.ValidatePath(path, backup.PathCheckRead, cfg, filepath.Join(baseDir, db.ExportsDir)); err != nil {
		return nil, err
	}

	staging, err := os.MkdirTemp(baseDir, ".import-")
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("create staging dir: %w", err))
	}
	defer os.RemoveAll(staging)

	if err := backup.Extract(path, staging); err != nil {
		return nil, err
	}
	root, err := backup.FindRoot(staging)
	if err != nil {
		return nil, err
	}
	meta, err := backup.ReadMetadata(root)
	if err != nil {
		return nil, err
	}

	// The transfer runs to completion once files start moving.
	ctx = context.WithoutCancel(ctx)
	log.Info(ctx, "import started", "path", path)

	if database, err := h.DB(); err == nil {
		if err := db.Checkpoint(ctx, database); err != nil {
			log.Warn(ctx, "checkpoint before import failed", "error", err)
		}
	}
	if err := h.Close(); err != nil {
		log.Warn(ctx, "closing store for import failed", "error", err)
	}

	rollbackDir, err := backup.MoveAside(baseDir, Now())
	var stranded *backup.StrandedError
	if stderrors.As(err, &stranded) {
		return nil, markFatal(ctx, h, log, stranded.MoveErr, stranded.RestoreErr, stranded.RollbackDir)
	}
	if err != nil {
		if reopenErr := h.Reopen(ctx); reopenErr != nil {
			log.Error(ctx, "reopening store after failed move aside", "error", reopenErr)
		}
		return nil, errors.NewInternal(err)
	}

	importErr := backup.Install(root, baseDir)
	if importErr == nil {
		importErr = h.Reopen(ctx)
	}
	if importErr != nil {
		log.Warn(ctx, "import failed, restoring previous data", "error", importErr, "rollback_dir", rollbackDir)
		return nil, rollback(ctx, h, log, baseDir, rollbackDir, importErr)
	}

	if err := backup.Discard(rollbackDir); err != nil {
		log.Warn(ctx, "removing rollback data failed", "rollback_dir", rollbackDir, "error", err)
	}

	out := &ImportOutput{Path: path, Metadata: meta, ImportedAt: nowMillis()}
	if database, err := h.DB(); err == nil {
		if stats, err := db.CountStats(ctx, database); err == nil {
			out.Stats = stats
		}
	}
	log.Info(ctx, "import finished", "path", path)
	return out, nil
}

// rollback puts the data moved aside back in place and reopens it. It returns
// the error to report for the failed import.
func rollback(ctx context.Context, h *db.Handle, log logging.Logger, baseDir, rollbackDir string, importErr error) error {
	_ = h.Close()

	if restoreErr := backup.Restore(baseDir, rollbackDir); restoreErr != nil {
		return markFatal(ctx, h, log, importErr, restoreErr, rollbackDir)
	}
	if reopenErr := h.Reopen(ctx); reopenErr != nil {
		return markFatal(ctx, h, log, importErr, reopenErr, baseDir)
	}

	log.Info(ctx, "previous data restored")
	if _, ok := errors.As(importErr); ok {
		return importErr
	}
	return errors.NewBackupInvalid(fmt.Sprintf("backup could not be opened: %v", importErr))
}

func markFatal(ctx context.Context, h *db.Handle, log logging.Logger, importErr, restoreErr error, location string) error {
	fatal := errors.NewRestoreFailed(importErr, restoreErr, location)
	h.MarkFatal(fatal)
	log.Error(ctx, "restoring previous data failed", "import_error", importErr, "restore_error", restoreErr, "location", location)
	return fatal
}
