package ops

import (
	"context"
	stderrors "errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/hpungsan/daybook/internal/backup"
	"github.com/hpungsan/daybook/internal/config"
	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/errors"
	"github.com/hpungsan/daybook/internal/logging"
)

// ExportInput contains parameters for the Export operation.
type ExportInput struct {
	Path       string // optional, default: <data dir>/exports/daybook-backup-<timestamp>.zip
	AppVersion string
}

// ExportOutput contains the result of the Export operation.
type ExportOutput struct {
	Path       string `json:"path"`
	Files      int    `json:"files"`
	Bytes      int64  `json:"bytes"`
	ExportedAt int64  `json:"exportedAt"`
}

// Export writes the store and asset directories into a zip bundle. The store
// is checkpointed and closed while the bundle is written and always reopened
// before returning, including on failure.
func Export(ctx context.Context, h *db.Handle, cfg *config.Config, log logging.Logger, input ExportInput) (out *ExportOutput, err error) {
	now := Now()
	baseDir := h.BaseDir()
	exportsDir := filepath.Join(baseDir, db.ExportsDir)

	exportPath := strings.TrimSpace(input.Path)
	if exportPath == "" {
		exportPath = filepath.Join(exportsDir, fmt.Sprintf("daybook-backup-%s.zip", now.Format("2006-01-02T150405")))
	}
	if err := backup.ValidatePath(exportPath, backup.PathCheckWrite, cfg, exportsDir); err != nil {
		return nil, err
	}

	database, err := h.DB()
	if err != nil {
		return nil, err
	}
	if err := db.Checkpoint(ctx, database); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("checkpoint before export: %w", err))
	}

	log.Info(ctx, "export started", "path", exportPath)
	if err := h.Close(); err != nil {
		log.Warn(ctx, "closing store for export failed", "error", err)
	}
	defer func() {
		if reopenErr := h.Reopen(context.WithoutCancel(ctx)); reopenErr != nil {
			log.Error(ctx, "reopening store after export failed", "error", reopenErr)
			if err == nil {
				out, err = nil, errors.NewInternal(reopenErr)
			} else {
				err = stderrors.Join(err, reopenErr)
			}
		}
	}()

	sum, err := backup.Write(exportPath, baseDir, backup.NewMetadata(input.AppVersion, now))
	if err != nil {
		log.Error(ctx, "export failed", "path", exportPath, "error", err)
		return nil, err
	}

	log.Info(ctx, "export finished", "path", exportPath, "files", sum.Files, "bytes", sum.Bytes)
	return &ExportOutput{
		Path:       exportPath,
		Files:      sum.Files,
		Bytes:      sum.Bytes,
		ExportedAt: now.UnixMilli(),
	}, nil
}
