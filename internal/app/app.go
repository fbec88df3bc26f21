// Package app is the facade the CLI, MCP server and web server call. It owns
// the store handle and the collaborators every mutation has to notify: the
// mention cache, the background image worker and the attachments directory.
package app

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/hpungsan/daybook/internal/config"
	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/diary"
	"github.com/hpungsan/daybook/internal/errors"
	"github.com/hpungsan/daybook/internal/images"
	"github.com/hpungsan/daybook/internal/logging"
	"github.com/hpungsan/daybook/internal/mention"
	"github.com/hpungsan/daybook/internal/ops"
)

// App is a running diary on one data directory.
type App struct {
	version string
	cfg     *config.Config
	log     logging.Logger
	handle  *db.Handle

	mentions *mention.Cache
	store    *images.Store
	worker   *images.Worker

	// transfer admits one export or import at a time.
	transfer sync.Mutex
}

// Open opens (and if needed initializes) the data directory baseDir.
func Open(ctx context.Context, baseDir string, cfg *config.Config, log logging.Logger, version string) (*App, error) {
	if cfg == nil {
		cfg = config.DefaultConfig()
	}
	h, err := db.Open(ctx, baseDir, cfg)
	if err != nil {
		return nil, err
	}
	cache, err := mention.NewCache(cfg.MentionCacheSize)
	if err != nil {
		h.Close()
		return nil, errors.NewInternal(err)
	}
	store := images.NewStore(baseDir, cfg.ImageMaxBytes, cfg.ImageMaxPixels)
	return &App{
		version:  version,
		cfg:      cfg,
		log:      log,
		handle:   h,
		mentions: cache,
		store:    store,
		worker:   images.NewWorker(store, cfg.ImageCleanupWorkers, log),
	}, nil
}

// Close waits for pending image jobs and closes the store.
func (a *App) Close() error {
	a.worker.Wait()
	return a.handle.Close()
}

// BaseDir is the data directory.
func (a *App) BaseDir() string { return a.handle.BaseDir() }

// Config is the configuration the app was opened with.
func (a *App) Config() *config.Config { return a.cfg }

// Version is the application version recorded in exported bundles.
func (a *App) Version() string { return a.version }

// WaitImages blocks until background image jobs have finished.
func (a *App) WaitImages() { a.worker.Wait() }

// released hands ids no longer referenced to the worker for file deletion.
func (a *App) released(ctx context.Context, ids []string) {
	if len(ids) == 0 {
		return
	}
	a.log.Debug(ctx, "releasing images", "count", len(ids))
	a.worker.Release(ids)
}

// --- Entries ---

// SaveDiary creates or updates an entry.
func (a *App) SaveDiary(ctx context.Context, in ops.SaveDiaryInput) (*ops.SaveDiaryOutput, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	out, err := ops.SaveDiary(ctx, database, in)
	if err != nil {
		return nil, err
	}
	a.mentions.InvalidateAll()
	a.released(ctx, out.Released)
	return out, nil
}

// DeleteDiary removes an entry, its attachment files and the images only it referenced.
func (a *App) DeleteDiary(ctx context.Context, id string) (*ops.DeleteDiaryOutput, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	out, err := ops.DeleteDiary(ctx, database, id)
	if err != nil {
		return nil, err
	}
	if !out.Deleted {
		return out, nil
	}
	a.mentions.InvalidateAll()
	a.released(ctx, out.Released)
	dir := a.attachmentsDir()
	for _, name := range out.Attachments {
		if err := os.Remove(filepath.Join(dir, name)); err != nil && !os.IsNotExist(err) {
			a.log.Warn(ctx, "failed to delete attachment file", "file", name, "error", err)
		}
	}
	return out, nil
}

// GetDiary returns an entry, or nil when id does not exist.
func (a *App) GetDiary(ctx context.Context, id string) (*diary.Entry, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.GetDiary(ctx, database, id)
}

// ListDiaries pages through entries newest first.
func (a *App) ListDiaries(ctx context.Context, in ops.ListDiariesInput) (*ops.ListDiariesOutput, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.ListDiaries(ctx, database, in)
}

// DiaryByDate returns the newest entry written on day (YYYY-MM-DD, local time), or nil.
func (a *App) DiaryByDate(ctx context.Context, day string) (*diary.Entry, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.DiaryByDate(ctx, database, day, time.Local)
}

// DiaryDates lists the local dates in month (YYYY-MM) that have entries.
func (a *App) DiaryDates(ctx context.Context, month string) ([]string, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.DiaryDates(ctx, database, month, time.Local)
}

// Search runs a keyword and filter search.
func (a *App) Search(ctx context.Context, in ops.SearchInput) (*ops.SearchOutput, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.Search(ctx, database, in)
}

// --- Archives ---

// SaveArchive creates or updates an archive.
func (a *App) SaveArchive(ctx context.Context, in ops.SaveArchiveInput) (*ops.SaveArchiveOutput, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	out, err := ops.SaveArchive(ctx, database, in)
	if err != nil {
		return nil, err
	}
	a.mentions.InvalidateAll()
	a.released(ctx, out.Released)
	return out, nil
}

// GetArchive returns an archive, or nil when id does not exist.
func (a *App) GetArchive(ctx context.Context, id string) (*diary.Archive, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.GetArchive(ctx, database, id)
}

// ListArchives lists archives, optionally of one type.
func (a *App) ListArchives(ctx context.Context, archiveType string) ([]diary.Archive, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.ListArchives(ctx, database, archiveType)
}

// DeleteArchive removes an archive and releases its images.
func (a *App) DeleteArchive(ctx context.Context, id string) (*ops.DeleteArchiveOutput, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	out, err := ops.DeleteArchive(ctx, database, id)
	if err != nil {
		return nil, err
	}
	if out.Deleted {
		a.mentions.InvalidateAll()
		a.released(ctx, out.Released)
	}
	return out, nil
}

// --- Mentions ---

// MentionStats counts mentions of every person archive.
func (a *App) MentionStats(ctx context.Context) ([]mention.Stat, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.MentionStats(ctx, database)
}

// MentionDetails lists the entries mentioning one person.
func (a *App) MentionDetails(ctx context.Context, in ops.MentionDetailsInput) (*ops.MentionDetailsOutput, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.MentionDetails(ctx, database, a.mentions, in)
}

// --- Tags, settings, stats ---

// ListTags lists tags with their entry counts.
func (a *App) ListTags(ctx context.Context) ([]diary.Tag, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.ListTags(ctx, database)
}

// GetSetting returns a setting, or nil when key is unset.
func (a *App) GetSetting(ctx context.Context, key string) (*diary.Setting, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.GetSetting(ctx, database, key)
}

// ListSettings returns every setting.
func (a *App) ListSettings(ctx context.Context) ([]diary.Setting, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.ListSettings(ctx, database)
}

// SetSetting stores a setting; a replaced avatar image is released.
func (a *App) SetSetting(ctx context.Context, key, value string) (*ops.SetSettingOutput, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	out, err := ops.SetSetting(ctx, database, key, value)
	if err != nil {
		return nil, err
	}
	a.released(ctx, out.Released)
	return out, nil
}

// Stats returns row counts for the data directory.
func (a *App) Stats(ctx context.Context) (*db.Stats, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.Stats(ctx, database)
}

// --- Attachments ---

// AddAttachment stores a file for an entry.
func (a *App) AddAttachment(ctx context.Context, in ops.AddAttachmentInput) (*diary.Attachment, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.AddAttachment(ctx, database, a.attachmentsDir(), in)
}

// ListAttachments lists an entry's attachments.
func (a *App) ListAttachments(ctx context.Context, diaryID string) ([]diary.Attachment, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	return ops.ListAttachments(ctx, database, diaryID)
}

func (a *App) attachmentsDir() string {
	return filepath.Join(a.handle.BaseDir(), db.AttachmentsDir)
}

// --- Images ---

// SaveImage stores an original and schedules its thumbnail. The image is not
// referenced until a saved field embeds its URL.
func (a *App) SaveImage(ctx context.Context, data []byte, ext string) (*images.Saved, error) {
	saved, err := a.store.Save(data, ext)
	if err != nil {
		return nil, err
	}
	a.thumbnail(ctx, saved)
	return saved, nil
}

// SaveImageFile stores the image at path.
func (a *App) SaveImageFile(ctx context.Context, path string) (*images.Saved, error) {
	saved, err := a.store.SaveFile(path)
	if err != nil {
		return nil, err
	}
	a.thumbnail(ctx, saved)
	return saved, nil
}

func (a *App) thumbnail(ctx context.Context, saved *images.Saved) {
	ref, err := images.ParseRef(saved.FileName)
	if err != nil {
		a.log.Warn(ctx, "cannot schedule thumbnail", "image", saved.ID, "error", err)
		return
	}
	a.worker.Thumbnail(ref)
}

// ResolveImagePath maps a diary-image:// URL or file name to its file.
func (a *App) ResolveImagePath(urlOrFile string) (string, error) {
	return a.store.ResolvePath(urlOrFile)
}

// RebuildImageRefs recomputes reference counts and releases unreferenced images.
func (a *App) RebuildImageRefs(ctx context.Context) (*ops.RebuildImageRefsOutput, error) {
	database, err := a.handle.DB()
	if err != nil {
		return nil, err
	}
	out, err := ops.RebuildImageRefs(ctx, database)
	if err != nil {
		return nil, err
	}
	a.released(ctx, out.Released)
	return out, nil
}

// --- Transfer ---

// Export writes a backup bundle. It fails with BUSY while another transfer runs.
func (a *App) Export(ctx context.Context, path string) (*ops.ExportOutput, error) {
	if !a.transfer.TryLock() {
		return nil, errors.NewBusy("export")
	}
	defer a.transfer.Unlock()

	// Thumbnail writes and deletions must finish before files are walked.
	a.worker.Wait()
	return ops.Export(ctx, a.handle, a.cfg, a.log, ops.ExportInput{Path: path, AppVersion: a.version})
}

// Import replaces the data with a bundle, restoring the previous data if the
// bundle cannot be opened. It fails with BUSY while another transfer runs.
func (a *App) Import(ctx context.Context, path string) (*ops.ImportOutput, error) {
	if !a.transfer.TryLock() {
		return nil, errors.NewBusy("import")
	}
	defer a.transfer.Unlock()

	// Pending deletions must not race the file moves.
	a.worker.Wait()
	out, err := ops.Import(ctx, a.handle, a.cfg, a.log, ops.ImportInput{Path: path})
	if err != nil {
		return nil, err
	}
	a.mentions.InvalidateAll()
	return out, nil
}
