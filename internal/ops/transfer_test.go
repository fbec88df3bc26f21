package ops

import (
	"archive/zip"
	"context"
	"database/sql"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hpungsan/daybook/internal/config"
	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/errors"
	"github.com/hpungsan/daybook/internal/logging"
)

func openHandle(t *testing.T, baseDir string) *db.Handle {
	t.Helper()
	h, err := db.Open(context.Background(), baseDir, config.DefaultConfig())
	require.NoError(t, err)
	t.Cleanup(func() { h.Close() })
	return h
}

func mustDB(t *testing.T, h *db.Handle) *sql.DB {
	t.Helper()
	database, err := h.DB()
	require.NoError(t, err)
	return database
}

// seedEnv writes one entry embedding imgA plus the image file itself.
func seedEnv(t *testing.T, h *db.Handle) string {
	t.Helper()
	out, err := SaveDiary(context.Background(), mustDB(t, h), SaveDiaryInput{
		Title:   "kept",
		Content: "<p>hello</p>" + imgTag(imgA),
		Tags:    []string{"travel"},
	})
	require.NoError(t, err)
	path := filepath.Join(h.BaseDir(), db.ImagesDir, imgA+".png")
	require.NoError(t, os.WriteFile(path, []byte("png"), 0600))
	return out.Entry.ID
}

func rollbackDirs(t *testing.T, baseDir string) []string {
	t.Helper()
	matches, err := filepath.Glob(filepath.Join(baseDir, ".rollback-*"))
	require.NoError(t, err)
	return matches
}

func TestExportImport_RoundTrip(t *testing.T) {
	ctx := context.Background()
	log := logging.Discard()

	src := openHandle(t, t.TempDir())
	id := seedEnv(t, src)

	exported, err := Export(ctx, src, config.DefaultConfig(), log, ExportInput{AppVersion: "test"})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(src.BaseDir(), db.ExportsDir), filepath.Dir(exported.Path))
	assert.FileExists(t, exported.Path)
	assert.Equal(t, 2, exported.Files, "store file and one image")

	// The source handle is usable again after export.
	_, err = GetDiary(ctx, mustDB(t, src), id)
	require.NoError(t, err)

	dst := openHandle(t, t.TempDir())
	_, err = SaveDiary(ctx, mustDB(t, dst), SaveDiaryInput{Title: "replaced"})
	require.NoError(t, err)

	cfg := &config.Config{AllowedPaths: []string{filepath.Dir(exported.Path)}}
	imported, err := Import(ctx, dst, cfg, log, ImportInput{Path: exported.Path})
	require.NoError(t, err)
	require.NotNil(t, imported.Metadata)
	assert.Equal(t, "test", imported.Metadata.AppVersion)
	require.NotNil(t, imported.Stats)
	assert.Equal(t, 1, imported.Stats.Entries)

	got, err := GetDiary(ctx, mustDB(t, dst), id)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "kept", got.Title)
	assert.Equal(t, []string{"travel"}, got.Tags)
	assert.Equal(t, 1, refCount(t, mustDB(t, dst), imgA))
	assert.FileExists(t, filepath.Join(dst.BaseDir(), db.ImagesDir, imgA+".png"))
	assert.Empty(t, rollbackDirs(t, dst.BaseDir()))
}

func TestImport_CorruptBundleRollsBack(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t, t.TempDir())
	id := seedEnv(t, h)

	bundle := filepath.Join(h.BaseDir(), db.ExportsDir, "corrupt.zip")
	writeBundle(t, bundle, map[string]string{
		"diary.db":     "this is not a sqlite database, just some bytes long enough to look like a header",
		"images/x.png": "x",
	})

	_, err := Import(ctx, h, config.DefaultConfig(), logging.Discard(), ImportInput{Path: bundle})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrBackupInvalid), "got %v", err)

	got, err := GetDiary(ctx, mustDB(t, h), id)
	require.NoError(t, err)
	require.NotNil(t, got, "pre-import data must survive")
	assert.Equal(t, 1, refCount(t, mustDB(t, h), imgA))
	assert.FileExists(t, filepath.Join(h.BaseDir(), db.ImagesDir, imgA+".png"))
	assert.NoFileExists(t, filepath.Join(h.BaseDir(), db.ImagesDir, "x.png"))
	assert.Empty(t, rollbackDirs(t, h.BaseDir()))
}

func TestImport_WithoutStoreFileLeavesDataAlone(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t, t.TempDir())
	id := seedEnv(t, h)

	bundle := filepath.Join(h.BaseDir(), db.ExportsDir, "empty.zip")
	writeBundle(t, bundle, map[string]string{"notes.txt": "nothing here"})

	_, err := Import(ctx, h, config.DefaultConfig(), logging.Discard(), ImportInput{Path: bundle})
	assert.True(t, errors.Is(err, errors.ErrBackupInvalid), "got %v", err)

	got, err := GetDiary(ctx, mustDB(t, h), id)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestImport_WrappedFolder(t *testing.T) {
	ctx := context.Background()
	log := logging.Discard()

	src := openHandle(t, t.TempDir())
	id := seedEnv(t, src)
	exported, err := Export(ctx, src, config.DefaultConfig(), log, ExportInput{})
	require.NoError(t, err)

	dst := openHandle(t, t.TempDir())
	wrapped := filepath.Join(dst.BaseDir(), db.ExportsDir, "wrapped.zip")
	rewrapBundle(t, exported.Path, wrapped, "daybook-backup/")

	_, err = Import(ctx, dst, config.DefaultConfig(), log, ImportInput{Path: wrapped})
	require.NoError(t, err)

	got, err := GetDiary(ctx, mustDB(t, dst), id)
	require.NoError(t, err)
	assert.NotNil(t, got)
}

func TestExport_ReopensAfterFailure(t *testing.T) {
	ctx := context.Background()
	h := openHandle(t, t.TempDir())
	seedEnv(t, h)

	// A directory at the destination makes the final rename fail.
	target := filepath.Join(h.BaseDir(), db.ExportsDir, "taken.zip")
	require.NoError(t, os.MkdirAll(filepath.Join(target, "child"), 0700))

	_, err := Export(ctx, h, config.DefaultConfig(), logging.Discard(), ExportInput{Path: target})
	require.Error(t, err)

	_, err = h.DB()
	assert.NoError(t, err, "store must be reopened after a failed export")
}

func TestExport_RejectsPathOutsideExports(t *testing.T) {
	h := openHandle(t, t.TempDir())

	_, err := Export(context.Background(), h, config.DefaultConfig(), logging.Discard(),
		ExportInput{Path: filepath.Join(t.TempDir(), "out.zip")})
	assert.True(t, errors.Is(err, errors.ErrInvalidRequest))
}

func writeBundle(t *testing.T, path string, files map[string]string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0700))
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}

// rewrapBundle copies every entry of src into dst under prefix.
func rewrapBundle(t *testing.T, src, dst, prefix string) {
	t.Helper()
	zr, err := zip.OpenReader(src)
	require.NoError(t, err)
	defer zr.Close()

	require.NoError(t, os.MkdirAll(filepath.Dir(dst), 0700))
	f, err := os.Create(dst)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	for _, zf := range zr.File {
		w, err := zw.Create(prefix + zf.Name)
		require.NoError(t, err)
		if zf.FileInfo().IsDir() {
			continue
		}
		rc, err := zf.Open()
		require.NoError(t, err)
		_, err = io.Copy(w, rc)
		rc.Close()
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
}
