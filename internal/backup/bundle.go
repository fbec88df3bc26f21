// Package backup writes and reads the zip bundles used by export and import,
// and moves live data aside so a failed import can be rolled back.
package backup

import (
	"archive/zip"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"time"

	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/errors"
)

const (
	// MetadataFile sits next to diary.db inside a bundle.
	MetadataFile = "metadata.json"

	AppName       = "daybook"
	FormatVersion = 1
	Compression   = "zip-deflate"
)

// Metadata describes a bundle.
type Metadata struct {
	AppName             string `json:"appName"`
	AppVersion          string `json:"appVersion"`
	ExportedAt          int64  `json:"exportedAt"`
	BackupFormatVersion int    `json:"backupFormatVersion"`
	Compression         string `json:"compression"`
}

// NewMetadata returns metadata for a bundle written now by appVersion.
func NewMetadata(appVersion string, now time.Time) Metadata {
	return Metadata{
		AppName:             AppName,
		AppVersion:          appVersion,
		ExportedAt:          now.UnixMilli(),
		BackupFormatVersion: FormatVersion,
		Compression:         Compression,
	}
}

// Summary reports what Write put into a bundle.
type Summary struct {
	Files int   `json:"files"`
	Bytes int64 `json:"bytes"`
}

// Write archives baseDir's store file and asset directories into a zip at dst.
// The store must be closed (or at least checkpointed) by the caller. The bundle
// is written to a temp file and renamed into place, so an existing file at dst
// survives a failed export.
func Write(dst, baseDir string, meta Metadata) (*Summary, error) {
	dataPath := filepath.Join(baseDir, db.DataFile)
	if _, err := os.Stat(dataPath); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("store file missing: %w", err))
	}

	if err := os.MkdirAll(filepath.Dir(dst), 0700); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create export directory: %w", err))
	}

	suffix := make([]byte, 8)
	if _, err := rand.Read(suffix); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to generate temp file name: %w", err))
	}
	tempPath := dst + "." + hex.EncodeToString(suffix) + ".tmp"
	file, err := openNoFollow(tempPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to create bundle: %w", err))
	}

	success := false
	defer func() {
		if file != nil {
			file.Close()
		}
		if !success {
			os.Remove(tempPath)
		}
	}()

	zw := zip.NewWriter(file)
	sum := &Summary{}

	if err := addFile(zw, dataPath, db.DataFile, sum); err != nil {
		return nil, err
	}
	for _, dir := range db.AssetDirs {
		if err := addDir(zw, filepath.Join(baseDir, dir), dir, sum); err != nil {
			return nil, err
		}
	}

	metaJSON, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	w, err := zw.CreateHeader(&zip.FileHeader{Name: MetadataFile, Method: zip.Deflate, Modified: time.UnixMilli(meta.ExportedAt)})
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	if _, err := w.Write(metaJSON); err != nil {
		return nil, errors.NewInternal(err)
	}

	if err := zw.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to finish bundle: %w", err))
	}
	if err := file.Sync(); err != nil {
		return nil, errors.NewInternal(err)
	}
	if err := file.Close(); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to close bundle: %w", err))
	}
	file = nil

	// os.Rename would follow a symlink at the destination.
	if info, err := os.Lstat(dst); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return nil, errors.NewInvalidRequest("export path is a symlink")
	}
	if err := os.Rename(tempPath, dst); err != nil {
		return nil, errors.NewInternal(fmt.Errorf("failed to finalize export: %w", err))
	}

	success = true
	return sum, nil
}

func addFile(zw *zip.Writer, src, name string, sum *Summary) error {
	f, err := os.Open(src)
	if err != nil {
		return errors.NewInternal(err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.NewInternal(err)
	}
	hdr, err := zip.FileInfoHeader(info)
	if err != nil {
		return errors.NewInternal(err)
	}
	hdr.Name = name
	hdr.Method = zip.Deflate

	w, err := zw.CreateHeader(hdr)
	if err != nil {
		return errors.NewInternal(err)
	}
	n, err := io.Copy(w, f)
	if err != nil {
		return errors.NewInternal(fmt.Errorf("failed to archive %s: %w", name, err))
	}
	sum.Files++
	sum.Bytes += n
	return nil
}

// addDir archives the regular files under src as prefix/...; a missing src
// still yields an empty directory entry.
func addDir(zw *zip.Writer, src, prefix string, sum *Summary) error {
	if _, err := zw.Create(prefix + "/"); err != nil {
		return errors.NewInternal(err)
	}
	if _, err := os.Stat(src); os.IsNotExist(err) {
		return nil
	}

	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return errors.NewInternal(err)
		}
		if p == src || !d.Type().IsRegular() {
			return nil
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return errors.NewInternal(err)
		}
		return addFile(zw, p, path.Join(prefix, filepath.ToSlash(rel)), sum)
	})
}
