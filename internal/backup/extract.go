package backup

import (
	"archive/zip"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/daybook/internal/db"
	"github.com/hpungsan/daybook/internal/errors"
)

// MaxRootDepth is how many directory levels below the bundle root FindRoot searches.
const MaxRootDepth = 2

// Extract unpacks the zip at src into dst. Entries escaping dst, absolute
// names and symlinks are rejected.
func Extract(src, dst string) error {
	f, err := openNoFollow(src, os.O_RDONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return errors.NewInternal(err)
	}
	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		return errors.NewBackupInvalid(fmt.Sprintf("not a valid zip bundle: %v", err))
	}

	root := filepath.Clean(dst)
	for _, zf := range zr.File {
		if err := extractOne(zf, root); err != nil {
			return err
		}
	}
	return nil
}

func extractOne(zf *zip.File, root string) error {
	name := strings.ReplaceAll(zf.Name, "\\", "/")
	if strings.HasPrefix(name, "/") || filepath.IsAbs(name) {
		return errors.NewBackupInvalid(fmt.Sprintf("bundle entry has an absolute path: %s", zf.Name))
	}
	target := filepath.Join(root, filepath.FromSlash(name))
	if target != root && !strings.HasPrefix(target, root+string(os.PathSeparator)) {
		return errors.NewBackupInvalid(fmt.Sprintf("bundle entry escapes the bundle: %s", zf.Name))
	}

	mode := zf.Mode()
	switch {
	case mode&os.ModeSymlink != 0:
		return errors.NewBackupInvalid(fmt.Sprintf("bundle entry is a symlink: %s", zf.Name))
	case mode.IsDir() || strings.HasSuffix(name, "/"):
		return mkdir(target)
	}

	if err := mkdir(filepath.Dir(target)); err != nil {
		return err
	}
	rc, err := zf.Open()
	if err != nil {
		return errors.NewBackupInvalid(fmt.Sprintf("cannot read bundle entry %s: %v", zf.Name, err))
	}
	defer rc.Close()

	out, err := os.OpenFile(target, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600)
	if err != nil {
		return errors.NewInternal(err)
	}
	if _, err := io.Copy(out, rc); err != nil {
		out.Close()
		return errors.NewBackupInvalid(fmt.Sprintf("cannot read bundle entry %s: %v", zf.Name, err))
	}
	return out.Close()
}

// FindRoot returns the directory under dir holding diary.db, searching dir
// itself and up to MaxRootDepth levels below it. Bundles that wrap their data
// in a folder are accepted this way.
func FindRoot(dir string) (string, error) {
	level := []string{dir}
	for depth := 0; depth <= MaxRootDepth; depth++ {
		var next []string
		for _, d := range level {
			if info, err := os.Stat(filepath.Join(d, db.DataFile)); err == nil && info.Mode().IsRegular() {
				return d, nil
			}
			entries, err := os.ReadDir(d)
			if err != nil {
				continue
			}
			for _, e := range entries {
				if e.IsDir() && e.Name() != "__MACOSX" {
					next = append(next, filepath.Join(d, e.Name()))
				}
			}
		}
		level = next
	}
	return "", errors.NewBackupInvalid(fmt.Sprintf("backup does not contain %s", db.DataFile))
}

// ReadMetadata reads metadata.json from a bundle root. A bundle without one
// yields nil.
func ReadMetadata(root string) (*Metadata, error) {
	data, err := os.ReadFile(filepath.Join(root, MetadataFile))
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	var meta Metadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, errors.NewBackupInvalid(fmt.Sprintf("invalid %s: %v", MetadataFile, err))
	}
	return &meta, nil
}

func mkdir(dir string) error {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return errors.NewInternal(err)
	}
	return nil
}
