package backup

import (
	stderrors "errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/hpungsan/daybook/internal/db"
)

// RollbackPrefix names the holding directories created by MoveAside.
const RollbackPrefix = ".rollback-"

// rename is swapped in tests to simulate filesystem failures.
var rename = os.Rename

// StrandedError reports a MoveAside that failed and could not put the entries
// it had already moved back. They remain in RollbackDir.
type StrandedError struct {
	RollbackDir string
	MoveErr     error
	RestoreErr  error
}

func (e *StrandedError) Error() string {
	return fmt.Sprintf("%v; data left in %s: %v", e.MoveErr, e.RollbackDir, e.RestoreErr)
}

func (e *StrandedError) Unwrap() []error {
	return []error{e.MoveErr, e.RestoreErr}
}

// liveNames are the entries of the data directory that an import replaces.
func liveNames() []string {
	return append(db.SideFiles(), db.AssetDirs...)
}

// MoveAside renames the live store files and asset directories of baseDir into
// a fresh rollback directory and returns its path. Missing entries are skipped.
// If a rename fails, entries already moved are put back. When putting them
// back fails too, the rollback directory is kept and a *StrandedError naming
// it is returned.
func MoveAside(baseDir string, now time.Time) (string, error) {
	rollbackDir := filepath.Join(baseDir, fmt.Sprintf("%s%d", RollbackPrefix, now.UnixMilli()))
	if err := os.Mkdir(rollbackDir, 0700); err != nil {
		return "", fmt.Errorf("create rollback dir: %w", err)
	}

	var moved []string
	for _, name := range liveNames() {
		src := filepath.Join(baseDir, name)
		if _, err := os.Lstat(src); os.IsNotExist(err) {
			continue
		}
		if err := rename(src, filepath.Join(rollbackDir, name)); err != nil {
			moveErr := fmt.Errorf("move %s aside: %w", name, err)
			var backErrs []error
			for _, m := range moved {
				if err := rename(filepath.Join(rollbackDir, m), filepath.Join(baseDir, m)); err != nil {
					backErrs = append(backErrs, fmt.Errorf("move %s back: %w", m, err))
				}
			}
			if len(backErrs) > 0 {
				return rollbackDir, &StrandedError{
					RollbackDir: rollbackDir,
					MoveErr:     moveErr,
					RestoreErr:  stderrors.Join(backErrs...),
				}
			}
			if err := os.Remove(rollbackDir); err != nil {
				return "", stderrors.Join(moveErr, err)
			}
			return "", moveErr
		}
		moved = append(moved, name)
	}
	return rollbackDir, nil
}

// Install copies the store files and asset directories found at root into
// baseDir. Asset directories missing from the bundle are created empty.
func Install(root, baseDir string) error {
	for _, name := range db.SideFiles() {
		src := filepath.Join(root, name)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			continue
		}
		if err := copyFile(src, filepath.Join(baseDir, name)); err != nil {
			return err
		}
	}
	for _, dir := range db.AssetDirs {
		src := filepath.Join(root, dir)
		dst := filepath.Join(baseDir, dir)
		if _, err := os.Stat(src); os.IsNotExist(err) {
			if err := os.MkdirAll(dst, 0700); err != nil {
				return err
			}
			continue
		}
		if err := copyDir(src, dst); err != nil {
			return err
		}
	}
	return nil
}

// Restore removes whatever an import put in baseDir and moves the rollback
// directory's contents back, then deletes the rollback directory.
func Restore(baseDir, rollbackDir string) error {
	var errs []error
	for _, name := range liveNames() {
		if err := os.RemoveAll(filepath.Join(baseDir, name)); err != nil {
			errs = append(errs, fmt.Errorf("remove imported %s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}

	for _, name := range liveNames() {
		src := filepath.Join(rollbackDir, name)
		if _, err := os.Lstat(src); os.IsNotExist(err) {
			continue
		}
		if err := rename(src, filepath.Join(baseDir, name)); err != nil {
			errs = append(errs, fmt.Errorf("restore %s: %w", name, err))
		}
	}
	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}
	return os.RemoveAll(rollbackDir)
}

// Discard deletes a rollback directory after a successful import.
func Discard(rollbackDir string) error {
	return os.RemoveAll(rollbackDir)
}

func copyDir(src, dst string) error {
	return filepath.WalkDir(src, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, p)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		switch {
		case d.IsDir():
			return os.MkdirAll(target, 0700)
		case d.Type().IsRegular():
			return copyFile(p, target)
		default:
			return nil
		}
	})
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("copy %s: %w", filepath.Base(src), err)
	}
	return out.Close()
}
