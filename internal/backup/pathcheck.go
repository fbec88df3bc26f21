package backup

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/hpungsan/daybook/internal/config"
	"github.com/hpungsan/daybook/internal/errors"
)

// Extension is the required bundle file extension.
const Extension = ".zip"

// PathCheckMode indicates whether the path check is for reading or writing.
type PathCheckMode int

const (
	PathCheckRead  PathCheckMode = iota // import
	PathCheckWrite                      // export
)

// ValidatePath checks a bundle path before export or import:
// no ".." components, a .zip extension, the file directly inside exportsDir
// or a configured allowed path, and no symlinks on the file or its parent.
//
// Requiring the file to sit directly in an allowed directory leaves only the
// final component open to a symlink swap, and that one is closed by opening
// with O_NOFOLLOW.
func ValidatePath(path string, mode PathCheckMode, cfg *config.Config, exportsDir string) error {
	if path == "" {
		return errors.NewInvalidRequest("path is required")
	}
	if containsTraversal(path) {
		return errors.NewInvalidRequest("path must not contain directory traversal (..)")
	}

	cleaned := filepath.Clean(path)
	if !strings.EqualFold(filepath.Ext(cleaned), Extension) {
		return errors.NewInvalidRequest("path must have .zip extension")
	}

	absPath, err := filepath.Abs(cleaned)
	if err != nil {
		return errors.NewInvalidRequest(fmt.Sprintf("invalid path: %v", err))
	}

	if cfg == nil || !cfg.AllowUnsafePaths {
		allowed, err := allowedDirs(cfg, exportsDir)
		if err != nil {
			return err
		}
		parent := filepath.Dir(absPath)
		if !directlyIn(parent, allowed) {
			return errors.NewInvalidRequest(fmt.Sprintf(
				"file must be directly in an allowed directory (no subdirectories); allowed: %v", allowed))
		}
		if info, err := os.Lstat(parent); err == nil && info.Mode()&os.ModeSymlink != 0 {
			return errors.NewInvalidRequest("parent directory must not be a symlink")
		}
	}

	if mode == PathCheckRead {
		if _, err := os.Stat(absPath); os.IsNotExist(err) {
			return errors.NewFileNotFound(path)
		}
	}
	if info, err := os.Lstat(absPath); err == nil && info.Mode()&os.ModeSymlink != 0 {
		return errors.NewInvalidRequest("path must not be a symlink")
	}
	return nil
}

// allowedDirs returns exportsDir plus the absolute entries of cfg.AllowedPaths.
// Existing symlinked entries are resolved so they match their real target.
func allowedDirs(cfg *config.Config, exportsDir string) ([]string, error) {
	dirs := []string{exportsDir}
	if cfg != nil {
		for _, p := range cfg.AllowedPaths {
			if filepath.IsAbs(p) {
				dirs = append(dirs, p)
			}
		}
	}

	result := make([]string, 0, len(dirs))
	for _, d := range dirs {
		abs, err := filepath.Abs(filepath.Clean(d))
		if err != nil {
			return nil, errors.NewInvalidRequest(fmt.Sprintf("invalid allowed path: %v", err))
		}
		if info, err := os.Lstat(abs); err == nil && info.Mode()&os.ModeSymlink != 0 {
			resolved, err := filepath.EvalSymlinks(abs)
			if err != nil {
				return nil, errors.NewInvalidRequest(fmt.Sprintf("cannot resolve symlink in allowed path: %v", err))
			}
			abs = resolved
		}
		result = append(result, abs)
	}
	return result, nil
}

func directlyIn(parent string, allowed []string) bool {
	parent = filepath.Clean(parent)
	for _, dir := range allowed {
		if parent == filepath.Clean(dir) {
			return true
		}
	}
	return false
}

// containsTraversal reports whether any component of path is "..",
// splitting on both the OS separator and '/'.
func containsTraversal(path string) bool {
	parts := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == filepath.Separator
	})
	for _, part := range parts {
		if part == ".." {
			return true
		}
	}
	return false
}
