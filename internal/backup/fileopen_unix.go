//go:build !windows

package backup

import (
	stderrors "errors"
	"os"
	"syscall"

	"github.com/hpungsan/daybook/internal/errors"
)

// openNoFollow opens path refusing a symlink as the final component.
// Intermediate components are covered by ValidatePath.
func openNoFollow(path string, flag int, perm os.FileMode) (*os.File, error) {
	fd, err := syscall.Open(path, flag|syscall.O_NOFOLLOW|syscall.O_CLOEXEC, uint32(perm))
	switch {
	case err == nil:
		return os.NewFile(uintptr(fd), path), nil
	case stderrors.Is(err, syscall.ELOOP):
		return nil, errors.NewInvalidRequest("bundle path must not be a symlink")
	case stderrors.Is(err, syscall.ENOENT) && flag&os.O_CREATE == 0:
		return nil, errors.NewFileNotFound(path)
	default:
		return nil, &os.PathError{Op: "open", Path: path, Err: err}
	}
}
