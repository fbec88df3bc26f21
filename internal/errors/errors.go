package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Daybook error code.
type ErrorCode string

const (
	ErrInvalidRequest   ErrorCode = "INVALID_REQUEST"   // 400
	ErrNotFound         ErrorCode = "NOT_FOUND"         // 404
	ErrFileNotFound     ErrorCode = "FILE_NOT_FOUND"    // 404
	ErrBusy             ErrorCode = "BUSY"              // 409
	ErrImageTooLarge    ErrorCode = "IMAGE_TOO_LARGE"   // 413
	ErrUnsupportedImage ErrorCode = "UNSUPPORTED_IMAGE" // 415
	ErrBackupInvalid    ErrorCode = "BACKUP_INVALID"    // 422
	ErrRestoreFailed    ErrorCode = "RESTORE_FAILED"    // 500, manual recovery required
	ErrInternal         ErrorCode = "INTERNAL"          // 500
)

// DaybookError represents a structured error with code, status, and details.
type DaybookError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any
}

// Error implements the error interface.
func (e *DaybookError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *DaybookError {
	return &DaybookError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing record.
// Entity lookups return nil sentinels instead; this is for addressed resources
// a caller explicitly asked for (tags, archive names in tool calls).
func NewNotFound(kind, identifier string) *DaybookError {
	return &DaybookError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewFileNotFound creates a 404 error for a missing file on disk.
func NewFileNotFound(path string) *DaybookError {
	return &DaybookError{
		Code:    ErrFileNotFound,
		Status:  404,
		Message: fmt.Sprintf("file not found: %s", path),
		Details: map[string]any{"path": path},
	}
}

// NewBusy creates a 409 error when a data transfer is already running.
func NewBusy(operation string) *DaybookError {
	return &DaybookError{
		Code:    ErrBusy,
		Status:  409,
		Message: fmt.Sprintf("cannot start %s: another export or import is in progress", operation),
		Details: map[string]any{"operation": operation},
	}
}

// NewImageTooLarge creates a 413 error when an image payload exceeds the limit.
func NewImageTooLarge(max, actual int64) *DaybookError {
	return &DaybookError{
		Code:    ErrImageTooLarge,
		Status:  413,
		Message: fmt.Sprintf("image exceeds maximum size: %d bytes (max %d)", actual, max),
		Details: map[string]any{"max_bytes": max, "actual_bytes": actual},
	}
}

// NewUnsupportedImage creates a 415 error for unknown extensions or undecodable payloads.
func NewUnsupportedImage(reason string) *DaybookError {
	return &DaybookError{
		Code:    ErrUnsupportedImage,
		Status:  415,
		Message: fmt.Sprintf("unsupported image: %s", reason),
	}
}

// NewBackupInvalid creates a 422 error for a bundle that holds no restorable data.
func NewBackupInvalid(msg string) *DaybookError {
	return &DaybookError{
		Code:    ErrBackupInvalid,
		Status:  422,
		Message: msg,
	}
}

// NewRestoreFailed creates the integrity-fatal error raised when an import failed
// and putting the previous data back failed too.
func NewRestoreFailed(importErr, restoreErr error, rollbackDir string) *DaybookError {
	return &DaybookError{
		Code:   ErrRestoreFailed,
		Status: 500,
		Message: fmt.Sprintf(
			"FATAL: import failed (%v) and restoring the previous data also failed (%v); "+
				"the database is not available and manual recovery is required from %s",
			importErr, restoreErr, rollbackDir),
		Details: map[string]any{
			"import_error":  errString(importErr),
			"restore_error": errString(restoreErr),
			"rollback_dir":  rollbackDir,
		},
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
// The message stays generic; the cause is kept in Details for logging.
func NewInternal(err error) *DaybookError {
	details := map[string]any{}
	if err != nil {
		details["internal_error"] = err.Error()
	}
	return &DaybookError{
		Code:    ErrInternal,
		Status:  500,
		Message: "an internal error occurred",
		Details: details,
	}
}

// Is checks if an error (or anything it wraps) is a DaybookError with the given code.
func Is(err error, code ErrorCode) bool {
	var dErr *DaybookError
	if stderrors.As(err, &dErr) {
		return dErr.Code == code
	}
	return false
}

// As unwraps err to a *DaybookError.
func As(err error) (*DaybookError, bool) {
	var dErr *DaybookError
	ok := stderrors.As(err, &dErr)
	return dErr, ok
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
