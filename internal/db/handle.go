package db

import (
	"context"
	"database/sql"
	"sync"

	"github.com/hpungsan/daybook/internal/config"
	"github.com/hpungsan/daybook/internal/errors"
)

// Handle is a reopenable store connection. Export and import close it while
// they move files and reopen it afterwards; callers fetch the live *sql.DB
// through DB() on every operation.
type Handle struct {
	baseDir string
	cfg     *config.Config

	mu    sync.RWMutex
	db    *sql.DB
	fatal error
}

// Open initializes the store at baseDir and wraps it in a Handle.
func Open(ctx context.Context, baseDir string, cfg *config.Config) (*Handle, error) {
	h := &Handle{baseDir: baseDir, cfg: cfg}
	if err := h.Reopen(ctx); err != nil {
		return nil, err
	}
	return h, nil
}

// BaseDir is the data directory the handle was opened on.
func (h *Handle) BaseDir() string {
	return h.baseDir
}

// DB returns the open connection. While a transfer holds the store closed it
// returns a BUSY error; after an unrecoverable restore it returns that error.
func (h *Handle) DB() (*sql.DB, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.fatal != nil {
		return nil, h.fatal
	}
	if h.db == nil {
		return nil, errors.NewBusy("database access")
	}
	return h.db, nil
}

// Close closes the connection. Closing a closed handle is a no-op.
func (h *Handle) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db == nil {
		return nil
	}
	err := h.db.Close()
	h.db = nil
	return err
}

// Reopen opens the store if it is closed. It is a no-op on an open handle.
func (h *Handle) Reopen(ctx context.Context) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.db != nil {
		return nil
	}
	db, err := Init(ctx, h.baseDir)
	if err != nil {
		return err
	}
	ConfigurePool(db, h.cfg)
	h.db = db
	h.fatal = nil
	return nil
}

// MarkFatal records an unrecoverable state; every later DB() call returns err.
func (h *Handle) MarkFatal(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.fatal = err
}
