package images

import (
	"context"
	"os"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/hpungsan/daybook/internal/logging"
)

// Worker runs image file I/O in the background with bounded concurrency:
// deleting the files of released ids and generating thumbnails.
// Jobs are not ordered relative to each other.
type Worker struct {
	store *Store
	log   logging.Logger
	sem   *semaphore.Weighted
	wg    sync.WaitGroup
}

// NewWorker returns a Worker running at most workers jobs at a time.
func NewWorker(store *Store, workers int, log logging.Logger) *Worker {
	if workers <= 0 {
		workers = 1
	}
	return &Worker{
		store: store,
		log:   log.With("component", "images"),
		sem:   semaphore.NewWeighted(int64(workers)),
	}
}

// Release schedules deletion of every file belonging to ids.
func (w *Worker) Release(ids []string) {
	for _, id := range ids {
		w.run(func(ctx context.Context) {
			w.deleteFiles(ctx, id)
		})
	}
}

// Thumbnail schedules thumbnail generation for a stored original.
func (w *Worker) Thumbnail(ref Ref) {
	w.run(func(ctx context.Context) {
		if _, err := w.store.GenerateThumbnail(ref); err != nil {
			w.log.Warn(ctx, "thumbnail generation failed", "image", ref.ID, "error", err)
		}
	})
}

// Wait blocks until every scheduled job has finished.
func (w *Worker) Wait() {
	w.wg.Wait()
}

func (w *Worker) run(job func(ctx context.Context)) {
	w.wg.Add(1)
	go func() {
		defer w.wg.Done()
		ctx := context.Background()
		if err := w.sem.Acquire(ctx, 1); err != nil {
			return
		}
		defer w.sem.Release(1)
		job(ctx)
	}()
}

func (w *Worker) deleteFiles(ctx context.Context, id string) {
	removed := 0
	for _, path := range w.store.Paths(id) {
		err := os.Remove(path)
		switch {
		case err == nil:
			removed++
		case !os.IsNotExist(err):
			w.log.Warn(ctx, "failed to delete released image file", "image", id, "path", path, "error", err)
		}
	}
	w.log.Debug(ctx, "released image", "image", id, "files_removed", removed)
}
