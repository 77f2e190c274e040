// Package purge empties the task trash on a schedule.
package purge

import (
	"context"
	"log/slog"
	"time"

	"github.com/tgienger/planx/internal/config"
)

// Purger removes tasks soft-deleted before cutoff and reports the links of
// stored files they left behind
type Purger interface {
	PurgeDeletedTasks(ctx context.Context, cutoff time.Time) (int64, []string, error)
}

// Remover deletes the stored file behind a link
type Remover interface {
	DeleteURL(ctx context.Context, url string) error
}

// Worker deletes trashed tasks once they are older than the retention period
type Worker struct {
	purger    Purger
	files     Remover
	interval  time.Duration
	retention time.Duration
	logger    *slog.Logger
	now       func() time.Time
}

// NewWorker builds a worker. files may be nil, in which case stored media
// of purged tasks is left in place.
func NewWorker(p Purger, files Remover, cfg config.PurgeConfig, logger *slog.Logger) *Worker {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Worker{
		purger:    p,
		files:     files,
		interval:  cfg.Interval,
		retention: cfg.Retention,
		logger:    logger.With("component", "purge"),
		now:       time.Now,
	}
}

// Run purges once immediately and then every interval until ctx is done.
// A non-positive interval disables the worker.
func (w *Worker) Run(ctx context.Context) {
	if w.interval <= 0 {
		w.logger.Info("trash purge disabled")
		return
	}
	w.logger.Info("trash purge started", "interval", w.interval, "retention", w.retention)

	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		w.RunOnce(ctx)
		select {
		case <-ctx.Done():
			w.logger.Info("trash purge stopped")
			return
		case <-ticker.C:
		}
	}
}

// RunOnce performs a single purge and returns the number of tasks removed
func (w *Worker) RunOnce(ctx context.Context) int64 {
	cutoff := w.now().Add(-w.retention)
	n, links, err := w.purger.PurgeDeletedTasks(ctx, cutoff)
	if err != nil {
		if ctx.Err() == nil {
			w.logger.ErrorContext(ctx, "failed to purge trash", "cutoff", cutoff, "error", err)
		}
		return 0
	}
	if n > 0 {
		w.logger.InfoContext(ctx, "purged trashed tasks", "count", n, "files", len(links), "cutoff", cutoff)
	}
	if w.files != nil {
		for _, link := range links {
			if err := w.files.DeleteURL(context.WithoutCancel(ctx), link); err != nil {
				w.logger.WarnContext(ctx, "failed to delete purged media", "url", link, "error", err)
			}
		}
	}
	return n
}
