// Package supervisor implements the restart-on-error daemon shape shared by
// the scraping service and the report service: a task runs forever, and any
// error it returns causes the whole task to be restarted after a fixed
// backoff rather than propagating out and taking down sibling tasks.
package supervisor

import (
	"context"
	"time"

	"github.com/rs/zerolog"
	"go.uber.org/atomic"
)

// Task is a long-running unit of work that only returns on error or when ctx
// is done. A nil return with ctx still live is treated the same as ctx being
// done: the supervisor stops restarting it.
type Task func(ctx context.Context) error

// Handle lets a caller observe a supervised task's restart count without
// coupling the task itself to a particular metrics backend.
type Handle struct {
	restarts atomic.Int64
}

// Restarts returns how many times the task has restarted after an error.
func (h *Handle) Restarts() int64 {
	return h.restarts.Load()
}

// Run executes task, restarting it after failedSleep whenever it returns a
// non-nil error, until ctx is done. It never returns before ctx is done
// unless task itself returns nil while ctx is still live.
func Run(ctx context.Context, log zerolog.Logger, name string, failedSleep time.Duration, task Task) *Handle {
	h := &Handle{}
	run(ctx, log, name, failedSleep, task, h)
	return h
}

func run(ctx context.Context, log zerolog.Logger, name string, failedSleep time.Duration, task Task, h *Handle) {
	log.Info().Str("task", name).Msg("running event loop...")
	for {
		if ctx.Err() != nil {
			return
		}

		err := task(ctx)
		if err == nil {
			return
		}

		h.restarts.Inc()
		log.Error().Err(err).Str("task", name).Int64("restarts", h.restarts.Load()).
			Msg("failed task, restarting after backoff")

		select {
		case <-ctx.Done():
			return
		case <-time.After(failedSleep):
		}
	}
}

// Go starts Run in its own goroutine and returns a Handle tracking its
// restart count. The crash of one task started this way never affects
// another: each has its own goroutine and its own Task closure's state.
func Go(ctx context.Context, log zerolog.Logger, name string, failedSleep time.Duration, task Task) *Handle {
	h := &Handle{}
	go run(ctx, log, name, failedSleep, task, h)
	return h
}
