package sessionmirror

import (
	"context"
	"errors"
)

// runWithRetry executes one unit of replication work until it succeeds, the
// context ends or the runtime drains. There is deliberately no attempt cap
// and no dead-letter path: secondary-store outages are assumed transient,
// and a unit that cannot land is only visible through backlog logging.
func (r *Runtime) runWithRetry(ctx context.Context, unit func(context.Context) error, label string) {
	delay := r.retryInitialDelay
	for {
		if !r.waitReady(ctx, label) {
			return
		}
		// Readiness may have been true before shutdown began.
		if r.isDraining() {
			r.log.Debug().Str("task", label).Msg("Skipping task, runtime is draining")
			return
		}

		err := r.attempt(ctx, unit)
		if err == nil {
			return
		}
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			r.log.Debug().Str("task", label).Msg("Replication task cancelled")
			return
		}

		r.log.Warn().
			Err(err).
			Str("task", label).
			Dur("retry_in", delay).
			Msg("Replication task failed, retrying")
		if !r.sleep(ctx, delay) {
			return
		}
		delay *= 2
		if delay > r.retryMaxDelay {
			delay = r.retryMaxDelay
		}
	}
}

// attempt holds a gate permit for the duration of a single try, bounding
// simultaneous store operations without bounding queued work.
func (r *Runtime) attempt(ctx context.Context, unit func(context.Context) error) error {
	if err := r.gate.Acquire(ctx, 1); err != nil {
		return err
	}
	defer r.gate.Release(1)
	return unit(ctx)
}

// waitReady blocks until the store is connected, polling at a fixed short
// interval. A false return means the unit should be dropped without error:
// either the runtime is draining or the context ended.
func (r *Runtime) waitReady(ctx context.Context, label string) bool {
	for {
		if r.isDraining() {
			r.log.Debug().Str("task", label).Msg("Dropping task, runtime is draining")
			return false
		}
		if r.ready.Load() {
			return true
		}
		r.log.Debug().Str("task", label).Msg("Secondary store not ready, waiting")
		if !r.sleep(ctx, r.readyPollInterval) {
			return false
		}
	}
}
