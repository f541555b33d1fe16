package sessionmirror

import (
	"context"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/hllutils/sessionmirror/internal/pgstore"
)

const (
	defaultMaxConcurrentWrites = 10
	defaultBacklogThreshold    = 25
	defaultRetryInitialDelay   = 500 * time.Millisecond
	defaultRetryMaxDelay       = 30 * time.Second
	defaultReadyPollInterval   = 500 * time.Millisecond
	defaultDrainTimeout        = 30 * time.Second
)

// Runtime owns all replication state: the secondary store, the pending-task
// registry, the partition cache, the concurrency gate and the draining flag.
// It is constructed with New, started with Startup and stopped with
// Shutdown; every submission method is safe for concurrent use in between.
type Runtime struct {
	cfg   Config
	log   zerolog.Logger
	store Store

	gate       *semaphore.Weighted
	pending    *pendingSet
	partitions partitionCache

	ready    atomic.Bool
	draining atomic.Bool
	drainCh  chan struct{}

	// baseCtx outlives every caller; it is cancelled only after the drain
	// window expires, releasing goroutines stuck mid-attempt.
	baseCtx context.Context
	cancel  context.CancelFunc

	startupOnce sync.Once

	retryInitialDelay time.Duration
	retryMaxDelay     time.Duration
	readyPollInterval time.Duration
	drainTimeout      time.Duration
}

// Option customizes a Runtime.
type Option func(*Runtime)

// WithLogger sets the structured logger. The default writes to stderr.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runtime) { r.log = log }
}

// WithStore replaces the default PostgreSQL client. Meant for tests and for
// callers bringing their own pool management.
func WithStore(store Store) Option {
	return func(r *Runtime) { r.store = store }
}

// WithDrainTimeout bounds how long Shutdown waits for in-flight tasks.
func WithDrainTimeout(d time.Duration) Option {
	return func(r *Runtime) { r.drainTimeout = d }
}

// WithMaxConcurrentWrites bounds how many store operations may be mid-flight
// at once. Queued work is not bounded, only simultaneous attempts.
func WithMaxConcurrentWrites(n int64) Option {
	return func(r *Runtime) { r.gate = semaphore.NewWeighted(n) }
}

// WithBacklogThreshold sets the pending-task count above which a backlog
// warning is logged.
func WithBacklogThreshold(n int) Option {
	return func(r *Runtime) { r.pending.threshold = n }
}

// WithRetryBackoff sets the initial and maximum delay of the exponential
// retry backoff.
func WithRetryBackoff(initial, max time.Duration) Option {
	return func(r *Runtime) {
		r.retryInitialDelay = initial
		r.retryMaxDelay = max
	}
}

// New builds a Runtime from resolved configuration. A replicating mode
// without a connection string is downgraded to ModeDisabled with a warning;
// nothing connects until Startup.
func New(cfg Config, opts ...Option) *Runtime {
	resolved, downgraded := cfg.resolve()

	r := &Runtime{
		cfg:               resolved,
		log:               zerolog.New(os.Stderr).With().Timestamp().Logger(),
		gate:              semaphore.NewWeighted(defaultMaxConcurrentWrites),
		drainCh:           make(chan struct{}),
		retryInitialDelay: defaultRetryInitialDelay,
		retryMaxDelay:     defaultRetryMaxDelay,
		readyPollInterval: defaultReadyPollInterval,
		drainTimeout:      defaultDrainTimeout,
	}
	r.baseCtx, r.cancel = context.WithCancel(context.Background())
	r.pending = newPendingSet(defaultBacklogThreshold)
	r.partitions.months = make(map[string]struct{})
	for _, opt := range opts {
		opt(r)
	}

	if downgraded {
		r.log.Warn().
			Str("mode", string(cfg.Mode)).
			Msg("Storage mode requires a database URL; replication disabled")
	}
	if r.store == nil {
		r.store = pgstore.New(pgstore.Config{
			URL:              resolved.URL,
			PoolMinSize:      resolved.PoolMinSize,
			PoolMaxSize:      resolved.PoolMaxSize,
			StatementTimeout: resolved.StatementTimeout,
		}, r.log)
	}
	return r
}

// Mode returns the resolved storage mode.
func (r *Runtime) Mode() Mode {
	return r.cfg.Mode
}

// Enabled reports whether submissions are currently accepted.
func (r *Runtime) Enabled() bool {
	return r.cfg.Mode.replicates() && !r.draining.Load()
}

// PendingTasks returns the number of scheduled units not yet finished.
func (r *Runtime) PendingTasks() int {
	return r.pending.len()
}

// Startup establishes the secondary store's connection pool. It returns
// immediately when replication is disabled and is idempotent against
// repeated calls. A connection failure propagates: a mode that explicitly
// requested replication makes the secondary a hard startup dependency.
func (r *Runtime) Startup(ctx context.Context) error {
	if !r.cfg.Mode.replicates() {
		return nil
	}
	var err error
	r.startupOnce.Do(func() {
		if err = r.store.Connect(ctx); err != nil {
			err = fmt.Errorf("connect secondary store: %w", err)
			return
		}
		r.ready.Store(true)
		r.log.Info().
			Str("mode", string(r.cfg.Mode)).
			Int("min", r.cfg.PoolMinSize).
			Int("max", r.cfg.PoolMaxSize).
			Msg("Connected PostgreSQL pool")
	})
	return err
}

// Shutdown flips the draining flag, waits up to the drain timeout for
// in-flight tasks, discards the rest and closes the pool. It is safe to
// call when Startup never ran.
func (r *Runtime) Shutdown(ctx context.Context) error {
	if r.draining.CompareAndSwap(false, true) {
		close(r.drainCh)
	}
	if !r.pending.wait(ctx, r.drainTimeout) {
		r.log.Warn().
			Int("tasks", r.pending.len()).
			Msg("Timed out waiting for replication tasks to finish")
	}
	r.cancel()
	r.ready.Store(false)
	return r.store.Close(ctx)
}

func (r *Runtime) isDraining() bool {
	return r.draining.Load()
}

// sleep waits for d, returning early with false when ctx ends and early
// with true when draining begins (the caller's loop rechecks the flag).
func (r *Runtime) sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-r.drainCh:
		return true
	case <-t.C:
		return true
	}
}
