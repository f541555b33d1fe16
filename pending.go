package sessionmirror

import (
	"context"
	"sync"
	"time"
)

// pendingSet tracks scheduled units of work until they finish. Labels are
// human diagnostics, not unique keys. The backlog warning is edge-triggered:
// it fires when the size climbs strictly above the threshold and re-arms
// once it drops back to or below it.
type pendingSet struct {
	threshold int

	mu      sync.Mutex
	tasks   map[uint64]string
	seq     uint64
	above   bool
	waiters []chan struct{}
}

func newPendingSet(threshold int) *pendingSet {
	return &pendingSet{
		threshold: threshold,
		tasks:     make(map[uint64]string),
	}
}

// add registers a task and reports whether the backlog warning should fire,
// along with the current size.
func (p *pendingSet) add(label string) (id uint64, warn bool, size int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seq++
	id = p.seq
	p.tasks[id] = label
	size = len(p.tasks)
	if size > p.threshold && !p.above {
		p.above = true
		warn = true
	}
	return id, warn, size
}

func (p *pendingSet) remove(id uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.tasks, id)
	if len(p.tasks) <= p.threshold {
		p.above = false
	}
	if len(p.tasks) == 0 {
		for _, ch := range p.waiters {
			close(ch)
		}
		p.waiters = nil
	}
}

func (p *pendingSet) len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.tasks)
}

// wait blocks until the set empties, the timeout passes or ctx ends. It
// reports whether the set actually drained.
func (p *pendingSet) wait(ctx context.Context, timeout time.Duration) bool {
	p.mu.Lock()
	if len(p.tasks) == 0 {
		p.mu.Unlock()
		return true
	}
	done := make(chan struct{})
	p.waiters = append(p.waiters, done)
	p.mu.Unlock()

	t := time.NewTimer(timeout)
	defer t.Stop()
	select {
	case <-done:
		return true
	case <-t.C:
		return false
	case <-ctx.Done():
		return false
	}
}

// track schedules bookkeeping around one unit: registration, the backlog
// warning and removal when the goroutine finishes.
func (r *Runtime) track(label string, run func()) {
	id, warn, size := r.pending.add(label)
	if warn {
		r.log.Warn().
			Int("backlog", size).
			Str("task", label).
			Msg("Replication write backlog above threshold")
	}
	go func() {
		defer r.pending.remove(id)
		run()
	}()
}
