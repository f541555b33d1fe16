package sessionmirror

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/hllutils/sessionmirror/pkg/models"
)

// PartitionError reports a failed attempt to provision a monthly log
// partition. The dependent log insert is abandoned for the attempt and the
// whole unit retries later.
type PartitionError struct {
	Month time.Time
	Err   error
}

func (e *PartitionError) Error() string {
	return fmt.Sprintf("ensure partition %s: %v", e.Month.Format("2006-01"), e.Err)
}

func (e *PartitionError) Unwrap() error {
	return e.Err
}

// partitionCache is the set of monthly partitions confirmed to exist in the
// secondary store. It is advisory: a false negative only costs a redundant
// idempotent create. A key is added only after the DDL succeeded, so a
// failed create is simply retried by the next batch that needs the month.
type partitionCache struct {
	mu     sync.Mutex
	months map[string]struct{}
}

func (c *partitionCache) has(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.months[key]
	return ok
}

func (c *partitionCache) put(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.months[key] = struct{}{}
}

// ensureLogPartitions provisions every distinct month present in the batch
// before its insert is attempted; the store rejects rows outside any
// existing partition.
func (r *Runtime) ensureLogPartitions(ctx context.Context, logs []models.LogLine) error {
	seen := make(map[time.Time]struct{}, 1)
	for _, l := range logs {
		seen[models.MonthOf(l.EventTime)] = struct{}{}
	}
	months := make([]time.Time, 0, len(seen))
	for m := range seen {
		months = append(months, m)
	}
	sort.Slice(months, func(i, j int) bool { return months[i].Before(months[j]) })

	for _, month := range months {
		key := month.Format("2006-01-02")
		if r.partitions.has(key) {
			continue
		}
		if err := r.store.CreatePartition(ctx, month); err != nil {
			return &PartitionError{Month: month, Err: err}
		}
		r.partitions.put(key)
	}
	return nil
}
