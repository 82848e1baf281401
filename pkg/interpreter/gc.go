package interpreter

import (
	"context"
	"fmt"
	"time"

	"github.com/rhino1998/minipy/pkg/memory"
)

// Sweeper reclaims whatever the mark phase left unmarked. No sweeper is
// installed by default, so Collect only reports reachability.
type Sweeper func(ctx context.Context, table *memory.Table, marked *memory.MarkSet) error

type CollectStats struct {
	References   int
	Reachable    int
	Unreachable  int
	PoolUsed     int
	PoolCapacity int
	Duration     time.Duration
}

// Collect marks every reference reachable from the global bindings. It is
// only ever invoked explicitly.
func (s *Session) Collect(ctx context.Context) (CollectStats, error) {
	err := ctx.Err()
	if err != nil {
		return CollectStats{}, err
	}

	start := time.Now()

	marked, err := memory.Mark(s.table, s.scope.Roots())
	if err != nil {
		return CollectStats{}, fmt.Errorf("mark phase failed: %w", err)
	}

	if s.Sweeper != nil {
		err = s.Sweeper(ctx, s.table, marked)
		if err != nil {
			return CollectStats{}, fmt.Errorf("sweep phase failed: %w", err)
		}
	}

	stats := CollectStats{
		References:   s.table.Len(),
		Reachable:    marked.Reachable(),
		Unreachable:  s.table.Len() - marked.Reachable(),
		PoolUsed:     s.pool.Used(),
		PoolCapacity: s.pool.Capacity(),
		Duration:     time.Since(start),
	}

	s.logger.Debug("collected",
		"references", stats.References,
		"reachable", stats.Reachable,
		"unreachable", stats.Unreachable,
		"pool_used", stats.PoolUsed,
		"duration", stats.Duration,
	)

	return stats, nil
}
