// Package retention evicts generated documents whose retention period has elapsed.
package retention

import (
	"context"
	"time"

	"impugnaya/internal/logging"
)

// Purger removes up to limit documents that expired at or before now.
type Purger interface {
	PurgeExpired(ctx context.Context, now time.Time, limit int) (int, error)
}

// Sweeper runs a Purger on a fixed interval.
type Sweeper struct {
	purger   Purger
	interval time.Duration
	batch    int
	logger   *logging.Logger
	now      func() time.Time
}

// New returns a Sweeper. batch bounds the documents removed per pass; a pass that fills
// the batch is repeated immediately until the backlog is drained.
func New(purger Purger, interval time.Duration, batch int, logger *logging.Logger) *Sweeper {
	if batch <= 0 {
		batch = 100
	}
	return &Sweeper{purger: purger, interval: interval, batch: batch, logger: logger, now: time.Now}
}

// Run sweeps once and then every interval until ctx is done.
func (s *Sweeper) Run(ctx context.Context) {
	if s.interval <= 0 {
		return
	}
	s.Sweep(ctx)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep performs one pass and returns the number of documents removed.
func (s *Sweeper) Sweep(ctx context.Context) int {
	start := time.Now()
	total := 0
	for ctx.Err() == nil {
		removed, err := s.purger.PurgeExpired(ctx, s.now(), s.batch)
		total += removed
		if err != nil {
			s.logger.Error("retention sweep failed", err, map[string]any{
				"component": "retention",
				"removed":   total,
			})
			break
		}
		if removed < s.batch {
			break
		}
	}
	if total > 0 {
		s.logger.Info("expired documents removed", map[string]any{
			"component":   "retention",
			"removed":     total,
			"duration_ms": time.Since(start).Milliseconds(),
		})
	}
	return total
}
