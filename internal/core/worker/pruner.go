// Package worker holds background maintenance loops.
package worker

import (
	"context"
	"log/slog"
	"time"
)

// ResolvedStore deletes resolved reconciliation entries.
type ResolvedStore interface {
	DeleteResolvedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// Pruner deletes resolved reconciliation entries past their retention.
type Pruner struct {
	store     ResolvedStore
	retention time.Duration
	log       *slog.Logger
	now       func() time.Time
}

// NewPruner creates a new Pruner worker.
func NewPruner(store ResolvedStore, retention time.Duration, log *slog.Logger) *Pruner {
	if log == nil {
		log = slog.Default()
	}
	return &Pruner{
		store:     store,
		retention: retention,
		log:       log,
		now:       time.Now,
	}
}

// Interval is how often Start prunes: a tenth of the retention,
// clamped to [1m, 1h].
func (p *Pruner) Interval() time.Duration {
	interval := min(p.retention/10, time.Hour)
	return max(interval, time.Minute)
}

// Start runs the pruner loop until ctx is done.
func (p *Pruner) Start(ctx context.Context) {
	if p.retention <= 0 {
		return // Retention disabled
	}

	ticker := time.NewTicker(p.Interval())
	defer ticker.Stop()

	p.Prune(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.Prune(ctx)
		}
	}
}

// Prune runs a single pass and returns the number of rows removed.
func (p *Pruner) Prune(ctx context.Context) int64 {
	cutoff := p.now().Add(-p.retention)

	n, err := p.store.DeleteResolvedBefore(ctx, cutoff)
	if err != nil {
		p.log.Error("Failed to prune reconciliation entries", "error", err)
		return 0
	}
	if n > 0 {
		p.log.Info("Pruned resolved reconciliation entries", "count", n, "cutoff", cutoff)
	}
	return n
}
