// Package main provides the TinyVault bot server entry point.
package main

import (
	"context"
	"time"

	"github.com/tinyvault/tinyvault-go/internal/bot"
	"github.com/tinyvault/tinyvault-go/internal/logger"
	"github.com/tinyvault/tinyvault-go/internal/metrics"
	"github.com/tinyvault/tinyvault-go/internal/storage"
)

const (
	dedupSweepInterval  = time.Hour
	sizeMetricsInterval = 5 * time.Minute
)

// sweepDedup periodically evicts replay-guard entries older than the
// dedup window so the set cannot grow unbounded on a quiet bot.
func sweepDedup(ctx context.Context, processor *bot.Processor, log *logger.Logger) {
	ticker := time.NewTicker(dedupSweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			evicted := processor.Dedup().Sweep(time.Now())
			if evicted > 0 {
				log.WithField("evicted", evicted).
					WithField("remaining", processor.Dedup().Len()).
					Debug("Replay guard sweep complete")
			}
		}
	}
}

// updateSizeMetrics periodically refreshes the entity size gauges.
func updateSizeMetrics(ctx context.Context, db *storage.DB, processor *bot.Processor, m *metrics.Metrics, log *logger.Logger) {
	ticker := time.NewTicker(sizeMetricsInterval)
	defer ticker.Stop()

	// Run initial update immediately
	performSizeUpdate(ctx, db, processor, m, log)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			performSizeUpdate(ctx, db, processor, m, log)
		}
	}
}

// performSizeUpdate refreshes the size gauges once.
func performSizeUpdate(ctx context.Context, db *storage.DB, processor *bot.Processor, m *metrics.Metrics, log *logger.Logger) {
	if userCount, err := db.CountUsers(ctx); err == nil {
		m.SetSize("users", userCount)
	} else {
		log.WithError(err).Debug("Failed to count users for metrics")
	}
	if itemCount, err := db.CountItems(ctx); err == nil {
		m.SetSize("items", itemCount)
	} else {
		log.WithError(err).Debug("Failed to count items for metrics")
	}
	m.SetSize("states", processor.States().Len())
	m.SetSize("dedup", processor.Dedup().Len())
}
