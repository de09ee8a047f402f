// Package eta keeps the wait-time estimates of active orders.
package eta

import (
	"context"
	"sync"

	"canteen-tracker/internal/backend"
	"canteen-tracker/internal/model"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const defaultConcurrency = 4

// Aggregator queries one estimate per active order and replaces its map wholesale.
type Aggregator struct {
	source      backend.WaitTimeSource
	concurrency int
	logger      zerolog.Logger

	mu         sync.RWMutex
	estimates map[int64]int
	clears    uint64
}

// New creates an aggregator. concurrency bounds in-flight lookups per refresh.
func New(source backend.WaitTimeSource, concurrency int, logger zerolog.Logger) *Aggregator {
	if concurrency < 1 {
		concurrency = defaultConcurrency
	}
	return &Aggregator{
		source:      source,
		concurrency: concurrency,
		logger:      logger.With().Str("component", "eta").Logger(),
		estimates:   make(map[int64]int),
	}
}

// Refresh queries estimates for every active order. Failed lookups are omitted.
// An empty active set clears the map. A refresh overtaken by Clear or cancelled is discarded.
func (a *Aggregator) Refresh(ctx context.Context, active []model.Order) {
	if len(active) == 0 {
		a.Clear()
		return
	}

	a.mu.RLock()
	gen := a.clears
	a.mu.RUnlock()

	var (
		mu      sync.Mutex
		results = make(map[int64]int, len(active))
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(a.concurrency)
	for _, order := range active {
		id := order.ID
		g.Go(func() error {
			minutes, err := a.source.WaitTime(gctx, id)
			if err != nil {
				a.logger.Debug().Err(err).Int64("order_id", id).Msg("wait time lookup failed")
				return nil
			}
			mu.Lock()
			results[id] = minutes
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		return
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	if a.clears != gen {
		return
	}
	a.estimates = results
}

// Clear drops every estimate and invalidates refreshes still in flight.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.estimates = make(map[int64]int)
	a.clears++
}

// Get returns the estimate for orderID, if known.
func (a *Aggregator) Get(orderID int64) (int, bool) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	minutes, ok := a.estimates[orderID]
	return minutes, ok
}

// Snapshot returns a copy of the estimate map.
func (a *Aggregator) Snapshot() map[int64]int {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[int64]int, len(a.estimates))
	for id, minutes := range a.estimates {
		out[id] = minutes
	}
	return out
}
