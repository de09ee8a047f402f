// Package tracker runs the polling cycles that keep orders, wait times and the queue size current.
package tracker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"canteen-tracker/internal/backend"
	"canteen-tracker/internal/eta"
	"canteen-tracker/internal/model"
	"canteen-tracker/internal/scheduler"
	"canteen-tracker/internal/store"

	"github.com/rs/zerolog"
)

// Notifier surfaces messages to the user.
type Notifier interface {
	Notify(message string, severity model.Severity) model.Notification
}

// Journal records observed transitions.
type Journal interface {
	Record(ctx context.Context, userID int64, transitions []model.Transition) error
}

// Config holds cycle intervals and queue thresholds.
type Config struct {
	OrderInterval     time.Duration
	QueueInterval     time.Duration
	ETAInterval       time.Duration
	AnalyticsInterval time.Duration
	QueueHighWater    int
	QueueLowWater     int
}

// DefaultConfig returns the standard intervals and thresholds.
func DefaultConfig() Config {
	return Config{
		OrderInterval:     8 * time.Second,
		QueueInterval:     10 * time.Second,
		ETAInterval:       10 * time.Second,
		AnalyticsInterval: 15 * time.Second,
		QueueHighWater:    10,
		QueueLowWater:     2,
	}
}

// Option customises a Tracker.
type Option func(*Tracker)

// WithJournal records every observed transition.
func WithJournal(j Journal) Option {
	return func(t *Tracker) {
		t.journal = j
	}
}

// Tracker owns the order, ETA, queue and analytics cycles of one user.
type Tracker struct {
	orders    backend.OrderSource
	scheduler *scheduler.Scheduler
	store     *store.Store
	eta       *eta.Aggregator
	notifier  Notifier
	journal   Journal
	userID    int64
	cfg       Config
	logger    zerolog.Logger

	mu         sync.Mutex
	watchCtx   context.Context
	etaHandle  *scheduler.Handle
	analytics  *scheduler.Handle
	queueSize  int
	queueKnown bool
}

// New creates a tracker for userID.
func New(
	orders backend.OrderSource,
	sched *scheduler.Scheduler,
	st *store.Store,
	agg *eta.Aggregator,
	notifier Notifier,
	userID int64,
	cfg Config,
	logger zerolog.Logger,
	opts ...Option,
) *Tracker {
	t := &Tracker{
		orders:    orders,
		scheduler: sched,
		store:     st,
		eta:       agg,
		notifier:  notifier,
		userID:    userID,
		cfg:       cfg,
		logger:    logger.With().Str("component", "tracker").Logger(),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

// WatchOrders starts the order cycle. While it runs, the ETA cycle follows the active-order set.
// Releasing the returned handle also stops the ETA cycle and clears the estimates.
func (t *Tracker) WatchOrders(ctx context.Context) *scheduler.Handle {
	watchCtx, cancel := context.WithCancel(ctx)

	t.mu.Lock()
	t.watchCtx = watchCtx
	t.mu.Unlock()

	stop := sync.OnceFunc(func() {
		cancel()
		t.mu.Lock()
		if t.watchCtx == watchCtx {
			t.watchCtx = nil
		}
		t.mu.Unlock()
		t.stopETA()
	})

	h := t.scheduler.Start(watchCtx, "orders", t.cfg.OrderInterval, t.RefreshOrders,
		scheduler.Immediate(), scheduler.OnRelease(stop))

	// A cancelled parent ends the cycle without a Release.
	go func() {
		<-h.Done()
		stop()
	}()

	return h
}

// RefreshOrders fetches the user's orders, applies them and surfaces transitions.
func (t *Tracker) RefreshOrders(ctx context.Context) error {
	orders, err := t.orders.OrdersForUser(ctx, t.userID)
	if err != nil {
		return fmt.Errorf("failed to refresh orders: %w", err)
	}

	transitions := t.store.Apply(orders)
	for _, tr := range transitions {
		if msg, ok := transitionMessage(tr); ok {
			t.notifier.Notify(msg, model.SeveritySuccess)
		}
	}

	if t.journal != nil && len(transitions) > 0 {
		if err := t.journal.Record(ctx, t.userID, transitions); err != nil {
			t.logger.Warn().Err(err).Int("transitions", len(transitions)).Msg("failed to journal transitions")
		}
	}

	t.reconcileETA()
	return nil
}

// transitionMessage returns the user message for a transition that warrants one.
func transitionMessage(tr model.Transition) (string, bool) {
	if !tr.Notify {
		return "", false
	}
	switch tr.To {
	case model.StatusReady:
		return fmt.Sprintf("Order #%d is READY for pickup!", tr.OrderID), true
	case model.StatusCompleted:
		return fmt.Sprintf("Order #%d has been COMPLETED. Enjoy!", tr.OrderID), true
	}
	return "", false
}

// reconcileETA runs the ETA cycle only while active orders exist and the order cycle is watched.
func (t *Tracker) reconcileETA() {
	if len(t.store.Active()) == 0 {
		t.stopETA()
		return
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.watchCtx == nil || t.watchCtx.Err() != nil {
		return
	}
	if t.etaHandle != nil {
		select {
		case <-t.etaHandle.Done():
		default:
			return
		}
	}
	t.etaHandle = t.scheduler.Start(t.watchCtx, "eta", t.cfg.ETAInterval, t.RefreshETA, scheduler.Immediate())
}

func (t *Tracker) stopETA() {
	t.mu.Lock()
	h := t.etaHandle
	t.etaHandle = nil
	t.mu.Unlock()

	if h != nil {
		h.Release()
	}
	t.eta.Clear()
}

// RefreshETA refreshes the estimates of the currently active orders.
func (t *Tracker) RefreshETA(ctx context.Context) error {
	t.eta.Refresh(ctx, t.store.Active())
	return nil
}

// WatchQueue starts the queue-size cycle.
func (t *Tracker) WatchQueue(ctx context.Context) *scheduler.Handle {
	return t.scheduler.Start(ctx, "queue", t.cfg.QueueInterval, t.RefreshQueue, scheduler.Immediate())
}

// RefreshQueue fetches the queue size and alerts when it crosses a threshold.
// The first reading only sets the baseline.
func (t *Tracker) RefreshQueue(ctx context.Context) error {
	size, err := t.orders.QueueSize(ctx)
	if err != nil {
		return fmt.Errorf("failed to refresh queue size: %w", err)
	}

	t.mu.Lock()
	prev, known := t.queueSize, t.queueKnown
	t.queueSize, t.queueKnown = size, true
	t.mu.Unlock()

	if !known {
		return nil
	}

	switch {
	case prev < t.cfg.QueueHighWater && size >= t.cfg.QueueHighWater:
		t.notifier.Notify(fmt.Sprintf("High queue: %d active orders. Expect delays.", size), model.SeverityInfo)
	case prev > t.cfg.QueueLowWater && size <= t.cfg.QueueLowWater:
		t.notifier.Notify("Queue is short now. Great time to order!", model.SeveritySuccess)
	}
	return nil
}

// QueueSize returns the last observed queue size.
func (t *Tracker) QueueSize() (int, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.queueSize, t.queueKnown
}

// OpenAnalytics starts the analytics cycle for an open analytics view.
// Opening an already open view returns its existing handle.
func (t *Tracker) OpenAnalytics(ctx context.Context, refresh scheduler.Task) *scheduler.Handle {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.analytics != nil {
		select {
		case <-t.analytics.Done():
		default:
			return t.analytics
		}
	}
	t.analytics = t.scheduler.Start(ctx, "analytics", t.cfg.AnalyticsInterval, refresh, scheduler.Immediate())
	return t.analytics
}

// CloseAnalytics stops the analytics cycle. It reports whether a view was open.
func (t *Tracker) CloseAnalytics() bool {
	t.mu.Lock()
	h := t.analytics
	t.analytics = nil
	t.mu.Unlock()

	if h == nil {
		return false
	}
	h.Release()
	return true
}

// AnalyticsOpen reports whether the analytics cycle is running.
func (t *Tracker) AnalyticsOpen() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.analytics == nil {
		return false
	}
	select {
	case <-t.analytics.Done():
		return false
	default:
		return true
	}
}

// Tracked returns the current orders with their wait-time estimates.
func (t *Tracker) Tracked() []model.TrackedOrder {
	orders := t.store.Snapshot()
	estimates := t.eta.Snapshot()

	tracked := make([]model.TrackedOrder, len(orders))
	for i, order := range orders {
		tracked[i] = model.TrackedOrder{Order: order}
		if minutes, ok := estimates[order.ID]; ok && order.Status.IsActive() {
			m := minutes
			tracked[i].ETAMinutes = &m
		}
	}
	return tracked
}

// Order returns the tracked order with id.
func (t *Tracker) Order(id int64) (model.Order, bool) {
	return t.store.Get(id)
}

// Snapshot returns the current orders.
func (t *Tracker) Snapshot() []model.Order {
	return t.store.Snapshot()
}

// Recent returns the recently observed transitions.
func (t *Tracker) Recent() []model.Transition {
	return t.store.Recent()
}
