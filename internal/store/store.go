// Package store keeps the latest order snapshot and detects status transitions between fetches.
package store

import (
	"sync"
	"time"

	"canteen-tracker/internal/model"

	"github.com/rs/zerolog"
)

const defaultRecentLimit = 50

// Option customises a Store.
type Option func(*Store)

// WithRecentLimit bounds the transition log kept for display.
func WithRecentLimit(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.recentLimit = n
		}
	}
}

// WithClock overrides the clock used to stamp transitions.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		s.now = now
	}
}

// Store holds the last applied order snapshot.
type Store struct {
	logger      zerolog.Logger
	now         func() time.Time
	recentLimit int

	mu       sync.RWMutex
	orders   []model.Order
	index    map[int64]int
	baseline bool
	recent   []model.Transition
}

// New creates an empty store.
func New(logger zerolog.Logger, opts ...Option) *Store {
	s := &Store{
		logger:      logger.With().Str("component", "store").Logger(),
		now:         time.Now,
		recentLimit: defaultRecentLimit,
		index:       make(map[int64]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Apply replaces the snapshot with fetched and returns the status changes since the previous apply.
// Duplicate ids keep the position of their first occurrence and the payload of their last.
// The first apply only establishes the baseline.
func (s *Store) Apply(fetched []model.Order) []model.Transition {
	orders, index := dedupe(fetched)

	s.mu.Lock()
	defer s.mu.Unlock()

	var transitions []model.Transition
	if s.baseline {
		observedAt := s.now()
		for _, order := range orders {
			pos, ok := s.index[order.ID]
			if !ok {
				continue
			}
			prev := s.orders[pos].Status
			if prev == order.Status {
				continue
			}
			transitions = append(transitions, model.Transition{
				OrderID:    order.ID,
				From:       prev,
				To:         order.Status,
				ObservedAt: observedAt,
				Notify:     order.Status.Notifiable(),
			})
		}
	}

	s.orders = orders
	s.index = index
	s.baseline = true
	s.record(transitions)

	if len(transitions) > 0 {
		s.logger.Debug().
			Int("orders", len(orders)).
			Int("transitions", len(transitions)).
			Msg("snapshot applied")
	}

	return transitions
}

func dedupe(fetched []model.Order) ([]model.Order, map[int64]int) {
	orders := make([]model.Order, 0, len(fetched))
	index := make(map[int64]int, len(fetched))
	for _, order := range fetched {
		if pos, ok := index[order.ID]; ok {
			orders[pos] = order
			continue
		}
		index[order.ID] = len(orders)
		orders = append(orders, order)
	}
	return orders, index
}

func (s *Store) record(transitions []model.Transition) {
	s.recent = append(s.recent, transitions...)
	if over := len(s.recent) - s.recentLimit; over > 0 {
		s.recent = append([]model.Transition(nil), s.recent[over:]...)
	}
}

// Snapshot returns a copy of the current orders in display order.
func (s *Store) Snapshot() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Order(nil), s.orders...)
}

// Get returns the order with id, if tracked.
func (s *Store) Get(id int64) (model.Order, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	pos, ok := s.index[id]
	if !ok {
		return model.Order{}, false
	}
	return s.orders[pos], true
}

// Active returns the orders still waiting on the kitchen.
func (s *Store) Active() []model.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var active []model.Order
	for _, order := range s.orders {
		if order.Status.IsActive() {
			active = append(active, order)
		}
	}
	return active
}

// Recent returns the most recent transitions, oldest first.
func (s *Store) Recent() []model.Transition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]model.Transition(nil), s.recent...)
}
