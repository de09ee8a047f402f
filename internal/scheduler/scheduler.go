// Package scheduler runs named repeating cycles that are stopped through scoped handles.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Task is one fire of a cycle. The context is cancelled when the cycle's handle is released.
type Task func(ctx context.Context) error

// Option customises a cycle.
type Option func(*cycleOptions)

type cycleOptions struct {
	immediate bool
	onRelease func()
}

// Immediate fires the task once at start instead of waiting for the first tick.
func Immediate() Option {
	return func(o *cycleOptions) {
		o.immediate = true
	}
}

// OnRelease runs fn inside Release once the cycle has stopped ticking.
func OnRelease(fn func()) Option {
	return func(o *cycleOptions) {
		o.onRelease = fn
	}
}

// Scheduler owns every cycle started through it.
type Scheduler struct {
	logger zerolog.Logger

	mu      sync.Mutex
	handles map[*Handle]struct{}
	closed  bool
	fires   sync.WaitGroup
}

// New creates a scheduler.
func New(logger zerolog.Logger) *Scheduler {
	return &Scheduler{
		logger:  logger.With().Str("component", "scheduler").Logger(),
		handles: make(map[*Handle]struct{}),
	}
}

// Handle is the only way to stop a cycle.
type Handle struct {
	name      string
	cancel    context.CancelFunc
	done      chan struct{}
	once      sync.Once
	owner     *Scheduler
	onRelease func()
}

// Name returns the cycle name.
func (h *Handle) Name() string {
	return h.name
}

// Release stops the cycle and cancels its in-flight fires. Calling it more than once is a no-op.
// The OnRelease hook has returned by the time Release does.
func (h *Handle) Release() {
	h.once.Do(func() {
		h.cancel()
		<-h.done
		h.owner.forget(h)
		if h.onRelease != nil {
			h.onRelease()
		}
	})
}

// Done is closed once the cycle has stopped ticking.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Start begins a cycle that runs task every interval until the handle is released or ctx ends.
// Fires run in their own goroutines and are not serialized.
func (s *Scheduler) Start(ctx context.Context, name string, interval time.Duration, task Task, opts ...Option) *Handle {
	var o cycleOptions
	for _, opt := range opts {
		opt(&o)
	}

	cycleCtx, cancel := context.WithCancel(ctx)
	h := &Handle{
		name:      name,
		cancel:    cancel,
		done:      make(chan struct{}),
		owner:     s,
		onRelease: o.onRelease,
	}

	s.mu.Lock()
	if s.closed {
		cancel()
	} else {
		s.handles[h] = struct{}{}
	}
	s.mu.Unlock()

	s.logger.Debug().
		Str("cycle", name).
		Dur("interval", interval).
		Msg("cycle started")

	go s.loop(cycleCtx, h, interval, task, o.immediate)

	return h
}

func (s *Scheduler) loop(ctx context.Context, h *Handle, interval time.Duration, task Task, immediate bool) {
	ticker := time.NewTicker(interval)
	defer func() {
		ticker.Stop()
		close(h.done)
		s.logger.Debug().Str("cycle", h.name).Msg("cycle stopped")
	}()

	if immediate {
		s.fire(ctx, h.name, task)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(ctx, h.name, task)
		}
	}
}

// fire runs one task invocation behind a failure boundary.
func (s *Scheduler) fire(ctx context.Context, name string, task Task) {
	if ctx.Err() != nil {
		return
	}

	s.fires.Add(1)
	go func() {
		defer s.fires.Done()
		defer func() {
			if r := recover(); r != nil {
				s.logger.Error().
					Str("cycle", name).
					Str("panic", fmt.Sprint(r)).
					Msg("cycle fire panicked")
			}
		}()

		if err := task(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.logger.Warn().
				Err(err).
				Str("cycle", name).
				Msg("cycle fire failed")
		}
	}()
}

func (s *Scheduler) forget(h *Handle) {
	s.mu.Lock()
	delete(s.handles, h)
	s.mu.Unlock()
}

// Active returns the number of cycles that have not been released.
func (s *Scheduler) Active() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.handles)
}

// Close releases every cycle and waits for in-flight fires to return.
// Cycles started after Close stop immediately.
func (s *Scheduler) Close() {
	s.mu.Lock()
	s.closed = true
	handles := make([]*Handle, 0, len(s.handles))
	for h := range s.handles {
		handles = append(handles, h)
	}
	s.mu.Unlock()

	for _, h := range handles {
		h.Release()
	}
	s.fires.Wait()
}
