// Package notify shows one user notification at a time and expires it after a fixed delay.
package notify

import (
	"sync"
	"time"

	"canteen-tracker/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const defaultTTL = 3 * time.Second

// Sink receives every issued notification.
type Sink func(model.Notification)

// Option customises an Emitter.
type Option func(*Emitter)

// WithTTL sets how long a notification stays visible.
func WithTTL(ttl time.Duration) Option {
	return func(e *Emitter) {
		if ttl > 0 {
			e.ttl = ttl
		}
	}
}

// WithSink adds a sink.
func WithSink(sink Sink) Option {
	return func(e *Emitter) {
		e.sinks = append(e.sinks, sink)
	}
}

// WithClock overrides the clock used to stamp notifications.
func WithClock(now func() time.Time) Option {
	return func(e *Emitter) {
		e.now = now
	}
}

// Emitter owns the single notification slot.
type Emitter struct {
	ttl    time.Duration
	now    func() time.Time
	sinks  []Sink
	logger zerolog.Logger

	mu      sync.Mutex
	current *model.Notification
	timer   *time.Timer
	closed  bool
}

// New creates an emitter.
func New(logger zerolog.Logger, opts ...Option) *Emitter {
	e := &Emitter{
		ttl:    defaultTTL,
		now:    time.Now,
		logger: logger.With().Str("component", "notify").Logger(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Notify replaces the visible notification and arms its expiry.
func (e *Emitter) Notify(message string, severity model.Severity) model.Notification {
	n := model.Notification{
		ID:        uuid.New(),
		Message:   message,
		Severity:  severity,
		CreatedAt: e.now(),
	}

	e.mu.Lock()
	if e.closed {
		e.mu.Unlock()
		return n
	}
	if e.timer != nil {
		e.timer.Stop()
	}
	e.current = &n
	id := n.ID
	e.timer = time.AfterFunc(e.ttl, func() {
		e.Dismiss(id)
	})
	e.mu.Unlock()

	e.logger.Debug().
		Str("notification_id", id.String()).
		Str("severity", string(severity)).
		Str("message", message).
		Msg("notification issued")

	for _, sink := range e.sinks {
		sink(n)
	}
	return n
}

// Info issues an informational notification.
func (e *Emitter) Info(message string) model.Notification {
	return e.Notify(message, model.SeverityInfo)
}

// Success issues a success notification.
func (e *Emitter) Success(message string) model.Notification {
	return e.Notify(message, model.SeveritySuccess)
}

// Error issues an error notification.
func (e *Emitter) Error(message string) model.Notification {
	return e.Notify(message, model.SeverityError)
}

// Current returns the visible notification, if any.
func (e *Emitter) Current() (model.Notification, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil {
		return model.Notification{}, false
	}
	return *e.current, true
}

// Dismiss hides the notification with id. It reports false when that notification is no longer visible.
func (e *Emitter) Dismiss(id uuid.UUID) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.current == nil || e.current.ID != id {
		return false
	}
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.current = nil
	return true
}

// Close stops the pending expiry and drops later notifications.
func (e *Emitter) Close() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
	e.current = nil
	e.closed = true
}
