package memo

import (
	"time"

	"github.com/looplj/shellstate/internal/metrics"
)

// Expiry reports whether an entry stored at storedAt is stale at now.
type Expiry func(storedAt, now time.Time) bool

// NeverExpires keeps entries for the lifetime of the store.
func NeverExpires(time.Time, time.Time) bool {
	return false
}

// ExpireAfter treats entries older than ttl as stale.
func ExpireAfter(ttl time.Duration) Expiry {
	return func(storedAt, now time.Time) bool {
		return now.Sub(storedAt) >= ttl
	}
}

type settings struct {
	name        string
	expiry      Expiry
	keyFunc     any
	store       any
	now         func() time.Time
	loadTimeout time.Duration
	instruments *metrics.Instruments
}

// Option configures a Decorator.
type Option func(*settings)

// WithName prefixes keys and labels logs and metrics.
func WithName(name string) Option {
	return func(s *settings) {
		s.name = name
	}
}

// WithExpiry sets the staleness predicate. Defaults to NeverExpires.
func WithExpiry(fn Expiry) Option {
	return func(s *settings) {
		if fn != nil {
			s.expiry = fn
		}
	}
}

// WithKeyFunc replaces the default structural key. A must match the decorated
// argument type, otherwise New panics.
func WithKeyFunc[A any](fn func(arg A) (string, error)) Option {
	return func(s *settings) {
		if fn != nil {
			s.keyFunc = fn
		}
	}
}

// WithStore sets the entry store. R must match the decorated result type,
// otherwise New panics.
func WithStore[R any](store Store[R]) Option {
	return func(s *settings) {
		if store != nil {
			s.store = store
		}
	}
}

// WithClock overrides the UTC wall clock.
func WithClock(now func() time.Time) Option {
	return func(s *settings) {
		if now != nil {
			s.now = now
		}
	}
}

// WithLoadTimeout bounds each producer call by d. Producer calls never inherit the
// caller's cancellation, so without a timeout they run until they return.
func WithLoadTimeout(d time.Duration) Option {
	return func(s *settings) {
		if d > 0 {
			s.loadTimeout = d
		}
	}
}

// WithMetrics records hit, miss and load counters.
func WithMetrics(inst *metrics.Instruments) Option {
	return func(s *settings) {
		if inst != nil {
			s.instruments = inst
		}
	}
}
