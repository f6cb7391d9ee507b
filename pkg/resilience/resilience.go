package resilience

import (
	"context"
	"time"
)

type State int

const (
	Closed State = iota
	HalfOpen
	Open
)

func (s State) String() string {
	switch s {
	case HalfOpen:
		return "half-open"
	case Open:
		return "open"
	default:
		return "closed"
	}
}

// Policy runs an operation behind a circuit breaker, retrying transient
// failures inside a single breaker attempt.
type Policy interface {
	Do(ctx context.Context, fn func(ctx context.Context) error) error
	State() State
}

type Config struct {
	Name        string
	MaxRetries  uint64
	Interval    time.Duration
	RetryableFn func(err error) bool
	// TripAfter opens the breaker after this many consecutive failures.
	// Zero keeps the gobreaker default.
	TripAfter     uint32
	OpenTimeout   time.Duration
	OnStateChange func(name string, from, to State)
}

type Option func(*Config)

func WithRetryable(fn func(err error) bool) Option {
	return func(c *Config) {
		c.RetryableFn = fn
	}
}

func WithInterval(d time.Duration) Option {
	return func(c *Config) {
		c.Interval = d
	}
}

func WithMaxRetries(n uint64) Option {
	return func(c *Config) {
		c.MaxRetries = n
	}
}

func WithTripAfter(n uint32) Option {
	return func(c *Config) {
		c.TripAfter = n
	}
}

func WithOpenTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.OpenTimeout = d
	}
}

func WithStateChange(fn func(name string, from, to State)) Option {
	return func(c *Config) {
		c.OnStateChange = fn
	}
}

func ApplyOptions(name string, opts ...Option) *Config {
	c := &Config{Name: name, Interval: 100 * time.Millisecond}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
