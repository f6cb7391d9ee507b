package implementation

import (
	"context"

	"github.com/jt828/wolam/pkg/resilience"
	goretry "github.com/sethvargo/go-retry"
	"github.com/sony/gobreaker/v2"
)

type policy struct {
	cb          *gobreaker.CircuitBreaker[struct{}]
	backoff     func() goretry.Backoff
	retryableFn func(err error) bool
}

func NewPolicy(name string, opts ...resilience.Option) resilience.Policy {
	cfg := resilience.ApplyOptions(name, opts...)

	settings := gobreaker.Settings{
		Name:    cfg.Name,
		Timeout: cfg.OpenTimeout,
	}
	if cfg.TripAfter > 0 {
		tripAfter := cfg.TripAfter
		settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= tripAfter
		}
	}
	if cfg.OnStateChange != nil {
		notify := cfg.OnStateChange
		settings.OnStateChange = func(name string, from, to gobreaker.State) {
			notify(name, toState(from), toState(to))
		}
	}

	interval, maxRetries := cfg.Interval, cfg.MaxRetries
	return &policy{
		cb: gobreaker.NewCircuitBreaker[struct{}](settings),
		// go-retry backoffs are stateful; each Do gets a fresh one.
		backoff: func() goretry.Backoff {
			return goretry.WithMaxRetries(maxRetries, goretry.NewExponential(interval))
		},
		retryableFn: cfg.RetryableFn,
	}
}

func (p *policy) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	_, err := p.cb.Execute(func() (struct{}, error) {
		return struct{}{}, goretry.Do(ctx, p.backoff(), func(ctx context.Context) error {
			err := fn(ctx)
			if err == nil {
				return nil
			}

			if p.retryableFn != nil && !p.retryableFn(err) {
				return err
			}

			return goretry.RetryableError(err)
		})
	})
	return err
}

func (p *policy) State() resilience.State {
	return toState(p.cb.State())
}

func toState(s gobreaker.State) resilience.State {
	switch s {
	case gobreaker.StateHalfOpen:
		return resilience.HalfOpen
	case gobreaker.StateOpen:
		return resilience.Open
	default:
		return resilience.Closed
	}
}
