// Package retry runs fallible remote calls with bounded, classified backoff.
package retry

import (
	"context"
	"log/slog"
	"math"
	"time"
)

// Backoff selects how the wait grows between attempts.
type Backoff string

const (
	BackoffFixed       Backoff = "fixed"
	BackoffExponential Backoff = "exponential"
)

// Sleeper blocks for d or until ctx is done.
type Sleeper func(ctx context.Context, d time.Duration) error

// Policy configures Execute. The zero value is usable and behaves like
// Default without logging.
type Policy struct {
	Name        string
	MaxAttempts int
	BaseDelay   time.Duration
	Backoff     Backoff
	Factor      float64
	// MaxDelay caps computed backoff; zero means no cap. Server supplied
	// Retry-After hints are honoured as given.
	MaxDelay time.Duration
	// Retryable lists the kinds that may be retried. Nil means rate limits,
	// transient and unknown failures.
	Retryable map[Kind]bool

	Sleep  Sleeper
	Logger *slog.Logger
}

// Default is the policy used for content generation: three attempts waiting
// 1s, 2s and 4s.
func Default() *Policy {
	return &Policy{
		Name:        "generation",
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		Backoff:     BackoffExponential,
		Factor:      2,
	}
}

// HTTP is the policy for outbound fetches. Client errors such as 404 are
// not retried.
func HTTP() *Policy {
	return &Policy{
		Name:        "http",
		MaxAttempts: 3,
		BaseDelay:   300 * time.Millisecond,
		Backoff:     BackoffExponential,
		Factor:      2,
		MaxDelay:    10 * time.Second,
		Retryable:   map[Kind]bool{KindTransient: true, KindRateLimited: true},
	}
}

// Git is the policy for commits and pushes: two attempts two seconds apart,
// only for network-looking failures.
func Git() *Policy {
	return &Policy{
		Name:        "git",
		MaxAttempts: 2,
		BaseDelay:   2 * time.Second,
		Backoff:     BackoffFixed,
		Retryable:   map[Kind]bool{KindTransient: true, KindRateLimited: true},
	}
}

// WithLogger returns a copy of p logging through logger.
func (p *Policy) WithLogger(logger *slog.Logger) *Policy {
	cp := *p
	cp.Logger = logger
	return &cp
}

// WithSleeper returns a copy of p waiting through sleep.
func (p *Policy) WithSleeper(sleep Sleeper) *Policy {
	cp := *p
	cp.Sleep = sleep
	return &cp
}

// Delay returns the wait after the failed attempt with zero-based index
// attempt.
func (p *Policy) Delay(kind Kind, attempt int, retryAfter time.Duration) time.Duration {
	if kind == KindRateLimited {
		if retryAfter > 0 {
			return retryAfter
		}
		return p.capped(p.BaseDelay * time.Duration(attempt+1))
	}

	if p.Backoff == BackoffFixed {
		return p.capped(p.BaseDelay)
	}
	factor := p.Factor
	if factor <= 0 {
		factor = 2
	}
	return p.capped(time.Duration(float64(p.BaseDelay) * math.Pow(factor, float64(attempt))))
}

func (p *Policy) capped(d time.Duration) time.Duration {
	if p.MaxDelay > 0 && d > p.MaxDelay {
		return p.MaxDelay
	}
	return d
}

func (p *Policy) retryable(kind Kind) bool {
	if kind == KindAuth {
		return false
	}
	if p.Retryable == nil {
		return true
	}
	return p.Retryable[kind]
}

func (p *Policy) attempts() int {
	if p.MaxAttempts <= 0 {
		return 3
	}
	return p.MaxAttempts
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
