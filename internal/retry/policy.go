// Package retry implements backoff policies for transient failures.
package retry

import (
	"context"
	"fmt"
	"time"

	"git.home.luguber.info/inful/aliasdoc/internal/foundation/errors"
	"git.home.luguber.info/inful/aliasdoc/internal/foundation/normalization"
)

// BackoffMode selects how delays grow between attempts.
type BackoffMode string

const (
	BackoffFixed       BackoffMode = "fixed"
	BackoffLinear      BackoffMode = "linear"
	BackoffExponential BackoffMode = "exponential"
)

var backoffNormalizer = normalization.NewNormalizer(map[string]BackoffMode{
	"fixed":       BackoffFixed,
	"linear":      BackoffLinear,
	"exponential": BackoffExponential,
}, BackoffLinear)

// ParseBackoffMode maps raw onto a BackoffMode. Empty input yields linear.
func ParseBackoffMode(raw string) (BackoffMode, error) {
	return backoffNormalizer.NormalizeWithError(raw)
}

// Policy encapsulates retry/backoff settings for transient failures.
// It is immutable after construction.
type Policy struct {
	Mode       BackoffMode
	Initial    time.Duration // base delay
	Max        time.Duration // cap for growth
	MaxRetries int           // attempts after the first failure
}

// DefaultPolicy returns linear backoff from 1s, capped at 30s, with 2 retries.
func DefaultPolicy() Policy {
	return Policy{Mode: BackoffLinear, Initial: time.Second, Max: 30 * time.Second, MaxRetries: 2}
}

// NoRetry runs an operation exactly once.
func NoRetry() Policy {
	p := DefaultPolicy()
	p.MaxRetries = 0
	return p
}

// NewPolicy builds a policy from raw config fields; zero/invalid values fall back to defaults.
func NewPolicy(mode BackoffMode, initial, maxDelay time.Duration, maxRetries int) Policy {
	p := DefaultPolicy()
	if maxRetries >= 0 {
		p.MaxRetries = maxRetries
	}
	if initial > 0 {
		p.Initial = initial
	}
	if maxDelay > 0 {
		p.Max = maxDelay
	}
	switch mode {
	case BackoffFixed, BackoffLinear, BackoffExponential:
		p.Mode = mode
	}
	if p.Initial > p.Max {
		p.Initial = p.Max
	}
	return p
}

// Delay returns the backoff delay for the given retry (1-based: first retry => 1).
func (p Policy) Delay(retryCount int) time.Duration {
	if retryCount <= 0 {
		return 0
	}
	switch p.Mode {
	case BackoffFixed:
		return p.Initial
	case BackoffExponential:
		d := p.Initial
		for i := 1; i < retryCount && d < p.Max; i++ {
			d *= 2
		}
		return min(d, p.Max)
	default:
		return min(time.Duration(retryCount)*p.Initial, p.Max)
	}
}

// Validate ensures the policy can be applied.
func (p Policy) Validate() error {
	if p.Initial <= 0 {
		return fmt.Errorf("initial must be >0")
	}
	if p.Max <= 0 {
		return fmt.Errorf("max must be >0")
	}
	if p.MaxRetries < 0 {
		return fmt.Errorf("max retries cannot be negative")
	}
	return nil
}

// Do runs op until it succeeds, returns an error that is not retryable,
// exhausts the policy, or ctx ends. The last error is returned.
func (p Policy) Do(ctx context.Context, op func(context.Context) error) error {
	var err error
	for attempt := 0; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if attempt >= p.MaxRetries || !retryable(err) {
			return err
		}
		timer := time.NewTimer(p.Delay(attempt + 1))
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
}

func retryable(err error) bool {
	classified, ok := errors.AsClassified(err)
	return ok && classified.CanRetry()
}
