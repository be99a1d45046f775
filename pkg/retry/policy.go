package retry

import (
	"math"
	"time"
)

// Policy computes whether and when a failed network call should be retried.
// Delays are deterministic (no jitter) so that schedules can be asserted in
// tests. The zero value is not usable; use DefaultPolicy or fill all fields.
type Policy struct {
	// MaxAttempts bounds the total number of attempts, first call included.
	MaxAttempts int

	// BaseDelay is the delay before the second attempt. Subsequent delays
	// grow exponentially: BaseDelay * 2^(attempt-1).
	BaseDelay time.Duration

	// MaxDelay caps the inter-attempt delay.
	MaxDelay time.Duration

	// BaseTimeout is the per-attempt timeout budget for the first attempt.
	BaseTimeout time.Duration

	// TimeoutStep widens the timeout budget on each subsequent attempt to
	// accommodate a cold backend.
	TimeoutStep time.Duration

	// MaxTimeout caps the per-attempt timeout budget.
	MaxTimeout time.Duration
}

// DefaultPolicy returns production defaults tuned for a backend prone to
// cold starts: short first timeout, widening budgets on retry.
func DefaultPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Second,
		MaxDelay:    30 * time.Second,
		BaseTimeout: 10 * time.Second,
		TimeoutStep: 10 * time.Second,
		MaxTimeout:  45 * time.Second,
	}
}

// ShouldRetry reports whether another attempt is warranted after the given
// attempt (1-based) failed with err. Only transient errors are retried, and
// never beyond MaxAttempts.
func (p Policy) ShouldRetry(attempt int, err error) bool {
	if attempt < 1 || attempt >= p.MaxAttempts {
		return false
	}
	return IsTransient(err)
}

// DelayFor returns the delay to wait before the attempt following the given
// one. The delay grows exponentially from BaseDelay and is capped at MaxDelay.
func (p Policy) DelayFor(attempt int) time.Duration {
	if attempt < 1 {
		return 0
	}

	base := p.BaseDelay
	if base == 0 {
		base = time.Second
	}

	delay := float64(base) * math.Pow(2, float64(attempt-1))

	if max := p.MaxDelay; max > 0 && delay > float64(max) {
		return max
	}
	return time.Duration(delay)
}

// TimeoutFor returns the timeout budget for the given attempt (1-based).
// Each retry widens the budget by TimeoutStep, capped at MaxTimeout.
func (p Policy) TimeoutFor(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}

	base := p.BaseTimeout
	if base == 0 {
		base = 10 * time.Second
	}

	timeout := base + time.Duration(attempt-1)*p.TimeoutStep

	if max := p.MaxTimeout; max > 0 && timeout > max {
		return max
	}
	return timeout
}
