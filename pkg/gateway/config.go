package gateway

import (
	"time"

	"github.com/dmitrymomot/authkit/pkg/retry"
)

// Config holds gateway configuration.
type Config struct {
	// BaseURL is the backend API root, without a trailing slash.
	BaseURL string `env:"AUTHKIT_BASE_URL"`

	// UserAgent identifies the client in outgoing requests.
	UserAgent string `env:"AUTHKIT_USER_AGENT" envDefault:"authkit/1.0"`

	RetryMaxAttempts int           `env:"GATEWAY_RETRY_MAX_ATTEMPTS" envDefault:"3"`
	RetryBaseDelay   time.Duration `env:"GATEWAY_RETRY_BASE_DELAY" envDefault:"1s"`
	RetryMaxDelay    time.Duration `env:"GATEWAY_RETRY_MAX_DELAY" envDefault:"30s"`

	// AttemptTimeout is the budget for the first attempt; each retry widens
	// it by TimeoutStep up to MaxTimeout (cold-start allowance).
	AttemptTimeout time.Duration `env:"GATEWAY_ATTEMPT_TIMEOUT" envDefault:"10s"`
	TimeoutStep    time.Duration `env:"GATEWAY_TIMEOUT_STEP" envDefault:"10s"`
	MaxTimeout     time.Duration `env:"GATEWAY_MAX_TIMEOUT" envDefault:"45s"`
}

// DefaultConfig returns default gateway configuration.
func DefaultConfig() Config {
	return Config{
		UserAgent:        "authkit/1.0",
		RetryMaxAttempts: 3,
		RetryBaseDelay:   time.Second,
		RetryMaxDelay:    30 * time.Second,
		AttemptTimeout:   10 * time.Second,
		TimeoutStep:      10 * time.Second,
		MaxTimeout:       45 * time.Second,
	}
}

// Policy builds the retry policy from the configured values.
func (c Config) Policy() retry.Policy {
	p := retry.Policy{
		MaxAttempts: c.RetryMaxAttempts,
		BaseDelay:   c.RetryBaseDelay,
		MaxDelay:    c.RetryMaxDelay,
		BaseTimeout: c.AttemptTimeout,
		TimeoutStep: c.TimeoutStep,
		MaxTimeout:  c.MaxTimeout,
	}
	if p.MaxAttempts == 0 {
		p.MaxAttempts = 3
	}
	return p
}
