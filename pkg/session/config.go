package session

import "time"

// Config holds session coordinator configuration.
type Config struct {
	// SyncAttempts bounds the immediate backend reconciliation attempts
	// before settling into StateSyncFailed.
	SyncAttempts int `env:"SESSION_SYNC_ATTEMPTS" envDefault:"3"`

	// SyncBaseTimeout is the first reconciliation attempt's budget once the
	// backend has confirmed liveness.
	SyncBaseTimeout time.Duration `env:"SESSION_SYNC_BASE_TIMEOUT" envDefault:"10s"`

	// SyncColdTimeout replaces SyncBaseTimeout while the warmup pinger has
	// not yet confirmed liveness (cold-start allowance).
	SyncColdTimeout time.Duration `env:"SESSION_SYNC_COLD_TIMEOUT" envDefault:"30s"`

	// SyncTimeoutStep widens each subsequent attempt's budget.
	SyncTimeoutStep time.Duration `env:"SESSION_SYNC_TIMEOUT_STEP" envDefault:"15s"`

	// RefreshInterval is the periodic credential refresh period while
	// authenticated.
	RefreshInterval time.Duration `env:"SESSION_REFRESH_INTERVAL" envDefault:"50m"`

	// SignOutTimeout bounds the best-effort remote sign-out call.
	SignOutTimeout time.Duration `env:"SESSION_SIGNOUT_TIMEOUT" envDefault:"5s"`
}

// DefaultConfig returns default coordinator configuration.
func DefaultConfig() Config {
	return Config{
		SyncAttempts:    3,
		SyncBaseTimeout: 10 * time.Second,
		SyncColdTimeout: 30 * time.Second,
		SyncTimeoutStep: 15 * time.Second,
		RefreshInterval: 50 * time.Minute,
		SignOutTimeout:  5 * time.Second,
	}
}
