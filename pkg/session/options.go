package session

import "log/slog"

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithLogger sets the coordinator logger. Defaults to slog.Default.
func WithLogger(log *slog.Logger) Option {
	return func(c *Coordinator) {
		if log != nil {
			c.log = log
		}
	}
}

// WithConfig replaces the default coordinator configuration.
func WithConfig(cfg Config) Option {
	return func(c *Coordinator) {
		if cfg.SyncAttempts > 0 {
			c.cfg.SyncAttempts = cfg.SyncAttempts
		}
		if cfg.SyncBaseTimeout > 0 {
			c.cfg.SyncBaseTimeout = cfg.SyncBaseTimeout
		}
		if cfg.SyncColdTimeout > 0 {
			c.cfg.SyncColdTimeout = cfg.SyncColdTimeout
		}
		if cfg.SyncTimeoutStep > 0 {
			c.cfg.SyncTimeoutStep = cfg.SyncTimeoutStep
		}
		if cfg.RefreshInterval > 0 {
			c.cfg.RefreshInterval = cfg.RefreshInterval
		}
		if cfg.SignOutTimeout > 0 {
			c.cfg.SignOutTimeout = cfg.SignOutTimeout
		}
	}
}

// WithPinger attaches a warmup pinger. When set, the coordinator starts it on
// sign-in, stops it on sign-out, and grants reconciliation a cold-start
// timeout until the pinger confirms backend liveness.
func WithPinger(p Pinger) Option {
	return func(c *Coordinator) {
		c.pinger = p
	}
}
