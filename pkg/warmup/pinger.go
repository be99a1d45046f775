package warmup

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dmitrymomot/authkit/pkg/logger"
)

// ProbeFunc issues one liveness probe against the backend. A nil error means
// the backend responded.
type ProbeFunc func(ctx context.Context) error

// Config holds warmup pinger configuration.
type Config struct {
	// RampDelays are the short delays between the initial probes, before the
	// pinger settles into the steady interval.
	RampDelays []time.Duration `env:"WARMUP_RAMP_DELAYS" envSeparator:"," envDefault:"3s,10s"`

	// Interval is the steady keep-alive period.
	Interval time.Duration `env:"WARMUP_INTERVAL" envDefault:"2m"`

	// ProbeTimeout bounds a single probe.
	ProbeTimeout time.Duration `env:"WARMUP_PROBE_TIMEOUT" envDefault:"10s"`
}

// DefaultConfig returns default warmup configuration.
func DefaultConfig() Config {
	return Config{
		RampDelays:   []time.Duration{3 * time.Second, 10 * time.Second},
		Interval:     2 * time.Minute,
		ProbeTimeout: 10 * time.Second,
	}
}

// Pinger keeps a cold-start-prone backend warm while a session is active.
// It is purely a latency-reduction side channel: probe failures are swallowed
// and never surface to callers or affect session state.
type Pinger struct {
	probe ProbeFunc
	cfg   Config
	log   *slog.Logger

	mu        sync.Mutex
	cancel    context.CancelFunc
	confirmed atomic.Bool
}

// Option configures a Pinger.
type Option func(*Pinger)

// WithConfig sets custom configuration.
func WithConfig(cfg Config) Option {
	return func(p *Pinger) {
		if cfg.Interval > 0 {
			p.cfg.Interval = cfg.Interval
		}
		if cfg.ProbeTimeout > 0 {
			p.cfg.ProbeTimeout = cfg.ProbeTimeout
		}
		if len(cfg.RampDelays) > 0 {
			p.cfg.RampDelays = cfg.RampDelays
		}
	}
}

// WithLogger sets the logger for probe diagnostics.
func WithLogger(log *slog.Logger) Option {
	return func(p *Pinger) {
		if log != nil {
			p.log = log
		}
	}
}

// New creates a pinger that calls probe on the warmup schedule.
func New(probe ProbeFunc, opts ...Option) *Pinger {
	p := &Pinger{
		probe: probe,
		cfg:   DefaultConfig(),
		log:   logger.Discard(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start begins probing: immediately, then after each ramp delay, then at the
// steady interval until Stop. Calling Start while running has no effect.
func (p *Pinger) Start() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(context.Background())
	p.cancel = cancel
	go p.run(ctx)
}

// Stop cancels all pending and recurring probes. Safe to call when not
// running and safe to call multiple times.
func (p *Pinger) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel == nil {
		return
	}
	p.cancel()
	p.cancel = nil
}

// Running reports whether the pinger is currently active.
func (p *Pinger) Running() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.cancel != nil
}

// Confirmed reports whether any probe has succeeded since the pinger was
// created. Callers use it to widen first-request timeouts while the backend
// liveness is still unknown.
func (p *Pinger) Confirmed() bool {
	return p.confirmed.Load()
}

func (p *Pinger) run(ctx context.Context) {
	p.probeOnce(ctx)

	for _, delay := range p.cfg.RampDelays {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
		p.probeOnce(ctx)
	}

	ticker := time.NewTicker(p.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.probeOnce(ctx)
		}
	}
}

func (p *Pinger) probeOnce(ctx context.Context) {
	probeCtx, cancel := context.WithTimeout(ctx, p.cfg.ProbeTimeout)
	defer cancel()

	if err := p.probe(probeCtx); err != nil {
		// Failures are expected while the backend is cold; swallow them.
		p.log.Debug("warmup: probe failed", logger.Error(err))
		return
	}
	p.confirmed.Store(true)
}
