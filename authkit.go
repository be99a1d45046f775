package authkit

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/dmitrymomot/authkit/pkg/config"
	"github.com/dmitrymomot/authkit/pkg/credstore"
	"github.com/dmitrymomot/authkit/pkg/environment"
	"github.com/dmitrymomot/authkit/pkg/gateway"
	"github.com/dmitrymomot/authkit/pkg/idp"
	"github.com/dmitrymomot/authkit/pkg/logger"
	"github.com/dmitrymomot/authkit/pkg/session"
	"github.com/dmitrymomot/authkit/pkg/warmup"
)

var (
	// ErrMissingBaseURL is returned by New when no backend base URL is
	// configured.
	ErrMissingBaseURL = errors.New("authkit.missing_base_url")

	// ErrInvalidStorage is returned by New when the configured storage
	// backend cannot be built.
	ErrInvalidStorage = errors.New("authkit.invalid_storage")
)

// Config aggregates the configuration of every layer. All fields load from
// the environment via config.Load.
type Config struct {
	// AppName names the application in storage paths and log records.
	AppName string `env:"AUTHKIT_APP_NAME" envDefault:"authkit"`

	// Storage selects the credential store backend: file, memory, or redis.
	Storage string `env:"AUTHKIT_STORAGE" envDefault:"file"`

	// StoragePath overrides the credential file location (file storage only).
	StoragePath string `env:"AUTHKIT_STORAGE_PATH"`

	// StorageKey enables at-rest encryption of the credential file when set.
	StorageKey string `env:"AUTHKIT_STORAGE_KEY"`

	// RedisURL is the connection string for redis storage.
	RedisURL string `env:"AUTHKIT_REDIS_URL"`

	Gateway gateway.Config
	Session session.Config
	Warmup  warmup.Config
}

// Client is the assembled authentication stack: credential store, request
// gateway, identity provider, warmup pinger, and session coordinator wired
// together. Build one with New, call Restore once at startup, and route
// backend requests through Gateway so credential injection and refresh
// recovery apply.
type Client struct {
	log      *slog.Logger
	store    credstore.Store
	gw       *gateway.Client
	provider idp.Provider
	pinger   *warmup.Pinger
	session  *session.Coordinator
}

// Option overrides a piece of the assembled stack.
type Option func(*builder)

type builder struct {
	log      *slog.Logger
	store    credstore.Store
	provider func(gw *gateway.Client) idp.Provider
	env      environment.Environment
}

// WithLogger sets the logger shared by every layer.
func WithLogger(log *slog.Logger) Option {
	return func(b *builder) {
		if log != nil {
			b.log = log
		}
	}
}

// WithStore replaces the configured credential store.
func WithStore(store credstore.Store) Option {
	return func(b *builder) {
		b.store = store
	}
}

// WithProvider replaces the HTTP identity provider. The constructor receives
// the assembled gateway so custom providers can reuse its transport.
func WithProvider(fn func(gw *gateway.Client) idp.Provider) Option {
	return func(b *builder) {
		b.provider = fn
	}
}

// WithEnvironment overrides environment detection. The environment decides
// log formatting and whether the warmup pinger runs.
func WithEnvironment(env environment.Environment) Option {
	return func(b *builder) {
		b.env = env
	}
}

// New assembles the stack from cfg.
func New(cfg Config, opts ...Option) (*Client, error) {
	if cfg.Gateway.BaseURL == "" {
		return nil, ErrMissingBaseURL
	}

	b := &builder{env: environment.Current()}
	for _, opt := range opts {
		opt(b)
	}
	if b.log == nil {
		b.log = logger.New(logger.WithEnvironment(b.env, cfg.AppName))
	}
	log := b.log

	store := b.store
	if store == nil {
		var err error
		store, err = buildStore(cfg, log)
		if err != nil {
			return nil, err
		}
	}

	gw := gateway.New(cfg.Gateway,
		gateway.WithLogger(log),
		gateway.WithTokenSource(gateway.TokenSourceFunc(func() (string, bool) {
			return store.Read(credstore.KindAccess)
		})),
	)

	var provider idp.Provider
	if b.provider != nil {
		provider = b.provider(gw)
	} else {
		provider = idp.NewHTTPProvider(gw, idp.WithLogger(log))
	}

	var pinger *warmup.Pinger
	sessionOpts := []session.Option{
		session.WithLogger(log),
		session.WithConfig(cfg.Session),
	}
	// Cold starts only matter against a production backend that scales to
	// zero; local development skips the probe traffic.
	if b.env.IsProduction() {
		pinger = warmup.New(gw.Health,
			warmup.WithConfig(cfg.Warmup),
			warmup.WithLogger(log),
		)
		sessionOpts = append(sessionOpts, session.WithPinger(pinger))
	}

	coord := session.New(store, gw, provider, sessionOpts...)
	gw.SetRefresher(coord)
	gw.SetSessionExpiredHandler(coord.Logout)

	return &Client{
		log:      log,
		store:    store,
		gw:       gw,
		provider: provider,
		pinger:   pinger,
		session:  coord,
	}, nil
}

// NewFromEnv loads Config from the environment and assembles the stack.
func NewFromEnv(opts ...Option) (*Client, error) {
	var cfg Config
	if err := config.Load(&cfg); err != nil {
		return nil, err
	}
	return New(cfg, opts...)
}

func buildStore(cfg Config, log *slog.Logger) (credstore.Store, error) {
	switch cfg.Storage {
	case "memory":
		return credstore.NewMemoryStore(), nil
	case "redis":
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrInvalidStorage, err)
		}
		return credstore.NewRedisStore(redis.NewClient(opt), credstore.WithRedisLogger(log)), nil
	case "file", "":
		path := cfg.StoragePath
		if path == "" {
			path = credstore.DefaultPath(cfg.AppName)
		}
		fileOpts := []credstore.FileOption{credstore.WithFileLogger(log)}
		if cfg.StorageKey != "" {
			fileOpts = append(fileOpts, credstore.WithEncryptionKey([]byte(cfg.StorageKey)))
		}
		return credstore.NewFileStore(path, fileOpts...), nil
	default:
		return nil, fmt.Errorf("%w: unknown backend %q", ErrInvalidStorage, cfg.Storage)
	}
}

// Session exposes the session coordinator.
func (c *Client) Session() *session.Coordinator { return c.session }

// Gateway exposes the request gateway for application API calls.
func (c *Client) Gateway() *gateway.Client { return c.gw }

// Provider exposes the identity provider.
func (c *Client) Provider() idp.Provider { return c.provider }

// Restore recovers the previous session from stored credentials. Call it
// once at startup; afterwards session snapshots carry Ready=true.
func (c *Client) Restore(ctx context.Context) {
	c.session.Restore(ctx)
}

// Close stops background work across all layers.
func (c *Client) Close() {
	c.session.Close()
	if c.pinger != nil {
		c.pinger.Stop()
	}
}
