package reseller

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/prometheus/client_golang/prometheus"
)

var configLoads = prometheus.NewCounterVec(prometheus.CounterOpts{
	Namespace: "storefront",
	Subsystem: "reseller",
	Name:      "config_loads_total",
	Help:      "Reseller config resolutions by resolved id and outcome.",
}, []string{"reseller", "outcome"})

func init() {
	prometheus.MustRegister(configLoads)
}

// Resolver produces the process-wide Config. Concurrent first callers share
// one in-flight resolution; after success every caller gets the same
// pointer. A failed resolution is not cached, so the next call retries.
type Resolver struct {
	registry *Registry
	getenv   func(string) string
	strict   bool
	logger   *slog.Logger

	mu      sync.Mutex
	started bool
	flight  *flight
	cached  atomic.Pointer[Config]
}

type flight struct {
	done chan struct{}
	cfg  *Config
	err  error
}

// Option configures a Resolver.
type Option func(*Resolver)

// WithEnv replaces the environment lookup. Tests use it to select a
// reseller without touching the process environment.
func WithEnv(getenv func(string) string) Option {
	return func(r *Resolver) { r.getenv = getenv }
}

// WithStrict makes unknown non-empty ids a hard failure instead of a
// fallback to the default reseller.
func WithStrict(strict bool) Option {
	return func(r *Resolver) { r.strict = strict }
}

// WithLogger sets the logger used for fallback warnings.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) { r.logger = l }
}

// NewResolver creates a resolver over reg.
func NewResolver(reg *Registry, opts ...Option) *Resolver {
	r := &Resolver{
		registry: reg,
		getenv:   os.Getenv,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Load returns the active Config, resolving it on first use. Waiting
// callers give up when ctx is done; the resolution itself carries on for
// the others.
func (r *Resolver) Load(ctx context.Context) (*Config, error) {
	if cfg := r.cached.Load(); cfg != nil {
		return cfg, nil
	}

	r.mu.Lock()
	if cfg := r.cached.Load(); cfg != nil {
		r.mu.Unlock()
		return cfg, nil
	}
	r.started = true
	f := r.flight
	if f == nil {
		f = &flight{done: make(chan struct{})}
		r.flight = f
		go r.run(f)
	}
	r.mu.Unlock()

	select {
	case <-f.done:
		return f.cfg, f.err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (r *Resolver) run(f *flight) {
	f.cfg, f.err = r.resolve()

	r.mu.Lock()
	if f.err == nil {
		r.cached.Store(f.cfg)
	}
	r.flight = nil
	r.mu.Unlock()

	close(f.done)
}

func (r *Resolver) resolve() (*Config, error) {
	raw := r.getenv(EnvVar)
	id, known := r.registry.Normalize(raw)
	if !known {
		if r.strict {
			configLoads.WithLabelValues(id, "unknown").Inc()
			return nil, fmt.Errorf("%w: %q", ErrUnknownReseller, strings.TrimSpace(raw))
		}
		r.logger.Warn("unknown reseller id, serving default",
			"requested", strings.TrimSpace(raw),
			"reseller", id,
		)
	}

	cfg, err := r.registry.Build(id)
	if err != nil {
		configLoads.WithLabelValues(id, "error").Inc()
		r.logger.Error("reseller config failed to load", "reseller", id, "error", err)
		return nil, err
	}
	outcome := "ok"
	if !known {
		outcome = "fallback"
	}
	configLoads.WithLabelValues(id, outcome).Inc()
	r.logger.Info("reseller config loaded", "reseller", id, "domain", cfg.Branding.Domain)
	return cfg, nil
}

// Cached returns the resolved Config without blocking, or
// ErrConfigNotLoaded if no load has completed yet.
func (r *Resolver) Cached() (*Config, error) {
	if cfg := r.cached.Load(); cfg != nil {
		return cfg, nil
	}
	return nil, ErrConfigNotLoaded
}

// MustCached is Cached for call sites that run strictly after startup.
func (r *Resolver) MustCached() *Config {
	cfg, err := r.Cached()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Registry returns the registry the resolver reads from.
func (r *Resolver) Registry() *Registry { return r.registry }

var std = NewResolver(Builtin())

// Default returns the process-wide resolver over the built-in registry.
func Default() *Resolver { return std }

// Configure applies opts to the process-wide resolver. It must run before
// the first Load.
func Configure(opts ...Option) error {
	std.mu.Lock()
	defer std.mu.Unlock()
	if std.started {
		return ErrResolverStarted
	}
	for _, opt := range opts {
		opt(std)
	}
	return nil
}

// Load resolves the process-wide Config.
func Load(ctx context.Context) (*Config, error) { return std.Load(ctx) }

// Cached returns the process-wide Config if it has been loaded.
func Cached() (*Config, error) { return std.Cached() }

// MustCached returns the process-wide Config or panics.
func MustCached() *Config { return std.MustCached() }

// NormalizeID maps a raw selector to a built-in reseller id.
func NormalizeID(raw string) string {
	id, _ := Builtin().Normalize(raw)
	return id
}

// RedirectsFor returns the redirect table of the reseller raw selects. It
// normalizes exactly as the resolver does, so the routing layer and the
// runtime always agree on the active reseller.
func RedirectsFor(reg *Registry, raw string) ([]Redirect, error) {
	cfg, err := reg.Build(raw)
	if err != nil {
		return nil, err
	}
	out := make([]Redirect, len(cfg.Redirects))
	copy(out, cfg.Redirects)
	return out, nil
}

// IsNotLoaded reports whether err means the config is not available yet.
func IsNotLoaded(err error) bool {
	return errors.Is(err, ErrConfigNotLoaded) || errors.Is(err, ErrMissingProvider)
}
