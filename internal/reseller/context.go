package reseller

import "context"

type contextKey struct{}

// WithConfig attaches cfg to ctx for the rest of a request scope.
//
// It panics if cfg is nil or if ctx already carries a different Config:
// both are wiring mistakes, and a scope must never see two resellers.
// Attaching the same pointer again returns ctx unchanged.
func WithConfig(ctx context.Context, cfg *Config) context.Context {
	if cfg == nil {
		panic("reseller: WithConfig called with nil config")
	}
	if existing, ok := ctx.Value(contextKey{}).(*Config); ok {
		if existing == cfg {
			return ctx
		}
		panic("reseller: scope already has config " + existing.ID)
	}
	return context.WithValue(ctx, contextKey{}, cfg)
}

// FromContext returns the Config attached to ctx, or ErrMissingProvider.
func FromContext(ctx context.Context) (*Config, error) {
	if cfg, ok := ctx.Value(contextKey{}).(*Config); ok {
		return cfg, nil
	}
	return nil, ErrMissingProvider
}

// MustFromContext is FromContext for handlers mounted behind the config
// middleware.
func MustFromContext(ctx context.Context) *Config {
	cfg, err := FromContext(ctx)
	if err != nil {
		panic(err)
	}
	return cfg
}
