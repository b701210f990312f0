// Package reseller resolves which branded deployment the process serves.
//
// A reseller (tenant) is a complete, self-contained Config: branding,
// locale, legal identity, plans, feature flags, SEO copy, redirects and the
// full catalog of user-facing strings. Exactly one Config is active per
// process. It is chosen by the RESELLER_ID environment variable, resolved
// once, validated, and then shared read-only by every request.
package reseller

import "errors"

// EnvVar selects the active reseller.
const EnvVar = "RESELLER_ID"

// DefaultID is the reseller served when EnvVar is unset or unknown.
const DefaultID = "auditelle-fr"

var (
	// ErrConfigNotLoaded is returned by synchronous accessors called before
	// any load has completed.
	ErrConfigNotLoaded = errors.New("reseller: config not loaded")

	// ErrMissingProvider is returned when a request scope has no config
	// attached.
	ErrMissingProvider = errors.New("reseller: no config in context")

	// ErrMalformedEntry wraps decode and validation failures of a registry
	// entry.
	ErrMalformedEntry = errors.New("reseller: malformed entry")

	// ErrUnknownReseller is returned in strict mode for ids that are not
	// registered.
	ErrUnknownReseller = errors.New("reseller: unknown reseller id")

	// ErrResolverStarted is returned by Configure once loading has begun.
	ErrResolverStarted = errors.New("reseller: resolver already started")
)
