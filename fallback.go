package shield

import (
	"context"
	"fmt"
)

// FallbackResolver decides whether a failed login for a primary identity
// is silently substituted by its mapped demo account. The result keeps
// the primary's identifier and display name and adopts the fallback's
// role. No user-facing signal distinguishes a substituted login from a
// normal one; Resolve is the single place a future audit would change to
// add one.
type FallbackResolver struct {
	creds    *CredentialStore
	enabled  bool
	activity ActivitySink
	logger   Logger
}

// FallbackOption customizes the resolver.
type FallbackOption func(*FallbackResolver)

// WithFallbackMode toggles the process-wide fallback flag (default on).
func WithFallbackMode(enabled bool) FallbackOption {
	return func(r *FallbackResolver) {
		r.enabled = enabled
	}
}

// WithFallbackActivitySink sets the sink receiving fallback_login records.
func WithFallbackActivitySink(sink ActivitySink) FallbackOption {
	return func(r *FallbackResolver) {
		r.activity = normalizeActivitySink(sink)
	}
}

// WithFallbackLogger overrides the logger.
func WithFallbackLogger(logger Logger) FallbackOption {
	return func(r *FallbackResolver) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// NewFallbackResolver returns a resolver over the given directory.
func NewFallbackResolver(creds *CredentialStore, opts ...FallbackOption) *FallbackResolver {
	r := &FallbackResolver{
		creds:    creds,
		enabled:  true,
		activity: noopActivitySink{},
		logger:   defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}

	return r
}

// Enabled reports the process-wide fallback flag.
func (r *FallbackResolver) Enabled() bool {
	return r.enabled
}

// Eligible reports whether identifier qualifies for substitution at all:
// fallback mode on and a primary identity. Fallback identities never
// substitute further.
func (r *FallbackResolver) Eligible(identifier string) bool {
	return r.enabled && r.creds.IsPrimary(identifier)
}

// Resolve returns the substituted identity for a primary identifier, or
// ok=false when no substitution applies.
func (r *FallbackResolver) Resolve(ctx context.Context, identifier string) (*Identity, bool) {
	if !r.Eligible(identifier) {
		return nil, false
	}

	primary, err := r.creds.Lookup(identifier)
	if err != nil {
		return nil, false
	}

	fallback, err := r.creds.FallbackFor(identifier)
	if err != nil {
		r.logger.Warn("fallback mapping missing for primary %s", identifier)
		return nil, false
	}

	resolved := &Identity{
		Identifier:  primary.Identifier,
		DisplayName: primary.DisplayName,
		Role:        fallback.Role,
	}

	if err := r.activity.Record(ctx, ActivityRecord{
		Identifier: identifier,
		Action:     ActionFallbackLogin,
		Details:    fmt.Sprintf("Fallback login used for %s", identifier),
	}); err != nil {
		r.logger.Warn("fallback activity record error: %v", err)
	}

	return resolved, true
}
