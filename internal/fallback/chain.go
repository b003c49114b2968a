// Package fallback resolves a capability by trying an ordered list of
// providers until one succeeds, optionally ending on a static value.
package fallback

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
)

// StaticProvider is the provider name reported when the static value is used.
const StaticProvider = "static"

// ErrChainExhausted is returned when every provider failed and no static value exists.
var ErrChainExhausted = errors.New("fallback: chain exhausted")

// ProviderError is a single provider's failure inside a chain.
type ProviderError struct {
	Provider string
	Cause    error
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider %s: %v", e.Provider, e.Cause)
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// Provider is one way to satisfy a capability.
type Provider[In, Out any] struct {
	Name    string
	Attempt func(ctx context.Context, in In) (Out, error)
}

// Chain tries Providers in order. Order is configuration and is never shuffled.
type Chain[In, Out any] struct {
	Capability string
	Providers  []Provider[In, Out]
	Static     *Out
	Logger     zerolog.Logger

	// OnResolved is called with the satisfying provider name.
	OnResolved func(capability, provider string)
}

// Resolve returns the first successful provider result, the static value, or
// an error wrapping ErrChainExhausted and every ProviderError.
func (c *Chain[In, Out]) Resolve(ctx context.Context, in In) (Out, string, error) {
	var zero Out
	var errs []error

	for _, p := range c.Providers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			return zero, "", c.exhausted(errs)
		}
		out, err := p.Attempt(ctx, in)
		if err == nil {
			c.resolved(p.Name)
			return out, p.Name, nil
		}
		perr := &ProviderError{Provider: p.Name, Cause: err}
		errs = append(errs, perr)
		c.Logger.Warn().Err(err).Str("capability", c.Capability).Str("provider", p.Name).Msg("provider failed")
	}

	if c.Static != nil {
		c.resolved(StaticProvider)
		return *c.Static, StaticProvider, nil
	}
	return zero, "", c.exhausted(errs)
}

// Names lists configured provider names in order.
func (c *Chain[In, Out]) Names() []string {
	names := make([]string, 0, len(c.Providers))
	for _, p := range c.Providers {
		names = append(names, p.Name)
	}
	return names
}

func (c *Chain[In, Out]) resolved(provider string) {
	c.Logger.Info().Str("capability", c.Capability).Str("provider", provider).Msg("capability resolved")
	if c.OnResolved != nil {
		c.OnResolved(c.Capability, provider)
	}
}

func (c *Chain[In, Out]) exhausted(errs []error) error {
	if len(errs) == 0 {
		return fmt.Errorf("%w: %s: no providers configured", ErrChainExhausted, c.Capability)
	}
	return fmt.Errorf("%w: %s: %w", ErrChainExhausted, c.Capability, errors.Join(errs...))
}
