package provider

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// CompositeProvider merges the output of several providers in order. Later
// providers win on key collisions.
type CompositeProvider struct {
	base
	providers []Provider
}

// NewCompositeProvider creates a composite provider.
func NewCompositeProvider(providers []Provider, opts ...Option) *CompositeProvider {
	return &CompositeProvider{
		base:      newBase(TypeComposite, opts),
		providers: providers,
	}
}

// Extract merges the context data of every child provider.
func (p *CompositeProvider) Extract(r *http.Request) ContextData {
	data := ContextData{}
	for _, child := range p.providers {
		for k, v := range child.Extract(r) {
			data[k] = v
		}
	}
	return data
}

// Close closes every child provider that holds resources.
func (p *CompositeProvider) Close() error {
	var errs []error
	for _, child := range p.providers {
		if err := Close(child); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Ping pings every child provider and returns the first failure.
func (p *CompositeProvider) Ping(ctx context.Context) error {
	for _, child := range p.providers {
		if err := Ping(ctx, child); err != nil {
			return fmt.Errorf("%s: %w", child.Name(), err)
		}
	}
	return nil
}
