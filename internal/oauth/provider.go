// Package oauth adapts external identity providers to a single
// authorization-code flow used by the account service.
package oauth

import (
	"context"
	"errors"
	"sort"
)

var (
	ErrUnknownProvider = errors.New("unknown oauth provider")
	ErrExchange        = errors.New("oauth code exchange failed")
	ErrUnverifiedEmail = errors.New("provider email is not verified")
)

// Identity is what a provider vouches for after a successful exchange.
type Identity struct {
	Provider string
	Subject  string
	Email    string
}

type Provider interface {
	Name() string
	AuthCodeURL(state string) (string, error)
	Exchange(ctx context.Context, code string) (*Identity, error)
}

// Registry holds the providers configured at startup, keyed by name.
type Registry struct {
	providers map[string]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[string]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Name()] = p
	}
	return r
}

func (r *Registry) Get(name string) (Provider, error) {
	if r == nil {
		return nil, ErrUnknownProvider
	}
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	return p, nil
}

func (r *Registry) Names() []string {
	if r == nil {
		return nil
	}
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
