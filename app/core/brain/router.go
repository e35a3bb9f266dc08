package brain

import (
	"context"
	"fmt"
	"sync"
)

// Router dispatches completion requests to a named provider.
type Router struct {
	mu              sync.RWMutex
	defaultProvider string
	providers       map[string]Provider
}

func NewRouter(defaultProvider string) *Router {
	return &Router{
		defaultProvider: defaultProvider,
		providers:       map[string]Provider{},
	}
}

func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.Name()] = p
}

// Resolve returns the named provider, or the default when name is empty.
func (r *Router) Resolve(name string) (Provider, error) {
	if name == "" {
		name = r.defaultProvider
	}
	r.mu.RLock()
	p, ok := r.providers[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider not registered: %s", name)
	}
	return p, nil
}

// Complete calls the default provider.
func (r *Router) Complete(ctx context.Context, req CompletionRequest) (string, error) {
	p, err := r.Resolve("")
	if err != nil {
		return "", err
	}
	return p.Complete(ctx, req)
}
