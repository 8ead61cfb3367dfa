package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"github.com/kode4food/weave/pkg/api"
	"github.com/kode4food/weave/pkg/log"
)

type (
	// Provider calls one LLM provider. Raw events are emitted to sink when
	// it is not nil
	Provider interface {
		ID() api.ProviderID
		Chat(
			ctx context.Context, req *api.ChatRequest, creds api.Credentials,
			sink api.EventSink,
		) (*api.Generation, error)
	}

	// Router is an api.Dispatcher that routes requests to registered
	// providers by provider id
	Router struct {
		providers map[api.ProviderID]Provider
		mu        sync.RWMutex
	}
)

var (
	ErrProviderNotRegistered = errors.New("provider not registered")
	ErrCacheLookup           = errors.New("cache lookup failed")
	ErrCacheStore            = errors.New("cache store failed")
)

var _ api.Dispatcher = (*Router)(nil)

// NewRouter creates a router with the given providers registered
func NewRouter(providers ...Provider) *Router {
	r := &Router{
		providers: map[api.ProviderID]Provider{},
	}
	for _, p := range providers {
		r.Register(p)
	}
	return r
}

// Register adds or replaces the provider for its id
func (r *Router) Register(p Provider) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.providers[p.ID()] = p
}

// Providers returns the sorted ids of the registered providers
func (r *Router) Providers() []api.ProviderID {
	r.mu.RLock()
	defer r.mu.RUnlock()
	res := make([]api.ProviderID, 0, len(r.providers))
	for id := range r.providers {
		res = append(res, id)
	}
	slices.Sort(res)
	return res
}

// ExecuteWithCache answers the request from store when useCache is set and
// an entry exists. Otherwise the provider is called and its generation
// recorded in store
func (r *Router) ExecuteWithCache(
	ctx context.Context, req *api.ChatRequest, creds api.Credentials,
	project api.Project, store api.Store, useCache bool,
) (*api.Generation, error) {
	p, err := r.provider(req.ProviderID)
	if err != nil {
		return nil, err
	}

	if store == nil {
		return p.Chat(ctx, req, creds, nil)
	}

	key, err := req.Hash()
	if err != nil {
		return nil, err
	}

	if useCache {
		gen, ok, err := store.GetGeneration(ctx, project, key)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCacheLookup, err)
		}
		if ok {
			slog.Debug("LLM cache hit",
				log.ProviderID(req.ProviderID),
				log.ModelID(req.ModelID),
				slog.String("key", key))
			return gen, nil
		}
		slog.Debug("LLM cache miss",
			log.ProviderID(req.ProviderID),
			log.ModelID(req.ModelID),
			slog.String("key", key))
	}

	gen, err := p.Chat(ctx, req, creds, nil)
	if err != nil {
		return nil, err
	}
	if err := store.PutGeneration(ctx, project, key, gen); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCacheStore, err)
	}
	return gen, nil
}

// Execute calls the provider directly, streaming its raw events to sink
func (r *Router) Execute(
	ctx context.Context, req *api.ChatRequest, creds api.Credentials,
	sink api.EventSink,
) (*api.Generation, error) {
	p, err := r.provider(req.ProviderID)
	if err != nil {
		return nil, err
	}
	return p.Chat(ctx, req, creds, sink)
}

func (r *Router) provider(id api.ProviderID) (Provider, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotRegistered, id)
	}
	return p, nil
}
