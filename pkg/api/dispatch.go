package api

import "context"

type (
	// Dispatcher resolves chat requests against LLM providers, either through
	// a cache or by streaming incremental events. Implementations must
	// return exactly one completion per request
	Dispatcher interface {
		// ExecuteWithCache resolves the request through the store when
		// useCache is set, calling the provider otherwise
		ExecuteWithCache(
			ctx context.Context, req *ChatRequest, creds Credentials,
			project Project, store Store, useCache bool,
		) (*Generation, error)

		// Execute calls the provider, emitting raw events to the sink if it
		// is not nil
		Execute(
			ctx context.Context, req *ChatRequest, creds Credentials,
			sink EventSink,
		) (*Generation, error)
	}

	// Store persists generations keyed by project and request hash
	Store interface {
		// GetGeneration returns a cached generation, or false on a miss
		GetGeneration(
			ctx context.Context, project Project, key string,
		) (*Generation, bool, error)

		// PutGeneration records a generation for the project and key
		PutGeneration(
			ctx context.Context, project Project, key string, gen *Generation,
		) error
	}
)
