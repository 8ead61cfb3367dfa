package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/kode4food/weave/internal/config"
	"github.com/kode4food/weave/pkg/api"
)

// Store is an api.Store holding resources that must be released
type Store interface {
	api.Store
	Close() error
}

var (
	ErrUnknownBackend = errors.New("unknown cache backend")
	ErrDecode         = errors.New("failed to decode cached generation")
	ErrEncode         = errors.New("failed to encode generation")
)

// Open creates the store selected by cfg. The "none" backend yields a nil
// Store, which disables caching
func Open(ctx context.Context, cfg config.CacheConfig) (Store, error) {
	switch cfg.Backend {
	case config.CacheBackendNone:
		return nil, nil
	case config.CacheBackendMemory:
		return NewMemoryStore(cfg.Size), nil
	case config.CacheBackendRedis:
		return NewRedisStore(ctx, cfg.Redis)
	case config.CacheBackendSQLite:
		return NewSQLiteStore(cfg.SQLitePath)
	case config.CacheBackendBlob:
		return NewBlobStore(ctx, cfg.BlobURL, cfg.BlobPrefix)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownBackend, cfg.Backend)
	}
}

// entryKey namespaces a request hash by project
func entryKey(project api.Project, key string) string {
	return fmt.Sprintf("%d/%s", project.ID, key)
}

func encode(gen *api.Generation) ([]byte, error) {
	data, err := json.Marshal(gen)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrEncode, err)
	}
	return data, nil
}

func decode(data []byte) (*api.Generation, error) {
	var gen api.Generation
	if err := json.Unmarshal(data, &gen); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	return &gen, nil
}
