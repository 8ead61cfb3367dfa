package cache

import (
	"context"

	"github.com/kode4food/weave/internal/util"
	"github.com/kode4food/weave/pkg/api"
)

// MemoryStore keeps encoded generations in a bounded LRU. Each lookup
// decodes a fresh copy, so callers never share a Generation
type MemoryStore struct {
	entries *util.LRUCache[[]byte]
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding at most size generations
func NewMemoryStore(size int) *MemoryStore {
	return &MemoryStore{
		entries: util.NewLRUCache[[]byte](size),
	}
}

func (s *MemoryStore) GetGeneration(
	_ context.Context, project api.Project, key string,
) (*api.Generation, bool, error) {
	data, ok := s.entries.Lookup(entryKey(project, key))
	if !ok {
		return nil, false, nil
	}
	gen, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return gen, true, nil
}

func (s *MemoryStore) PutGeneration(
	_ context.Context, project api.Project, key string, gen *api.Generation,
) error {
	data, err := encode(gen)
	if err != nil {
		return err
	}
	s.entries.Put(entryKey(project, key), data)
	return nil
}

// Len returns the number of cached generations
func (s *MemoryStore) Len() int {
	return s.entries.Len()
}

func (s *MemoryStore) Close() error {
	return nil
}
