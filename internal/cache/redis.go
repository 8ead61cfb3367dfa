package cache

import (
	"context"
	"errors"

	"github.com/redis/go-redis/v9"

	"github.com/kode4food/weave/internal/config"
	"github.com/kode4food/weave/pkg/api"
)

// RedisStore keeps generations in redis under a key prefix
type RedisStore struct {
	client *redis.Client
	prefix string
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore connects to redis and verifies the connection
func NewRedisStore(
	ctx context.Context, cfg config.RedisConfig,
) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}
	return &RedisStore{client: client, prefix: cfg.Prefix}, nil
}

func (s *RedisStore) GetGeneration(
	ctx context.Context, project api.Project, key string,
) (*api.Generation, bool, error) {
	data, err := s.client.Get(ctx, s.keyFor(project, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	gen, err := decode(data)
	if err != nil {
		return nil, false, err
	}
	return gen, true, nil
}

func (s *RedisStore) PutGeneration(
	ctx context.Context, project api.Project, key string, gen *api.Generation,
) error {
	data, err := encode(gen)
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.keyFor(project, key), data, 0).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) keyFor(project api.Project, key string) string {
	return s.prefix + ":llm:" + entryKey(project, key)
}
