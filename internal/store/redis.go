package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/maomauro/web-beatty-sub001/internal/domain"
	"github.com/redis/go-redis/v9"
)

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// RedisStore holds the cart under a single key with no TTL. Meant for
// shared-terminal deployments where the durable copy lives next to the
// session rather than on disk.
type RedisStore struct {
	client *redis.Client
}

func (r *RedisStore) Load(ctx context.Context) ([]domain.CartLine, error) {
	data, err := r.client.Get(ctx, storageKey()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get failed: %w", err)
	}

	var lines []domain.CartLine
	if err2 := json.Unmarshal(data, &lines); err2 != nil {
		return nil, fmt.Errorf("unmarshal cart failed: %w", err2)
	}
	return lines, nil
}

func (r *RedisStore) Save(ctx context.Context, lines []domain.CartLine) error {
	data, err := json.Marshal(lines)
	if err != nil {
		return fmt.Errorf("marshal cart failed: %w", err)
	}

	if err := r.client.Set(ctx, storageKey(), string(data), 0).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (r *RedisStore) Delete(ctx context.Context) error {
	if err := r.client.Del(ctx, storageKey()).Err(); err != nil {
		return fmt.Errorf("redis delete failed: %w", err)
	}
	return nil
}

func storageKey() string {
	return "webbeatty:cart"
}
