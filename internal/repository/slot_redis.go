package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/nikolayk812/repairshop-cart/internal/port"
	"github.com/redis/go-redis/v9"
)

type redisSlots struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisSlots stores slots as plain string values. A zero ttl keeps them forever.
func NewRedisSlots(client *redis.Client, ttl time.Duration) port.BatchSlotStore {
	return &redisSlots{
		client: client,
		ttl:    ttl,
	}
}

func (r *redisSlots) Load(ctx context.Context, key string) ([]byte, error) {
	if key == "" {
		return nil, fmt.Errorf("key is empty")
	}

	data, err := r.client.Get(ctx, redisKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, port.ErrSlotNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("client.Get: %w", err)
	}

	return data, nil
}

func (r *redisSlots) Save(ctx context.Context, key string, value []byte) error {
	if key == "" {
		return fmt.Errorf("key is empty")
	}

	if err := r.client.Set(ctx, redisKey(key), value, r.ttl).Err(); err != nil {
		return fmt.Errorf("client.Set: %w", err)
	}

	return nil
}

func (r *redisSlots) SaveAll(ctx context.Context, values map[string][]byte) error {
	for key := range values {
		if key == "" {
			return fmt.Errorf("key is empty")
		}
	}

	_, err := r.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for key, value := range values {
			pipe.Set(ctx, redisKey(key), value, r.ttl)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("client.TxPipelined: %w", err)
	}

	return nil
}

func (r *redisSlots) Delete(ctx context.Context, key string) (bool, error) {
	if key == "" {
		return false, fmt.Errorf("key is empty")
	}

	n, err := r.client.Del(ctx, redisKey(key)).Result()
	if err != nil {
		return false, fmt.Errorf("client.Del: %w", err)
	}

	return n > 0, nil
}

func redisKey(key string) string {
	return "cart:" + key
}
