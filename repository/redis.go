package repository

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const defaultRedisPrefix = "session:"

// RedisStorage implements fiber.Storage with redis keys under a prefix.
type RedisStorage struct {
	client  redis.UniversalClient
	prefix  string
	timeout time.Duration
}

var _ fiber.Storage = (*RedisStorage)(nil)

// NewRedisStorage wraps an existing client.
func NewRedisStorage(client redis.UniversalClient, prefix string) *RedisStorage {
	if prefix == "" {
		prefix = defaultRedisPrefix
	}
	return &RedisStorage{
		client:  client,
		prefix:  prefix,
		timeout: 3 * time.Second,
	}
}

// NewRedisStorageFromURL parses a redis:// URL and connects.
func NewRedisStorageFromURL(ctx context.Context, rawURL string) (*RedisStorage, error) {
	opts, err := redis.ParseURL(rawURL)
	if err != nil {
		return nil, err
	}

	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, err
	}

	return NewRedisStorage(client, defaultRedisPrefix), nil
}

// Get implements fiber.Storage.
func (r *RedisStorage) Get(key string) ([]byte, error) {
	if key == "" {
		return nil, nil
	}

	ctx, cancel := r.context()
	defer cancel()

	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}
	return val, nil
}

// Set implements fiber.Storage.
func (r *RedisStorage) Set(key string, val []byte, exp time.Duration) error {
	if key == "" || len(val) == 0 {
		return nil
	}

	ctx, cancel := r.context()
	defer cancel()

	return r.client.Set(ctx, r.prefix+key, val, exp).Err()
}

// Delete implements fiber.Storage.
func (r *RedisStorage) Delete(key string) error {
	if key == "" {
		return nil
	}

	ctx, cancel := r.context()
	defer cancel()

	return r.client.Del(ctx, r.prefix+key).Err()
}

// Reset removes every key under the prefix.
func (r *RedisStorage) Reset() error {
	ctx, cancel := r.context()
	defer cancel()

	iter := r.client.Scan(ctx, 0, r.prefix+"*", 100).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}

// Close implements fiber.Storage.
func (r *RedisStorage) Close() error {
	return r.client.Close()
}

func (r *RedisStorage) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), r.timeout)
}
