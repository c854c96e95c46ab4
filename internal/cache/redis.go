package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "summary:"

// Redis is a shared Store for deployments where several digest jobs
// want one cache.
type Redis struct {
	rdb *redis.Client
}

// NewRedis connects and pings the server so misconfiguration fails at
// startup rather than mid-batch.
func NewRedis(addr string) (*Redis, error) {
	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return &Redis{rdb: rdb}, nil
}

func (r *Redis) Get(hash string) (Entry, error) {
	val, err := r.rdb.Get(context.Background(), redisKeyPrefix+hash).Bytes()
	if errors.Is(err, redis.Nil) {
		return Entry{}, ErrNotFound
	}
	if err != nil {
		return Entry{}, ErrNotFound
	}
	var entry Entry
	if err := json.Unmarshal(val, &entry); err != nil {
		return Entry{}, ErrNotFound
	}
	return entry, nil
}

func (r *Redis) Put(hash string, entry Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return err
	}
	return r.rdb.Set(context.Background(), redisKeyPrefix+hash, data, 0).Err()
}

func (r *Redis) Close() error { return r.rdb.Close() }
