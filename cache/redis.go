package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/redis/go-redis/v9"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const scanBatch = 500

// RedisStore keeps feeds in Redis with native key expiry
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

// ConnectRedis opens a client and waits for the server to answer a ping.
// This only runs at startup, requests never retry.
func ConnectRedis(ctx context.Context, addr string, maxWait time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(addr)
	if err != nil {
		opts = &redis.Options{Addr: addr}
	}
	client := redis.NewClient(opts)

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 100 * time.Millisecond
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = maxWait

	err = backoff.RetryNotify(func() error {
		return client.Ping(ctx).Err()
	}, backoff.WithContext(b, ctx), func(err error, next time.Duration) {
		log.WithFields(log.Fields{
			"addr":  opts.Addr,
			"error": err,
			"next":  next,
		}).Warn("Redis not ready")
	})
	if err != nil {
		client.Close()
		return nil, fmt.Errorf("error connecting to redis: %w", err)
	}

	log.WithFields(log.Fields{
		"addr": opts.Addr,
	}).Info("Connected to Redis")

	return NewRedisStore(client), nil
}

func (r *RedisStore) Get(ctx context.Context, key Key) ([]byte, error) {
	blob, err := r.client.Get(ctx, key.String()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return blob, nil
}

func (r *RedisStore) Set(ctx context.Context, key Key, blob []byte, ttl time.Duration) error {
	if err := r.client.Set(ctx, key.String(), blob, ttl).Err(); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// DeleteAll collects the namespace with SCAN and deletes it inside one MULTI/EXEC
func (r *RedisStore) DeleteAll(ctx context.Context) (int, error) {
	var keys []string
	iter := r.client.Scan(ctx, 0, KeyPrefix+"*", scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(keys) == 0 {
		return 0, nil
	}

	pipe := r.client.TxPipeline()
	dels := make([]*redis.IntCmd, 0, len(keys)/scanBatch+1)
	for _, batch := range deleteBatches(keys) {
		dels = append(dels, pipe.Del(ctx, batch...))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	deleted := 0
	for _, del := range dels {
		deleted += int(del.Val())
	}
	return deleted, nil
}

// deleteBatches splits the scanned keys into DEL commands. SCAN may return a
// key more than once.
func deleteBatches(keys []string) [][]string {
	return lo.Chunk(lo.Uniq(keys), scanBatch)
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
