package content

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

const DefaultCacheTTL = time.Hour

// Cached is a read-through Redis cache in front of another Repository.
// Blobs never change under a key, so entries only need eviction on Delete.
// Cache failures are logged and bypassed.
type Cached struct {
	next   Repository
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewCached connects to Redis and wraps next.
func NewCached(next Repository, redisURL string, ttl time.Duration) (*Cached, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	return NewCachedWithClient(next, client, ttl), nil
}

// NewCachedWithClient wraps next using an existing Redis client.
func NewCachedWithClient(next Repository, client *redis.Client, ttl time.Duration) *Cached {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cached{
		next:   next,
		client: client,
		prefix: "content:",
		ttl:    ttl,
	}
}

func (c *Cached) key(key string) string {
	return c.prefix + key
}

func (c *Cached) Put(ctx context.Context, key string, data []byte) error {
	if err := c.next.Put(ctx, key, data); err != nil {
		return err
	}
	c.store(ctx, key, data)
	return nil
}

func (c *Cached) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := c.client.Get(ctx, c.key(key)).Bytes()
	if err == nil {
		return data, nil
	}
	if !errors.Is(err, redis.Nil) {
		log.Printf("content: cache get %s: %v", key, err)
	}

	data, err = c.next.Get(ctx, key)
	if err != nil {
		return nil, err
	}
	c.store(ctx, key, data)
	return data, nil
}

func (c *Cached) Delete(ctx context.Context, key string) error {
	if err := c.client.Del(ctx, c.key(key)).Err(); err != nil {
		log.Printf("content: cache evict %s: %v", key, err)
	}
	return c.next.Delete(ctx, key)
}

func (c *Cached) store(ctx context.Context, key string, data []byte) {
	if err := c.client.Set(ctx, c.key(key), data, c.ttl).Err(); err != nil {
		log.Printf("content: cache set %s: %v", key, err)
	}
}

// Close closes the Redis connection.
func (c *Cached) Close() error {
	return c.client.Close()
}

// Ping checks the backing repository when it can be pinged. Redis is only
// reported in the log: reads fall through to the backing store without it.
func (c *Cached) Ping(ctx context.Context) error {
	if err := c.client.Ping(ctx).Err(); err != nil {
		log.Printf("content: cache unreachable: %v", err)
	}
	if p, ok := c.next.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}
