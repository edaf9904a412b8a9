package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/castpress/castpress/pkg/models"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// Cache is the fast-path interface for job state reads and outbound email
// events. Implementations must be safe for concurrent use.
type Cache interface {
	Ping(ctx context.Context) error
	SetJobStatus(ctx context.Context, jobID uuid.UUID, status string, ttl time.Duration) error
	GetJobStatus(ctx context.Context, jobID uuid.UUID) (string, bool, error)
	SetJobProgress(ctx context.Context, jobID uuid.UUID, message string, ttl time.Duration) error
	GetJobProgress(ctx context.Context, jobID uuid.UUID) (string, bool, error)
	EnqueueEmail(ctx context.Context, event models.EmailEvent) error
}

// RedisCache implements the Cache interface using go-redis/v9.
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new RedisCache from a Redis URL.
func NewRedisCache(redisURL string) (*RedisCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return &RedisCache{client: redis.NewClient(opts)}, nil
}

func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

func (c *RedisCache) Close() error {
	return c.client.Close()
}

func (c *RedisCache) SetJobStatus(ctx context.Context, jobID uuid.UUID, status string, ttl time.Duration) error {
	return c.client.Set(ctx, JobStatusKey(jobID), status, ttl).Err()
}

func (c *RedisCache) GetJobStatus(ctx context.Context, jobID uuid.UUID) (string, bool, error) {
	val, err := c.client.Get(ctx, JobStatusKey(jobID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

func (c *RedisCache) SetJobProgress(ctx context.Context, jobID uuid.UUID, message string, ttl time.Duration) error {
	return c.client.Set(ctx, JobProgressKey(jobID), message, ttl).Err()
}

func (c *RedisCache) GetJobProgress(ctx context.Context, jobID uuid.UUID) (string, bool, error) {
	val, err := c.client.Get(ctx, JobProgressKey(jobID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return val, true, nil
}

// EnqueueEmail pushes an email event onto the outbound queue. The mailer
// worker BLPOPs the same list; castpress never sends mail itself.
func (c *RedisCache) EnqueueEmail(ctx context.Context, event models.EmailEvent) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal email event: %w", err)
	}
	return c.client.LPush(ctx, EmailQueueKey(), payload).Err()
}
