package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/denimozh/mathstutor-sub000/internal/logger"
)

const (
	markSchemeKeyPrefix = "mathstutor:markscheme:"
	defaultCacheTTL     = 24 * time.Hour
)

// redisKV is the subset of the go-redis client the cache uses.
type redisKV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
}

// CachedMarkSchemes is a read-through Redis layer in front of a
// MarkSchemeRepo. Redis failures degrade to the inner repo.
type CachedMarkSchemes struct {
	inner MarkSchemeRepo
	rdb   redisKV
	ttl   time.Duration
	log   *logger.Logger
}

// NewRedisClient parses a redis:// URL.
func NewRedisClient(url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	return redis.NewClient(opts), nil
}

func NewCachedMarkSchemes(inner MarkSchemeRepo, rdb redisKV, ttl time.Duration, log *logger.Logger) *CachedMarkSchemes {
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	return &CachedMarkSchemes{inner: inner, rdb: rdb, ttl: ttl, log: logger.OrNop(log)}
}

func (c *CachedMarkSchemes) Get(ctx context.Context, questionID string) (*MarkScheme, error) {
	key := markSchemeKeyPrefix + questionID

	raw, err := c.rdb.Get(ctx, key).Result()
	switch {
	case err == nil:
		var ms MarkScheme
		if jerr := json.Unmarshal([]byte(raw), &ms); jerr == nil {
			return &ms, nil
		}
		c.log.Warn("discarding undecodable cached mark scheme", "question_id", questionID)
	case !errors.Is(err, redis.Nil):
		c.log.Warn("mark scheme cache read failed", "question_id", questionID, "error", err)
	}

	ms, err := c.inner.Get(ctx, questionID)
	if err != nil {
		return nil, err
	}
	c.fill(ctx, key, *ms)
	return ms, nil
}

func (c *CachedMarkSchemes) Put(ctx context.Context, ms MarkScheme) error {
	if err := c.inner.Put(ctx, ms); err != nil {
		return err
	}
	c.fill(ctx, markSchemeKeyPrefix+ms.QuestionID, ms)
	return nil
}

func (c *CachedMarkSchemes) fill(ctx context.Context, key string, ms MarkScheme) {
	data, err := json.Marshal(ms)
	if err != nil {
		return
	}
	if err := c.rdb.Set(ctx, key, data, c.ttl).Err(); err != nil {
		c.log.Warn("mark scheme cache write failed", "key", key, "error", err)
	}
}
