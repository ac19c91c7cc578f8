package cache

import (
	"context"
	"errors"
	"fmt"
	"time"

	redis "github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "recipecost:report"

type redisReportCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisReportCache(client *redis.Client, ttl time.Duration) ReportCache {
	return &redisReportCache{client: client, ttl: ttl}
}

func redisEntryKey(key ReportKey) string {
	return redisKeyPrefix + ":" + key.String()
}

func redisIndexKey(orgID int64) string {
	return fmt.Sprintf("%s-index:%d", redisKeyPrefix, orgID)
}

func (c *redisReportCache) Get(ctx context.Context, key ReportKey) ([]byte, bool, error) {
	payload, err := c.client.Get(ctx, redisEntryKey(key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return payload, true, nil
}

func (c *redisReportCache) Set(ctx context.Context, key ReportKey, payload []byte) error {
	entryKey := redisEntryKey(key)
	indexKey := redisIndexKey(key.OrgID)
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, entryKey, payload, c.ttl)
		pipe.SAdd(ctx, indexKey, entryKey)
		if c.ttl > 0 {
			pipe.Expire(ctx, indexKey, c.ttl)
		}
		return nil
	})
	return err
}

func (c *redisReportCache) InvalidateOrg(ctx context.Context, orgID int64) error {
	indexKey := redisIndexKey(orgID)
	keys, err := c.client.SMembers(ctx, indexKey).Result()
	if err != nil {
		return err
	}
	keys = append(keys, indexKey)
	return c.client.Del(ctx, keys...).Err()
}
