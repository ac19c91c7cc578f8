package cache

import (
	"context"
	"strings"

	redis "github.com/redis/go-redis/v9"
	"github.com/smallbiznis/recipecost/internal/clock"
	"github.com/smallbiznis/recipecost/internal/config"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("cache",
	fx.Provide(NewReportCache),
)

// NewReportCache uses Redis when REDIS_ADDR is set and an in-process cache otherwise.
func NewReportCache(lc fx.Lifecycle, cfg config.Config, c clock.Clock, log *zap.Logger) ReportCache {
	if cfg.ReportCacheTTL <= 0 {
		log.Info("report cache disabled")
		return NoopReportCache()
	}
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		return NewMemoryReportCache(cfg.ReportCacheTTL, c)
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			return client.Ping(ctx).Err()
		},
		OnStop: func(context.Context) error {
			return client.Close()
		},
	})
	log.Info("report cache backed by redis", zap.String("addr", cfg.RedisAddr))
	return NewRedisReportCache(client, cfg.ReportCacheTTL)
}
