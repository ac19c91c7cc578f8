package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/recipecost/internal/cache"
	"github.com/smallbiznis/recipecost/internal/clock"
	"github.com/smallbiznis/recipecost/internal/config"
	"github.com/smallbiznis/recipecost/internal/migration"
	"github.com/smallbiznis/recipecost/internal/observability"
	"github.com/smallbiznis/recipecost/internal/server"
	"github.com/smallbiznis/recipecost/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/fx/fxevent"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.WithLogger(func(log *zap.Logger) fxevent.Logger {
			return &fxevent.ZapLogger{Logger: log.Named("fx")}
		}),

		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		cache.Module,

		// Schema must be in place before routes start serving.
		migration.Module,
		server.Module,
	)
	app.Run()
}

func RegisterSnowflake(cfg config.Config) (*snowflake.Node, error) {
	return snowflake.NewNode(cfg.SnowflakeNode)
}
