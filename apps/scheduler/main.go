package main

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/casalist/casalist/internal/approval"
	"github.com/casalist/casalist/internal/clock"
	"github.com/casalist/casalist/internal/config"
	"github.com/casalist/casalist/internal/lifecycle"
	"github.com/casalist/casalist/internal/listing"
	"github.com/casalist/casalist/internal/lock"
	"github.com/casalist/casalist/internal/logger"
	"github.com/casalist/casalist/internal/migration"
	"github.com/casalist/casalist/internal/scheduler"
	"github.com/casalist/casalist/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
		clock.Module,
		lock.Module,

		listing.Module,
		approval.Module,
		lifecycle.Module,
		scheduler.Module,

		// No server module here; the sweep worker runs headless.
		fx.Invoke(StartScheduler),
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(2)
	if err != nil {
		panic(err)
	}
	return node
}

func StartScheduler(lc fx.Lifecycle, s *scheduler.Scheduler) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go s.RunForever(context.Background())
			return nil
		},
	})
}
