package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/casalist/casalist/internal/clock"
	"github.com/casalist/casalist/internal/config"
	"github.com/casalist/casalist/internal/logger"
	"github.com/casalist/casalist/internal/migration"
	"github.com/casalist/casalist/internal/server"
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

		server.Module,
	)
	app.Run()
}

func RegisterSnowflake() *snowflake.Node {
	node, err := snowflake.NewNode(1)
	if err != nil {
		panic(err)
	}
	return node
}
