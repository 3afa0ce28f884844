package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/lafcloud/platform/internal/config"
	"github.com/lafcloud/platform/internal/logger"
	"github.com/lafcloud/platform/internal/migration"
	"github.com/lafcloud/platform/internal/server"
	"github.com/lafcloud/platform/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		migration.Module,
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
