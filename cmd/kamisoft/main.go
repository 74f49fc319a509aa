package main

import (
	"github.com/bwmarrin/snowflake"
	"go.uber.org/fx"

	"github.com/D-Honoured1/Kamisoft-sub002/internal/logger"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/migration"
	"github.com/D-Honoured1/Kamisoft-sub002/internal/server"
	"github.com/D-Honoured1/Kamisoft-sub002/pkg/db"
)

func main() {
	app := fx.New(
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
