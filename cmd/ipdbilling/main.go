package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/sevacare/ipdbilling/internal/clock"
	"github.com/sevacare/ipdbilling/internal/config"
	"github.com/sevacare/ipdbilling/internal/logger"
	"github.com/sevacare/ipdbilling/internal/migration"
	"github.com/sevacare/ipdbilling/internal/observability"
	"github.com/sevacare/ipdbilling/internal/server"
	"github.com/sevacare/ipdbilling/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		config.Module,
		logger.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
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
