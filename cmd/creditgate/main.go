package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/textcraft/creditgate/internal/catalog"
	"github.com/textcraft/creditgate/internal/claim"
	"github.com/textcraft/creditgate/internal/clock"
	"github.com/textcraft/creditgate/internal/code"
	"github.com/textcraft/creditgate/internal/config"
	"github.com/textcraft/creditgate/internal/gateway"
	"github.com/textcraft/creditgate/internal/generation"
	"github.com/textcraft/creditgate/internal/migration"
	"github.com/textcraft/creditgate/internal/observability"
	"github.com/textcraft/creditgate/internal/purchase"
	"github.com/textcraft/creditgate/internal/server"
	"github.com/textcraft/creditgate/pkg/db"
	"go.uber.org/fx"
)

func main() {
	app := fx.New(
		// Core infrastructure
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		migration.Module,

		// Functional domains
		catalog.Module,
		code.Module,
		claim.Module,
		gateway.Module,
		generation.Module,
		purchase.Module,

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
