// @title           Customer Projects API
// @version         1.0
// @description     Multi-tenant customer project and versioning API

// @host      localhost:8080
// @BasePath  /v1
// @Schemes 	http https

// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name x-api-key

package main

import (
	"github.com/bwmarrin/snowflake"
	"github.com/jep-hq/tools/internal/clock"
	"github.com/jep-hq/tools/internal/config"
	"github.com/jep-hq/tools/internal/events"
	"github.com/jep-hq/tools/internal/migration"
	"github.com/jep-hq/tools/internal/observability"
	"github.com/jep-hq/tools/internal/place"
	"github.com/jep-hq/tools/internal/project"
	"github.com/jep-hq/tools/internal/retention"
	"github.com/jep-hq/tools/internal/server"
	"github.com/jep-hq/tools/internal/tenant"
	"github.com/jep-hq/tools/pkg/db"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

func main() {
	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(RegisterSnowflake),
		db.Module,
		clock.Module,
		tenant.Module,

		fx.Invoke(func(conn *gorm.DB, cfg config.Config) error {
			sqlDB, err := conn.DB()
			if err != nil {
				return err
			}
			return migration.RunMigrations(sqlDB, cfg.Database.Driver)
		}),

		fx.Provide(events.NewOutbox),
		project.Module,
		place.Module,
		retention.Module,

		fx.Provide(server.NewEngine),
		fx.Provide(server.NewServer),
		fx.Invoke(func(s *server.Server) {
			s.RegisterAPIRoutes()
		}),
		fx.Invoke(server.RunHTTP),
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
