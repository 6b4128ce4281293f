package main

import (
	"context"
	"flag"

	"github.com/bwmarrin/snowflake"
	"github.com/jep-hq/tools/internal/clock"
	"github.com/jep-hq/tools/internal/config"
	"github.com/jep-hq/tools/internal/importer"
	"github.com/jep-hq/tools/internal/observability"
	"github.com/jep-hq/tools/internal/project/repository"
	"github.com/jep-hq/tools/pkg/db"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	tenant := flag.String("tenant", "kleineprints", "tenant slug to import into")
	flag.Parse()

	app := fx.New(
		config.Module,
		observability.Module,
		fx.Provide(func() (*snowflake.Node, error) {
			return snowflake.NewNode(1)
		}),
		db.Module,
		clock.Module,
		fx.Provide(repository.Provide),
		fx.Provide(importer.NewImporter),

		fx.Invoke(func(imp *importer.Importer, log *zap.Logger, sd fx.Shutdowner) {
			go func() {
				report, err := imp.Run(context.Background(), *tenant)
				if err != nil {
					log.Error("import failed", zap.Error(err))
				} else {
					log.Info("import complete",
						zap.Int("total", report.Total),
						zap.Int("migrated", report.Migrated),
						zap.Int("skipped", report.Skipped),
					)
				}
				_ = sd.Shutdown()
			}()
		}),
	)
	app.Run()
}
