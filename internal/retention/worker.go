// Package retention observes the expiry backlog. Projects are never
// hard-deleted; the worker only measures how many active projects have
// outlived their availability window and exports the numbers as gauges.
package retention

import (
	"context"
	"errors"
	"time"

	"github.com/jep-hq/tools/internal/clock"
	"github.com/jep-hq/tools/internal/observability/metrics"
	projectdomain "github.com/jep-hq/tools/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	Clock   clock.Clock
	Repo    projectdomain.Repository
	Metrics *metrics.ProjectMetrics `optional:"true"`
	Config  Config                  `optional:"true"`
}

type Worker struct {
	db      *gorm.DB
	log     *zap.Logger
	clock   clock.Clock
	repo    projectdomain.Repository
	metrics *metrics.ProjectMetrics
	cfg     Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		db:      p.DB,
		log:     p.Log.Named("retention"),
		clock:   p.Clock,
		repo:    p.Repo,
		metrics: p.Metrics,
		cfg:     p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("retention scan failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// RunOnce takes one measurement of the expiry backlog.
func (w *Worker) RunOnce(ctx context.Context) error {
	if w.db == nil || w.repo == nil {
		return errors.New("retention_worker_unavailable")
	}

	now := w.clock.Now().UTC()

	active, err := w.repo.CountActive(ctx, w.db)
	if err != nil {
		return err
	}
	expired, err := w.repo.CountExpired(ctx, w.db, now)
	if err != nil {
		return err
	}
	oldest, err := w.repo.OldestExpired(ctx, w.db, now)
	if err != nil {
		return err
	}

	w.metrics.SetActiveProjects(active)
	w.metrics.SetExpiredProjects(expired)
	if oldest != nil {
		w.metrics.SetOldestExpiredAge(now.Sub(*oldest))
	} else {
		w.metrics.SetOldestExpiredAge(0)
	}

	w.log.Debug("retention scan",
		zap.Int64("active", active),
		zap.Int64("expired", expired),
	)
	return nil
}
