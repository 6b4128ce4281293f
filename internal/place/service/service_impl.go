package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jep-hq/tools/internal/cache"
	"github.com/jep-hq/tools/internal/clock"
	"github.com/jep-hq/tools/internal/config"
	"github.com/jep-hq/tools/internal/events"
	"github.com/jep-hq/tools/internal/observability/metrics"
	"github.com/jep-hq/tools/internal/place/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// hotCacheTTL bounds how long a place is served from memory before the
// database row is consulted again.
const hotCacheTTL = 5 * time.Minute

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Client  domain.Client
	Outbox  *events.Outbox          `optional:"true"`
	Metrics *metrics.ProjectMetrics `optional:"true"`
	Config  config.Config
}

type Service struct {
	db      *gorm.DB
	log     *zap.Logger
	genID   *snowflake.Node
	clock   clock.Clock
	client  domain.Client
	outbox  *events.Outbox
	metrics *metrics.ProjectMetrics

	hot          cache.Cache[string, domain.Place]
	refreshAfter time.Duration
}

func NewService(p ServiceParam) domain.Service {
	refreshAfter := p.Config.PlaceRefreshAfter
	if refreshAfter <= 0 {
		refreshAfter = 30 * 24 * time.Hour
	}
	return &Service{
		db:           p.DB,
		log:          p.Log.Named("place.service"),
		genID:        p.GenID,
		clock:        p.Clock,
		client:       p.Client,
		outbox:       p.Outbox,
		metrics:      p.Metrics,
		hot:          cache.NewTTLCache[string, domain.Place](),
		refreshAfter: refreshAfter,
	}
}

// GetPlace returns the cached place for a tenant, fetching it from the
// Places API when it is missing or older than the refresh window.
func (s *Service) GetPlace(ctx context.Context, tenant, placeID string) (*domain.Place, error) {
	placeID = strings.TrimSpace(placeID)
	if placeID == "" {
		return nil, domain.ErrMissingPlaceID
	}

	key := tenant + "/" + placeID
	if cached, ok := s.hot.Get(key); ok {
		s.metrics.IncPlaceRefresh("hit")
		return &cached, nil
	}

	var stored *domain.Place
	var row domain.Place
	err := s.db.WithContext(ctx).
		First(&row, "tenant = ? AND place_id = ?", tenant, placeID).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
	case err != nil:
		return nil, err
	default:
		stored = &row
	}

	now := s.clock.Now().UTC()
	if stored != nil && now.Sub(stored.UpdatedAt) < s.refreshAfter {
		s.metrics.IncPlaceRefresh("hit")
		s.hot.Set(key, *stored, hotCacheTTL)
		return stored, nil
	}

	details, err := s.client.Details(ctx, placeID)
	if err != nil {
		s.metrics.IncPlaceRefresh("failed")
		s.log.Warn("place details fetch failed",
			zap.String("place_id", placeID),
			zap.String("tenant", tenant),
			zap.Error(err),
		)
		return nil, err
	}

	if stored == nil {
		stored = &domain.Place{
			ID:        s.genID.Generate(),
			Tenant:    tenant,
			PlaceID:   placeID,
			CreatedAt: now,
		}
	}
	stored.Name = details.Name
	stored.DisplayName = []byte(details.DisplayName)
	stored.Address = details.FormattedAddress
	stored.Rating = details.Rating
	stored.Reviews = []byte(details.Reviews)
	stored.Photos = []byte(details.Photos)
	stored.Location = []byte(details.Location)
	stored.UpdatedAt = now

	if err := s.db.WithContext(ctx).Save(stored).Error; err != nil {
		return nil, err
	}

	s.metrics.IncPlaceRefresh("refreshed")
	if s.outbox != nil {
		// The refresh already succeeded; a missed event is only logged.
		err := s.outbox.Publish(ctx, events.Event{
			Tenant:  tenant,
			Type:    events.EventPlaceRefreshed,
			Payload: map[string]any{"place_id": placeID},
		})
		if err != nil {
			s.log.Warn("place refresh event not recorded",
				zap.String("place_id", placeID),
				zap.Error(err),
			)
		}
	}
	s.hot.Set(key, *stored, hotCacheTTL)
	return stored, nil
}
