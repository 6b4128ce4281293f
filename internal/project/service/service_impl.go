package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jep-hq/tools/internal/clock"
	"github.com/jep-hq/tools/internal/config"
	"github.com/jep-hq/tools/internal/events"
	"github.com/jep-hq/tools/internal/observability/metrics"
	"github.com/jep-hq/tools/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type ServiceParam struct {
	fx.In

	DB      *gorm.DB
	Log     *zap.Logger
	GenID   *snowflake.Node
	Clock   clock.Clock
	Repo    domain.Repository
	Outbox  *events.Outbox
	Metrics *metrics.ProjectMetrics `optional:"true"`
	Config  config.Config
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock

	repo    domain.Repository
	outbox  *events.Outbox
	metrics *metrics.ProjectMetrics

	availabilityWindow time.Duration
}

func NewService(p ServiceParam) domain.Service {
	window := p.Config.AvailabilityWindow
	if window <= 0 {
		window = 30 * 24 * time.Hour
	}
	return &Service{
		db:                 p.DB,
		log:                p.Log.Named("project.service"),
		genID:              p.GenID,
		clock:              p.Clock,
		repo:               p.Repo,
		outbox:             p.Outbox,
		metrics:            p.Metrics,
		availabilityWindow: window,
	}
}

// Upsert creates a project for an unseen token_old or appends a version
// to the project that owns it.
func (s *Service) Upsert(ctx context.Context, tenant string, req domain.UpsertRequest) (*domain.Response, error) {
	token := strings.TrimSpace(req.Current.Token)
	if token == "" {
		// An empty save token would collapse all anonymous saves into
		// one record.
		return nil, domain.ErrMissingToken
	}
	if strings.TrimSpace(req.Current.ThumbnailURL) == "" {
		return nil, domain.ErrMissingThumbnail
	}

	now := s.clock.Now().UTC()
	candidate := domain.Change{
		Token:        token,
		ThumbnailURL: strings.TrimSpace(req.Current.ThumbnailURL),
		Variant:      req.Current.Variant,
		CreatedAt:    now,
	}

	var existing *domain.Project
	if tokenOld := strings.TrimSpace(req.TokenOld); tokenOld != "" {
		found, err := s.repo.FindByToken(ctx, s.db, tenant, tokenOld)
		if err != nil {
			return nil, err
		}
		existing = found
	}

	if existing == nil {
		return s.create(ctx, tenant, req, candidate, now)
	}
	return s.appendVersion(ctx, tenant, existing, req, candidate, now)
}

func (s *Service) create(ctx context.Context, tenant string, req domain.UpsertRequest, candidate domain.Change, now time.Time) (*domain.Response, error) {
	if strings.TrimSpace(req.Product.ID) == "" {
		return nil, domain.ErrMissingProduct
	}

	p := &domain.Project{
		ID:             s.genID.Generate(),
		Tenant:         tenant,
		CustomerID:     strings.TrimSpace(req.CustomerID),
		Name:           strings.TrimSpace(req.Name),
		Tool:           strings.TrimSpace(req.Tool),
		Source:         strings.TrimSpace(req.Source),
		TemplateName:   strings.TrimSpace(req.TemplateName),
		Product:        datatypes.NewJSONType(req.Product),
		Current:        datatypes.NewJSONType(candidate),
		Changes:        datatypes.NewJSONSlice([]domain.Change{candidate}),
		IsDeleted:      false,
		CreatedAt:      now,
		UpdatedAt:      now,
		AvailableUntil: now.Add(s.availabilityWindow),
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.Insert(ctx, tx, p); err != nil {
			return err
		}
		if err := s.repo.ClaimToken(ctx, tx, candidate.Token, p.ID, now); err != nil {
			return err
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Tenant: tenant,
			Type:   events.EventProjectCreated,
			Payload: events.ProjectPayload{
				ProjectID:  p.ID.String(),
				CustomerID: p.CustomerID,
				Token:      candidate.Token,
			}.ToMap(),
			DedupeKey: events.EventProjectCreated + ":" + candidate.Token,
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		// Another writer claimed the token between our lookup and the
		// insert.
		s.metrics.IncWriteConflict("upsert")
		return nil, domain.ErrWriteConflict
	}
	if err != nil {
		return nil, err
	}

	// Re-read through the store instead of trusting the in-memory
	// struct, so callers always see what was actually persisted.
	stored, err := s.repo.FindByID(ctx, s.db, p.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, domain.ErrUnknownWriteFailure
	}

	s.metrics.IncProjectCreated()
	s.log.Info("project created",
		zap.String("project_id", stored.ID.String()),
		zap.String("tenant", tenant),
	)
	return domain.ToResponse(stored), nil
}

func (s *Service) appendVersion(ctx context.Context, tenant string, existing *domain.Project, req domain.UpsertRequest, candidate domain.Change, now time.Time) (*domain.Response, error) {
	newChanges := append([]domain.Change(existing.Changes), candidate)

	updates := map[string]any{
		"changes":         datatypes.NewJSONSlice(newChanges),
		"current":         datatypes.NewJSONType(candidate),
		"updated_at":      now,
		"available_until": now.Add(s.availabilityWindow),
	}
	// A write that supplies a customer may claim an unclaimed project,
	// and a claimed project may be re-bound through this path only.
	if customerID := strings.TrimSpace(req.CustomerID); customerID != "" {
		updates["customer_id"] = customerID
	}

	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := s.repo.ClaimToken(ctx, tx, candidate.Token, existing.ID, now); err != nil {
			return err
		}
		rows, err := s.repo.UpdateGuarded(ctx, tx, existing.ID, existing.UpdatedAt, updates)
		if err != nil {
			return err
		}
		if rows == 0 {
			return domain.ErrWriteConflict
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Tenant: tenant,
			Type:   events.EventProjectVersionAppended,
			Payload: events.ProjectPayload{
				ProjectID:  existing.ID.String(),
				CustomerID: existing.CustomerID,
				Token:      candidate.Token,
			}.ToMap(),
			DedupeKey: events.EventProjectVersionAppended + ":" + candidate.Token,
		})
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) || errors.Is(err, domain.ErrWriteConflict) {
		s.metrics.IncWriteConflict("upsert")
		s.log.Warn("version append lost a write race",
			zap.String("project_id", existing.ID.String()),
			zap.String("tenant", tenant),
		)
		return nil, domain.ErrWriteConflict
	}
	if err != nil {
		return nil, err
	}

	stored, err := s.repo.FindByID(ctx, s.db, existing.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, domain.ErrUnknownWriteFailure
	}

	s.metrics.IncVersionAppended()
	return domain.ToResponse(stored), nil
}

func (s *Service) Get(ctx context.Context, tenant, id, customerID string) (*domain.Response, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, domain.ErrMissingCustomer
	}
	projectID, err := domain.ParseID(id)
	if err != nil {
		return nil, domain.ErrNotFound
	}

	// Deleted projects stay fetchable by id for auditability; only
	// listings hide them.
	p, err := s.repo.FindForCustomer(ctx, s.db, tenant, projectID, customerID)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, domain.ErrNotFound
	}
	return domain.ToResponse(p), nil
}

func (s *Service) List(ctx context.Context, tenant, customerID string) ([]domain.Response, error) {
	customerID = strings.TrimSpace(customerID)
	if customerID == "" {
		return nil, domain.ErrMissingCustomer
	}

	items, err := s.repo.List(ctx, s.db, tenant, customerID)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Response, 0, len(items))
	for i := range items {
		out = append(out, *domain.ToResponse(&items[i]))
	}
	return out, nil
}

func (s *Service) Update(ctx context.Context, tenant, id, customerID string, req domain.UpdateRequest) (*domain.Response, error) {
	allowed, existing, err := s.checkOwnership(ctx, tenant, id, customerID)
	if err != nil {
		return nil, err
	}
	if !allowed {
		if existing != nil {
			return nil, domain.ErrOwnershipMismatch
		}
		return nil, domain.ErrNotFound
	}
	if existing == nil {
		return nil, domain.ErrNotFound
	}

	// Direct updates may claim an unclaimed project but never reassign
	// a claimed one; only the append-on-matching-token path may rebind.
	if req.CustomerID != nil {
		supplied := strings.TrimSpace(*req.CustomerID)
		if supplied != "" && existing.CustomerID != "" && supplied != existing.CustomerID {
			return nil, domain.ErrOwnershipMismatch
		}
	}

	now := s.clock.Now().UTC()
	updates := map[string]any{"updated_at": now}
	if req.Name != nil {
		updates["name"] = strings.TrimSpace(*req.Name)
	}
	if req.TemplateName != nil {
		updates["template_name"] = strings.TrimSpace(*req.TemplateName)
	}
	if req.Tool != nil {
		updates["tool"] = strings.TrimSpace(*req.Tool)
	}
	if req.Source != nil {
		updates["source"] = strings.TrimSpace(*req.Source)
	}
	if req.CustomerID != nil && strings.TrimSpace(*req.CustomerID) != "" {
		updates["customer_id"] = strings.TrimSpace(*req.CustomerID)
	}

	rows, err := s.repo.UpdateGuarded(ctx, s.db, existing.ID, existing.UpdatedAt, updates)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		s.metrics.IncWriteConflict("update")
		return nil, domain.ErrWriteConflict
	}

	stored, err := s.repo.FindByID(ctx, s.db, existing.ID)
	if err != nil {
		return nil, err
	}
	if stored == nil {
		return nil, domain.ErrUnknownWriteFailure
	}
	return domain.ToResponse(stored), nil
}

func (s *Service) Delete(ctx context.Context, tenant, id, customerID string) error {
	allowed, existing, err := s.checkOwnership(ctx, tenant, id, customerID)
	if err != nil {
		return err
	}
	if !allowed {
		return domain.ErrOwnershipMismatch
	}

	projectID, err := domain.ParseID(id)
	if err != nil {
		return domain.ErrNotFound
	}

	now := s.clock.Now().UTC()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.MarkDeleted(ctx, tx, projectID, strings.TrimSpace(customerID), now)
		if err != nil {
			return err
		}
		if rows == 0 {
			// Already deleted, concurrently deleted, or the id vanished.
			return domain.ErrWriteConflict
		}
		payload := events.ProjectPayload{ProjectID: projectID.String()}
		if existing != nil {
			payload.CustomerID = existing.CustomerID
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Tenant:    tenant,
			Type:      events.EventProjectDeleted,
			Payload:   payload.ToMap(),
			DedupeKey: events.EventProjectDeleted + ":" + projectID.String(),
		})
	})
	if errors.Is(err, domain.ErrWriteConflict) {
		s.metrics.IncWriteConflict("delete")
		return domain.ErrWriteConflict
	}
	return err
}

// ApplyOrderEvent extends a project's availability and attaches order
// metadata when a purchase notification arrives, matched by any token
// in the project's history.
func (s *Service) ApplyOrderEvent(ctx context.Context, tenant string, event domain.OrderNotification) error {
	token := strings.TrimSpace(event.Token)
	if token == "" {
		return domain.ErrMissingToken
	}

	p, err := s.repo.FindByToken(ctx, s.db, tenant, token)
	if err != nil {
		return err
	}
	if p == nil {
		s.metrics.IncOrderEvent("not_found")
		s.log.Warn("project by token not found",
			zap.String("token", token),
			zap.String("tenant", tenant),
		)
		return domain.ErrNotFound
	}

	now := s.clock.Now().UTC()
	err = s.db.Transaction(func(tx *gorm.DB) error {
		rows, err := s.repo.AttachOrder(ctx, tx, p.ID, event.ExpireDate, event.SalesOrder, now)
		if err != nil {
			return err
		}
		if rows != 1 {
			return domain.ErrUpdateFailed
		}
		return s.outbox.PublishTx(ctx, tx, events.Event{
			Tenant: tenant,
			Type:   events.EventProjectOrderAttached,
			Payload: events.ProjectPayload{
				ProjectID:  p.ID.String(),
				CustomerID: p.CustomerID,
				Token:      token,
				OrderID:    event.SalesOrder.OrderID,
			}.ToMap(),
			DedupeKey: events.EventProjectOrderAttached + ":" + event.SalesOrder.OrderID + ":" + token,
		})
	})
	if errors.Is(err, domain.ErrUpdateFailed) {
		s.metrics.IncOrderEvent("failed")
		return domain.ErrUpdateFailed
	}
	if err != nil {
		return err
	}

	s.metrics.IncOrderEvent("applied")
	return nil
}

// checkOwnership looks the project up by id only, so a customer
// mismatch can be reported distinctly from a not-found. The returned
// record is for error composition, never for mutation.
func (s *Service) checkOwnership(ctx context.Context, tenant, id, suppliedCustomerID string) (bool, *domain.Project, error) {
	projectID, err := domain.ParseID(id)
	if err != nil {
		// Malformed ids behave like missing records.
		return false, nil, nil
	}

	p, err := s.repo.FindByID(ctx, s.db, projectID)
	if err != nil {
		return false, nil, err
	}
	if p == nil {
		return true, nil, nil
	}
	if p.Tenant != "" && p.Tenant != tenant {
		return false, p, nil
	}
	if p.CustomerID != "" && p.CustomerID != strings.TrimSpace(suppliedCustomerID) {
		return false, p, nil
	}
	return true, p, nil
}
