// Package importer migrates legacy design-tool saves from the
// printess_templates table into the customer-project schema.
package importer

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jep-hq/tools/internal/clock"
	projectdomain "github.com/jep-hq/tools/internal/project/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// LegacyTemplate is one row of the legacy save table.
type LegacyTemplate struct {
	ID             int64      `gorm:"primaryKey"`
	SaveToken      string     `gorm:"column:save_token"`
	ThumbnailURL   string     `gorm:"column:thumbnail_url"`
	VariantID      string     `gorm:"column:variant_id"`
	CustomerID     string     `gorm:"column:customer_id"`
	ProductID      string     `gorm:"column:product_id"`
	ProductName    string     `gorm:"column:product_name"`
	ProductHandle  string     `gorm:"column:product_handle"`
	Deleted        bool       `gorm:"column:deleted"`
	Copied         bool       `gorm:"column:copied"`
	CreatedAt      *time.Time `gorm:"column:created_at"`
	AvailableUntil *time.Time `gorm:"column:available_until"`
}

// TableName sets the database table name.
func (LegacyTemplate) TableName() string { return "printess_templates" }

// Report summarizes one import run.
type Report struct {
	Total    int
	Migrated int
	Skipped  int
}

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Clock clock.Clock
	Repo  projectdomain.Repository
}

type Importer struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	clock clock.Clock
	repo  projectdomain.Repository
}

func NewImporter(p Params) *Importer {
	return &Importer{
		db:    p.DB,
		log:   p.Log.Named("importer"),
		genID: p.GenID,
		clock: p.Clock,
		repo:  p.Repo,
	}
}

// Run migrates every live legacy template into the project schema.
// Deleted, copied, and already-expired templates stay behind, as do
// templates whose save token was already imported.
func (i *Importer) Run(ctx context.Context, tenant string) (Report, error) {
	now := i.clock.Now().UTC()

	var templates []LegacyTemplate
	err := i.db.WithContext(ctx).
		Where("deleted = ? AND copied = ? AND available_until >= ?", false, false, now).
		Order("id ASC").
		Find(&templates).Error
	if err != nil {
		return Report{}, err
	}

	report := Report{Total: len(templates)}
	for _, tmpl := range templates {
		migrated, err := i.migrateOne(ctx, tenant, tmpl, now)
		if err != nil {
			return report, err
		}
		if migrated {
			report.Migrated++
		} else {
			report.Skipped++
		}
	}

	i.log.Info("legacy import finished",
		zap.Int("total", report.Total),
		zap.Int("migrated", report.Migrated),
		zap.Int("skipped", report.Skipped),
	)
	return report, nil
}

func (i *Importer) migrateOne(ctx context.Context, tenant string, tmpl LegacyTemplate, now time.Time) (bool, error) {
	if tmpl.SaveToken == "" {
		return false, nil
	}

	existing, err := i.repo.FindByToken(ctx, i.db, tenant, tmpl.SaveToken)
	if err != nil {
		return false, err
	}
	if existing != nil {
		return false, nil
	}

	createdAt := now
	if tmpl.CreatedAt != nil {
		createdAt = tmpl.CreatedAt.UTC()
	}
	availableUntil := now.Add(30 * 24 * time.Hour)
	if tmpl.AvailableUntil != nil {
		availableUntil = tmpl.AvailableUntil.UTC()
	}

	change := projectdomain.Change{
		Token:        tmpl.SaveToken,
		ThumbnailURL: tmpl.ThumbnailURL,
		Variant:      projectdomain.Variant{ID: tmpl.VariantID},
		CreatedAt:    createdAt,
	}

	p := &projectdomain.Project{
		ID:         i.genID.Generate(),
		Tenant:     tenant,
		CustomerID: tmpl.CustomerID,
		Tool:       "old_printess_save",
		Source:     "shopify",
		Product: datatypes.NewJSONType(projectdomain.Product{
			ID:     tmpl.ProductID,
			Name:   tmpl.ProductName,
			Handle: tmpl.ProductHandle,
		}),
		Current:        datatypes.NewJSONType(change),
		Changes:        datatypes.NewJSONSlice([]projectdomain.Change{change}),
		IsDeleted:      false,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
		AvailableUntil: availableUntil,
	}

	err = i.db.Transaction(func(tx *gorm.DB) error {
		if err := i.repo.Insert(ctx, tx, p); err != nil {
			return err
		}
		return i.repo.ClaimToken(ctx, tx, tmpl.SaveToken, p.ID, now)
	})
	if err != nil {
		return false, err
	}
	return true, nil
}
