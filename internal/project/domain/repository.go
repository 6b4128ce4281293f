package domain

import (
	"context"
	"time"

	"github.com/bwmarrin/snowflake"
	"gorm.io/gorm"
)

// Repository provides persistence for customer projects. Methods take
// the database handle explicitly so callers can run several of them in
// one transaction.
type Repository interface {
	FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*Project, error)
	FindForCustomer(ctx context.Context, db *gorm.DB, tenant string, id snowflake.ID, customerID string) (*Project, error)
	FindByToken(ctx context.Context, db *gorm.DB, tenant, token string) (*Project, error)
	List(ctx context.Context, db *gorm.DB, tenant, customerID string) ([]Project, error)

	Insert(ctx context.Context, db *gorm.DB, p *Project) error
	ClaimToken(ctx context.Context, db *gorm.DB, token string, projectID snowflake.ID, now time.Time) error

	// UpdateGuarded applies updates to the project row identified by id
	// only while its updated_at still equals expectedUpdatedAt, and
	// returns the number of rows modified.
	UpdateGuarded(ctx context.Context, db *gorm.DB, id snowflake.ID, expectedUpdatedAt time.Time, updates map[string]any) (int64, error)

	MarkDeleted(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string, now time.Time) (int64, error)
	AttachOrder(ctx context.Context, db *gorm.DB, id snowflake.ID, availableUntil time.Time, order SalesOrder, now time.Time) (int64, error)

	// CountActive and CountExpired feed the retention gauges.
	CountActive(ctx context.Context, db *gorm.DB) (int64, error)
	CountExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error)
	OldestExpired(ctx context.Context, db *gorm.DB, now time.Time) (*time.Time, error)
}
