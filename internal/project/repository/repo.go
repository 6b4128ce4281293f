package repository

import (
	"context"
	"errors"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/jep-hq/tools/internal/project/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type projectRepository struct{}

// Provide returns the gorm-backed project repository.
func Provide() domain.Repository {
	return &projectRepository{}
}

func (r *projectRepository) FindByID(ctx context.Context, db *gorm.DB, id snowflake.ID) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).First(&p, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) FindForCustomer(ctx context.Context, db *gorm.DB, tenant string, id snowflake.ID, customerID string) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).
		First(&p, "id = ? AND tenant = ? AND customer_id = ?", id, tenant, customerID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// FindByToken resolves the project owning a save token, however deep in
// its history the token sits. The lookup is tenant-scoped so one
// tenant's tokens can never address another tenant's records.
func (r *projectRepository) FindByToken(ctx context.Context, db *gorm.DB, tenant, token string) (*domain.Project, error) {
	var p domain.Project
	err := db.WithContext(ctx).
		Joins("JOIN customer_project_tokens ON customer_project_tokens.project_id = customer_projects.id").
		Where("customer_project_tokens.token = ? AND customer_projects.tenant = ?", token, tenant).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *projectRepository) List(ctx context.Context, db *gorm.DB, tenant, customerID string) ([]domain.Project, error) {
	var out []domain.Project
	err := db.WithContext(ctx).
		Where("tenant = ? AND customer_id = ? AND is_deleted = ?", tenant, customerID, false).
		Order("created_at DESC").
		Order("id DESC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (r *projectRepository) Insert(ctx context.Context, db *gorm.DB, p *domain.Project) error {
	return db.WithContext(ctx).Create(p).Error
}

func (r *projectRepository) ClaimToken(ctx context.Context, db *gorm.DB, token string, projectID snowflake.ID, now time.Time) error {
	return db.WithContext(ctx).Create(&domain.ProjectToken{
		Token:     token,
		ProjectID: projectID,
		CreatedAt: now,
	}).Error
}

func (r *projectRepository) UpdateGuarded(ctx context.Context, db *gorm.DB, id snowflake.ID, expectedUpdatedAt time.Time, updates map[string]any) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ? AND updated_at = ?", id, expectedUpdatedAt).
		Updates(updates)
	return result.RowsAffected, result.Error
}

func (r *projectRepository) MarkDeleted(ctx context.Context, db *gorm.DB, id snowflake.ID, customerID string, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ? AND (customer_id = ? OR customer_id = '') AND is_deleted = ?", id, customerID, false).
		Updates(map[string]any{
			"is_deleted": true,
			"deleted_at": now,
			"updated_at": now,
		})
	return result.RowsAffected, result.Error
}

func (r *projectRepository) AttachOrder(ctx context.Context, db *gorm.DB, id snowflake.ID, availableUntil time.Time, order domain.SalesOrder, now time.Time) (int64, error) {
	result := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"available_until": availableUntil,
			"sales_order":     datatypes.NewJSONType(order),
			"updated_at":      now,
		})
	return result.RowsAffected, result.Error
}

func (r *projectRepository) CountActive(ctx context.Context, db *gorm.DB) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("is_deleted = ?", false).
		Count(&count).Error
	return count, err
}

func (r *projectRepository) CountExpired(ctx context.Context, db *gorm.DB, now time.Time) (int64, error) {
	var count int64
	err := db.WithContext(ctx).
		Model(&domain.Project{}).
		Where("is_deleted = ? AND available_until < ?", false, now).
		Count(&count).Error
	return count, err
}

func (r *projectRepository) OldestExpired(ctx context.Context, db *gorm.DB, now time.Time) (*time.Time, error) {
	var p domain.Project
	err := db.WithContext(ctx).
		Where("is_deleted = ? AND available_until < ?", false, now).
		Order("available_until ASC").
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &p.AvailableUntil, nil
}
