package emailconfig

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// Repository persists email provider configurations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	List(ctx context.Context) ([]models.EmailConfiguration, error)
	FindByID(ctx context.Context, id uuid.UUID) (*models.EmailConfiguration, error)
	FindActive(ctx context.Context) (*models.EmailConfiguration, error)
	Create(ctx context.Context, cfg *models.EmailConfiguration) error
	Update(ctx context.Context, id uuid.UUID, updates map[string]any) error
	DeactivateAll(ctx context.Context, except uuid.UUID) error
}

type repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) List(ctx context.Context) ([]models.EmailConfiguration, error) {
	var rows []models.EmailConfiguration
	err := r.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Find(&rows).Error
	return rows, err
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.EmailConfiguration, error) {
	var row models.EmailConfiguration
	if err := r.db.WithContext(ctx).First(&row, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindActive(ctx context.Context) (*models.EmailConfiguration, error) {
	var row models.EmailConfiguration
	if err := r.db.WithContext(ctx).Where("status = ?", enums.EmailConfigActive).First(&row).Error; err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, cfg *models.EmailConfiguration) error {
	return r.db.WithContext(ctx).Create(cfg).Error
}

func (r *repository) Update(ctx context.Context, id uuid.UUID, updates map[string]any) error {
	res := r.db.WithContext(ctx).Model(&models.EmailConfiguration{}).Where("id = ?", id).Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) DeactivateAll(ctx context.Context, except uuid.UUID) error {
	return r.db.WithContext(ctx).Model(&models.EmailConfiguration{}).
		Where("status = ? AND id <> ?", enums.EmailConfigActive, except).
		Updates(map[string]any{"status": enums.EmailConfigInactive}).Error
}
