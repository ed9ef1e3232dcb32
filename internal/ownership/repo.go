package ownership

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
)

// Repository persists ownership history rows and the pet holder pointer.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindOpen(ctx context.Context, petID, userID uuid.UUID) (*models.OwnershipHistory, error)
	FindLatest(ctx context.Context, petID, userID uuid.UUID) (*models.OwnershipHistory, error)
	Create(ctx context.Context, row *models.OwnershipHistory) error
	Close(ctx context.Context, id uuid.UUID, at time.Time) error
	UpdatePetHolder(ctx context.Context, petID, userID uuid.UUID) error
	ListByPet(ctx context.Context, petID uuid.UUID) ([]models.OwnershipHistory, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository builds an ownership repository bound to db.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindOpen(ctx context.Context, petID, userID uuid.UUID) (*models.OwnershipHistory, error) {
	var row models.OwnershipHistory
	err := r.db.WithContext(ctx).
		Where("pet_id = ? AND user_id = ? AND to_ts IS NULL", petID, userID).
		Order("from_ts DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) FindLatest(ctx context.Context, petID, userID uuid.UUID) (*models.OwnershipHistory, error) {
	var row models.OwnershipHistory
	err := r.db.WithContext(ctx).
		Where("pet_id = ? AND user_id = ?", petID, userID).
		Order("from_ts DESC").
		First(&row).Error
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *repository) Create(ctx context.Context, row *models.OwnershipHistory) error {
	return r.db.WithContext(ctx).Create(row).Error
}

func (r *repository) Close(ctx context.Context, id uuid.UUID, at time.Time) error {
	return r.db.WithContext(ctx).
		Model(&models.OwnershipHistory{}).
		Where("id = ?", id).
		Updates(map[string]any{"to_ts": at, "updated_at": at}).Error
}

func (r *repository) UpdatePetHolder(ctx context.Context, petID, userID uuid.UUID) error {
	res := r.db.WithContext(ctx).
		Model(&models.Pet{}).
		Where("id = ?", petID).
		Updates(map[string]any{"user_id": userID, "updated_at": time.Now().UTC()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) ListByPet(ctx context.Context, petID uuid.UUID) ([]models.OwnershipHistory, error) {
	var rows []models.OwnershipHistory
	err := r.db.WithContext(ctx).
		Where("pet_id = ?", petID).
		Order("from_ts ASC").
		Find(&rows).Error
	return rows, err
}
