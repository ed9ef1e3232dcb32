package pets

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	"github.com/angelmondragon/pawfinderz-backend/pkg/pagination"
)

// Repository persists pets and reads the pet type catalog.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, pet *models.Pet) error
	FindByID(ctx context.Context, id uuid.UUID) (*models.Pet, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Pet, error)
	ListByHolder(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Pet, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PetStatus) error
	FindPetType(ctx context.Context, slug string) (*models.PetType, error)
	ListPetTypes(ctx context.Context) ([]models.PetType, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gorm-backed pets repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) Create(ctx context.Context, pet *models.Pet) error {
	return r.db.WithContext(ctx).Omit("PetType").Create(pet).Error
}

func (r *repository) FindByID(ctx context.Context, id uuid.UUID) (*models.Pet, error) {
	var pet models.Pet
	err := r.db.WithContext(ctx).Preload("PetType").Where("id = ?", id).First(&pet).Error
	if err != nil {
		return nil, err
	}
	return &pet, nil
}

func (r *repository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*models.Pet, error) {
	var pet models.Pet
	err := db.ForUpdate(r.db.WithContext(ctx)).Where("id = ?", id).First(&pet).Error
	if err != nil {
		return nil, err
	}
	var petType models.PetType
	if err := r.db.WithContext(ctx).Where("id = ?", pet.PetTypeID).First(&petType).Error; err != nil {
		return nil, err
	}
	pet.PetType = &petType
	return &pet, nil
}

func (r *repository) ListByHolder(ctx context.Context, userID uuid.UUID, cursor *pagination.Cursor, limit int) ([]models.Pet, error) {
	query := r.db.WithContext(ctx).
		Model(&models.Pet{}).
		Preload("PetType").
		Where("pets.user_id = ? AND pets.status <> ?", userID, enums.PetStatusDeleted)
	var rows []models.Pet
	err := pagination.Apply(query, "pets", cursor, limit).Find(&rows).Error
	return rows, err
}

func (r *repository) UpdateStatus(ctx context.Context, id uuid.UUID, status enums.PetStatus) error {
	res := r.db.WithContext(ctx).
		Model(&models.Pet{}).
		Where("id = ?", id).
		Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

func (r *repository) FindPetType(ctx context.Context, slug string) (*models.PetType, error) {
	var petType models.PetType
	if err := r.db.WithContext(ctx).Where("slug = ?", slug).First(&petType).Error; err != nil {
		return nil, err
	}
	return &petType, nil
}

func (r *repository) ListPetTypes(ctx context.Context) ([]models.PetType, error) {
	var rows []models.PetType
	err := r.db.WithContext(ctx).Order("slug ASC").Find(&rows).Error
	return rows, err
}
