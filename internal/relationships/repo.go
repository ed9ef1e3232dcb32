package relationships

import (
	"context"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
)

// Repository persists pet relationships and relationship invitations.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	FindActive(ctx context.Context, petID, userID uuid.UUID, relType enums.RelationshipType) (*models.PetRelationship, error)
	Create(ctx context.Context, rel *models.PetRelationship) error
	End(ctx context.Context, petID, userID uuid.UUID, relType enums.RelationshipType, at time.Time) (int64, error)
	ListForPet(ctx context.Context, petID uuid.UUID, activeOnly bool) ([]models.PetRelationship, error)

	CreateInvitation(ctx context.Context, inv *models.RelationshipInvitation) error
	FindInvitation(ctx context.Context, id uuid.UUID) (*models.RelationshipInvitation, error)
	UpdateInvitation(ctx context.Context, id uuid.UUID, from enums.InvitationStatus, updates map[string]any) (int64, error)
	ExpirePending(ctx context.Context, now time.Time) (int64, error)
}

type repository struct {
	db *gorm.DB
}

// NewRepository returns a gorm-backed relationships repository.
func NewRepository(db *gorm.DB) Repository {
	return &repository{db: db}
}

func (r *repository) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repository{db: tx}
}

func (r *repository) FindActive(ctx context.Context, petID, userID uuid.UUID, relType enums.RelationshipType) (*models.PetRelationship, error) {
	var rel models.PetRelationship
	err := r.db.WithContext(ctx).
		Where("pet_id = ? AND user_id = ? AND relationship_type = ? AND end_at IS NULL", petID, userID, relType).
		First(&rel).Error
	if err != nil {
		return nil, err
	}
	return &rel, nil
}

func (r *repository) Create(ctx context.Context, rel *models.PetRelationship) error {
	return r.db.WithContext(ctx).Create(rel).Error
}

func (r *repository) End(ctx context.Context, petID, userID uuid.UUID, relType enums.RelationshipType, at time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.PetRelationship{}).
		Where("pet_id = ? AND user_id = ? AND relationship_type = ? AND end_at IS NULL", petID, userID, relType).
		Updates(map[string]any{"end_at": at, "updated_at": at})
	return res.RowsAffected, res.Error
}

func (r *repository) ListForPet(ctx context.Context, petID uuid.UUID, activeOnly bool) ([]models.PetRelationship, error) {
	query := r.db.WithContext(ctx).Where("pet_id = ?", petID)
	if activeOnly {
		query = query.Where("end_at IS NULL")
	}
	var rows []models.PetRelationship
	err := query.Order("start_at ASC").Find(&rows).Error
	return rows, err
}

func (r *repository) CreateInvitation(ctx context.Context, inv *models.RelationshipInvitation) error {
	return r.db.WithContext(ctx).Create(inv).Error
}

func (r *repository) FindInvitation(ctx context.Context, id uuid.UUID) (*models.RelationshipInvitation, error) {
	var inv models.RelationshipInvitation
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&inv).Error; err != nil {
		return nil, err
	}
	return &inv, nil
}

// UpdateInvitation applies updates only while the invitation is still in from.
func (r *repository) UpdateInvitation(ctx context.Context, id uuid.UUID, from enums.InvitationStatus, updates map[string]any) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RelationshipInvitation{}).
		Where("id = ? AND status = ?", id, from).
		Updates(updates)
	return res.RowsAffected, res.Error
}

func (r *repository) ExpirePending(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&models.RelationshipInvitation{}).
		Where("status = ? AND expires_at <= ?", enums.InvitationPending, now).
		Updates(map[string]any{"status": enums.InvitationExpired, "updated_at": now})
	return res.RowsAffected, res.Error
}
