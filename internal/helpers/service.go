package helpers

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/pawfinderz-backend/pkg/db/types"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
)

// UpsertProfileInput is the editable part of a helper profile.
type UpsertProfileInput struct {
	Bio       *string `json:"bio,omitempty" validate:"omitempty,max=4000"`
	City      *string `json:"city,omitempty" validate:"omitempty,max=120"`
	CanFoster bool    `json:"can_foster"`
	CanAdopt  bool    `json:"can_adopt"`
	CanPetSit bool    `json:"can_pet_sit"`

	// PetTypeIDs limits the pet types the helper takes on. Empty accepts any.
	PetTypeIDs []uuid.UUID `json:"pet_type_ids" validate:"omitempty,max=20,dive,required"`
}

// ProfileDTO is the API view of a helper profile.
type ProfileDTO struct {
	ID         uuid.UUID   `json:"id"`
	UserID     uuid.UUID   `json:"user_id"`
	Bio        *string     `json:"bio,omitempty"`
	City       *string     `json:"city,omitempty"`
	CanFoster  bool        `json:"can_foster"`
	CanAdopt   bool        `json:"can_adopt"`
	CanPetSit  bool        `json:"can_pet_sit"`
	PetTypeIDs []uuid.UUID `json:"pet_type_ids"`
	UpdatedAt  time.Time   `json:"updated_at"`
}

// Service manages helper profiles, one per user.
type Service interface {
	Upsert(ctx context.Context, userID uuid.UUID, input UpsertProfileInput) (*ProfileDTO, error)
	GetMine(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error)
	Get(ctx context.Context, id uuid.UUID) (*ProfileDTO, error)
	FindByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.HelperProfile, error)
}

type service struct {
	repo Repository
}

// NewService wires the helper profile repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "helper profile repository required")
	}
	return &service{repo: repo}, nil
}

func (s *service) Upsert(ctx context.Context, userID uuid.UUID, input UpsertProfileInput) (*ProfileDTO, error) {
	existing, err := s.repo.FindByUserID(ctx, userID)
	switch {
	case err == nil:
		updates := map[string]any{
			"bio":          input.Bio,
			"city":         input.City,
			"can_foster":   input.CanFoster,
			"can_adopt":    input.CanAdopt,
			"can_pet_sit":  input.CanPetSit,
			"pet_type_ids": dbtypes.UUIDArray(input.PetTypeIDs),
			"updated_at":   time.Now().UTC(),
		}
		if err := s.repo.Update(ctx, existing.ID, updates); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update helper profile")
		}
		return s.Get(ctx, existing.ID)
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load helper profile")
	}

	profile := &models.HelperProfile{
		UserID:     userID,
		Bio:        input.Bio,
		City:       input.City,
		CanFoster:  input.CanFoster,
		CanAdopt:   input.CanAdopt,
		CanPetSit:  input.CanPetSit,
		PetTypeIDs: dbtypes.UUIDArray(input.PetTypeIDs),
	}
	if err := s.repo.Create(ctx, profile); err != nil {
		if db.IsUniqueViolation(err, "") {
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "helper profile already exists")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create helper profile")
	}
	dto := toDTO(*profile)
	return &dto, nil
}

func (s *service) GetMine(ctx context.Context, userID uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.FindByUserID(ctx, nil, userID)
	if err != nil {
		return nil, err
	}
	dto := toDTO(*profile)
	return &dto, nil
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*ProfileDTO, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "helper profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load helper profile")
	}
	dto := toDTO(*profile)
	return &dto, nil
}

// FindByUserID returns the profile a user responds to placements with.
func (s *service) FindByUserID(ctx context.Context, tx *gorm.DB, userID uuid.UUID) (*models.HelperProfile, error) {
	profile, err := s.repo.WithTx(tx).FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "helper profile not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load helper profile")
	}
	return profile, nil
}

func toDTO(p models.HelperProfile) ProfileDTO {
	return ProfileDTO{
		ID:         p.ID,
		UserID:     p.UserID,
		Bio:        p.Bio,
		City:       p.City,
		CanFoster:  p.CanFoster,
		CanAdopt:   p.CanAdopt,
		CanPetSit:  p.CanPetSit,
		PetTypeIDs: append([]uuid.UUID{}, p.PetTypeIDs...),
		UpdatedAt:  p.UpdatedAt,
	}
}
