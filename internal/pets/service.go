package pets

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/internal/capabilities"
	"github.com/angelmondragon/pawfinderz-backend/internal/ownership"
	"github.com/angelmondragon/pawfinderz-backend/internal/relationships"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/pagination"
)

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

// ServiceParams groups the pets service dependencies.
type ServiceParams struct {
	Repo          Repository
	TxRunner      txRunner
	Capabilities  *capabilities.Service
	Ownership     *ownership.Service
	Relationships *relationships.Service
	Now           func() time.Time
}

// Service exposes pet profiles and their lifecycle.
type Service struct {
	repo          Repository
	tx            txRunner
	caps          *capabilities.Service
	ownership     *ownership.Service
	relationships *relationships.Service
	now           func() time.Time
}

// NewService validates dependencies and builds a pets service.
func NewService(params ServiceParams) (*Service, error) {
	switch {
	case params.Repo == nil:
		return nil, errors.New("pets repository required")
	case params.TxRunner == nil:
		return nil, errors.New("transaction runner required")
	case params.Capabilities == nil:
		return nil, errors.New("capabilities service required")
	case params.Ownership == nil:
		return nil, errors.New("ownership service required")
	case params.Relationships == nil:
		return nil, errors.New("relationships service required")
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:          params.Repo,
		tx:            params.TxRunner,
		caps:          params.Capabilities,
		ownership:     params.Ownership,
		relationships: params.Relationships,
		now:           func() time.Time { return now().UTC() },
	}, nil
}

// Create registers a pet for userID. The caller becomes holder and owner.
func (s *Service) Create(ctx context.Context, userID uuid.UUID, input CreatePetInput) (*PetDTO, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "name is required")
	}
	petType, err := s.repo.FindPetType(ctx, strings.ToLower(strings.TrimSpace(input.PetTypeSlug)))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, "unknown pet type").
				WithDetails(map[string]any{"pet_type": input.PetTypeSlug})
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pet type")
	}

	pet := &models.Pet{
		UserID:      userID,
		PetTypeID:   petType.ID,
		Name:        name,
		Sex:         input.Sex,
		BirthDate:   input.BirthDate,
		Description: input.Description,
		Status:      enums.PetStatusActive,
	}
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		if err := s.repo.WithTx(tx).Create(ctx, pet); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create pet")
		}
		now := s.now()
		if _, err := s.ownership.Open(ctx, tx, pet.ID, userID, now); err != nil {
			return err
		}
		_, err := s.relationships.Grant(ctx, tx, pet.ID, userID, enums.RelationshipOwner, &userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	pet.PetType = petType
	dto := s.toDTO(*pet)
	return &dto, nil
}

// Get returns a single pet profile.
func (s *Service) Get(ctx context.Context, petID uuid.UUID) (*PetDTO, error) {
	pet, err := s.load(ctx, petID)
	if err != nil {
		return nil, err
	}
	dto := s.toDTO(*pet)
	return &dto, nil
}

// FindByID loads a pet with its type on tx. It satisfies the pet lookup used
// by the placement workflow.
func (s *Service) FindByID(ctx context.Context, tx *gorm.DB, petID uuid.UUID) (*models.Pet, error) {
	pet, err := s.repo.WithTx(tx).FindByID(ctx, petID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pet")
	}
	return pet, nil
}

// ListMine pages through pets currently held by userID, newest first.
func (s *Service) ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[PetDTO], error) {
	cursor, err := pagination.ParseCursor(params.Cursor)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid cursor")
	}
	rows, err := s.repo.ListByHolder(ctx, userID, cursor, params.Limit)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pets")
	}
	page := pagination.BuildPage(rows, params.Limit, func(p models.Pet) pagination.Cursor {
		return pagination.Cursor{CreatedAt: p.CreatedAt, ID: p.ID}
	})
	out := pagination.Page[PetDTO]{Items: make([]PetDTO, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, pet := range page.Items {
		out.Items = append(out.Items, s.toDTO(pet))
	}
	return &out, nil
}

// UpdateStatus moves the pet through its lifecycle. Only the owner may do so
// and only for pet types that support status updates.
func (s *Service) UpdateStatus(ctx context.Context, userID, petID uuid.UUID, next enums.PetStatus) (*PetDTO, error) {
	if !next.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid pet status")
	}
	var updated *models.Pet
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		pet, err := repo.FindByIDForUpdate(ctx, petID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
			}
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load pet")
		}
		if err := s.requireOwner(ctx, tx, petID, userID); err != nil {
			return err
		}
		if err := s.caps.EnsurePet(pet, capabilities.StatusUpdate); err != nil {
			return err
		}
		if !pet.Status.CanTransitionTo(next) {
			return pkgerrors.New(pkgerrors.CodeStateConflict, "pet status transition not allowed").
				WithDetails(map[string]any{"from": pet.Status, "to": next})
		}
		if err := repo.UpdateStatus(ctx, petID, next); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pet status")
		}
		pet.Status = next
		updated = pet
		return nil
	})
	if err != nil {
		return nil, err
	}
	dto := s.toDTO(*updated)
	return &dto, nil
}

// OwnershipHistory lists holding periods. Any user with an active
// relationship to the pet may read it.
func (s *Service) OwnershipHistory(ctx context.Context, userID, petID uuid.UUID) ([]OwnershipPeriodDTO, error) {
	if err := s.requireRelated(ctx, userID, petID); err != nil {
		return nil, err
	}
	rows, err := s.ownership.History(ctx, petID)
	if err != nil {
		return nil, err
	}
	out := make([]OwnershipPeriodDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, toOwnershipPeriodDTO(row))
	}
	return out, nil
}

// Relationships lists the pet's active relationships.
func (s *Service) Relationships(ctx context.Context, userID, petID uuid.UUID) ([]relationships.RelationshipDTO, error) {
	if err := s.requireRelated(ctx, userID, petID); err != nil {
		return nil, err
	}
	return s.relationships.ListForPet(ctx, petID, true)
}

// PetTypes lists the catalog with each type's capabilities.
func (s *Service) PetTypes(ctx context.Context) ([]PetTypeDTO, error) {
	rows, err := s.repo.ListPetTypes(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list pet types")
	}
	out := make([]PetTypeDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, PetTypeDTO{Slug: row.Slug, Name: row.Name, Capabilities: s.capabilityNames(row.Slug)})
	}
	return out, nil
}

func (s *Service) load(ctx context.Context, petID uuid.UUID) (*models.Pet, error) {
	return s.FindByID(ctx, nil, petID)
}

func (s *Service) requireOwner(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID) error {
	owner, err := s.relationships.HasActive(ctx, tx, petID, userID, enums.RelationshipOwner)
	if err != nil {
		return err
	}
	if !owner {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the pet owner can do this")
	}
	return nil
}

func (s *Service) requireRelated(ctx context.Context, userID, petID uuid.UUID) error {
	pet, err := s.load(ctx, petID)
	if err != nil {
		return err
	}
	if pet.UserID == userID {
		return nil
	}
	rels, err := s.relationships.ListForPet(ctx, petID, true)
	if err != nil {
		return err
	}
	for _, rel := range rels {
		if rel.UserID == userID {
			return nil
		}
	}
	return pkgerrors.New(pkgerrors.CodeForbidden, "no relationship with this pet")
}

func (s *Service) toDTO(pet models.Pet) PetDTO {
	return toPetDTO(pet, s.capabilityNames(pet.TypeSlug()))
}

func (s *Service) capabilityNames(slug string) []string {
	caps := s.caps.For(slug)
	names := make([]string, 0, len(caps))
	for _, c := range caps {
		names = append(names, string(c))
	}
	return names
}
