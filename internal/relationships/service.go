package relationships

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/config"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
)

const defaultInvitationTTL = 7 * 24 * time.Hour

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type transitionRecorder interface {
	IncTransition(entity, to string)
}

// ServiceParams groups the relationships service dependencies.
type ServiceParams struct {
	Repo          Repository
	TxRunner      txRunner
	Outbox        outbox.Emitter
	Passwords     config.PasswordConfig
	InvitationTTL time.Duration
	Metrics       transitionRecorder
	Logger        *logger.Logger
	Now           func() time.Time
}

// Service manages who may act on a pet and the invitations that grant
// editor or viewer access.
type Service struct {
	repo      Repository
	tx        txRunner
	outbox    outbox.Emitter
	passwords config.PasswordConfig
	ttl       time.Duration
	metrics   transitionRecorder
	logg      *logger.Logger
	now       func() time.Time
}

// NewService validates dependencies and builds a relationships service.
func NewService(params ServiceParams) (*Service, error) {
	if params.Repo == nil {
		return nil, errors.New("relationships repository required")
	}
	if params.TxRunner == nil {
		return nil, errors.New("transaction runner required")
	}
	if params.Outbox == nil {
		return nil, errors.New("outbox emitter required")
	}
	ttl := params.InvitationTTL
	if ttl <= 0 {
		ttl = defaultInvitationTTL
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &Service{
		repo:      params.Repo,
		tx:        params.TxRunner,
		outbox:    params.Outbox,
		passwords: params.Passwords,
		ttl:       ttl,
		metrics:   params.Metrics,
		logg:      params.Logger,
		now:       func() time.Time { return now().UTC() },
	}, nil
}

// Grant opens a relationship of relType for userID on the pet. An already
// active relationship of the same type is returned unchanged.
func (s *Service) Grant(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID, relType enums.RelationshipType, createdBy *uuid.UUID) (*models.PetRelationship, error) {
	if !relType.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invalid relationship type")
	}
	repo := s.repo.WithTx(tx)
	existing, err := repo.FindActive(ctx, petID, userID, relType)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load relationship")
	}

	rel := &models.PetRelationship{
		PetID:            petID,
		UserID:           userID,
		RelationshipType: relType,
		StartAt:          s.now(),
		CreatedByUserID:  createdBy,
	}
	if err := repo.Create(ctx, rel); err != nil {
		if db.IsUniqueViolation(err, "ux_pet_relationships_one_active") {
			if found, findErr := repo.FindActive(ctx, petID, userID, relType); findErr == nil {
				return found, nil
			}
			return nil, pkgerrors.Wrap(pkgerrors.CodeConflict, err, "relationship already active")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create relationship")
	}
	return rel, nil
}

// UpsertSitter grants the sitter relationship used by pet sitting placements.
func (s *Service) UpsertSitter(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID) (*models.PetRelationship, error) {
	return s.Grant(ctx, tx, petID, userID, enums.RelationshipSitter, nil)
}

// EndOpen closes any active relationship of relType. Ending nothing is not an error.
func (s *Service) EndOpen(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID, relType enums.RelationshipType) error {
	if _, err := s.repo.WithTx(tx).End(ctx, petID, userID, relType, s.now()); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "end relationship")
	}
	return nil
}

// HasActive reports whether userID currently holds relType on the pet.
func (s *Service) HasActive(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID, relType enums.RelationshipType) (bool, error) {
	_, err := s.repo.WithTx(tx).FindActive(ctx, petID, userID, relType)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return false, nil
	default:
		return false, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load relationship")
	}
}

// ListForPet returns the pet's relationships, oldest first.
func (s *Service) ListForPet(ctx context.Context, petID uuid.UUID, activeOnly bool) ([]RelationshipDTO, error) {
	rows, err := s.repo.ListForPet(ctx, petID, activeOnly)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list relationships")
	}
	out := make([]RelationshipDTO, 0, len(rows))
	for _, row := range rows {
		out = append(out, ToRelationshipDTO(row))
	}
	return out, nil
}

func (s *Service) recordTransition(to enums.InvitationStatus) {
	if s.metrics != nil {
		s.metrics.IncTransition("relationship_invitation", string(to))
	}
}
