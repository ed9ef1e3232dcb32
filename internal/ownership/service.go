package ownership

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
)

// Backfill outcomes reported when the previous holder has no open period.
const (
	BackfillNone          = ""
	BackfillExtendedLast  = "extended_latest"
	BackfillMissingHolder = "missing"
)

type backfillRecorder interface {
	IncOwnershipBackfill(kind string)
}

// TransferResult describes the history rows touched by Transfer.
type TransferResult struct {
	Closed   *models.OwnershipHistory
	Opened   *models.OwnershipHistory
	Backfill string
}

// Service owns pet holding periods. Every mutation runs on the caller's
// transaction so it commits together with the handover that caused it.
type Service struct {
	repo    Repository
	logg    *logger.Logger
	metrics backfillRecorder
}

// NewService builds an ownership service. logg and metrics may be nil.
func NewService(repo Repository, logg *logger.Logger, metrics backfillRecorder) (*Service, error) {
	if repo == nil {
		return nil, errors.New("ownership repository required")
	}
	return &Service{repo: repo, logg: logg, metrics: metrics}, nil
}

// Open starts a holding period for userID unless one is already open.
func (s *Service) Open(ctx context.Context, tx *gorm.DB, petID, userID uuid.UUID, at time.Time) (*models.OwnershipHistory, error) {
	repo := s.repo.WithTx(tx)
	existing, err := repo.FindOpen(ctx, petID, userID)
	if err == nil {
		return existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open ownership")
	}
	row := &models.OwnershipHistory{PetID: petID, UserID: userID, FromTS: at.UTC()}
	if err := repo.Create(ctx, row); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "open ownership period")
	}
	return row, nil
}

// Transfer moves the pet from one holder to another: the previous holder's
// period is closed, a period is opened for the new holder and pets.user_id is
// repointed.
//
// When the previous holder has no open period the most recent one is extended
// to at. When they have no period at all the transfer proceeds and the gap is
// logged and counted.
func (s *Service) Transfer(ctx context.Context, tx *gorm.DB, petID, fromUserID, toUserID uuid.UUID, at time.Time) (*TransferResult, error) {
	if tx == nil {
		return nil, pkgerrors.New(pkgerrors.CodeInternal, "ownership transfer requires a transaction")
	}
	if petID == uuid.Nil || fromUserID == uuid.Nil || toUserID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "pet and both holders are required")
	}
	if fromUserID == toUserID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot transfer a pet to its current holder")
	}
	at = at.UTC()
	repo := s.repo.WithTx(tx)
	result := &TransferResult{}

	closing, err := repo.FindOpen(ctx, petID, fromUserID)
	switch {
	case err == nil:
	case errors.Is(err, gorm.ErrRecordNotFound):
		closing, err = repo.FindLatest(ctx, petID, fromUserID)
		switch {
		case err == nil:
			result.Backfill = BackfillExtendedLast
		case errors.Is(err, gorm.ErrRecordNotFound):
			closing = nil
			result.Backfill = BackfillMissingHolder
		default:
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load latest ownership")
		}
	default:
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load open ownership")
	}

	if closing != nil {
		if err := repo.Close(ctx, closing.ID, at); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "close ownership period")
		}
		closing.ToTS = &at
		result.Closed = closing
	}
	if result.Backfill != BackfillNone {
		s.reportBackfill(ctx, petID, fromUserID, result.Backfill)
	}

	opened, err := s.Open(ctx, tx, petID, toUserID, at)
	if err != nil {
		return nil, err
	}
	result.Opened = opened

	if err := repo.UpdatePetHolder(ctx, petID, toUserID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "pet not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update pet holder")
	}
	return result, nil
}

// History lists every holding period for the pet, oldest first.
func (s *Service) History(ctx context.Context, petID uuid.UUID) ([]models.OwnershipHistory, error) {
	rows, err := s.repo.ListByPet(ctx, petID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list ownership history")
	}
	return rows, nil
}

func (s *Service) reportBackfill(ctx context.Context, petID, userID uuid.UUID, kind string) {
	if s.metrics != nil {
		s.metrics.IncOwnershipBackfill(kind)
	}
	if s.logg == nil {
		return
	}
	logCtx := s.logg.WithFields(ctx, map[string]any{
		"pet_id":   petID.String(),
		"user_id":  userID.String(),
		"backfill": kind,
	})
	s.logg.Warn(logCtx, "ownership history had no open period for previous holder")
}
