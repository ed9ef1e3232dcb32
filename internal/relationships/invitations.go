package relationships

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox"
	"github.com/angelmondragon/pawfinderz-backend/pkg/outbox/payloads"
	"github.com/angelmondragon/pawfinderz-backend/pkg/security"
)

const (
	secretBytes   = 24
	codeSeparator = "."
)

// CreateInvitationInput describes an owner's invitation.
type CreateInvitationInput struct {
	PetID            uuid.UUID
	InviterUserID    uuid.UUID
	RelationshipType enums.RelationshipType
	InviteeEmail     *string
	TTL              time.Duration
}

// CreatedInvitation carries the one-time code. Only the hash of its secret
// half is stored.
type CreatedInvitation struct {
	Invitation InvitationDTO `json:"invitation"`
	Code       string        `json:"code"`
}

// CreateInvitation issues an editor or viewer invitation for a pet the
// inviter owns.
func (s *Service) CreateInvitation(ctx context.Context, input CreateInvitationInput) (*CreatedInvitation, error) {
	if !input.RelationshipType.Invitable() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "only editor or viewer relationships can be invited").
			WithDetails(map[string]any{"relationship_type": input.RelationshipType})
	}
	owner, err := s.HasActive(ctx, nil, input.PetID, input.InviterUserID, enums.RelationshipOwner)
	if err != nil {
		return nil, err
	}
	if !owner {
		return nil, pkgerrors.New(pkgerrors.CodeForbidden, "only the pet owner can invite")
	}

	secret, err := security.GenerateToken(secretBytes)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate invitation secret")
	}
	hash, err := security.HashSecret(secret, s.passwords)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "hash invitation secret")
	}

	ttl := input.TTL
	if ttl <= 0 {
		ttl = s.ttl
	}
	inv := &models.RelationshipInvitation{
		PetID:            input.PetID,
		InviterUserID:    input.InviterUserID,
		InviteeEmail:     input.InviteeEmail,
		RelationshipType: input.RelationshipType,
		SecretHash:       hash,
		Status:           enums.InvitationPending,
		ExpiresAt:        s.now().Add(ttl),
	}
	if err := s.repo.CreateInvitation(ctx, inv); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "create invitation")
	}
	return &CreatedInvitation{
		Invitation: ToInvitationDTO(*inv),
		Code:       inv.ID.String() + codeSeparator + secret,
	}, nil
}

// GetInvitation resolves a code. A pending invitation past its expiry is
// flipped to expired before INVITATION_EXPIRED is returned.
func (s *Service) GetInvitation(ctx context.Context, code string) (*models.RelationshipInvitation, error) {
	id, secret, err := parseCode(code)
	if err != nil {
		return nil, err
	}
	inv, err := s.repo.FindInvitation(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invitation")
	}
	ok, err := security.VerifySecret(secret, inv.SecretHash)
	if err != nil || !ok {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
	}

	if inv.Status == enums.InvitationPending && !s.now().Before(inv.ExpiresAt) {
		now := s.now()
		if _, err := s.repo.UpdateInvitation(ctx, inv.ID, enums.InvitationPending, map[string]any{
			"status":     enums.InvitationExpired,
			"updated_at": now,
		}); err != nil {
			return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire invitation")
		}
		s.recordTransition(enums.InvitationExpired)
		inv.Status = enums.InvitationExpired
	}
	if inv.Status == enums.InvitationExpired {
		return nil, pkgerrors.New(pkgerrors.CodeInvitationExpired, "invitation expired")
	}
	return inv, nil
}

// AcceptInvitation grants the invited relationship to userID.
func (s *Service) AcceptInvitation(ctx context.Context, code string, userID uuid.UUID) (*RelationshipDTO, error) {
	inv, err := s.GetInvitation(ctx, code)
	if err != nil {
		return nil, err
	}
	if inv.Status != enums.InvitationPending {
		return nil, invitationStateConflict(inv.Status, enums.InvitationAccepted)
	}
	if inv.InviterUserID == userID {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "cannot accept your own invitation")
	}

	var granted *models.PetRelationship
	err = s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		now := s.now()
		rows, err := s.repo.WithTx(tx).UpdateInvitation(ctx, inv.ID, enums.InvitationPending, map[string]any{
			"status":              enums.InvitationAccepted,
			"responded_at":        now,
			"accepted_by_user_id": userID,
			"updated_at":          now,
		})
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "accept invitation")
		}
		if rows == 0 {
			return invitationStateConflict(inv.Status, enums.InvitationAccepted)
		}

		inviter := inv.InviterUserID
		granted, err = s.Grant(ctx, tx, inv.PetID, userID, inv.RelationshipType, &inviter)
		if err != nil {
			return err
		}

		return s.outbox.Emit(ctx, tx, outbox.DomainEvent{
			EventType:     enums.EventInvitationAccepted,
			AggregateType: enums.AggregateRelationshipInvitation,
			AggregateID:   inv.ID,
			Actor:         &outbox.ActorRef{UserID: userID},
			Data: payloads.InvitationAcceptedEvent{
				InvitationID:     inv.ID,
				PetID:            inv.PetID,
				InviterUserID:    inv.InviterUserID,
				AcceptedByUserID: userID,
				RelationshipType: inv.RelationshipType,
			},
		})
	})
	if err != nil {
		return nil, err
	}
	s.recordTransition(enums.InvitationAccepted)
	dto := ToRelationshipDTO(*granted)
	return &dto, nil
}

// DeclineInvitation marks a pending invitation declined.
func (s *Service) DeclineInvitation(ctx context.Context, code string) error {
	inv, err := s.GetInvitation(ctx, code)
	if err != nil {
		return err
	}
	return s.closeInvitation(ctx, inv, enums.InvitationDeclined)
}

// RevokeInvitation lets the inviter withdraw a pending invitation.
func (s *Service) RevokeInvitation(ctx context.Context, invitationID, userID uuid.UUID) error {
	inv, err := s.repo.FindInvitation(ctx, invitationID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return pkgerrors.New(pkgerrors.CodeNotFound, "invitation not found")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load invitation")
	}
	if inv.InviterUserID != userID {
		return pkgerrors.New(pkgerrors.CodeForbidden, "only the inviter can revoke")
	}
	return s.closeInvitation(ctx, inv, enums.InvitationRevoked)
}

// ExpireStale flips every pending invitation past its expiry to expired.
func (s *Service) ExpireStale(ctx context.Context, now time.Time) (int64, error) {
	count, err := s.repo.ExpirePending(ctx, now.UTC())
	if err != nil {
		return 0, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "expire invitations")
	}
	return count, nil
}

func (s *Service) closeInvitation(ctx context.Context, inv *models.RelationshipInvitation, to enums.InvitationStatus) error {
	if inv.Status != enums.InvitationPending {
		return invitationStateConflict(inv.Status, to)
	}
	now := s.now()
	rows, err := s.repo.UpdateInvitation(ctx, inv.ID, enums.InvitationPending, map[string]any{
		"status":       to,
		"responded_at": now,
		"updated_at":   now,
	})
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update invitation")
	}
	if rows == 0 {
		return invitationStateConflict(inv.Status, to)
	}
	s.recordTransition(to)
	return nil
}

func parseCode(code string) (uuid.UUID, string, error) {
	rawID, secret, ok := strings.Cut(strings.TrimSpace(code), codeSeparator)
	if !ok || secret == "" {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeValidation, "malformed invitation code")
	}
	id, err := uuid.Parse(rawID)
	if err != nil {
		return uuid.Nil, "", pkgerrors.New(pkgerrors.CodeValidation, "malformed invitation code")
	}
	return id, secret, nil
}

func invitationStateConflict(from, to enums.InvitationStatus) error {
	return pkgerrors.New(pkgerrors.CodeStateConflict, "invitation is no longer pending").
		WithDetails(map[string]any{"from": from, "to": to})
}
