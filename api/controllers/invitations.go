package controllers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/api/responses"
	"github.com/angelmondragon/pawfinderz-backend/api/validators"
	"github.com/angelmondragon/pawfinderz-backend/internal/relationships"
	"github.com/angelmondragon/pawfinderz-backend/pkg/db/models"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
)

type InvitationsService interface {
	CreateInvitation(ctx context.Context, input relationships.CreateInvitationInput) (*relationships.CreatedInvitation, error)
	GetInvitation(ctx context.Context, code string) (*models.RelationshipInvitation, error)
	AcceptInvitation(ctx context.Context, code string, userID uuid.UUID) (*relationships.RelationshipDTO, error)
	DeclineInvitation(ctx context.Context, code string) error
	RevokeInvitation(ctx context.Context, invitationID, userID uuid.UUID) error
}

type createInvitationRequest struct {
	PetID            uuid.UUID `json:"pet_id" validate:"required"`
	RelationshipType string    `json:"relationship_type" validate:"required,oneof=editor viewer"`
	InviteeEmail     *string   `json:"invitee_email,omitempty" validate:"omitempty,email"`
	ExpiresInHours   int       `json:"expires_in_hours,omitempty" validate:"omitempty,min=1,max=720"`
}

// CreateInvitation issues an editor or viewer invitation. The response carries
// the only copy of the code.
func CreateInvitation(svc InvitationsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("invitations"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var body createInvitationRequest
		if err := validators.DecodeJSONBody(r, &body); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		relType, err := enums.ParseRelationshipType(body.RelationshipType)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid relationship type"))
			return
		}
		if body.InviteeEmail != nil {
			email := strings.ToLower(strings.TrimSpace(*body.InviteeEmail))
			body.InviteeEmail = &email
		}

		created, err := svc.CreateInvitation(r.Context(), relationships.CreateInvitationInput{
			PetID:            body.PetID,
			InviterUserID:    userID,
			RelationshipType: relType,
			InviteeEmail:     body.InviteeEmail,
			TTL:              time.Duration(body.ExpiresInHours) * time.Hour,
		})
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, created)
	}
}

// GetInvitation resolves a code. Expired invitations answer INVITATION_EXPIRED.
func GetInvitation(svc InvitationsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("invitations"))
			return
		}
		inv, err := svc.GetInvitation(r.Context(), chi.URLParam(r, "code"))
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, relationships.ToInvitationDTO(*inv))
	}
}

func AcceptInvitation(svc InvitationsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("invitations"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rel, err := svc.AcceptInvitation(r.Context(), chi.URLParam(r, "code"), userID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rel)
	}
}

func DeclineInvitation(svc InvitationsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("invitations"))
			return
		}
		if _, err := callerID(r); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.DeclineInvitation(r.Context(), chi.URLParam(r, "code")); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"declined": true})
	}
}

// RevokeInvitation lets the inviter withdraw a pending invitation.
func RevokeInvitation(svc InvitationsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("invitations"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		invitationID, err := validators.ParseUUIDParam(r, "invitationId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		if err := svc.RevokeInvitation(r.Context(), invitationID, userID); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, map[string]bool{"revoked": true})
	}
}
