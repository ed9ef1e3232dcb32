package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/api/responses"
	"github.com/angelmondragon/pawfinderz-backend/api/validators"
	"github.com/angelmondragon/pawfinderz-backend/internal/capabilities"
	"github.com/angelmondragon/pawfinderz-backend/internal/pets"
	"github.com/angelmondragon/pawfinderz-backend/internal/relationships"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pawfinderz-backend/pkg/errors"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
	"github.com/angelmondragon/pawfinderz-backend/pkg/pagination"
)

type PetsService interface {
	Create(ctx context.Context, userID uuid.UUID, input pets.CreatePetInput) (*pets.PetDTO, error)
	Get(ctx context.Context, petID uuid.UUID) (*pets.PetDTO, error)
	ListMine(ctx context.Context, userID uuid.UUID, params pagination.Params) (*pagination.Page[pets.PetDTO], error)
	UpdateStatus(ctx context.Context, userID, petID uuid.UUID, next enums.PetStatus) (*pets.PetDTO, error)
	OwnershipHistory(ctx context.Context, userID, petID uuid.UUID) ([]pets.OwnershipPeriodDTO, error)
	Relationships(ctx context.Context, userID, petID uuid.UUID) ([]relationships.RelationshipDTO, error)
	PetTypes(ctx context.Context) ([]pets.PetTypeDTO, error)
}

type CapabilityLister interface {
	For(petTypeSlug string) []capabilities.Capability
}

// ListPetTypes returns every pet type with its capabilities.
func ListPetTypes(svc PetsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("pets"))
			return
		}
		types, err := svc.PetTypes(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, types)
	}
}

// PetTypeCapabilities lists the features enabled for a pet type. Unknown
// slugs report the default set.
func PetTypeCapabilities(svc CapabilityLister, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("capabilities"))
			return
		}
		slug := strings.ToLower(strings.TrimSpace(chi.URLParam(r, "slug")))
		if slug == "" {
			responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "pet type slug required"))
			return
		}
		responses.WriteSuccess(w, map[string]any{
			"pet_type":     slug,
			"capabilities": svc.For(slug),
		})
	}
}

// CreatePet registers a pet owned by the caller.
func CreatePet(svc PetsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("pets"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input pets.CreatePetInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		input.Name = validators.SanitizeString(input.Name, 120)

		pet, err := svc.Create(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, pet)
	}
}

// ListMyPets pages through pets the caller currently holds.
func ListMyPets(svc PetsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("pets"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		page, err := svc.ListMine(r.Context(), userID, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetPet(svc PetsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("pets"))
			return
		}
		petID, err := validators.ParseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		pet, err := svc.Get(r.Context(), petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}

// UpdatePetStatus moves a pet to a new lifecycle status.
func UpdatePetStatus(svc PetsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("pets"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		petID, err := validators.ParseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input pets.UpdateStatusInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		status, err := enums.ParsePetStatus(input.Status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeValidation, err, "invalid pet status"))
			return
		}
		pet, err := svc.UpdateStatus(r.Context(), userID, petID, status)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, pet)
	}
}

func PetOwnershipHistory(svc PetsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("pets"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		petID, err := validators.ParseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		history, err := svc.OwnershipHistory(r.Context(), userID, petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, history)
	}
}

func PetRelationships(svc PetsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("pets"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		petID, err := validators.ParseUUIDParam(r, "petId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		rels, err := svc.Relationships(r.Context(), userID, petID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, rels)
	}
}
