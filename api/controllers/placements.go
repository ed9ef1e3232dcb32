package controllers

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/api/responses"
	"github.com/angelmondragon/pawfinderz-backend/api/validators"
	"github.com/angelmondragon/pawfinderz-backend/internal/placements"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
	"github.com/angelmondragon/pawfinderz-backend/pkg/pagination"
)

type PlacementsService interface {
	CreateRequest(ctx context.Context, userID uuid.UUID, input placements.CreateRequestInput) (*placements.RequestDTO, error)
	GetRequest(ctx context.Context, requestID uuid.UUID) (*placements.RequestDTO, error)
	ListOpenRequests(ctx context.Context, requestType string, params pagination.Params) (*pagination.Page[placements.RequestDTO], error)
	CancelRequest(ctx context.Context, userID, requestID uuid.UUID) (*placements.RequestDTO, error)
	FinalizeRequest(ctx context.Context, userID, requestID uuid.UUID) (*placements.RequestDTO, error)
	Respond(ctx context.Context, userID, requestID uuid.UUID, input placements.RespondInput) (*placements.ResponseDTO, error)
	ListResponses(ctx context.Context, userID, requestID uuid.UUID) ([]placements.ResponseDTO, error)
	Accept(ctx context.Context, userID, responseID uuid.UUID) (*placements.ResponseDTO, error)
	Reject(ctx context.Context, userID, responseID uuid.UUID) (*placements.ResponseDTO, error)
	Cancel(ctx context.Context, userID, responseID uuid.UUID) (*placements.ResponseDTO, error)
}

// CreatePlacementRequest opens a call for help on one of the caller's pets.
func CreatePlacementRequest(svc PlacementsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("placements"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input placements.CreateRequestInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.CreateRequest(r.Context(), userID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, req)
	}
}

// ListPlacementRequests pages through open requests, optionally filtered by
// ?type=fostering|permanent|pet_sitting.
func ListPlacementRequests(svc PlacementsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("placements"))
			return
		}
		params, err := validators.ParsePageParams(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestType := strings.TrimSpace(r.URL.Query().Get("type"))
		page, err := svc.ListOpenRequests(r.Context(), requestType, params)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, page)
	}
}

func GetPlacementRequest(svc PlacementsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("placements"))
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		req, err := svc.GetRequest(r.Context(), requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, req)
	}
}

func CancelPlacementRequest(svc PlacementsService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return serviceUnavailable("placements", logg)
	}
	return userResourceAction("requestId", svc.CancelRequest, logg)
}

func FinalizePlacementRequest(svc PlacementsService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return serviceUnavailable("placements", logg)
	}
	return userResourceAction("requestId", svc.FinalizeRequest, logg)
}

// RespondToPlacementRequest records the caller's offer to help.
func RespondToPlacementRequest(svc PlacementsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("placements"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input placements.RespondInput
		if err := validators.DecodeOptionalJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		resp, err := svc.Respond(r.Context(), userID, requestID, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, resp)
	}
}

// ListPlacementResponses returns every response to the owner and only their
// own to a helper.
func ListPlacementResponses(svc PlacementsService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("placements"))
			return
		}
		userID, err := callerID(r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		requestID, err := validators.ParseUUIDParam(r, "requestId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		list, err := svc.ListResponses(r.Context(), userID, requestID)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

func AcceptPlacementResponse(svc PlacementsService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return serviceUnavailable("placements", logg)
	}
	return userResourceAction("responseId", svc.Accept, logg)
}

func RejectPlacementResponse(svc PlacementsService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return serviceUnavailable("placements", logg)
	}
	return userResourceAction("responseId", svc.Reject, logg)
}

func CancelPlacementResponse(svc PlacementsService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return serviceUnavailable("placements", logg)
	}
	return userResourceAction("responseId", svc.Cancel, logg)
}
