package controllers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/angelmondragon/pawfinderz-backend/api/responses"
	"github.com/angelmondragon/pawfinderz-backend/api/validators"
	"github.com/angelmondragon/pawfinderz-backend/internal/emailconfig"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
)

type EmailConfigService interface {
	List(ctx context.Context) ([]emailconfig.ConfigDTO, error)
	Create(ctx context.Context, input emailconfig.CreateInput) (*emailconfig.ConfigDTO, error)
	Update(ctx context.Context, id uuid.UUID, input emailconfig.UpdateInput) (*emailconfig.ConfigDTO, error)
	Activate(ctx context.Context, id uuid.UUID) (*emailconfig.ConfigDTO, error)
	Deactivate(ctx context.Context, id uuid.UUID) (*emailconfig.ConfigDTO, error)
}

func AdminListEmailConfigurations(svc EmailConfigService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("email configuration"))
			return
		}
		list, err := svc.List(r.Context())
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, list)
	}
}

// AdminCreateEmailConfiguration stores a provider configuration. is_active in
// the body is translated to the stored status by the service.
func AdminCreateEmailConfiguration(svc EmailConfigService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("email configuration"))
			return
		}
		var input emailconfig.CreateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Create(r.Context(), input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteCreated(w, cfg)
	}
}

func AdminUpdateEmailConfiguration(svc EmailConfigService, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if svc == nil {
			responses.WriteError(r.Context(), logg, w, unavailable("email configuration"))
			return
		}
		id, err := validators.ParseUUIDParam(r, "configId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		var input emailconfig.UpdateInput
		if err := validators.DecodeJSONBody(r, &input); err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := svc.Update(r.Context(), id, input)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}

func AdminActivateEmailConfiguration(svc EmailConfigService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return serviceUnavailable("email configuration", logg)
	}
	return emailConfigToggle(svc.Activate, logg)
}

func AdminDeactivateEmailConfiguration(svc EmailConfigService, logg *logger.Logger) http.HandlerFunc {
	if svc == nil {
		return serviceUnavailable("email configuration", logg)
	}
	return emailConfigToggle(svc.Deactivate, logg)
}

func emailConfigToggle(action func(context.Context, uuid.UUID) (*emailconfig.ConfigDTO, error), logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := validators.ParseUUIDParam(r, "configId")
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		cfg, err := action(r.Context(), id)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, cfg)
	}
}
