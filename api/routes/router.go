package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/angelmondragon/pawfinderz-backend/api/controllers"
	"github.com/angelmondragon/pawfinderz-backend/api/middleware"
	"github.com/angelmondragon/pawfinderz-backend/internal/helpers"
	"github.com/angelmondragon/pawfinderz-backend/pkg/config"
	"github.com/angelmondragon/pawfinderz-backend/pkg/enums"
	"github.com/angelmondragon/pawfinderz-backend/pkg/logger"
	"github.com/angelmondragon/pawfinderz-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/pawfinderz-backend/pkg/redis"
)

// Services groups everything the HTTP surface calls into. Nil members answer
// with a service unavailable error.
type Services struct {
	Users         controllers.MeService
	Capabilities  controllers.CapabilityLister
	Pets          controllers.PetsService
	Helpers       helpers.Service
	Placements    controllers.PlacementsService
	Transfers     controllers.TransfersService
	Invitations   controllers.InvitationsService
	Notifications controllers.NotificationsService
	Settings      controllers.SettingsService
	EmailConfigs  controllers.EmailConfigService
}

// Infra carries the shared clients the middleware stack and probes use.
type Infra struct {
	DB       controllers.Pinger
	Redis    *pkgredis.Client
	Gatherer prometheus.Gatherer
}

func NewRouter(cfg *config.Config, logg *logger.Logger, infra Infra, svc Services) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(cfg.CORS.AllowedOrigins),
	)

	var (
		idempotencyStore pkgredis.IdempotencyStore
		limiter          middleware.RateLimiterStore
	)
	probes := map[string]controllers.Pinger{}
	if infra.DB != nil {
		probes["db"] = infra.DB
	}
	if infra.Redis != nil {
		idempotencyStore = infra.Redis
		limiter = infra.Redis
		probes["redis"] = infra.Redis
	}

	apiPolicy := middleware.NewRateLimitPolicy("api", cfg.RateLimit.Window, cfg.RateLimit.UserLimit, cfg.RateLimit.IPLimit)
	invitePolicy := middleware.NewRateLimitPolicy("invite", cfg.RateLimit.InviteWindow, cfg.RateLimit.InviteLimit, 0)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, probes, logg))
	})
	if infra.Gatherer != nil {
		r.Handle("/metrics", metrics.Handler(infra.Gatherer))
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(middleware.Auth(cfg.JWT, logg))
		r.Use(middleware.RateLimit(apiPolicy, limiter, logg))
		r.Use(middleware.Idempotency(idempotencyStore, logg))

		r.Get("/me", controllers.Me(svc.Users, logg))

		r.Get("/pet-types", controllers.ListPetTypes(svc.Pets, logg))
		r.Get("/pet-types/{slug}/capabilities", controllers.PetTypeCapabilities(svc.Capabilities, logg))

		r.Route("/pets", func(r chi.Router) {
			r.Post("/", controllers.CreatePet(svc.Pets, logg))
			r.Get("/", controllers.ListMyPets(svc.Pets, logg))
			r.Get("/{petId}", controllers.GetPet(svc.Pets, logg))
			r.Patch("/{petId}/status", controllers.UpdatePetStatus(svc.Pets, logg))
			r.Get("/{petId}/ownership-history", controllers.PetOwnershipHistory(svc.Pets, logg))
			r.Get("/{petId}/relationships", controllers.PetRelationships(svc.Pets, logg))
		})

		r.Route("/helper-profiles", func(r chi.Router) {
			r.Post("/", controllers.UpsertHelperProfile(svc.Helpers, logg))
			r.Get("/me", controllers.GetMyHelperProfile(svc.Helpers, logg))
			r.Get("/{profileId}", controllers.GetHelperProfile(svc.Helpers, logg))
		})

		r.Route("/placement-requests", func(r chi.Router) {
			r.Post("/", controllers.CreatePlacementRequest(svc.Placements, logg))
			r.Get("/", controllers.ListPlacementRequests(svc.Placements, logg))
			r.Get("/{requestId}", controllers.GetPlacementRequest(svc.Placements, logg))
			r.Post("/{requestId}/cancel", controllers.CancelPlacementRequest(svc.Placements, logg))
			r.Post("/{requestId}/finalize", controllers.FinalizePlacementRequest(svc.Placements, logg))
			r.Get("/{requestId}/responses", controllers.ListPlacementResponses(svc.Placements, logg))
			r.Post("/{requestId}/responses", controllers.RespondToPlacementRequest(svc.Placements, logg))
		})

		r.Route("/placement-request-responses/{responseId}", func(r chi.Router) {
			r.Post("/accept", controllers.AcceptPlacementResponse(svc.Placements, logg))
			r.Post("/reject", controllers.RejectPlacementResponse(svc.Placements, logg))
			r.Post("/cancel", controllers.CancelPlacementResponse(svc.Placements, logg))
		})

		transfers := controllers.NewTransferControllers(svc.Transfers, logg)
		r.Route("/transfer-requests/{transferId}", func(r chi.Router) {
			r.Get("/", transfers.GetTransfer())
			r.Post("/accept", transfers.AcceptTransfer())
			r.Post("/reject", transfers.RejectTransfer())
			r.Post("/cancel", transfers.CancelTransfer())
		})
		r.Route("/transfer-handovers/{handoverId}", func(r chi.Router) {
			r.Get("/", transfers.GetHandover())
			r.Post("/confirm", transfers.ConfirmHandover())
			r.Post("/complete", transfers.CompleteHandover())
			r.Post("/cancel", transfers.CancelHandover())
			r.Post("/dispute", transfers.DisputeHandover())
		})
		r.Route("/foster-assignments/{assignmentId}", func(r chi.Router) {
			r.Get("/", transfers.GetAssignment())
			r.Post("/return-handovers", transfers.InitiateReturn())
		})
		r.Route("/foster-return-handovers/{handoverId}", func(r chi.Router) {
			r.Get("/", transfers.GetReturnHandover())
			r.Post("/confirm", transfers.ConfirmReturn())
			r.Post("/complete", transfers.CompleteReturn())
			r.Post("/cancel", transfers.CancelReturn())
		})

		r.Route("/relationship-invitations", func(r chi.Router) {
			r.With(middleware.RateLimit(invitePolicy, limiter, logg)).Post("/", controllers.CreateInvitation(svc.Invitations, logg))
			r.Get("/{code}", controllers.GetInvitation(svc.Invitations, logg))
			r.Post("/{code}/accept", controllers.AcceptInvitation(svc.Invitations, logg))
			r.Post("/{code}/decline", controllers.DeclineInvitation(svc.Invitations, logg))
			r.Delete("/{invitationId}", controllers.RevokeInvitation(svc.Invitations, logg))
		})

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(svc.Notifications, logg))
			r.Get("/unread-count", controllers.UnreadNotificationCount(svc.Notifications, logg))
			r.Post("/{notificationId}/read", controllers.MarkNotificationRead(svc.Notifications, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(svc.Notifications, logg))
		})
		r.Get("/notification-preferences", controllers.GetNotificationPreferences(svc.Notifications, logg))
		r.Put("/notification-preferences", controllers.UpdateNotificationPreference(svc.Notifications, logg))

		r.Get("/settings/{key}", controllers.GetPublicSetting(svc.Settings, logg))

		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.RequireRole(string(enums.UserRoleAdmin), logg))
			r.Get("/settings", controllers.AdminListSettings(svc.Settings, logg))
			r.Put("/settings/{key}", controllers.AdminPutSetting(svc.Settings, logg))
			r.Route("/email-configurations", func(r chi.Router) {
				r.Get("/", controllers.AdminListEmailConfigurations(svc.EmailConfigs, logg))
				r.Post("/", controllers.AdminCreateEmailConfiguration(svc.EmailConfigs, logg))
				r.Patch("/{configId}", controllers.AdminUpdateEmailConfiguration(svc.EmailConfigs, logg))
				r.Post("/{configId}/activate", controllers.AdminActivateEmailConfiguration(svc.EmailConfigs, logg))
				r.Post("/{configId}/deactivate", controllers.AdminDeactivateEmailConfiguration(svc.EmailConfigs, logg))
			})
		})
	})

	return r
}
