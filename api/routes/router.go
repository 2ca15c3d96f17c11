package routes

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/valeclub/valeclub-backend/api/controllers"
	webhookcontrollers "github.com/valeclub/valeclub-backend/api/controllers/webhooks"
	"github.com/valeclub/valeclub-backend/api/middleware"
	"github.com/valeclub/valeclub-backend/internal/entitlements"
	"github.com/valeclub/valeclub-backend/internal/establishments"
	"github.com/valeclub/valeclub-backend/internal/notifications"
	"github.com/valeclub/valeclub-backend/internal/vouchers"
	"github.com/valeclub/valeclub-backend/internal/webhooks"
	squarewebhook "github.com/valeclub/valeclub-backend/internal/webhooks/square"
	stripewebhook "github.com/valeclub/valeclub-backend/internal/webhooks/stripe"
	"github.com/valeclub/valeclub-backend/pkg/config"
	"github.com/valeclub/valeclub-backend/pkg/db"
	"github.com/valeclub/valeclub-backend/pkg/enums"
	"github.com/valeclub/valeclub-backend/pkg/logger"
	"github.com/valeclub/valeclub-backend/pkg/redis"
	"github.com/valeclub/valeclub-backend/pkg/square"
	"github.com/valeclub/valeclub-backend/pkg/stripe"
)

func NewRouter(
	cfg *config.Config,
	logg *logger.Logger,
	dbP db.Pinger,
	redisClient *redis.Client,
	voucherService vouchers.Service,
	establishmentService establishments.Service,
	notificationService notifications.Service,
	entitlementService entitlements.Service,
	stripeClient *stripe.Client,
	stripeWebhookService *stripewebhook.Service,
	stripeGuard *webhooks.IdempotencyGuard,
	squareClient *square.Client,
	squareWebhookService *squarewebhook.Service,
	squareGuard *webhooks.IdempotencyGuard,
) http.Handler {
	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.Logging(logg),
		middleware.CORS(),
	)

	publicPolicy := middleware.NewRateLimitPolicy(
		"public",
		cfg.RateLimit.PublicWindow,
		cfg.RateLimit.PublicIPLimit,
	)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg))
		r.Get("/ready", controllers.HealthReady(cfg, logg, dbP, redisClient))
	})

	r.Route("/api/public", func(r chi.Router) {
		r.With(middleware.RateLimit(publicPolicy, redisClient, logg)).
			Get("/establishments", controllers.PublicEstablishments(establishmentService, logg))
	})

	r.Route("/api/v1/webhooks", func(r chi.Router) {
		r.Post("/stripe", webhookcontrollers.StripeWebhook(stripeWebhookService, stripeClient, stripeGuard, logg))
		r.Post("/square", webhookcontrollers.SquareWebhook(squareWebhookService, squareClient, squareGuard, logg))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.Idempotency(redisClient, logg),
		)

		r.Route("/vouchers", func(r chi.Router) {
			r.With(middleware.RequireRole(enums.RoleMember, logg)).
				Post("/", controllers.GenerateVoucher(voucherService, logg))

			r.Group(func(r chi.Router) {
				r.Use(
					middleware.RequireRole(enums.RoleOperator, logg),
					middleware.RequireEstablishment(logg),
				)
				r.Post("/{code}/validate", controllers.ValidateVoucher(voucherService, logg))
				r.Post("/{code}/check-in", controllers.CheckInVoucher(voucherService, logg))
			})
		})

		r.With(
			middleware.RequireRole(enums.RoleOperator, logg),
			middleware.RequireEstablishment(logg),
		).Get("/establishments/{id}/vouchers", controllers.ListEstablishmentVouchers(voucherService, logg))

		r.Route("/notifications", func(r chi.Router) {
			r.Get("/", controllers.ListNotifications(notificationService, logg))
			r.Post("/{id}/read", controllers.MarkNotificationRead(notificationService, logg))
			r.Post("/read-all", controllers.MarkAllNotificationsRead(notificationService, logg))
		})
	})

	r.Route("/api/admin/v1", func(r chi.Router) {
		r.Use(
			middleware.Auth(cfg.JWT, logg),
			middleware.RequireRole(enums.RoleAdmin, logg),
			middleware.Idempotency(redisClient, logg),
		)

		r.Post("/members/{id}/partners", controllers.AdminBatchLink(entitlementService, logg))
		r.Get("/payment-events/parked", controllers.AdminListParkedEvents(entitlementService, logg))
		r.Post("/payment-events/parked/{id}/resolve", controllers.AdminResolveParkedEvent(entitlementService, logg))
	})

	return r
}
