package router

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/mikolohq/mikolo/app/controllers"
	"github.com/mikolohq/mikolo/internal/pkg/access"
	"github.com/mikolohq/mikolo/internal/pkg/billing"
	"github.com/mikolohq/mikolo/internal/pkg/database"
	"github.com/mikolohq/mikolo/internal/pkg/entitlements"
	"github.com/mikolohq/mikolo/internal/pkg/env"
	"github.com/mikolohq/mikolo/internal/pkg/middleware"
	"github.com/mikolohq/mikolo/internal/pkg/payments"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	db := database.GetDB()

	ents := entitlements.NewSource(db)
	perms := access.NewPermissionSource(db)
	resolver := access.NewResolver(perms, ents)

	billingRepo := billing.NewRepository(db)
	billingSvc := billing.NewService(billingRepo, ents)

	paymentRepo := payments.NewRepository(db)
	provider := payments.NewProviderFromEnv()
	cfg := pollConfigFromEnv()

	accessCtl := controllers.NewAccessController(db, resolver, perms, ents)
	billingCtl := controllers.NewBillingController(db, billingSvc)
	paymentCtl := controllers.NewPaymentController(db, provider, paymentRepo, billingSvc, cfg, env.IsSandbox())

	api := app.Group("/api", limiter.New())
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group("/v1", middleware.RequireAuth())

	v1.Get("/plans", billingCtl.HandleListPlans)
	v1.Get("/account/quota", accessCtl.HandleGetQuota)

	v1.Get("/events/:id/access", accessCtl.HandleGetAccess)
	v1.Get("/events/:id/permissions", accessCtl.HandleGetPermissions)
	v1.Get("/events/:id/entitlements", accessCtl.HandleGetEntitlements)
	v1.Get("/events/:id/payments", paymentCtl.HandleListEventPayments)

	v1.Post("/payments", paymentCtl.HandleInitiatePayment)
	v1.Get("/payments/:id", paymentCtl.HandleGetPayment)
	v1.Post("/payments/:id/cancel", paymentCtl.HandleCancelPayment)

	v1.Post("/subscriptions/subscribe", billingCtl.HandleSubscribe)
	v1.Post("/subscriptions/upgrade", billingCtl.HandleUpgrade)
	v1.Post("/subscriptions/renew", billingCtl.HandleRenew)
	v1.Post("/subscriptions/cancel", billingCtl.HandleCancel)
}

func pollConfigFromEnv() payments.Config {
	cfg := payments.DefaultConfig()
	if raw := env.GetEnv("PAYMENTS_POLL_INTERVAL", ""); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.PollInterval = d
		}
	}
	if raw := env.GetEnv("PAYMENTS_POLL_TIMEOUT", ""); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.PollTimeout = d
		}
	}
	return cfg
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
