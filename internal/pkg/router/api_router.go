package router

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/trendfox/TrendFox/app/controllers"
	"github.com/trendfox/TrendFox/internal/pkg/constants"
	"github.com/trendfox/TrendFox/internal/pkg/env"
	"github.com/trendfox/TrendFox/internal/pkg/middleware"
)

type ApiRouter struct {
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Stripe retries on 429 count against the delivery budget, so the
	// webhook endpoint sits outside the rate-limited group.
	webhookController := controllers.NewDefaultStripeWebhookController()
	app.Post(constants.APIStripeWebhookRoute, webhookController.HandleWebhook)

	api := app.Group("/api", limiter.New(limiter.Config{
		Max:        120,
		Expiration: 1 * time.Minute,
		Storage:    newLimiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	checkoutController := controllers.NewDefaultCheckoutController()
	api.Post("/checkout", checkoutController.HandleCreateCheckout)

	feedController := controllers.NewDefaultFeedController()
	api.Get("/feed", middleware.OptionalTokenAuthMiddleware(), feedController.HandleGetFeed)

	auth := api.Group("/auth")
	auth.Post("/magic-link", controllers.HandleRequestMagicLink)
	auth.Post("/redeem", controllers.HandleRedeemMagicLink)
	auth.Post("/login", controllers.HandlePasswordLogin)
	auth.Post("/logout", middleware.TokenAuthMiddleware(), controllers.HandleLogout)
	auth.Post("/logout-all", middleware.TokenAuthMiddleware(), controllers.HandleLogoutAll)

	user := api.Group("/user", middleware.TokenAuthMiddleware())
	user.Get("/account", controllers.HandleGetUserAccount)

	admin := api.Group("/admin", middleware.TokenAuthMiddleware(), middleware.RequireAdmin())
	admin.Post("/posts", controllers.HandleAdminCreatePost)
	admin.Get("/posts", controllers.HandleAdminListPosts)
	admin.Delete("/posts/:id", controllers.HandleAdminDeletePost)
}

// newLimiterStorage backs the rate limiter with redis so limits hold across
// instances.
func newLimiterStorage() *redisstorage.Storage {
	return redisstorage.New(redisstorage.Config{
		Host:     env.GetEnv("CACHE_HOST", "localhost"),
		Port:     envPortOrDefault("CACHE_PORT", 6379),
		Password: env.GetEnv("CACHE_PASSWORD", ""),
		Database: 1,
		Reset:    false,
	})
}

func envPortOrDefault(key string, fallback int) int {
	port := fallback
	if raw := env.GetEnv(key, ""); raw != "" {
		if _, err := fmt.Sscanf(raw, "%d", &port); err != nil {
			port = fallback
		}
	}
	return port
}

func NewApiRouter() *ApiRouter {
	return &ApiRouter{}
}
