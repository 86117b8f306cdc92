package router

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"

	"github.com/makkara/makkara/app/controllers"
	"github.com/makkara/makkara/internal/pkg/middleware"
)

// Dependencies are the controllers that need more than the repository
// factory.
type Dependencies struct {
	Chat      *controllers.ChatController
	Account   *controllers.AccountController
	Billing   *controllers.BillingController
	Analytics *controllers.AnalyticsController
	// Limiter guards the API group; nil uses the limiter defaults.
	Limiter *limiter.Config
}

type ApiRouter struct {
	deps Dependencies
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	// Stripe signs the raw body; it must not pass the rate limiter.
	app.Post("/api/webhooks/stripe", h.deps.Billing.HandleStripeWebhook)

	limiterCfg := limiter.ConfigDefault
	if h.deps.Limiter != nil {
		limiterCfg = *h.deps.Limiter
	}
	api := app.Group("/api", limiter.New(limiterCfg))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
			"status":  "ok",
		})
	})

	api.Post("/chat", h.deps.Chat.HandleChat)
	api.Get("/quota", h.deps.Chat.HandleQuotaStatus)

	api.Get("/chats", controllers.HandleListChats)
	api.Post("/chats", middleware.RequireAPISessionAuth, controllers.HandleSaveChat)
	api.Get("/chats/:id/messages", middleware.RequireAPISessionAuth, controllers.HandleChatMessages)

	favorites := api.Group("/repos/favorites", middleware.RequireAPISessionAuth)
	favorites.Get("/", controllers.HandleListFavorites)
	favorites.Post("/", controllers.HandleAddFavorite)
	favorites.Delete("/:id", controllers.HandleDeleteFavorite)

	api.Get("/account/data", controllers.HandleAccountData)
	api.Get("/account/subscription", middleware.RequireAPISessionAuth, h.deps.Account.HandleSubscription)
	api.Post("/delete-account", middleware.RequireAPISessionAuth, controllers.HandleDeleteAccount)

	api.Post("/checkout-sessions", h.deps.Billing.HandleCreateCheckoutSession)
	api.Post("/billing-portal", middleware.RequireAuth, h.deps.Billing.HandleBillingPortal)

	api.Get("/analytics/models", middleware.RequireAPISessionAuth, h.deps.Analytics.HandleModelUsage)
}

func NewApiRouter(deps Dependencies) *ApiRouter {
	return &ApiRouter{deps: deps}
}
