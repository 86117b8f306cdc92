package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/basicauth"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/monitor"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/makkara/makkara/app/controllers"
	"github.com/makkara/makkara/app/repository"
	"github.com/makkara/makkara/internal/pkg/billing"
	"github.com/makkara/makkara/internal/pkg/cache"
	"github.com/makkara/makkara/internal/pkg/chat"
	"github.com/makkara/makkara/internal/pkg/database"
	"github.com/makkara/makkara/internal/pkg/env"
	"github.com/makkara/makkara/internal/pkg/llm"
	"github.com/makkara/makkara/internal/pkg/quota"
	"github.com/makkara/makkara/internal/pkg/repocontext"
	"github.com/makkara/makkara/internal/pkg/router"
)

func main() {
	app := NewApplication()
	err := app.Listen(fmt.Sprintf("%s:%s", env.GetEnv("APP_HOST", "localhost"), env.GetEnv("APP_PORT", "4000")))
	log.Fatal(err)
}

func NewApplication() *fiber.App {
	env.SetupEnvFile()
	database.SetupDatabase()
	db := database.GetDB()

	catalog, err := llm.DefaultCatalog()
	if err != nil {
		log.Fatalf("loading model catalog: %v", err)
	}
	if err := llm.SeedCatalog(db, catalog); err != nil {
		log.Fatalf("seeding model catalog: %v", err)
	}

	repository.InitializeFactory(db)
	cache.SetupCache()

	registry, err := llm.NewRegistry(catalog, providersFromEnv(), env.GetEnv("DEFAULT_MODEL", ""))
	if err != nil {
		log.Fatalf("model registry: %v", err)
	}
	log.Printf("Models available: %s (default %s)", strings.Join(registry.Names(), ", "), registry.Default().Descriptor.Name)

	builder := repocontext.NewBuilder(
		repocontext.NewGitHubClient(env.GetEnv("GITHUB_TOKEN", "")),
		repocontext.WithCache(cache.NewJSONStore(cache.GetClient()), env.GetEnvDuration("REPO_CONTEXT_CACHE_TTL", 10*time.Minute)),
		repocontext.WithMaxFiles(env.GetEnvInt("REPO_CONTEXT_MAX_FILES", repocontext.DefaultMaxFiles)),
	)

	billingService := billing.NewServiceFromDB(db)
	secret := env.GetEnv("IDENTITY_HASH_SECRET", "")
	if secret == "" {
		if !env.IsDev() {
			log.Fatal("IDENTITY_HASH_SECRET must be set")
		}
		secret = "makkara-dev-secret"
	}
	ledger := quota.NewLedger(db, billingService, secret)

	repos := repository.GetGlobalRepositories()
	gateway := chat.NewGateway(ledger, builder, registry, chat.NewStoreRecorder(repos))

	publicURL := env.GetEnv("PUBLIC_DOMAIN", "http://localhost:"+env.GetEnv("APP_PORT", "4000"))
	deps := router.Dependencies{
		Chat:    controllers.NewChatController(gateway, ledger),
		Account: controllers.NewAccountController(billingService),
		Billing: controllers.NewBillingController(
			billingService,
			billing.NewStripeGateway(billing.StripeConfigFromEnv()),
			env.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
			publicURL,
		),
		Analytics: controllers.NewAnalyticsController(func() error {
			return llm.SeedCatalog(db, catalog)
		}),
		Limiter: &limiter.Config{
			Max:          env.GetEnvInt("API_RATE_LIMIT", 60),
			Expiration:   time.Minute,
			KeyGenerator: controllers.GetClientIP,
			// Streams are paced by the quota ledger, not the request limiter.
			Next: func(c *fiber.Ctx) bool {
				return c.Path() == "/api/chat"
			},
		},
	}

	// init fiber app
	app := fiber.New(fiber.Config{
		BodyLimit: 4 * 1024 * 1024,
	})

	// recovery and logging
	app.Use(recover.New(), logger.New())

	// fiber metrics
	app.Get("/metrics", basicauth.New(basicauth.Config{
		Users: map[string]string{
			env.GetEnv("METRICS_USER", "admin"): env.GetEnv("METRICS_PASSWORD", "test"),
		},
	}), monitor.New())

	// SWAGGER / OPENAPI
	if specPath := findOpenAPISpec(); specPath != "" {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/docs/api/",
			FilePath: specPath,
			Path:     "v1",
		}))
	}

	// ROUTER
	router.InstallRouter(app, deps)

	return app
}

func providersFromEnv() []llm.Provider {
	var providers []llm.Provider
	if key := env.GetEnv("GOOGLE_GENERATIVE_AI_API_KEY", ""); key != "" {
		gemini, err := llm.NewGeminiProvider(context.Background(), key)
		if err != nil {
			log.Printf("Warning: Gemini provider disabled: %v", err)
		} else {
			providers = append(providers, gemini)
		}
	}
	if key := env.GetEnv("OPENAI_API_KEY", ""); key != "" {
		providers = append(providers, llm.NewOpenAIProvider(key, env.GetEnv("OPENAI_BASE_URL", "")))
	}
	return providers
}

func findOpenAPISpec() string {
	// Define possible base paths
	basePaths := []string{
		"./",        // Current directory
		"../../",    // From cmd/makkara to project root
		"../../../", // Fallback
	}
	for _, path := range basePaths {
		candidate := path + "public/docs/v1/openapi.yml"
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
	}
	log.Print("Warning: openapi.yml not found, API docs disabled")
	return ""
}
