package routes

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/congo-pay/flex_checkout/internal/backend"
	"github.com/congo-pay/flex_checkout/internal/checkout"
	"github.com/congo-pay/flex_checkout/internal/config"
	"github.com/congo-pay/flex_checkout/internal/flex"
	"github.com/congo-pay/flex_checkout/internal/infra"
	"github.com/congo-pay/flex_checkout/internal/journal"
	"github.com/congo-pay/flex_checkout/internal/logging"
	"github.com/congo-pay/flex_checkout/internal/middleware"
)

// Deps aggregates shared dependencies required to wire routes. Backend and
// SDK default to HTTP clients built from Cfg.
type Deps struct {
	Cfg     config.Config
	DB      *pgxpool.Pool
	Cache   *redis.Client
	Logger  *slog.Logger
	Backend checkout.Backend
	SDK     flex.SDK
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	if !d.Cfg.IsDev() && d.Cache == nil {
		return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
	}
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
	app.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	app.Use(middleware.Session(!d.Cfg.IsDev(), d.Cfg.OutcomeTTL))
	app.Use(middleware.Audit(d.Logger))

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers
	hc := infra.NewHTTPClient(d.Cfg.BackendTimeout)
	if d.Backend == nil {
		d.Backend = backend.New(d.Cfg.BackendURL, hc)
	}
	if d.SDK == nil {
		d.SDK = flex.NewClient(d.Cfg.FlexBaseURL, hc)
	}

	var outcomes checkout.Store
	if d.Cache != nil {
		outcomes = checkout.NewRedisStore(d.Cache, d.Cfg.OutcomeTTL)
	} else {
		outcomes = checkout.NewMemoryStore(d.Cfg.OutcomeTTL)
	}

	// Without Postgres the journal only lives in memory, which is kept to
	// development; elsewhere the journal is off.
	var attempts journal.Repository
	switch {
	case d.DB != nil:
		attempts = journal.NewPostgresRepository(d.DB)
	case d.Cfg.IsDev():
		attempts = journal.NewMemoryRepository()
	default:
		d.Logger.Info("checkout journal disabled", slog.String("reason", "DATABASE_URL not set"))
	}

	tokenizer := flex.NewTokenizer(d.SDK, d.Cfg.FlexProduction)
	checkoutSvc, err := checkout.NewService(d.Backend, tokenizer, outcomes, attempts, d.Logger)
	if err != nil {
		return err
	}
	checkoutHandler := checkout.NewHandler(checkoutSvc, nil, d.Cfg.AppName)

	app.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	RegisterCheckoutRoutes(app, checkoutHandler, middleware.SubmitRateLimit(d.Cache, d.Cfg.SubmitRate, d.Logger))

	return nil
}
