package routes

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"github.com/lancepay/lance_pay/internal/auth"
	"github.com/lancepay/lance_pay/internal/config"
	"github.com/lancepay/lance_pay/internal/escrow"
	"github.com/lancepay/lance_pay/internal/identity"
	"github.com/lancepay/lance_pay/internal/ledger"
	"github.com/lancepay/lance_pay/internal/middleware"
	"github.com/lancepay/lance_pay/internal/notification"
	"github.com/lancepay/lance_pay/internal/project"
	"github.com/lancepay/lance_pay/internal/wallet"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg    config.Config
	DB     *pgxpool.Pool
	Cache  *redis.Client
	Logger *slog.Logger
}

// Setup configures middlewares and all application routes.
func Setup(app *fiber.App, d Deps) error {
	// Enforce DB/Redis presence outside of dev, even though main also checks.
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return fmt.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return fmt.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	// Middlewares
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	app.Use(middleware.Audit(d.Logger))
	if d.Cache != nil {
		app.Use(middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger))
	}

	// Health
	RegisterHealthRoutes(app, d)

	// Services and handlers. Dev falls back to in-memory backends.
	var ledgerBackend ledger.Ledger
	if d.DB != nil {
		ledgerBackend = ledger.NewPostgresLedger(d.DB)
	} else {
		ledgerBackend = ledger.NewInMemory()
	}

	var projectRepo project.Repository
	if d.DB != nil {
		projectRepo = project.NewPostgresRepository(d.DB)
	} else {
		projectRepo = project.NewMemoryRepository()
	}

	var identityRepo identity.Repository
	if d.DB != nil {
		identityRepo = identity.NewPostgresRepository(d.DB)
	} else {
		identityRepo = identity.NewMemoryRepository()
	}

	notifier := notification.NewLoggerNotifier(d.Logger)
	walletSvc := wallet.NewService(ledgerBackend, nil)
	projectSvc := project.NewService(projectRepo)
	escrowSvc, err := escrow.NewService(ledgerBackend, projectRepo, notifier, d.Cfg.PlatformOwnerID, d.Logger)
	if err != nil {
		return err
	}
	identitySvc := identity.NewService(identityRepo)
	authSvc := auth.NewService(d.Cfg, identityRepo)

	authHandler := auth.NewHandler(identitySvc, authSvc, walletSvc)
	identityHandler := identity.NewHandler(identitySvc, func(ctx context.Context, ownerID string) (string, error) {
		w, err := walletSvc.Get(ctx, ownerID)
		return w.ID, err
	}, d.Logger)
	walletHandler := wallet.NewHandler(walletSvc)
	projectHandler := project.NewHandler(projectSvc)
	escrowHandler := escrow.NewHandler(escrowSvc)

	// API routes
	api := app.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		reqID, _ := c.Locals("X-Request-ID").(string)
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": reqID,
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	// Public routes
	RegisterIdentityRoutes(api, identityHandler)
	rateLimiter := middleware.LoginRateLimit(d.Cache, 5)

	// Protected routes
	jwtmw := middleware.JWTAuth(d.Cfg, identityRepo)
	RegisterAuthRoutes(api, authHandler, rateLimiter, jwtmw)

	protected := api.Group("", jwtmw)
	protected.Get("/me", func(c *fiber.Ctx) error {
		uid, _ := c.Locals("user_id").(string)
		if uid == "" {
			return c.SendStatus(http.StatusUnauthorized)
		}
		user, err := identityRepo.FindByID(c.UserContext(), uid)
		if err != nil {
			return fiber.NewError(http.StatusUnauthorized, "user not found")
		}
		return c.JSON(fiber.Map{
			"user_id":       user.ID,
			"email":         user.Email,
			"role":          user.Role,
			"token_version": user.TokenVersion,
			"created_at":    user.CreatedAt,
		})
	})
	RegisterWalletRoutes(protected, walletHandler)
	RegisterProjectRoutes(protected, projectHandler)
	RegisterEscrowRoutes(protected, escrowHandler)

	return nil
}
