package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/shelfwise/shelfwise-api/internal/config"
	"github.com/shelfwise/shelfwise-api/internal/domain/account"
	"github.com/shelfwise/shelfwise-api/internal/domain/admin"
	"github.com/shelfwise/shelfwise-api/internal/domain/billing"
	"github.com/shelfwise/shelfwise-api/internal/domain/credit"
	"github.com/shelfwise/shelfwise-api/internal/domain/pack"
	"github.com/shelfwise/shelfwise-api/internal/domain/pricing"
	"github.com/shelfwise/shelfwise-api/internal/middleware"
	"github.com/shelfwise/shelfwise-api/internal/pkg/database"
	"github.com/shelfwise/shelfwise-api/internal/pkg/jwt"
	"github.com/shelfwise/shelfwise-api/internal/pkg/payment"
	pkgresponse "github.com/shelfwise/shelfwise-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	setupLogger(cfg)

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting Shelfwise billing API")

	db, err := database.NewPostgres(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer database.ClosePostgres(db)

	if err := database.RunMigrations(db, cfg.MigrationsPath); err != nil {
		log.Fatal().Err(err).Msg("Failed to run migrations")
	}

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)
	gateway := payment.NewStripeGateway(cfg.StripeSecretKey, cfg.StripeWebhookSecret)

	// ---------- Repositories ----------
	accountRepo := account.NewRepository(db)
	creditRepo := credit.NewRepository(db)
	packRepo := pack.NewRepository(db)
	pricingRepo := pricing.NewRepository(db)

	// ---------- Services ----------
	creditService := credit.NewService(creditRepo, accountRepo, cfg.SignupBonusCredits)
	accountService := account.NewService(accountRepo, creditService)
	packService := pack.NewService(packRepo)
	pricingService := pricing.NewService(pricingRepo, redis)
	billingService := billing.NewService(accountRepo, packService, creditService, gateway, cfg.FrontendURL)

	// ---------- Handlers ----------
	creditHandler := credit.NewHandler(creditService, pricingService)
	packHandler := pack.NewHandler(packService)
	pricingHandler := pricing.NewHandler(pricingService)
	billingHandler := billing.NewHandler(billingService)
	adminHandler := admin.NewHandler(accountService, creditService)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))
	r.Use(chimw.Compress(5))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Mount("/credits", creditHandler.Routes(authMiddleware))
		r.Mount("/packs", packHandler.Routes(authMiddleware))
		r.Mount("/billing", billingHandler.Routes(authMiddleware))
	})

	// Stripe signs webhook requests; no auth middleware here.
	r.Post("/webhooks/stripe", billingHandler.WebhookHandler)

	r.Route("/api/admin", func(r chi.Router) {
		r.Use(authMiddleware)
		r.Use(middleware.RequireAdmin())

		r.Mount("/accounts", adminHandler.Routes())
		r.Mount("/packs", packHandler.AdminRoutes())
		r.Mount("/pricing", pricingHandler.AdminRoutes())
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

func setupLogger(cfg *config.Config) {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix

	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)

	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: "15:04:05",
		})
	}
}
