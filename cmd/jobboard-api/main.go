package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dimitrije/jobboard-api/internal/access"
	"github.com/dimitrije/jobboard-api/internal/apperr"
	"github.com/dimitrije/jobboard-api/internal/config"
	"github.com/dimitrije/jobboard-api/internal/database"
	"github.com/dimitrije/jobboard-api/internal/events"
	"github.com/dimitrije/jobboard-api/internal/handlers"
	"github.com/dimitrije/jobboard-api/internal/logger"
	"github.com/dimitrije/jobboard-api/internal/metrics"
	authmw "github.com/dimitrije/jobboard-api/internal/middleware"
	"github.com/dimitrije/jobboard-api/internal/services"
	"github.com/m1z23r/drift/pkg/drift"
	"github.com/m1z23r/drift/pkg/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Env, cfg.LogLevel)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	if err := db.Migrate(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to run migrations")
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	collector := metrics.NewCollector(registry)
	recorder := apperr.NewRecorder(log, collector)

	jwtService := services.NewJWTService(cfg.JWTSecret, cfg.JWTAccessExpiry, cfg.JWTRefreshExpiry)
	identityService := services.NewIdentityService(db, services.NewPasswordHasher())
	profileService := services.NewProfileService(db)
	grantService := services.NewGrantService(db)
	tokenService := services.NewTokenService(db)
	resolver := services.NewIdentityResolver(profileService, grantService, recorder)

	identityService.OnSignUp(profileService.CreateForIdentity)

	hub := events.NewHub(log)
	go hub.Run(ctx)

	var publisher events.Publisher = hub
	if cfg.RedisURL != "" {
		rdb, err := events.NewRedisClient(cfg.RedisURL)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to configure redis")
		}
		relay := events.NewRedisRelay(rdb, hub, log)
		if err := relay.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("failed to subscribe to session changes")
		}
		defer relay.Close()
		publisher = relay
		log.Info().Msg("relaying session changes through redis")
	}

	authHandler := handlers.NewAuthHandler(identityService, tokenService, jwtService, publisher, collector, recorder, log)
	userHandler := handlers.NewUserHandler(resolver, profileService, grantService, publisher, recorder, log)
	adminHandler := handlers.NewAdminHandler(identityService, profileService, grantService, publisher, recorder, log)
	eventsHandler := handlers.NewEventsHandler(hub, collector)

	app := drift.New()

	if cfg.IsProduction() {
		app.SetMode(drift.ReleaseMode)
	} else {
		app.SetMode(drift.DebugMode)
	}

	app.Use(middleware.Recovery())
	app.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "Authorization"},
		MaxAge:       86400,
	}))
	app.Use(middleware.BodyParser())

	api := app.Group("/api/v1")

	auth := api.Group("/auth")
	auth.Post("/signup", authHandler.SignUp)
	auth.Post("/signin", authHandler.SignIn)
	auth.Post("/refresh", authHandler.RefreshToken)
	auth.Post("/signout", authHandler.SignOut)

	protected := api.Group("")
	protected.Use(authmw.Auth(jwtService))

	protected.Post("/auth/signout-all", authHandler.SignOutAll)
	protected.Get("/auth/session", authHandler.Session)
	protected.Get("/auth/events", eventsHandler.Stream)

	protected.Get("/users/me", userHandler.GetMe)
	protected.Get("/users/me/profile", userHandler.GetProfile)
	protected.Patch("/users/me/profile", userHandler.UpdateProfile)
	protected.Get("/users/me/grant", userHandler.GetGrant)

	admins := api.Group("/admin")
	admins.Use(authmw.Auth(jwtService))
	admins.Use(authmw.Require(resolver, collector, access.RequireAdmin))
	admins.Get("/users", adminHandler.ListUsers)

	superAdmins := api.Group("/admin")
	superAdmins.Use(authmw.Auth(jwtService))
	superAdmins.Use(authmw.Require(resolver, collector, access.RequireSuperAdmin))
	superAdmins.Get("/grants", adminHandler.ListGrants)
	superAdmins.Put("/grants/:identityId", adminHandler.SetGrant)
	superAdmins.Delete("/grants/:identityId", adminHandler.RevokeGrant)

	hr := api.Group("/hr")
	hr.Use(authmw.Auth(jwtService))
	hr.Use(authmw.Require(resolver, collector, access.RequireHRManager))
	hr.Get("/candidates", adminHandler.ListCandidates)

	api.Get("/health", func(c *drift.Context) {
		if err := db.Pool.Ping(c.Request.Context()); err != nil {
			_ = c.JSON(503, map[string]string{"status": "unavailable"})
			return
		}
		_ = c.JSON(200, map[string]string{"status": "ok"})
	})
	api.Get("/metrics", metrics.Route(registry))

	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				removed, err := tokenService.CleanupExpired(ctx)
				if err != nil {
					recorder.Record(err, map[string]any{"task": "token_cleanup"})
					continue
				}
				log.Debug().Int64("removed", removed).Msg("expired refresh tokens removed")
			}
		}
	}()

	go func() {
		addr := fmt.Sprintf(":%s", cfg.Port)
		log.Info().Str("addr", addr).Msg("server starting")
		if err := app.Run(addr); err != nil {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")
}
