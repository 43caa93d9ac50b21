package main

import (
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/clinic/frontdesk/internal/config"
	"github.com/clinic/frontdesk/internal/domain/admin"
	"github.com/clinic/frontdesk/internal/domain/clinic"
	"github.com/clinic/frontdesk/internal/domain/identity"
	"github.com/clinic/frontdesk/internal/domain/referral"
	"github.com/clinic/frontdesk/internal/domain/reports"
	"github.com/clinic/frontdesk/internal/domain/scheduling"
	"github.com/clinic/frontdesk/internal/platform/auth"
	"github.com/clinic/frontdesk/internal/platform/blobstore"
	"github.com/clinic/frontdesk/internal/platform/db"
	"github.com/clinic/frontdesk/internal/platform/middleware"
	"github.com/clinic/frontdesk/internal/platform/websocket"
)

type serverDeps struct {
	cfg       *config.Config
	logger    zerolog.Logger
	store     clinic.Store
	pool      *pgxpool.Pool
	blobs     blobstore.BlobStore
	grid      *scheduling.SlotGrid
	loc       *time.Location
	recorders []middleware.AuditRecorder
}

type server struct {
	echo     *echo.Echo
	identity *identity.Service
	hub      *websocket.Hub
}

func newServer(d serverDeps) *server {
	cfg, logger := d.cfg, d.logger

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.SessionTTL)
	revocations := auth.NewRevocationList()

	// Global middleware
	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders())
	e.Use(middleware.BodyLimit(cfg.BodyLimit, cfg.MaxUploadSize))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))
	e.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Auth middleware
	e.Use(auth.SessionMiddleware(auth.SessionConfig{
		Issuer:      tokens,
		Revocations: revocations,
		Skipper:     auth.AuthSkipper,
	}))

	e.GET("/health", db.HealthHandler(d.store, cfg.StoreDriver, d.pool))

	apiV1 := e.Group("/api/v1")

	rateLimitCfg := middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	}
	if rateLimitCfg.RequestsPerSecond <= 0 {
		rateLimitCfg = middleware.DefaultRateLimitConfig()
	}
	apiV1.Use(middleware.RateLimit(rateLimitCfg))
	apiV1.Use(middleware.Audit(logger, d.recorders...))

	// Live events
	hub := websocket.NewHub(logger.With().Str("component", "websocket").Logger())
	websocket.NewHandler(hub, cfg.CORSOrigins).RegisterRoutes(apiV1)

	// Identity domain
	identitySvc := identity.NewService(d.store, logger.With().Str("domain", "identity").Logger())
	identity.NewHandler(identitySvc, tokens, revocations).RegisterRoutes(apiV1)

	// Scheduling domain
	schedulingSvc := scheduling.NewService(d.store, d.grid, d.loc, logger.With().Str("domain", "scheduling").Logger())
	schedulingSvc.SetPublisher(hub)
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(apiV1)

	// Referral domain
	referralSvc := referral.NewService(d.store, d.loc, logger.With().Str("domain", "referral").Logger())
	referralSvc.SetPublisher(hub)
	referral.NewHandler(referralSvc).RegisterRoutes(apiV1)

	// Reports domain
	reportsSvc := reports.NewService(d.store, d.blobs, d.loc, logger.With().Str("domain", "reports").Logger())
	reportsSvc.SetPublisher(hub)
	reports.NewHandler(reportsSvc).RegisterRoutes(apiV1)

	// Admin dashboard
	admin.NewHandler(admin.NewService(d.store)).RegisterRoutes(apiV1)

	return &server{echo: e, identity: identitySvc, hub: hub}
}
