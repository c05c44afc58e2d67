package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/practicehub/practicehub/internal/config"
	"github.com/practicehub/practicehub/internal/domain/clinical"
	"github.com/practicehub/practicehub/internal/domain/dashboard"
	"github.com/practicehub/practicehub/internal/domain/documents"
	"github.com/practicehub/practicehub/internal/domain/messaging"
	"github.com/practicehub/practicehub/internal/domain/patient"
	"github.com/practicehub/practicehub/internal/domain/practice"
	"github.com/practicehub/practicehub/internal/domain/scheduling"
	"github.com/practicehub/practicehub/internal/platform/auth"
	"github.com/practicehub/practicehub/internal/platform/blobstore"
	"github.com/practicehub/practicehub/internal/platform/chat"
	"github.com/practicehub/practicehub/internal/platform/db"
	"github.com/practicehub/practicehub/internal/platform/middleware"
	"github.com/practicehub/practicehub/internal/platform/navigation"
	"github.com/practicehub/practicehub/internal/platform/npi"
	"github.com/practicehub/practicehub/internal/platform/scheduler"
	"github.com/practicehub/practicehub/internal/platform/session"
	"github.com/practicehub/practicehub/internal/platform/websocket"
)

const (
	requestTimeout = 30 * time.Second
	jsonBodyLimit  = 1 << 20
	// rateLimiterIdle is how long an unused client bucket is kept.
	rateLimiterIdle = 10 * time.Minute
)

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	logger := newLogger(os.Getenv("ENV"), os.Stdout)

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	srv, err := newServer(cfg, pool, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build server")
	}
	srv.jobs.Start()
	defer srv.jobs.Stop()

	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := srv.echo.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.echo.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("server shutdown failed")
		return err
	}
	logger.Info().Msg("server stopped")
	return nil
}

// apiGroup mounts the company-scoped API. Throttled requests are rejected
// before a pooled connection is taken.
func apiGroup(e *echo.Echo, pool *pgxpool.Pool, defaultCompany string, limiter *middleware.RateLimiter, logger zerolog.Logger) *echo.Group {
	return e.Group("/api/v1",
		limiter.Middleware(),
		db.CompanyMiddleware(pool, defaultCompany),
		middleware.NewSubmitGuard().Middleware(),
		middleware.Audit(logger),
		middleware.RequestTimeout(requestTimeout),
	)
}

type server struct {
	echo *echo.Echo
	jobs *scheduler.Scheduler
}

// newServer wires every service, route and background job.
func newServer(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) (*server, error) {
	scope := func(ctx context.Context, companyID string) (context.Context, func(), error) {
		return db.ScopedConn(ctx, pool, companyID)
	}
	companies := func(ctx context.Context) ([]string, error) {
		return db.Companies(ctx, pool)
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	hub := websocket.NewHub(logger)
	monitor := session.NewMonitor(session.Config{
		IdleTimeout:    cfg.SessionIdleTimeout,
		TTL:            cfg.SessionTTL,
		WarningSeconds: cfg.SessionWarningSeconds,
	}, hub, logger)
	if err := monitor.RegisterMetrics(registry); err != nil {
		return nil, err
	}

	users := auth.NewUserStore(pool)
	resolver := navigation.NewResolver(users)
	monitor.OnEnd(resolver.Forget)

	var issuer *auth.Issuer
	if cfg.AuthSigningKey != "" {
		issuer = auth.NewIssuer([]byte(cfg.AuthSigningKey), "practicehub", cfg.SessionTTL)
	}

	catalogue, err := chat.LoadCatalogue(cfg.ChatResponsesFile)
	if err != nil {
		return nil, err
	}
	var completer chat.Completer
	if cfg.ChatEnabled() {
		completer = chat.NewCompletionClient(cfg.ChatAPIURL, cfg.ChatAPIKey, cfg.ChatModel)
	}
	responder := chat.NewResponder(catalogue, completer, logger)
	if err := responder.RegisterMetrics(registry); err != nil {
		return nil, err
	}

	store, err := blobstore.New(cfg.DocumentStore, cfg.DocumentDir)
	if err != nil {
		return nil, err
	}
	maxUpload := cfg.MaxUploadMB << 20

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.SecurityHeaders(cfg.IsProduction()))
	e.Use(middleware.Sanitize(logger))
	e.Use(middleware.BodyLimit(jsonBodyLimit, maxUpload+jsonBodyLimit))
	if cfg.MetricsEnabled {
		e.Use(middleware.NewMetrics(registry).Middleware())
	}
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID", db.CompanyHeader},
	}))

	jwtCfg := auth.JWTConfig{
		Issuer:     cfg.AuthIssuer,
		Audience:   cfg.AuthAudience,
		JWKSURL:    cfg.AuthJWKSURL,
		SigningKey: []byte(cfg.AuthSigningKey),
		Sessions:   monitor,
		Skipper:    auth.AuthSkipper,
	}
	if cfg.IsDev() {
		e.Use(auth.DevAuthMiddleware(cfg.DefaultCompany, auth.JWTMiddleware(jwtCfg), auth.AuthSkipper))
	} else {
		e.Use(auth.JWTMiddleware(jwtCfg))
	}

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/health/db", db.HealthHandler(pool))
	if cfg.MetricsEnabled {
		e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	// The socket lives outside the company group so it does not hold a
	// pooled connection open.
	wsHandler := websocket.NewHandler(hub, cfg.CORSOrigins, func(sessionID string) {
		monitor.Touch(sessionID, time.Now())
	})
	wsHandler.RegisterRoutes(e.Group(""))

	limiter := middleware.NewRateLimiter(middleware.RateLimitConfig{
		RequestsPerSecond: cfg.RateLimitRPS,
		BurstSize:         cfg.RateLimitBurst,
	})
	api := apiGroup(e, pool, cfg.DefaultCompany, limiter, logger)

	session.NewHandler(monitor, users, issuer, scope, cfg.DefaultCompany).RegisterRoutes(api)
	navigation.NewHandler(resolver).RegisterRoutes(api)
	chat.NewHandler(responder).RegisterRoutes(api)

	patientSvc := patient.NewService(patient.NewRepo(pool))
	patient.NewHandler(patientSvc).RegisterRoutes(api)

	practice.NewHandler(practice.NewService(practice.NewRepo(pool), npi.NewClient(cfg.NPIRegistryURL))).RegisterRoutes(api)

	schedulingSvc := scheduling.NewService(scheduling.NewRepo(pool))
	scheduling.NewHandler(schedulingSvc).RegisterRoutes(api)

	clinicalSvc := clinical.NewService(clinical.NewVitalsRepo(pool), clinical.NewNoteRepo(pool), clinical.NewPlanRepo(pool))
	clinical.NewHandler(clinicalSvc).RegisterRoutes(api)

	documentSvc := documents.NewService(documents.NewRepo(pool), store, maxUpload, logger)
	documents.NewHandler(documentSvc).RegisterRoutes(api)

	messagingSvc := messaging.NewService(messaging.NewRepo(pool), hub, logger)
	messaging.NewHandler(messagingSvc).RegisterRoutes(api)

	dashboard.NewHandler(dashboard.NewService(patientSvc, schedulingSvc, messagingSvc, scope)).RegisterRoutes(api)

	jobs := scheduler.New(logger)
	reminders := scheduling.NewReminderJob(schedulingSvc, hub, companies, scope, cfg.ReminderLead, logger)
	for _, job := range []scheduler.Job{
		{Name: "session-sweep", Every: time.Second, Run: func(context.Context) error {
			monitor.Sweep(time.Now())
			return nil
		}},
		{Name: "appointment-reminders", Every: cfg.ReminderInterval, Run: reminders.Run},
		{Name: "rate-limiter-prune", Every: time.Minute, Run: func(context.Context) error {
			if n := limiter.Prune(time.Now(), rateLimiterIdle); n > 0 {
				logger.Debug().Int("pruned", n).Msg("rate limiter buckets pruned")
			}
			return nil
		}},
	} {
		if err := jobs.Add(job); err != nil {
			return nil, err
		}
	}

	return &server{echo: e, jobs: jobs}, nil
}
