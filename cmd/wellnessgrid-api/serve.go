package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/wellnessgrid/backend/internal/config"
	"github.com/wellnessgrid/backend/internal/handlers"
	"github.com/wellnessgrid/backend/internal/logger"
	"github.com/wellnessgrid/backend/internal/middleware"
	"github.com/wellnessgrid/backend/internal/telemetry"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	Long:  `Start the HTTP API server and listen for requests.`,
	RunE:  runServe,
}

var (
	port string
)

func init() {
	serveCmd.Flags().StringVarP(&port, "port", "p", "", "Port to listen on (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := loadConfig()
	if err != nil {
		return err
	}
	defer logger.Sync(log)

	// Override port from flag if provided
	if port != "" {
		cfg.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("starting wellnessgrid api",
		logger.String("env", cfg.Server.Env),
		logger.String("store", cfg.Store.Driver),
		logger.String("cache", cfg.Cache.Backend),
		logger.String("textgen", cfg.TextGen.Provider),
	)

	shutdownTracing, err := telemetry.Setup(telemetry.Config{
		Enabled:     cfg.Tracing.Enabled,
		ServiceName: cfg.Tracing.ServiceName,
		Environment: cfg.Server.Env,
		SampleRatio: cfg.Tracing.SampleRatio,
	})
	if err != nil {
		return fmt.Errorf("failed to set up tracing: %w", err)
	}

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("failed to close resources", logger.Err(err))
		}
	}()

	limiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window, "api")
	defer limiter.Close()

	router := newRouter(cfg, a, log, limiter)

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", logger.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
	case <-ctx.Done():
	}

	log.Info("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Warn("failed to flush traces", logger.Err(err))
	}
	return nil
}

func newRouter(cfg *config.Config, a *app, log logger.Logger, limiter *middleware.RateLimiter) *gin.Engine {
	if cfg.Server.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	if err := handlers.RegisterValidators(); err != nil {
		log.Warn("failed to register validators", logger.Err(err))
	}

	entryHandler := handlers.NewEntryHandler(a.entries)
	analyticsHandler := handlers.NewAnalyticsHandler(a.analytics)
	scoreHandler := handlers.NewScoreHandler(a.wellness)
	alertHandler := handlers.NewAlertHandler(a.alerts)
	insightsHandler := handlers.NewInsightsHandler(a.insights)
	stateHandler := handlers.NewStateHandler(a.state)
	healthHandler := handlers.NewHealthHandler(cfg.Server.Env, a.checks)

	var verifier middleware.TokenVerifier = middleware.SupabaseVerifier{Client: a.supabase}
	if cfg.Supabase.JWTSecret != "" {
		verifier = middleware.JWTVerifier{Secret: []byte(cfg.Supabase.JWTSecret), Audience: "authenticated"}
	}

	router := gin.New()

	// Middleware
	router.Use(gin.Recovery())
	if cfg.Tracing.Enabled {
		router.Use(otelgin.Middleware(cfg.Tracing.ServiceName))
	}
	router.Use(middleware.RequestLogger(log))
	router.Use(middleware.Metrics())
	router.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	router.Use(middleware.SecurityHeaders(cfg.Server.IsProduction()))

	router.GET("/health", healthHandler.Health)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1 routes
	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(verifier))
	v1.Use(limiter.Middleware())
	v1.Use(middleware.Idempotency(a.cache, 0))
	{
		v1.POST("/entries", entryHandler.CreateEntry)
		v1.GET("/entries", entryHandler.GetEntries)

		v1.GET("/analytics", analyticsHandler.GetAnalytics)

		v1.POST("/score", scoreHandler.CalculateScore)
		v1.GET("/score/history", scoreHandler.GetHistory)

		v1.GET("/alerts", alertHandler.GetAlerts)
		v1.POST("/alerts/check", alertHandler.CheckAlerts)
		v1.POST("/alerts/:id/read", alertHandler.MarkRead)
		v1.POST("/alerts/:id/dismiss", alertHandler.Dismiss)

		v1.POST("/insights", insightsHandler.GenerateInsight)
		v1.GET("/insights/latest", insightsHandler.GetLatest)

		v1.GET("/state", stateHandler.GetState)
		v1.GET("/state/events", stateHandler.GetEvents)
	}

	return router
}
