package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/wellnessgrid/backend/internal/alerts"
	"github.com/wellnessgrid/backend/internal/appstate"
	"github.com/wellnessgrid/backend/internal/cache"
	"github.com/wellnessgrid/backend/internal/config"
	"github.com/wellnessgrid/backend/internal/handlers"
	"github.com/wellnessgrid/backend/internal/insights"
	"github.com/wellnessgrid/backend/internal/logger"
	"github.com/wellnessgrid/backend/internal/repository"
	"github.com/wellnessgrid/backend/internal/repository/sqlstore"
	"github.com/wellnessgrid/backend/internal/scoring"
	"github.com/wellnessgrid/backend/internal/service"
	"github.com/wellnessgrid/backend/internal/textgen"
	"github.com/wellnessgrid/backend/pkg/supabase"
)

// repositories groups the store-backed repositories
type repositories struct {
	entries  repository.EntryRepository
	scores   repository.ScoreRepository
	insights repository.InsightRepository
	alerts   repository.AlertRepository
	profiles repository.ProfileRepository
}

// app holds everything the commands share
type app struct {
	cfg      *config.Config
	supabase *supabase.Client
	repos    repositories
	cache    cache.Cache
	state    *appstate.Store

	entries   service.EntryService
	analytics service.AnalyticsService
	wellness  service.WellnessService
	alerts    service.AlertService
	insights  service.InsightService

	checks  map[string]handlers.HealthCheck
	closers []func() error
}

// newApp connects the store and cache and builds the services
func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{
		cfg:    cfg,
		state:  appstate.NewStore(appstate.DefaultLogSize),
		checks: map[string]handlers.HealthCheck{},
	}
	if cfg.Supabase.URL != "" {
		a.supabase = supabase.NewClient(cfg.Supabase.URL, cfg.Supabase.ServiceKey)
	}

	if err := a.openStore(ctx); err != nil {
		a.Close()
		return nil, err
	}
	if err := a.openCache(ctx); err != nil {
		a.Close()
		return nil, err
	}

	tg, err := textgen.New(textgen.Config{
		Provider: cfg.TextGen.Provider,
		BaseURL:  cfg.TextGen.BaseURL,
		APIKey:   cfg.TextGen.APIKey,
		Timeout:  cfg.TextGen.Timeout,
		Options: textgen.Options{
			Model:       cfg.TextGen.Model,
			MaxTokens:   cfg.TextGen.MaxTokens,
			Temperature: cfg.TextGen.Temperature,
		},
	})
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("failed to create text generator: %w", err)
	}

	a.wellness = service.NewWellnessService(a.repos.entries, a.repos.scores, a.repos.profiles, scoring.NewComposer(), a.state)
	a.analytics = service.NewAnalyticsService(a.repos.entries, a.wellness, a.cache, service.AnalyticsConfig{
		CacheTTL: cfg.Cache.TTL,
		Location: cfg.Analytics.Location(),
	}, a.state)
	a.alerts = service.NewAlertService(a.repos.entries, a.repos.alerts, alerts.NewEngine(), a.state)
	a.insights = service.NewInsightService(
		a.repos.entries,
		a.repos.insights,
		a.repos.alerts,
		a.repos.profiles,
		insights.NewGenerator(tg, cfg.TextGen.Timeout),
		a.state,
	)
	a.entries = service.NewEntryService(
		a.repos.entries,
		a.analytics,
		a.alerts,
		a.insights,
		a.state,
		service.WithTriggerTimeout(cfg.Insights.TriggerTimeout),
	)

	return a, nil
}

func (a *app) openStore(ctx context.Context) error {
	switch a.cfg.Store.Driver {
	case config.StoreSupabase:
		a.repos = repositories{
			entries:  repository.NewEntryRepository(a.supabase),
			scores:   repository.NewScoreRepository(a.supabase),
			insights: repository.NewInsightRepository(a.supabase),
			alerts:   repository.NewAlertRepository(a.supabase),
			profiles: repository.NewProfileRepository(a.supabase),
		}
		return nil

	case config.StorePostgres, config.StoreSQLite:
		store, err := sqlstore.Open(sqlstore.Config{
			Driver:        a.cfg.Store.Driver,
			DSN:           a.cfg.Store.DSN,
			SlowThreshold: a.cfg.Store.SlowThreshold,
		})
		if err != nil {
			return fmt.Errorf("failed to open %s store: %w", a.cfg.Store.Driver, err)
		}
		a.closers = append(a.closers, store.Close)
		a.checks["store"] = store.Ping

		if a.cfg.Store.AutoMigrate {
			if err := store.Migrate(ctx); err != nil {
				return err
			}
			logger.Info("store migrated", logger.String("driver", a.cfg.Store.Driver))
		}

		a.repos = repositories{
			entries:  store.Entries(),
			scores:   store.Scores(),
			insights: store.Insights(),
			alerts:   store.Alerts(),
			profiles: store.Profiles(),
		}
		return nil

	default:
		return fmt.Errorf("unknown store driver %q", a.cfg.Store.Driver)
	}
}

func (a *app) openCache(ctx context.Context) error {
	switch a.cfg.Cache.Backend {
	case config.CacheRedis:
		rc, err := cache.NewRedis(ctx, cache.RedisConfig{
			Addr:      a.cfg.Cache.RedisAddr,
			Password:  a.cfg.Cache.RedisPassword,
			DB:        a.cfg.Cache.RedisDB,
			KeyPrefix: a.cfg.Cache.KeyPrefix,
		})
		if err != nil {
			return fmt.Errorf("failed to connect to redis: %w", err)
		}
		a.cache = rc
		a.closers = append(a.closers, rc.Close)
		a.checks["cache"] = rc.Ping
	default:
		a.cache = cache.NewMemory()
	}
	return nil
}

// Close releases the store and cache connections
func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
