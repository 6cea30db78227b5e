package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wellnessgrid/backend/internal/analytics"
	"github.com/wellnessgrid/backend/internal/appstate"
	"github.com/wellnessgrid/backend/internal/cache"
	"github.com/wellnessgrid/backend/internal/logger"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/repository"
	"github.com/wellnessgrid/backend/internal/scoring"
)

// DefaultTimeRange is used when an analytics request names no range
const DefaultTimeRange = "30d"

// AnalyticsConfig tunes the analytics service
type AnalyticsConfig struct {
	CacheTTL time.Duration
	// Location defines calendar days for correlations and streaks
	Location *time.Location
}

type analyticsService struct {
	entryRepo repository.EntryRepository
	wellness  WellnessService
	cache     *cache.ReadThrough[models.AnalyticsPayload]
	rules     map[string]analytics.TrendRule
	pairs     []analytics.MetricPair
	loc       *time.Location
	state     *appstate.Store
	now       func() time.Time
}

// NewAnalyticsService creates a new analytics service. A nil cache uses an
// in-memory cache.
func NewAnalyticsService(entryRepo repository.EntryRepository, wellness WellnessService, c cache.Cache, cfg AnalyticsConfig, state *appstate.Store) AnalyticsService {
	if c == nil {
		c = cache.NewMemory()
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &analyticsService{
		entryRepo: entryRepo,
		wellness:  wellness,
		cache:     cache.NewReadThrough[models.AnalyticsPayload](c, cfg.CacheTTL),
		rules:     analytics.DefaultTrendRules(),
		pairs:     analytics.DefaultCorrelationPairs,
		loc:       loc,
		state:     state,
		now:       time.Now,
	}
}

func (s *analyticsService) GetAnalytics(ctx context.Context, userID string, opts models.AnalyticsOptions) (payload *models.AnalyticsPayload, err error) {
	if opts.TimeRange == "" {
		opts.TimeRange = DefaultTimeRange
	}
	opts.TimeRange = scoring.NormalizePeriod(opts.TimeRange)
	ctx, span := startSpan(ctx, "AnalyticsService.GetAnalytics", userID,
		attribute.String("analytics.range", opts.TimeRange),
		attribute.Bool("analytics.correlations", opts.IncludeCorrelations),
		attribute.Bool("analytics.score", opts.IncludeScore),
	)
	defer func() { endSpan(span, err) }()

	window, err := scoring.ParsePeriod(opts.TimeRange)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}

	var flags []string
	if opts.IncludeCorrelations {
		flags = append(flags, "correlations")
	}
	if opts.IncludeScore {
		flags = append(flags, "score")
	}
	key := cache.AnalyticsKey(userID, opts.TimeRange, flags...)

	result, hit, err := s.cache.Get(ctx, key, func(ctx context.Context) (models.AnalyticsPayload, error) {
		return s.compute(ctx, userID, opts, window)
	})
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit))

	result.Cached = hit
	if !hit && s.state != nil {
		snapshot := result
		s.state.Dispatch(appstate.Event{Type: appstate.EventAnalyticsRefreshed, UserID: userID, Analytics: &snapshot})
	}
	return &result, nil
}

func (s *analyticsService) Invalidate(ctx context.Context, userID string) error {
	if err := s.cache.Invalidate(ctx, cache.UserPrefix(userID)); err != nil {
		return fmt.Errorf("failed to invalidate analytics cache: %w", err)
	}
	return nil
}

func (s *analyticsService) compute(ctx context.Context, userID string, opts models.AnalyticsOptions, window time.Duration) (models.AnalyticsPayload, error) {
	now := s.now()
	// streaks need the whole history; everything else uses the window
	history, err := s.entryRepo.List(ctx, userID, models.EntryFilter{Until: now})
	if err != nil {
		return models.AnalyticsPayload{}, fmt.Errorf("failed to get entries: %w", err)
	}
	entries := withinWindow(history, now.Add(-window))

	payload := models.AnalyticsPayload{
		UserID:       userID,
		TimeRange:    opts.TimeRange,
		Trends:       Trends(entries, s.rules),
		Correlations: []models.CorrelationData{},
		Streaks:      Streaks(history, now, s.loc),
		DataPoints:   len(entries),
		GeneratedAt:  now,
	}

	if opts.IncludeCorrelations {
		payload.Correlations = Correlations(entries, s.pairs, s.loc)
	}

	if opts.IncludeScore && s.wellness != nil {
		score, err := s.wellness.CalculateScore(ctx, userID, scoring.DefaultPeriod)
		switch {
		case errors.Is(err, ErrProfileNotFound):
			logger.Ctx(ctx).Debug("no profile, analytics returned without score")
		case err != nil:
			logger.Ctx(ctx).Warn("score unavailable for analytics", logger.Err(err))
		default:
			payload.Score = score
		}
	}

	return payload, nil
}

// Trends computes a trend for every rule with enough observations, ordered
// by metric name.
func Trends(entries []models.TrackingEntry, rules map[string]analytics.TrendRule) []models.HealthTrend {
	names := make([]string, 0, len(rules))
	for name := range rules {
		names = append(names, name)
	}
	sort.Strings(names)

	trends := make([]models.HealthTrend, 0, len(names))
	for _, name := range names {
		m, ok := analytics.LookupMetric(name)
		if !ok {
			continue
		}
		if t, ok := analytics.CalculateTrend(analytics.Extract(entries, m), rules[name]); ok {
			trends = append(trends, *t)
		}
	}
	return trends
}

// Correlations computes the configured metric pairs that have enough
// paired days.
func Correlations(entries []models.TrackingEntry, pairs []analytics.MetricPair, loc *time.Location) []models.CorrelationData {
	out := make([]models.CorrelationData, 0, len(pairs))
	for _, p := range pairs {
		a, okA := analytics.LookupMetric(p.A)
		b, okB := analytics.LookupMetric(p.B)
		if !okA || !okB {
			continue
		}
		if c, ok := analytics.CalculateCorrelation(entries, a, b, loc); ok {
			out = append(out, *c)
		}
	}
	return out
}

// withinWindow keeps entries at or after since
func withinWindow(entries []models.TrackingEntry, since time.Time) []models.TrackingEntry {
	out := make([]models.TrackingEntry, 0, len(entries))
	for _, e := range entries {
		if !e.Timestamp.Before(since) {
			out = append(out, e)
		}
	}
	return out
}

// Streaks computes a streak per tracker tool with at least one entry
func Streaks(entries []models.TrackingEntry, now time.Time, loc *time.Location) []models.StreakData {
	byTool := make(map[string][]models.TrackingEntry)
	for _, e := range entries {
		byTool[e.ToolID] = append(byTool[e.ToolID], e)
	}

	tools := make([]string, 0, len(byTool))
	for tool := range byTool {
		tools = append(tools, tool)
	}
	sort.Strings(tools)

	streaks := make([]models.StreakData, 0, len(tools))
	for _, tool := range tools {
		streaks = append(streaks, analytics.CalculateStreak(tool, byTool[tool], now, loc))
	}
	return streaks
}
