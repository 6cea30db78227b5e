package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wellnessgrid/backend/internal/analytics"
	"github.com/wellnessgrid/backend/internal/appstate"
	"github.com/wellnessgrid/backend/internal/insights"
	"github.com/wellnessgrid/backend/internal/logger"
	"github.com/wellnessgrid/backend/internal/metrics"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/repository"
)

// insightAlertContext caps the alerts included in a prompt
const insightAlertContext = 10

type insightService struct {
	entryRepo   repository.EntryRepository
	insightRepo repository.InsightRepository
	alertRepo   repository.AlertRepository
	profileRepo repository.ProfileRepository
	generator   *insights.Generator
	rules       map[string]analytics.TrendRule
	state       *appstate.Store
	now         func() time.Time
}

// NewInsightService creates a new insight service
func NewInsightService(
	entryRepo repository.EntryRepository,
	insightRepo repository.InsightRepository,
	alertRepo repository.AlertRepository,
	profileRepo repository.ProfileRepository,
	generator *insights.Generator,
	state *appstate.Store,
) InsightService {
	if generator == nil {
		generator = insights.NewGenerator(nil, 0)
	}
	return &insightService{
		entryRepo:   entryRepo,
		insightRepo: insightRepo,
		alertRepo:   alertRepo,
		profileRepo: profileRepo,
		generator:   generator,
		rules:       analytics.DefaultTrendRules(),
		state:       state,
		now:         time.Now,
	}
}

// summaryWindow is the span of entries an insight of the given type covers
func summaryWindow(t models.InsightType) time.Duration {
	switch t {
	case models.InsightTypeDaily:
		return insights.DailyInterval
	case models.InsightTypeMonthly:
		return 30 * 24 * time.Hour
	default:
		return insights.WeeklyInterval
	}
}

func (s *insightService) Generate(ctx context.Context, userID string, insightType models.InsightType, reason string) (out *models.HealthInsight, err error) {
	ctx, span := startSpan(ctx, "InsightService.Generate", userID, attribute.String("insight.type", string(insightType)))
	defer func() { endSpan(span, err) }()

	now := s.now()
	from := now.Add(-summaryWindow(insightType))
	log := logger.Ctx(ctx).With(logger.String("insight_type", string(insightType)))

	entries, err := s.entryRepo.List(ctx, userID, models.EntryFilter{Since: from, Until: now})
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}

	// alerts and conditions only enrich the prompt
	recentAlerts, err := s.alertRepo.ListByUser(ctx, userID, models.AlertFilter{Limit: insightAlertContext})
	if err != nil {
		log.Warn("failed to load alerts for insight", logger.Err(err))
		recentAlerts = nil
	}
	var conditions []models.UserCondition
	profile, err := s.profileRepo.GetByUserID(ctx, userID)
	switch {
	case err == nil:
		conditions = profile.Conditions
	case !errors.Is(err, repository.ErrNotFound):
		log.Warn("failed to load profile for insight", logger.Err(err))
	}

	insight := s.generator.Generate(ctx, insights.Request{
		UserID:     userID,
		Type:       insightType,
		Reason:     reason,
		Entries:    entries,
		Trends:     Trends(entries, s.rules),
		Alerts:     recentAlerts,
		Conditions: conditions,
		From:       from,
		To:         now,
	})
	span.SetAttributes(attribute.Bool("insight.fallback", insight.Metadata.Fallback))

	saved, err := s.insightRepo.Create(ctx, &insight)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("insight").Inc()
		log.Error("failed to persist insight", logger.Err(err))
	} else if saved != nil && saved.ID != "" {
		insight.ID = saved.ID
	}

	if s.state != nil {
		snapshot := insight
		s.state.Dispatch(appstate.Event{Type: appstate.EventInsightGenerated, UserID: userID, At: now, Insight: &snapshot})
	}

	log.Info("insight generated",
		logger.Bool("fallback", insight.Metadata.Fallback),
		logger.Int("data_points", insight.Metadata.DataPointsAnalyzed),
		logger.Int64("processing_time_ms", insight.Metadata.ProcessingTimeMs),
	)

	return &insight, nil
}

func (s *insightService) EvaluateTrigger(ctx context.Context, userID string, newest *models.TrackingEntry) (*models.HealthInsight, error) {
	now := s.now()

	recent, err := s.entryRepo.List(ctx, userID, models.EntryFilter{Since: now.Add(-insights.WeeklyInterval), Until: now})
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}

	var lastGenerated *time.Time
	last, err := s.insightRepo.Latest(ctx, userID)
	switch {
	case err == nil:
		t := last.GeneratedAt
		lastGenerated = &t
	case !errors.Is(err, repository.ErrNotFound):
		return nil, fmt.Errorf("failed to get latest insight: %w", err)
	}

	decision := insights.Decide(newest, recent, lastGenerated, now)
	if !decision.Generate {
		return nil, nil
	}

	logger.Ctx(ctx).Debug("insight trigger fired",
		logger.String("insight_type", string(decision.Type)),
		logger.String("reason", decision.Reason),
	)
	return s.Generate(ctx, userID, decision.Type, decision.Reason)
}

func (s *insightService) Latest(ctx context.Context, userID string) (*models.HealthInsight, error) {
	in, err := s.insightRepo.Latest(ctx, userID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrInsightNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest insight: %w", err)
	}
	return in, nil
}
