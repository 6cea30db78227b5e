package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/wellnessgrid/backend/internal/appstate"
	"github.com/wellnessgrid/backend/internal/logger"
	"github.com/wellnessgrid/backend/internal/metrics"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/repository"
	"github.com/wellnessgrid/backend/internal/scoring"
)

// priorScores is how many earlier scores feed the trend label
const priorScores = 3

type wellnessService struct {
	entryRepo   repository.EntryRepository
	scoreRepo   repository.ScoreRepository
	profileRepo repository.ProfileRepository
	composer    *scoring.Composer
	state       *appstate.Store
	now         func() time.Time
}

// NewWellnessService creates a new wellness score service
func NewWellnessService(
	entryRepo repository.EntryRepository,
	scoreRepo repository.ScoreRepository,
	profileRepo repository.ProfileRepository,
	composer *scoring.Composer,
	state *appstate.Store,
) WellnessService {
	if composer == nil {
		composer = scoring.NewComposer()
	}
	return &wellnessService{
		entryRepo:   entryRepo,
		scoreRepo:   scoreRepo,
		profileRepo: profileRepo,
		composer:    composer,
		state:       state,
		now:         time.Now,
	}
}

func (s *wellnessService) CalculateScore(ctx context.Context, userID, period string) (score *models.HealthScore, err error) {
	period = scoring.NormalizePeriod(period)
	ctx, span := startSpan(ctx, "WellnessService.CalculateScore", userID, attribute.String("score.period", period))
	defer func() { endSpan(span, err) }()

	window, err := scoring.ParsePeriod(period)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}

	now := s.now()
	log := logger.Ctx(ctx).With(logger.String("period", period))

	var (
		profile *models.UserProfile
		entries []models.TrackingEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		p, err := s.profileRepo.GetByUserID(gctx, userID)
		if errors.Is(err, repository.ErrNotFound) {
			return ErrProfileNotFound
		}
		if err != nil {
			return fmt.Errorf("failed to get profile: %w", err)
		}
		profile = p
		return nil
	})
	g.Go(func() error {
		e, err := s.entryRepo.List(gctx, userID, models.EntryFilter{Since: now.Add(-window), Until: now})
		if err != nil {
			return fmt.Errorf("failed to get entries: %w", err)
		}
		entries = e
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	prior, err := s.scoreRepo.ListRecent(ctx, userID, period, priorScores)
	if err != nil {
		log.Warn("failed to load prior scores, trend will be insufficient_data", logger.Err(err))
		prior = nil
	}

	score, err = s.composer.Compose(userID, period, entries, profile.Conditions, prior, now)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}

	metrics.ScoresComputed.Inc()
	metrics.OverallScore.Observe(score.OverallScore)

	saved, err := s.scoreRepo.Create(ctx, score)
	if err != nil {
		metrics.PersistenceFailures.WithLabelValues("health_score").Inc()
		log.Error("failed to persist health score", logger.Err(err))
	} else if saved != nil && saved.ID != "" {
		score.ID = saved.ID
	}

	if s.state != nil {
		s.state.Dispatch(appstate.Event{Type: appstate.EventScoreComputed, UserID: userID, At: now, Score: score})
	}

	log.Info("wellness score computed",
		logger.Float64("overall_score", score.OverallScore),
		logger.Int("components", len(score.ComponentScores)),
		logger.String("trend", string(score.Trend)),
	)

	return score, nil
}

func (s *wellnessService) GetHistory(ctx context.Context, userID, period string, limit int) ([]models.HealthScore, error) {
	period = scoring.NormalizePeriod(period)
	if _, err := scoring.ParsePeriod(period); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPeriod, err)
	}
	if limit <= 0 || limit > 100 {
		limit = 30
	}

	scores, err := s.scoreRepo.ListRecent(ctx, userID, period, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to get score history: %w", err)
	}
	if scores == nil {
		scores = []models.HealthScore{}
	}
	return scores, nil
}
