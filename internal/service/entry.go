package service

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/wellnessgrid/backend/internal/appstate"
	"github.com/wellnessgrid/backend/internal/logger"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/repository"
)

// DefaultTriggerTimeout bounds the background insight trigger evaluation
const DefaultTriggerTimeout = 45 * time.Second

// maxEntryLimit caps a single entry listing
const maxEntryLimit = 1000

type entryService struct {
	entryRepo      repository.EntryRepository
	analytics      AnalyticsService
	alerts         AlertService
	insights       InsightService
	state          *appstate.Store
	triggerTimeout time.Duration
	runAsync       func(fn func())
	now            func() time.Time
}

// EntryServiceOption configures an entry service
type EntryServiceOption func(*entryService)

// WithTriggerTimeout overrides DefaultTriggerTimeout
func WithTriggerTimeout(d time.Duration) EntryServiceOption {
	return func(s *entryService) {
		if d > 0 {
			s.triggerTimeout = d
		}
	}
}

// WithAsyncRunner replaces the goroutine used for post-write work
func WithAsyncRunner(run func(fn func())) EntryServiceOption {
	return func(s *entryService) {
		if run != nil {
			s.runAsync = run
		}
	}
}

// NewEntryService creates a new entry service. The analytics, alert and
// insight services are optional.
func NewEntryService(
	entryRepo repository.EntryRepository,
	analytics AnalyticsService,
	alerts AlertService,
	insights InsightService,
	state *appstate.Store,
	opts ...EntryServiceOption,
) EntryService {
	s := &entryService{
		entryRepo:      entryRepo,
		analytics:      analytics,
		alerts:         alerts,
		insights:       insights,
		state:          state,
		triggerTimeout: DefaultTriggerTimeout,
		runAsync:       func(fn func()) { go fn() },
		now:            time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *entryService) validate(req *models.CreateEntryRequest, now time.Time) error {
	if req == nil {
		return fmt.Errorf("%w: empty request", ErrInvalidEntry)
	}
	if !models.IsKnownTool(req.ToolID) {
		return fmt.Errorf("%w: unknown tool_id %q", ErrInvalidEntry, req.ToolID)
	}
	if len(req.Data) == 0 {
		return fmt.Errorf("%w: data must not be empty", ErrInvalidEntry)
	}
	if req.Timestamp != nil && req.Timestamp.After(now.Add(MaxClockSkew)) {
		return fmt.Errorf("%w: timestamp is in the future", ErrInvalidEntry)
	}
	return nil
}

func (s *entryService) Record(ctx context.Context, userID string, req *models.CreateEntryRequest) (result *models.RecordEntryResult, err error) {
	ctx, span := startSpan(ctx, "EntryService.Record", userID)
	defer func() { endSpan(span, err) }()

	now := s.now()
	if err := s.validate(req, now); err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("entry.tool_id", req.ToolID))

	id, err := ResolveEntryID(req.ID, now)
	if err != nil {
		if req.ID == "" {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %w", ErrInvalidEntry, err)
	}

	ts := now
	if req.Timestamp != nil {
		ts = *req.Timestamp
	}

	entry, err := s.entryRepo.Create(ctx, &models.TrackingEntry{
		ID:        id,
		UserID:    userID,
		ToolID:    req.ToolID,
		Data:      req.Data,
		Timestamp: ts.UTC(),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	log := logger.Ctx(ctx).With(logger.String("entry_id", entry.ID), logger.String("tool_id", entry.ToolID))
	log.Info("entry recorded")

	if s.state != nil {
		recorded := *entry
		s.state.Dispatch(appstate.Event{Type: appstate.EventEntryRecorded, UserID: userID, At: now, Entry: &recorded})
	}

	if s.analytics != nil {
		if err := s.analytics.Invalidate(ctx, userID); err != nil {
			log.Warn("failed to invalidate analytics cache", logger.Err(err))
		}
	}

	raised := []models.UserAlert{}
	if s.alerts != nil {
		alerts, err := s.alerts.Check(ctx, userID)
		if err != nil {
			log.Error("alert check failed", logger.Err(err))
		} else {
			raised = alerts
		}
	}

	if s.insights != nil {
		s.triggerInsight(ctx, userID, *entry)
	}

	return &models.RecordEntryResult{Entry: entry, Alerts: raised}, nil
}

// triggerInsight evaluates the insight trigger without holding up the
// request. The request context is detached so cancellation after the
// response does not abort generation.
func (s *entryService) triggerInsight(ctx context.Context, userID string, entry models.TrackingEntry) {
	bg := context.WithoutCancel(ctx)
	s.runAsync(func() {
		tctx, cancel := context.WithTimeout(bg, s.triggerTimeout)
		defer cancel()

		if _, err := s.insights.EvaluateTrigger(tctx, userID, &entry); err != nil {
			logger.Ctx(tctx).Warn("insight trigger evaluation failed", logger.Err(err))
		}
	})
}

func (s *entryService) List(ctx context.Context, userID string, filter models.EntryFilter) ([]models.TrackingEntry, error) {
	if filter.ToolID != "" && !models.IsKnownTool(filter.ToolID) {
		return nil, fmt.Errorf("%w: unknown tool_id %q", ErrInvalidEntry, filter.ToolID)
	}
	if filter.Limit <= 0 || filter.Limit > maxEntryLimit {
		filter.Limit = maxEntryLimit
	}

	entries, err := s.entryRepo.List(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	if entries == nil {
		entries = []models.TrackingEntry{}
	}

	if s.state != nil && filter.ToolID == "" && filter.Since.IsZero() && filter.Until.IsZero() {
		s.state.Dispatch(appstate.Event{Type: appstate.EventEntriesLoaded, UserID: userID, Entries: entries})
	}
	return entries, nil
}
