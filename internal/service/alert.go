package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/wellnessgrid/backend/internal/alerts"
	"github.com/wellnessgrid/backend/internal/appstate"
	"github.com/wellnessgrid/backend/internal/logger"
	"github.com/wellnessgrid/backend/internal/metrics"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/repository"
)

type alertService struct {
	entryRepo repository.EntryRepository
	alertRepo repository.AlertRepository
	engine    *alerts.Engine
	state     *appstate.Store
	now       func() time.Time
}

// NewAlertService creates a new alert service
func NewAlertService(entryRepo repository.EntryRepository, alertRepo repository.AlertRepository, engine *alerts.Engine, state *appstate.Store) AlertService {
	if engine == nil {
		engine = alerts.NewEngine()
	}
	return &alertService{
		entryRepo: entryRepo,
		alertRepo: alertRepo,
		engine:    engine,
		state:     state,
		now:       time.Now,
	}
}

// Check evaluates the alert rules over the last week of entries and
// persists the alerts not already raised in the dedup window. Persistence
// failures are logged; the alert is still returned.
func (s *alertService) Check(ctx context.Context, userID string) (raised []models.UserAlert, err error) {
	ctx, span := startSpan(ctx, "AlertService.Check", userID)
	defer func() { endSpan(span, err) }()

	now := s.now()
	log := logger.Ctx(ctx)

	entries, err := s.entryRepo.List(ctx, userID, models.EntryFilter{Since: now.Add(-alerts.Window), Until: now})
	if err != nil {
		return nil, fmt.Errorf("failed to get entries: %w", err)
	}

	candidates := s.engine.Evaluate(userID, entries, now)
	if len(candidates) == 0 {
		return []models.UserAlert{}, nil
	}

	existing, err := s.alertRepo.ListSince(ctx, userID, now.Add(-alerts.DedupWindow))
	if err != nil {
		return nil, fmt.Errorf("failed to get recent alerts: %w", err)
	}

	fresh := alerts.Dedup(candidates, existing, now)
	if suppressed := len(candidates) - len(fresh); suppressed > 0 {
		metrics.AlertsSuppressed.Add(float64(suppressed))
	}

	raised = make([]models.UserAlert, 0, len(fresh))
	for i := range fresh {
		alert := fresh[i]
		saved, err := s.alertRepo.Create(ctx, &alert)
		if err != nil {
			metrics.PersistenceFailures.WithLabelValues("alert").Inc()
			log.Error("failed to persist alert",
				logger.String("alert_type", alert.AlertType),
				logger.Err(err),
			)
		} else if saved != nil {
			alert = *saved
		}
		metrics.AlertsRaised.WithLabelValues(alert.AlertType, string(alert.Severity)).Inc()
		raised = append(raised, alert)
	}

	if len(raised) > 0 {
		log.Info("alerts raised", logger.Int("count", len(raised)), logger.Int("suppressed", len(candidates)-len(fresh)))
		if s.state != nil {
			s.state.Dispatch(appstate.Event{Type: appstate.EventAlertsRaised, UserID: userID, At: now, Alerts: raised})
		}
	}

	return raised, nil
}

func (s *alertService) List(ctx context.Context, userID string, filter models.AlertFilter) ([]models.UserAlert, error) {
	if filter.Limit <= 0 || filter.Limit > 200 {
		filter.Limit = 50
	}

	list, err := s.alertRepo.ListByUser(ctx, userID, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	// expired alerts stay in storage but are not shown
	now := s.now()
	out := make([]models.UserAlert, 0, len(list))
	for _, a := range list {
		if a.ExpiresAt != nil && a.ExpiresAt.Before(now) {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (s *alertService) MarkRead(ctx context.Context, userID, alertID string) (*models.UserAlert, error) {
	read := true
	return s.setFlags(ctx, userID, alertID, &read, nil, appstate.EventAlertRead)
}

func (s *alertService) Dismiss(ctx context.Context, userID, alertID string) (*models.UserAlert, error) {
	dismissed := true
	return s.setFlags(ctx, userID, alertID, nil, &dismissed, appstate.EventAlertDismissed)
}

func (s *alertService) setFlags(ctx context.Context, userID, alertID string, read, dismissed *bool, ev appstate.EventType) (*models.UserAlert, error) {
	alert, err := s.alertRepo.SetFlags(ctx, userID, alertID, read, dismissed)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, ErrAlertNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}

	if s.state != nil {
		s.state.Dispatch(appstate.Event{Type: ev, UserID: userID, AlertID: alertID})
	}
	return alert, nil
}
