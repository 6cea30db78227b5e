package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/repository"
	"github.com/wellnessgrid/backend/internal/textgen"
)

var errStorage = errors.New("storage unavailable")

// mockEntryRepository is an in-memory EntryRepository
type mockEntryRepository struct {
	mu        sync.Mutex
	entries   []models.TrackingEntry
	listCalls int
	createErr error
}

func (m *mockEntryRepository) Create(ctx context.Context, entry *models.TrackingEntry) (*models.TrackingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	e := *entry
	if e.ID == "" {
		e.ID = fmt.Sprintf("entry-%d", len(m.entries)+1)
	}
	e.CreatedAt = e.Timestamp
	m.entries = append(m.entries, e)
	return &e, nil
}

func (m *mockEntryRepository) List(ctx context.Context, userID string, filter models.EntryFilter) ([]models.TrackingEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.listCalls++

	var out []models.TrackingEntry
	for _, e := range m.entries {
		if e.UserID != userID {
			continue
		}
		if filter.ToolID != "" && e.ToolID != filter.ToolID {
			continue
		}
		if !filter.Since.IsZero() && e.Timestamp.Before(filter.Since) {
			continue
		}
		if !filter.Until.IsZero() && e.Timestamp.After(filter.Until) {
			continue
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (m *mockEntryRepository) calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.listCalls
}

// mockScoreRepository keeps scores in insertion order
type mockScoreRepository struct {
	scores    []models.HealthScore
	createErr error
	listErr   error
}

func (m *mockScoreRepository) Create(ctx context.Context, score *models.HealthScore) (*models.HealthScore, error) {
	if m.createErr != nil {
		return nil, m.createErr
	}
	s := *score
	s.ID = fmt.Sprintf("score-%d", len(m.scores)+1)
	m.scores = append(m.scores, s)
	return &s, nil
}

func (m *mockScoreRepository) ListRecent(ctx context.Context, userID, period string, limit int) ([]models.HealthScore, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	var out []models.HealthScore
	for i := len(m.scores) - 1; i >= 0; i-- {
		s := m.scores[i]
		if s.UserID == userID && s.Period == period {
			out = append(out, s)
		}
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

// mockProfileRepository returns profiles by user id
type mockProfileRepository struct {
	profiles map[string]*models.UserProfile
	err      error
}

func (m *mockProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	if m.err != nil {
		return nil, m.err
	}
	p, ok := m.profiles[userID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return p, nil
}

// mockAlertRepository is an in-memory AlertRepository
type mockAlertRepository struct {
	mu        sync.Mutex
	alerts    []models.UserAlert
	createErr error
}

func (m *mockAlertRepository) Create(ctx context.Context, alert *models.UserAlert) (*models.UserAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.createErr != nil {
		return nil, m.createErr
	}
	a := *alert
	a.ID = fmt.Sprintf("alert-%d", len(m.alerts)+1)
	m.alerts = append(m.alerts, a)
	return &a, nil
}

func (m *mockAlertRepository) ListByUser(ctx context.Context, userID string, filter models.AlertFilter) ([]models.UserAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserAlert
	for _, a := range m.alerts {
		if a.UserID != userID {
			continue
		}
		if !filter.IncludeDismissed && a.IsDismissed {
			continue
		}
		if filter.UnreadOnly && a.IsRead {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (m *mockAlertRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]models.UserAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.UserAlert
	for _, a := range m.alerts {
		if a.UserID == userID && !a.CreatedAt.Before(since) {
			out = append(out, a)
		}
	}
	return out, nil
}

func (m *mockAlertRepository) SetFlags(ctx context.Context, userID, id string, read, dismissed *bool) (*models.UserAlert, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.alerts {
		a := &m.alerts[i]
		if a.ID != id || a.UserID != userID {
			continue
		}
		if read != nil {
			a.IsRead = *read
		}
		if dismissed != nil {
			a.IsDismissed = *dismissed
		}
		out := *a
		return &out, nil
	}
	return nil, repository.ErrNotFound
}

// mockInsightRepository stores insights in order
type mockInsightRepository struct {
	mu       sync.Mutex
	insights []models.HealthInsight
}

func (m *mockInsightRepository) Create(ctx context.Context, insight *models.HealthInsight) (*models.HealthInsight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	in := *insight
	in.ID = fmt.Sprintf("insight-%d", len(m.insights)+1)
	m.insights = append(m.insights, in)
	return &in, nil
}

func (m *mockInsightRepository) Latest(ctx context.Context, userID string) (*models.HealthInsight, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var latest *models.HealthInsight
	for i := range m.insights {
		in := m.insights[i]
		if in.UserID != userID {
			continue
		}
		if latest == nil || in.GeneratedAt.After(latest.GeneratedAt) {
			latest = &in
		}
	}
	if latest == nil {
		return nil, repository.ErrNotFound
	}
	return latest, nil
}

func (m *mockInsightRepository) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.insights)
}

// stubTextGen returns a fixed reply
type stubTextGen struct {
	content string
	fail    bool
	calls   int
}

func (s *stubTextGen) Name() string { return "stub" }

func (s *stubTextGen) Generate(ctx context.Context, prompt string) textgen.Result {
	s.calls++
	if s.fail {
		return textgen.Failed("stub-model", errors.New("unavailable"))
	}
	return textgen.Result{Success: true, Content: s.content, Model: "stub-model"}
}

func entryAt(userID, tool string, ts time.Time, data map[string]any) models.TrackingEntry {
	return models.TrackingEntry{
		ID:        fmt.Sprintf("%s-%s-%d", userID, tool, ts.Unix()),
		UserID:    userID,
		ToolID:    tool,
		Data:      data,
		Timestamp: ts,
	}
}
