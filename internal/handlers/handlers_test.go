package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wellnessgrid/backend/internal/apierror"
	"github.com/wellnessgrid/backend/internal/appstate"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/service"
)

const testUser = "user-1"

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	if err := RegisterValidators(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	os.Exit(m.Run())
}

type fakeEntryService struct {
	recordErr  error
	lastReq    *models.CreateEntryRequest
	lastFilter models.EntryFilter
}

func (f *fakeEntryService) Record(ctx context.Context, userID string, req *models.CreateEntryRequest) (*models.RecordEntryResult, error) {
	f.lastReq = req
	if f.recordErr != nil {
		return nil, f.recordErr
	}
	return &models.RecordEntryResult{
		Entry:  &models.TrackingEntry{ID: "e1", UserID: userID, ToolID: req.ToolID, Data: req.Data},
		Alerts: []models.UserAlert{{ID: "a1", AlertType: "glucose_high", Severity: models.SeverityUrgent}},
	}, nil
}

func (f *fakeEntryService) List(ctx context.Context, userID string, filter models.EntryFilter) ([]models.TrackingEntry, error) {
	f.lastFilter = filter
	return []models.TrackingEntry{{ID: "e1", UserID: userID, ToolID: models.ToolMood}}, nil
}

type fakeAnalyticsService struct {
	lastOpts models.AnalyticsOptions
	err      error
}

func (f *fakeAnalyticsService) GetAnalytics(ctx context.Context, userID string, opts models.AnalyticsOptions) (*models.AnalyticsPayload, error) {
	f.lastOpts = opts
	if f.err != nil {
		return nil, f.err
	}
	return &models.AnalyticsPayload{UserID: userID, TimeRange: opts.TimeRange}, nil
}

func (f *fakeAnalyticsService) Invalidate(ctx context.Context, userID string) error { return nil }

type fakeWellnessService struct {
	err       error
	lastLimit int
}

func (f *fakeWellnessService) CalculateScore(ctx context.Context, userID, period string) (*models.HealthScore, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &models.HealthScore{ID: "s1", UserID: userID, Period: period, OverallScore: 82}, nil
}

func (f *fakeWellnessService) GetHistory(ctx context.Context, userID, period string, limit int) ([]models.HealthScore, error) {
	f.lastLimit = limit
	if f.err != nil {
		return nil, f.err
	}
	return []models.HealthScore{{ID: "s2"}, {ID: "s1"}}, nil
}

type fakeAlertService struct {
	alerts []models.UserAlert
}

func (f *fakeAlertService) Check(ctx context.Context, userID string) ([]models.UserAlert, error) {
	return f.alerts, nil
}

func (f *fakeAlertService) List(ctx context.Context, userID string, filter models.AlertFilter) ([]models.UserAlert, error) {
	out := []models.UserAlert{}
	for _, a := range f.alerts {
		if filter.UnreadOnly && a.IsRead {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeAlertService) find(id string) (*models.UserAlert, error) {
	for i := range f.alerts {
		if f.alerts[i].ID == id {
			return &f.alerts[i], nil
		}
	}
	return nil, fmt.Errorf("lookup %s: %w", id, service.ErrAlertNotFound)
}

func (f *fakeAlertService) MarkRead(ctx context.Context, userID, alertID string) (*models.UserAlert, error) {
	a, err := f.find(alertID)
	if err != nil {
		return nil, err
	}
	a.IsRead = true
	return a, nil
}

func (f *fakeAlertService) Dismiss(ctx context.Context, userID, alertID string) (*models.UserAlert, error) {
	a, err := f.find(alertID)
	if err != nil {
		return nil, err
	}
	a.IsDismissed = true
	return a, nil
}

type fakeInsightService struct {
	latest   *models.HealthInsight
	lastType models.InsightType
}

func (f *fakeInsightService) Generate(ctx context.Context, userID string, insightType models.InsightType, reason string) (*models.HealthInsight, error) {
	f.lastType = insightType
	return &models.HealthInsight{ID: "i1", UserID: userID, InsightType: insightType}, nil
}

func (f *fakeInsightService) EvaluateTrigger(ctx context.Context, userID string, newest *models.TrackingEntry) (*models.HealthInsight, error) {
	return nil, nil
}

func (f *fakeInsightService) Latest(ctx context.Context, userID string) (*models.HealthInsight, error) {
	if f.latest == nil {
		return nil, service.ErrInsightNotFound
	}
	return f.latest, nil
}

type testServer struct {
	router    *gin.Engine
	entries   *fakeEntryService
	analytics *fakeAnalyticsService
	wellness  *fakeWellnessService
	alerts    *fakeAlertService
	insights  *fakeInsightService
	state     *appstate.Store
}

func newTestServer(authenticated bool) *testServer {
	ts := &testServer{
		entries:   &fakeEntryService{},
		analytics: &fakeAnalyticsService{},
		wellness:  &fakeWellnessService{},
		alerts: &fakeAlertService{alerts: []models.UserAlert{
			{ID: "a1", UserID: testUser, AlertType: "low_mood", Severity: models.SeverityWarning},
			{ID: "a2", UserID: testUser, AlertType: "short_sleep", Severity: models.SeverityWarning, IsRead: true},
		}},
		insights: &fakeInsightService{},
		state:    appstate.NewStore(10),
	}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("request_id", "req-test")
		if authenticated {
			c.Set("user_id", testUser)
		}
		c.Next()
	})

	entryHandler := NewEntryHandler(ts.entries)
	analyticsHandler := NewAnalyticsHandler(ts.analytics)
	scoreHandler := NewScoreHandler(ts.wellness)
	alertHandler := NewAlertHandler(ts.alerts)
	insightsHandler := NewInsightsHandler(ts.insights)
	stateHandler := NewStateHandler(ts.state)

	v1 := r.Group("/api/v1")
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

	ts.router = r
	return ts
}

func (ts *testServer) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)
	return w
}

func decodeProblem(t *testing.T, w *httptest.ResponseRecorder) apierror.ProblemDetails {
	t.Helper()
	assert.Equal(t, apierror.ContentTypeProblemJSON, w.Header().Get("Content-Type"))
	var p apierror.ProblemDetails
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &p))
	return p
}

func TestCreateEntry(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodPost, "/api/v1/entries", map[string]any{
		"tool_id": models.ToolGlucose,
		"data":    map[string]any{"glucose": 260},
	})

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var result models.RecordEntryResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &result))
	assert.Equal(t, "e1", result.Entry.ID)
	assert.Len(t, result.Alerts, 1)
	require.NotNil(t, ts.entries.lastReq)
	assert.Equal(t, models.ToolGlucose, ts.entries.lastReq.ToolID)
}

func TestCreateEntryValidation(t *testing.T) {
	tests := []struct {
		name      string
		body      any
		wantField string
		wantCode  string
	}{
		{"missing tool", map[string]any{"data": map[string]any{"mood": 5}}, "tool_id", "required"},
		{"unknown tool", map[string]any{"tool_id": "weather-tracker", "data": map[string]any{"x": 1}}, "tool_id", "toolid"},
		{"missing data", map[string]any{"tool_id": models.ToolMood}, "data", "required"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(true)
			w := ts.do(t, http.MethodPost, "/api/v1/entries", tt.body)

			require.Equal(t, http.StatusBadRequest, w.Code)
			p := decodeProblem(t, w)
			assert.Equal(t, apierror.TypeValidation, p.Type)
			require.Len(t, p.Errors, 1)
			assert.Equal(t, tt.wantField, p.Errors[0].Field)
			assert.Equal(t, tt.wantCode, p.Errors[0].Code)
			assert.Nil(t, ts.entries.lastReq, "service must not be called")
		})
	}
}

func TestCreateEntryMalformedJSON(t *testing.T) {
	ts := newTestServer(true)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/entries", bytes.NewBufferString("{not json"))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	ts.router.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, apierror.TypeBadRequest, decodeProblem(t, w).Type)
}

func TestCreateEntryServiceErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{"invalid uuid", fmt.Errorf("%w: %w", service.ErrInvalidEntry, service.ErrInvalidUUID), http.StatusBadRequest, apierror.TypeInvalidUUID},
		{"not v7", fmt.Errorf("%w: %w", service.ErrInvalidEntry, service.ErrNotUUIDv7), http.StatusBadRequest, apierror.TypeInvalidUUID},
		{"future id", fmt.Errorf("%w: %w", service.ErrInvalidEntry, service.ErrFutureTimestamp), http.StatusBadRequest, apierror.TypeFutureTimestamp},
		{"invalid entry", fmt.Errorf("%w: data must not be empty", service.ErrInvalidEntry), http.StatusBadRequest, apierror.TypeBadRequest},
		{"storage", errors.New("connection refused"), http.StatusInternalServerError, apierror.TypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(true)
			ts.entries.recordErr = tt.err

			w := ts.do(t, http.MethodPost, "/api/v1/entries", map[string]any{
				"id":      "not-a-uuid",
				"tool_id": models.ToolMood,
				"data":    map[string]any{"mood": 4},
			})

			require.Equal(t, tt.wantStatus, w.Code)
			p := decodeProblem(t, w)
			assert.Equal(t, tt.wantType, p.Type)
			assert.Equal(t, "req-test", p.RequestID)
			assert.NotContains(t, p.Detail, "connection refused")
		})
	}
}

func TestGetEntriesFilters(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodGet, "/api/v1/entries?tool_id=mood-tracker&since=2025-05-01T00:00:00Z&limit=20", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.ToolMood, ts.entries.lastFilter.ToolID)
	assert.Equal(t, time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC), ts.entries.lastFilter.Since.UTC())
	assert.True(t, ts.entries.lastFilter.Until.IsZero())
	assert.Equal(t, 20, ts.entries.lastFilter.Limit)
}

func TestGetEntriesInvalidQuery(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodGet, "/api/v1/entries?tool_id=nope&since=yesterday&limit=-1", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	p := decodeProblem(t, w)
	assert.Equal(t, apierror.TypeValidation, p.Type)
	fields := make([]string, 0, len(p.Errors))
	for _, fe := range p.Errors {
		fields = append(fields, fe.Field)
	}
	assert.ElementsMatch(t, []string{"tool_id", "since", "limit"}, fields)
}

func TestUnauthenticated(t *testing.T) {
	ts := newTestServer(false)

	for _, path := range []string{"/api/v1/entries", "/api/v1/state", "/api/v1/alerts", "/api/v1/insights/latest"} {
		w := ts.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code, path)
		assert.Equal(t, "authenticate", decodeProblem(t, w).Action, path)
	}
}

func TestGetAnalytics(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodGet, "/api/v1/analytics?range=7d&correlations=true", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, models.AnalyticsOptions{TimeRange: "7d", IncludeCorrelations: true}, ts.analytics.lastOpts)
}

func TestGetAnalyticsInvalidRange(t *testing.T) {
	ts := newTestServer(true)
	ts.analytics.err = fmt.Errorf("%w: %q", service.ErrInvalidPeriod, "1y")

	w := ts.do(t, http.MethodGet, "/api/v1/analytics?range=1y", nil)

	require.Equal(t, http.StatusBadRequest, w.Code)
	p := decodeProblem(t, w)
	assert.Equal(t, apierror.TypeInvalidPeriod, p.Type)
	require.Len(t, p.Errors, 1)
	assert.Equal(t, "range", p.Errors[0].Field)
}

func TestGetAnalyticsBadFlag(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodGet, "/api/v1/analytics?score=maybe", nil)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCalculateScore(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodPost, "/api/v1/score?period=7d", nil)

	require.Equal(t, http.StatusOK, w.Code)
	var score models.HealthScore
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &score))
	assert.Equal(t, "7d", score.Period)
	assert.Equal(t, 82.0, score.OverallScore)
}

func TestCalculateScoreErrors(t *testing.T) {
	t.Run("profile not found", func(t *testing.T) {
		ts := newTestServer(true)
		ts.wellness.err = service.ErrProfileNotFound

		w := ts.do(t, http.MethodPost, "/api/v1/score", nil)

		require.Equal(t, http.StatusNotFound, w.Code)
		p := decodeProblem(t, w)
		assert.Equal(t, apierror.TypeProfileNotFound, p.Type)
		assert.Equal(t, "complete_profile", p.Action)
	})

	t.Run("invalid period", func(t *testing.T) {
		ts := newTestServer(true)
		ts.wellness.err = fmt.Errorf("%w: %q", service.ErrInvalidPeriod, "7x")

		w := ts.do(t, http.MethodPost, "/api/v1/score?period=7x", nil)

		require.Equal(t, http.StatusBadRequest, w.Code)
		p := decodeProblem(t, w)
		assert.Equal(t, apierror.TypeInvalidPeriod, p.Type)
		assert.Contains(t, p.Detail, "7x")
	})
}

func TestScoreHistory(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodGet, "/api/v1/score/history?period=7d&limit=5", nil)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, ts.wellness.lastLimit)
	var body struct {
		Scores []models.HealthScore `json:"scores"`
		Count  int                  `json:"count"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Count)

	w = ts.do(t, http.MethodGet, "/api/v1/score/history?limit=ten", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAlerts(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodGet, "/api/v1/alerts?unread_only=true", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var listed []models.UserAlert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "a1", listed[0].ID)

	w = ts.do(t, http.MethodPost, "/api/v1/alerts/a1/read", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var read models.UserAlert
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &read))
	assert.True(t, read.IsRead)

	w = ts.do(t, http.MethodPost, "/api/v1/alerts/a2/dismiss", nil)
	require.Equal(t, http.StatusOK, w.Code)

	w = ts.do(t, http.MethodPost, "/api/v1/alerts/missing/read", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	p := decodeProblem(t, w)
	assert.Equal(t, apierror.TypeNotFound, p.Type)
	assert.Contains(t, p.Detail, "missing")

	w = ts.do(t, http.MethodPost, "/api/v1/alerts/check", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var checked struct {
		Raised int `json:"raised"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &checked))
	assert.Equal(t, 2, checked.Raised)
}

func TestInsights(t *testing.T) {
	ts := newTestServer(true)

	w := ts.do(t, http.MethodGet, "/api/v1/insights/latest", nil)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, apierror.TypeNotFound, decodeProblem(t, w).Type)

	w = ts.do(t, http.MethodPost, "/api/v1/insights?type=weekly", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.InsightTypeWeekly, ts.insights.lastType)

	w = ts.do(t, http.MethodPost, "/api/v1/insights?type=bogus", nil)
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, models.InsightTypeOnDemand, ts.insights.lastType)

	ts.insights.latest = &models.HealthInsight{ID: "i9", UserID: testUser}
	w = ts.do(t, http.MethodGet, "/api/v1/insights/latest", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"i9"`)
}

func TestState(t *testing.T) {
	ts := newTestServer(true)
	entry := models.TrackingEntry{ID: "e1", UserID: testUser, ToolID: models.ToolSleep}
	ts.state.Dispatch(appstate.Event{Type: appstate.EventEntryRecorded, UserID: testUser, Entry: &entry})

	w := ts.do(t, http.MethodGet, "/api/v1/state", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap appstate.State
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, testUser, snap.UserID)
	assert.Equal(t, 1, snap.Version)
	require.Len(t, snap.RecentEntries, 1)

	w = ts.do(t, http.MethodGet, "/api/v1/state/events", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), string(appstate.EventEntryRecorded))
}

func TestHealth(t *testing.T) {
	r := gin.New()
	healthy := NewHealthHandler("test", map[string]HealthCheck{
		"store": func(ctx context.Context) error { return nil },
	})
	degraded := NewHealthHandler("test", map[string]HealthCheck{
		"store": func(ctx context.Context) error { return nil },
		"cache": func(ctx context.Context) error { return errors.New("dial tcp: refused") },
	})
	r.GET("/health", healthy.Health)
	r.GET("/health-degraded", degraded.Health)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"ok"`)

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health-degraded", nil))
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	var body struct {
		Status string            `json:"status"`
		Checks map[string]string `json:"checks"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "degraded", body.Status)
	assert.Equal(t, "unavailable", body.Checks["cache"])
	assert.Equal(t, "ok", body.Checks["store"])
	assert.NotContains(t, w.Body.String(), "refused")
}
