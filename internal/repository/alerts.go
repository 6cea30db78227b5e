package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/pkg/supabase"
)

type alertRepository struct {
	client *supabase.Client
}

// NewAlertRepository creates a new alert repository
func NewAlertRepository(client *supabase.Client) AlertRepository {
	return &alertRepository{client: client}
}

func (r *alertRepository) Create(ctx context.Context, alert *models.UserAlert) (*models.UserAlert, error) {
	data := map[string]interface{}{
		"user_id":         alert.UserID,
		"alert_type":      alert.AlertType,
		"severity":        alert.Severity,
		"message":         alert.Message,
		"action_required": alert.ActionRequired,
		"is_read":         alert.IsRead,
		"is_dismissed":    alert.IsDismissed,
		"created_at":      alert.CreatedAt,
	}
	if len(alert.Metadata) > 0 {
		data["metadata"] = alert.Metadata
	}
	if alert.ExpiresAt != nil {
		data["expires_at"] = *alert.ExpiresAt
	}

	body, err := r.client.Insert(ctx, "user_alerts", data)
	if err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	return firstAlert(body)
}

func (r *alertRepository) ListByUser(ctx context.Context, userID string, filter models.AlertFilter) ([]models.UserAlert, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("user_id", supabase.Eq(userID))
	query.Set("order", "created_at.desc")
	if !filter.IncludeDismissed {
		query.Set("is_dismissed", "eq.false")
	}
	if filter.UnreadOnly {
		query.Set("is_read", "eq.false")
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	return r.list(ctx, query)
}

func (r *alertRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]models.UserAlert, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("user_id", supabase.Eq(userID))
	query.Set("created_at", supabase.Gte(since))
	query.Set("order", "created_at.desc")

	return r.list(ctx, query)
}

func (r *alertRepository) SetFlags(ctx context.Context, userID, id string, read, dismissed *bool) (*models.UserAlert, error) {
	data := map[string]interface{}{}
	if read != nil {
		data["is_read"] = *read
	}
	if dismissed != nil {
		data["is_dismissed"] = *dismissed
	}

	query := url.Values{}
	query.Set("id", supabase.Eq(id))
	query.Set("user_id", supabase.Eq(userID))

	body, err := r.client.UpdateWhere(ctx, "user_alerts", query, data)
	if err != nil {
		return nil, fmt.Errorf("failed to update alert: %w", err)
	}

	return firstAlert(body)
}

func (r *alertRepository) list(ctx context.Context, query url.Values) ([]models.UserAlert, error) {
	body, err := r.client.Query(ctx, "user_alerts", query)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	var alerts []models.UserAlert
	if err := json.Unmarshal(body, &alerts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return alerts, nil
}

func firstAlert(body []byte) (*models.UserAlert, error) {
	var alerts []models.UserAlert
	if err := json.Unmarshal(body, &alerts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(alerts) == 0 {
		return nil, ErrNotFound
	}

	return &alerts[0], nil
}
