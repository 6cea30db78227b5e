package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/pkg/supabase"
)

type insightRepository struct {
	client *supabase.Client
}

// NewInsightRepository creates a new insight repository
func NewInsightRepository(client *supabase.Client) InsightRepository {
	return &insightRepository{client: client}
}

func (r *insightRepository) Create(ctx context.Context, insight *models.HealthInsight) (*models.HealthInsight, error) {
	alerts := insight.Alerts
	if alerts == nil {
		alerts = []models.UserAlert{}
	}

	data := map[string]interface{}{
		"user_id":      insight.UserID,
		"insight_type": insight.InsightType,
		"insights":     insight.Insights,
		"alerts":       alerts,
		"metadata":     insight.Metadata,
		"generated_at": insight.GeneratedAt,
	}

	body, err := r.client.Insert(ctx, "health_insights", data)
	if err != nil {
		return nil, fmt.Errorf("failed to create insight: %w", err)
	}

	var insights []models.HealthInsight
	if err := json.Unmarshal(body, &insights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(insights) == 0 {
		return nil, fmt.Errorf("no insight returned")
	}

	return &insights[0], nil
}

func (r *insightRepository) Latest(ctx context.Context, userID string) (*models.HealthInsight, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("user_id", supabase.Eq(userID))
	query.Set("order", "generated_at.desc")
	query.Set("limit", "1")

	body, err := r.client.Query(ctx, "health_insights", query)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest insight: %w", err)
	}

	var insights []models.HealthInsight
	if err := json.Unmarshal(body, &insights); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(insights) == 0 {
		return nil, ErrNotFound
	}

	return &insights[0], nil
}
