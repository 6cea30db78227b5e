package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/pkg/supabase"
)

type scoreRepository struct {
	client *supabase.Client
}

// NewScoreRepository creates a new health score repository
func NewScoreRepository(client *supabase.Client) ScoreRepository {
	return &scoreRepository{client: client}
}

func (r *scoreRepository) Create(ctx context.Context, score *models.HealthScore) (*models.HealthScore, error) {
	data := map[string]interface{}{
		"user_id":          score.UserID,
		"overall_score":    score.OverallScore,
		"component_scores": score.ComponentScores,
		"weights":          score.Weights,
		"trend":            score.Trend,
		"period":           score.Period,
		"calculated_at":    score.CalculatedAt,
	}

	body, err := r.client.Insert(ctx, "health_scores", data)
	if err != nil {
		return nil, fmt.Errorf("failed to create health score: %w", err)
	}

	var scores []models.HealthScore
	if err := json.Unmarshal(body, &scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(scores) == 0 {
		return nil, fmt.Errorf("no health score returned")
	}

	return &scores[0], nil
}

func (r *scoreRepository) ListRecent(ctx context.Context, userID, period string, limit int) ([]models.HealthScore, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("user_id", supabase.Eq(userID))
	query.Set("order", "calculated_at.desc")
	if period != "" {
		query.Set("period", supabase.Eq(period))
	}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}

	body, err := r.client.Query(ctx, "health_scores", query)
	if err != nil {
		return nil, fmt.Errorf("failed to list health scores: %w", err)
	}

	var scores []models.HealthScore
	if err := json.Unmarshal(body, &scores); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return scores, nil
}
