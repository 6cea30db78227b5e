package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"

	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/pkg/supabase"
)

type profileRepository struct {
	client *supabase.Client
}

// NewProfileRepository creates a new profile repository
func NewProfileRepository(client *supabase.Client) ProfileRepository {
	return &profileRepository{client: client}
}

func (r *profileRepository) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("user_id", supabase.Eq(userID))

	body, err := r.client.Query(ctx, "user_profiles", query)
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	var profiles []models.UserProfile
	if err := json.Unmarshal(body, &profiles); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(profiles) == 0 {
		return nil, ErrNotFound
	}

	profile := &profiles[0]

	// conditions live in their own table
	query = url.Values{}
	query.Set("select", "condition_id,severity")
	query.Set("user_id", supabase.Eq(userID))

	body, err = r.client.Query(ctx, "user_conditions", query)
	if err != nil {
		return nil, fmt.Errorf("failed to get conditions: %w", err)
	}

	var conditions []models.UserCondition
	if err := json.Unmarshal(body, &conditions); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	profile.Conditions = conditions

	return profile, nil
}
