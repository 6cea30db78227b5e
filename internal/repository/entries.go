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

type entryRepository struct {
	client *supabase.Client
}

// NewEntryRepository creates a new tracking entry repository
func NewEntryRepository(client *supabase.Client) EntryRepository {
	return &entryRepository{client: client}
}

func (r *entryRepository) Create(ctx context.Context, entry *models.TrackingEntry) (*models.TrackingEntry, error) {
	data := map[string]interface{}{
		"user_id":   entry.UserID,
		"tool_id":   entry.ToolID,
		"data":      entry.Data,
		"timestamp": entry.Timestamp,
	}
	if entry.ID != "" {
		data["id"] = entry.ID
	}

	body, err := r.client.Insert(ctx, "tracking_entries", data)
	if err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	var entries []models.TrackingEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(entries) == 0 {
		return nil, fmt.Errorf("no entry returned")
	}

	return &entries[0], nil
}

func (r *entryRepository) List(ctx context.Context, userID string, filter models.EntryFilter) ([]models.TrackingEntry, error) {
	query := url.Values{}
	query.Set("select", "*")
	query.Set("user_id", supabase.Eq(userID))
	query.Set("order", "timestamp.desc")
	if filter.ToolID != "" {
		query.Set("tool_id", supabase.Eq(filter.ToolID))
	}
	if !filter.Since.IsZero() {
		query.Add("timestamp", supabase.Gte(filter.Since))
	}
	if !filter.Until.IsZero() {
		query.Add("timestamp", supabase.Lte(filter.Until))
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}

	body, err := r.client.Query(ctx, "tracking_entries", query)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	var entries []models.TrackingEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return entries, nil
}
