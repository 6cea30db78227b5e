package repository

import (
	"context"
	"errors"
	"time"

	"github.com/wellnessgrid/backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no row
var ErrNotFound = errors.New("not found")

// EntryRepository defines the interface for tracking entry data access.
// Entries are immutable, so there is no update or delete.
type EntryRepository interface {
	Create(ctx context.Context, entry *models.TrackingEntry) (*models.TrackingEntry, error)
	// List returns the user's entries newest first
	List(ctx context.Context, userID string, filter models.EntryFilter) ([]models.TrackingEntry, error)
}

// ScoreRepository defines the interface for wellness score history
type ScoreRepository interface {
	Create(ctx context.Context, score *models.HealthScore) (*models.HealthScore, error)
	// ListRecent returns up to limit scores for the user and period, newest first
	ListRecent(ctx context.Context, userID, period string, limit int) ([]models.HealthScore, error)
}

// InsightRepository defines the interface for generated insight data access
type InsightRepository interface {
	Create(ctx context.Context, insight *models.HealthInsight) (*models.HealthInsight, error)
	Latest(ctx context.Context, userID string) (*models.HealthInsight, error)
}

// AlertRepository defines the interface for user alert data access
type AlertRepository interface {
	Create(ctx context.Context, alert *models.UserAlert) (*models.UserAlert, error)
	ListByUser(ctx context.Context, userID string, filter models.AlertFilter) ([]models.UserAlert, error)
	ListSince(ctx context.Context, userID string, since time.Time) ([]models.UserAlert, error)
	// SetFlags updates the read and dismissed flags. Nil leaves a flag unchanged.
	SetFlags(ctx context.Context, userID, id string, read, dismissed *bool) (*models.UserAlert, error)
}

// ProfileRepository defines the interface for user profile lookups
type ProfileRepository interface {
	GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error)
}
