package sqlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/repository"
)

func newID(id string) string {
	if id != "" {
		return id
	}
	return uuid.NewString()
}

type entryRepository struct {
	db *gorm.DB
}

func (r *entryRepository) Create(ctx context.Context, entry *models.TrackingEntry) (*models.TrackingEntry, error) {
	data, err := encodeJSON(entry.Data)
	if err != nil {
		return nil, fmt.Errorf("failed to encode entry data: %w", err)
	}

	row := entryRow{
		ID:        newID(entry.ID),
		UserID:    entry.UserID,
		ToolID:    entry.ToolID,
		Data:      data,
		Timestamp: entry.Timestamp.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create entry: %w", err)
	}

	out, err := row.model()
	if err != nil {
		return nil, fmt.Errorf("failed to decode entry: %w", err)
	}
	return &out, nil
}

func (r *entryRepository) List(ctx context.Context, userID string, filter models.EntryFilter) ([]models.TrackingEntry, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if filter.ToolID != "" {
		q = q.Where("tool_id = ?", filter.ToolID)
	}
	if !filter.Since.IsZero() {
		q = q.Where("timestamp >= ?", filter.Since.UTC())
	}
	if !filter.Until.IsZero() {
		q = q.Where("timestamp <= ?", filter.Until.UTC())
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}

	var rows []entryRow
	if err := q.Order("timestamp DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}

	entries := make([]models.TrackingEntry, 0, len(rows))
	for _, row := range rows {
		e, err := row.model()
		if err != nil {
			return nil, fmt.Errorf("failed to decode entry %s: %w", row.ID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

type scoreRepository struct {
	db *gorm.DB
}

func (r *scoreRepository) Create(ctx context.Context, score *models.HealthScore) (*models.HealthScore, error) {
	components, err := encodeJSON(score.ComponentScores)
	if err != nil {
		return nil, fmt.Errorf("failed to encode component scores: %w", err)
	}
	weights, err := encodeJSON(score.Weights)
	if err != nil {
		return nil, fmt.Errorf("failed to encode weights: %w", err)
	}

	row := scoreRow{
		ID:              newID(score.ID),
		UserID:          score.UserID,
		OverallScore:    score.OverallScore,
		ComponentScores: components,
		Weights:         weights,
		Trend:           string(score.Trend),
		Period:          score.Period,
		CalculatedAt:    score.CalculatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create health score: %w", err)
	}

	out, err := row.model()
	if err != nil {
		return nil, fmt.Errorf("failed to decode health score: %w", err)
	}
	return &out, nil
}

func (r *scoreRepository) ListRecent(ctx context.Context, userID, period string, limit int) ([]models.HealthScore, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if period != "" {
		q = q.Where("period = ?", period)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []scoreRow
	if err := q.Order("calculated_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list health scores: %w", err)
	}

	scores := make([]models.HealthScore, 0, len(rows))
	for _, row := range rows {
		s, err := row.model()
		if err != nil {
			return nil, fmt.Errorf("failed to decode health score %s: %w", row.ID, err)
		}
		scores = append(scores, s)
	}
	return scores, nil
}

type insightRepository struct {
	db *gorm.DB
}

func (r *insightRepository) Create(ctx context.Context, insight *models.HealthInsight) (*models.HealthInsight, error) {
	alerts := insight.Alerts
	if alerts == nil {
		alerts = []models.UserAlert{}
	}

	payload, err := encodeJSON(insight.Insights)
	if err != nil {
		return nil, fmt.Errorf("failed to encode insight payload: %w", err)
	}
	alertsJSON, err := encodeJSON(alerts)
	if err != nil {
		return nil, fmt.Errorf("failed to encode insight alerts: %w", err)
	}
	meta, err := encodeJSON(insight.Metadata)
	if err != nil {
		return nil, fmt.Errorf("failed to encode insight metadata: %w", err)
	}

	row := insightRow{
		ID:          newID(insight.ID),
		UserID:      insight.UserID,
		InsightType: string(insight.InsightType),
		Insights:    payload,
		Alerts:      alertsJSON,
		Metadata:    meta,
		GeneratedAt: insight.GeneratedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create insight: %w", err)
	}

	out, err := row.model()
	if err != nil {
		return nil, fmt.Errorf("failed to decode insight: %w", err)
	}
	return &out, nil
}

func (r *insightRepository) Latest(ctx context.Context, userID string) (*models.HealthInsight, error) {
	var row insightRow
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("generated_at DESC").
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get latest insight: %w", err)
	}

	out, err := row.model()
	if err != nil {
		return nil, fmt.Errorf("failed to decode insight: %w", err)
	}
	return &out, nil
}

type alertRepository struct {
	db *gorm.DB
}

func (r *alertRepository) Create(ctx context.Context, alert *models.UserAlert) (*models.UserAlert, error) {
	var meta []byte
	if len(alert.Metadata) > 0 {
		encoded, err := encodeJSON(alert.Metadata)
		if err != nil {
			return nil, fmt.Errorf("failed to encode alert metadata: %w", err)
		}
		meta = encoded
	}

	row := alertRow{
		ID:             newID(alert.ID),
		UserID:         alert.UserID,
		AlertType:      alert.AlertType,
		Severity:       string(alert.Severity),
		Message:        alert.Message,
		ActionRequired: alert.ActionRequired,
		Metadata:       meta,
		IsRead:         alert.IsRead,
		IsDismissed:    alert.IsDismissed,
		CreatedAt:      alert.CreatedAt.UTC(),
	}
	if alert.ExpiresAt != nil {
		t := alert.ExpiresAt.UTC()
		row.ExpiresAt = &t
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return nil, fmt.Errorf("failed to create alert: %w", err)
	}

	out, err := row.model()
	if err != nil {
		return nil, fmt.Errorf("failed to decode alert: %w", err)
	}
	return &out, nil
}

func (r *alertRepository) ListByUser(ctx context.Context, userID string, filter models.AlertFilter) ([]models.UserAlert, error) {
	q := r.db.WithContext(ctx).Where("user_id = ?", userID)
	if !filter.IncludeDismissed {
		q = q.Where("is_dismissed = ?", false)
	}
	if filter.UnreadOnly {
		q = q.Where("is_read = ?", false)
	}
	if filter.Limit > 0 {
		q = q.Limit(filter.Limit)
	}
	return r.find(q)
}

func (r *alertRepository) ListSince(ctx context.Context, userID string, since time.Time) ([]models.UserAlert, error) {
	q := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Where("created_at >= ?", since.UTC())
	return r.find(q)
}

func (r *alertRepository) SetFlags(ctx context.Context, userID, id string, read, dismissed *bool) (*models.UserAlert, error) {
	updates := map[string]any{}
	if read != nil {
		updates["is_read"] = *read
	}
	if dismissed != nil {
		updates["is_dismissed"] = *dismissed
	}

	db := r.db.WithContext(ctx)
	var row alertRow
	if err := db.Where("id = ? AND user_id = ?", id, userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, repository.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}

	if len(updates) > 0 {
		if err := db.Model(&row).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("failed to update alert: %w", err)
		}
		if read != nil {
			row.IsRead = *read
		}
		if dismissed != nil {
			row.IsDismissed = *dismissed
		}
	}

	out, err := row.model()
	if err != nil {
		return nil, fmt.Errorf("failed to decode alert: %w", err)
	}
	return &out, nil
}

func (r *alertRepository) find(q *gorm.DB) ([]models.UserAlert, error) {
	var rows []alertRow
	if err := q.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}

	alerts := make([]models.UserAlert, 0, len(rows))
	for _, row := range rows {
		a, err := row.model()
		if err != nil {
			return nil, fmt.Errorf("failed to decode alert %s: %w", row.ID, err)
		}
		alerts = append(alerts, a)
	}
	return alerts, nil
}

// ProfileRepository reads profiles and can seed them for local databases
type ProfileRepository struct {
	db *gorm.DB
}

var _ repository.ProfileRepository = (*ProfileRepository)(nil)

func (r *ProfileRepository) GetByUserID(ctx context.Context, userID string) (*models.UserProfile, error) {
	var row profileRow
	err := r.db.WithContext(ctx).
		Preload("Conditions").
		Where("user_id = ?", userID).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, repository.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}

	profile := &models.UserProfile{
		UserID:      row.UserID,
		DisplayName: row.DisplayName,
		CreatedAt:   row.CreatedAt.UTC(),
		UpdatedAt:   row.UpdatedAt.UTC(),
	}
	for _, c := range row.Conditions {
		profile.Conditions = append(profile.Conditions, models.UserCondition{
			ConditionID: c.ConditionID,
			Severity:    c.Severity,
		})
	}
	return profile, nil
}

// Save upserts a profile and replaces its conditions
func (r *ProfileRepository) Save(ctx context.Context, profile *models.UserProfile) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := profileRow{UserID: profile.UserID, DisplayName: profile.DisplayName}
		err := tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"display_name", "updated_at"}),
		}).Omit("Conditions").Create(&row).Error
		if err != nil {
			return fmt.Errorf("failed to save profile: %w", err)
		}

		if err := tx.Where("user_id = ?", profile.UserID).Delete(&conditionRow{}).Error; err != nil {
			return fmt.Errorf("failed to clear conditions: %w", err)
		}
		for _, c := range profile.Conditions {
			cond := conditionRow{UserID: profile.UserID, ConditionID: c.ConditionID, Severity: c.Severity}
			if err := tx.Create(&cond).Error; err != nil {
				return fmt.Errorf("failed to save condition: %w", err)
			}
		}
		return nil
	})
}
