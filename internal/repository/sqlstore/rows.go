package sqlstore

import (
	"encoding/json"
	"time"

	"gorm.io/datatypes"

	"github.com/wellnessgrid/backend/internal/models"
)

type entryRow struct {
	ID        string         `gorm:"primaryKey;type:varchar(36)"`
	UserID    string         `gorm:"not null;index:idx_entries_user_ts,priority:1"`
	ToolID    string         `gorm:"not null;index"`
	Data      datatypes.JSON `gorm:"not null"`
	Timestamp time.Time      `gorm:"not null;index:idx_entries_user_ts,priority:2"`
	CreatedAt time.Time
}

func (entryRow) TableName() string { return "tracking_entries" }

type scoreRow struct {
	ID              string `gorm:"primaryKey;type:varchar(36)"`
	UserID          string `gorm:"not null;index:idx_scores_user_period,priority:1"`
	OverallScore    float64
	ComponentScores datatypes.JSON
	Weights         datatypes.JSON
	Trend           string
	Period          string    `gorm:"index:idx_scores_user_period,priority:2"`
	CalculatedAt    time.Time `gorm:"index"`
}

func (scoreRow) TableName() string { return "health_scores" }

type insightRow struct {
	ID          string `gorm:"primaryKey;type:varchar(36)"`
	UserID      string `gorm:"not null;index"`
	InsightType string
	Insights    datatypes.JSON
	Alerts      datatypes.JSON
	Metadata    datatypes.JSON
	GeneratedAt time.Time `gorm:"index"`
}

func (insightRow) TableName() string { return "health_insights" }

type alertRow struct {
	ID             string `gorm:"primaryKey;type:varchar(36)"`
	UserID         string `gorm:"not null;index"`
	AlertType      string `gorm:"index"`
	Severity       string
	Message        string
	ActionRequired string
	Metadata       datatypes.JSON
	IsRead         bool
	IsDismissed    bool
	ExpiresAt      *time.Time
	CreatedAt      time.Time `gorm:"index"`
}

func (alertRow) TableName() string { return "user_alerts" }

type profileRow struct {
	UserID      string `gorm:"primaryKey;type:varchar(64)"`
	DisplayName string
	Conditions  []conditionRow `gorm:"foreignKey:UserID;references:UserID"`
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

func (profileRow) TableName() string { return "user_profiles" }

type conditionRow struct {
	ID          uint   `gorm:"primaryKey"`
	UserID      string `gorm:"not null;index"`
	ConditionID string `gorm:"not null"`
	Severity    string
}

func (conditionRow) TableName() string { return "user_conditions" }

// allModels is the AutoMigrate set
func allModels() []any {
	return []any{&entryRow{}, &scoreRow{}, &insightRow{}, &alertRow{}, &profileRow{}, &conditionRow{}}
}

func encodeJSON(v any) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func decodeJSON(raw datatypes.JSON, dst any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, dst)
}

func (r entryRow) model() (models.TrackingEntry, error) {
	e := models.TrackingEntry{
		ID:        r.ID,
		UserID:    r.UserID,
		ToolID:    r.ToolID,
		Timestamp: r.Timestamp.UTC(),
		CreatedAt: r.CreatedAt.UTC(),
	}
	if err := decodeJSON(r.Data, &e.Data); err != nil {
		return e, err
	}
	return e, nil
}

func (r scoreRow) model() (models.HealthScore, error) {
	s := models.HealthScore{
		ID:           r.ID,
		UserID:       r.UserID,
		OverallScore: r.OverallScore,
		Trend:        models.ScoreTrend(r.Trend),
		Period:       r.Period,
		CalculatedAt: r.CalculatedAt.UTC(),
	}
	if err := decodeJSON(r.ComponentScores, &s.ComponentScores); err != nil {
		return s, err
	}
	if err := decodeJSON(r.Weights, &s.Weights); err != nil {
		return s, err
	}
	return s, nil
}

func (r insightRow) model() (models.HealthInsight, error) {
	in := models.HealthInsight{
		ID:          r.ID,
		UserID:      r.UserID,
		InsightType: models.InsightType(r.InsightType),
		GeneratedAt: r.GeneratedAt.UTC(),
	}
	if err := decodeJSON(r.Insights, &in.Insights); err != nil {
		return in, err
	}
	if err := decodeJSON(r.Alerts, &in.Alerts); err != nil {
		return in, err
	}
	if err := decodeJSON(r.Metadata, &in.Metadata); err != nil {
		return in, err
	}
	if in.Alerts == nil {
		in.Alerts = []models.UserAlert{}
	}
	return in, nil
}

func (r alertRow) model() (models.UserAlert, error) {
	a := models.UserAlert{
		ID:             r.ID,
		UserID:         r.UserID,
		AlertType:      r.AlertType,
		Severity:       models.Severity(r.Severity),
		Message:        r.Message,
		ActionRequired: r.ActionRequired,
		IsRead:         r.IsRead,
		IsDismissed:    r.IsDismissed,
		CreatedAt:      r.CreatedAt.UTC(),
	}
	if r.ExpiresAt != nil {
		t := r.ExpiresAt.UTC()
		a.ExpiresAt = &t
	}
	if err := decodeJSON(r.Metadata, &a.Metadata); err != nil {
		return a, err
	}
	return a, nil
}
