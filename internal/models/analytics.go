package models

import "time"

// Direction is a metric-specific trend label
type Direction string

const (
	DirectionImproving  Direction = "improving"
	DirectionDeclining  Direction = "declining"
	DirectionStable     Direction = "stable"
	DirectionConcerning Direction = "concerning"
	DirectionIncreasing Direction = "increasing"
	DirectionDecreasing Direction = "decreasing"
	DirectionGood       Direction = "good"
	DirectionExcellent  Direction = "excellent"
	DirectionModerate   Direction = "moderate"
	DirectionLow        Direction = "low"
)

// CorrelationStrength buckets the absolute Pearson coefficient
type CorrelationStrength string

const (
	StrengthStrong   CorrelationStrength = "strong"
	StrengthModerate CorrelationStrength = "moderate"
	StrengthWeak     CorrelationStrength = "weak"
)

// HealthTrend is the derived trend for one metric
type HealthTrend struct {
	Metric     string    `json:"metric"`
	Direction  Direction `json:"direction"`
	Value      float64   `json:"value"`
	Confidence float64   `json:"confidence"`
	Variance   float64   `json:"variance"`
	Slope      *float64  `json:"slope,omitempty"`
	DataPoints int       `json:"data_points"`
}

// CorrelationData holds the Pearson correlation between two daily series
type CorrelationData struct {
	MetricA      string              `json:"metric_a"`
	MetricB      string              `json:"metric_b"`
	Coefficient  float64             `json:"coefficient"`
	Significance float64             `json:"significance"`
	Strength     CorrelationStrength `json:"strength"`
	DataPoints   int                 `json:"data_points"`
}

// StreakData holds consecutive-day logging statistics for one metric
type StreakData struct {
	Metric        string     `json:"metric"`
	CurrentStreak int        `json:"current_streak"`
	BestStreak    int        `json:"best_streak"`
	LastEntryDate *time.Time `json:"last_entry_date,omitempty"`
}

// AnalyticsOptions selects what an analytics request computes
type AnalyticsOptions struct {
	TimeRange           string `form:"range"`
	IncludeCorrelations bool   `form:"correlations"`
	IncludeScore        bool   `form:"score"`
}

// AnalyticsPayload is the cached result handed to the presentation layer
type AnalyticsPayload struct {
	UserID       string            `json:"user_id"`
	TimeRange    string            `json:"time_range"`
	Trends       []HealthTrend     `json:"trends"`
	Correlations []CorrelationData `json:"correlations"`
	Streaks      []StreakData      `json:"streaks"`
	Score        *HealthScore      `json:"score,omitempty"`
	DataPoints   int               `json:"data_points"`
	GeneratedAt  time.Time         `json:"generated_at"`
	Cached       bool              `json:"cached"`
}
