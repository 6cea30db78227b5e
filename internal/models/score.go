package models

import "time"

// ScoreComponent names a wellness score component
type ScoreComponent string

const (
	ComponentGlucose    ScoreComponent = "glucose"
	ComponentMedication ScoreComponent = "medication"
	ComponentSleep      ScoreComponent = "sleep"
	ComponentMood       ScoreComponent = "mood"
	ComponentVitals     ScoreComponent = "vitals"
	ComponentExercise   ScoreComponent = "exercise"
	ComponentNutrition  ScoreComponent = "nutrition"
)

// ScoreTrend labels the overall score relative to recent history
type ScoreTrend string

const (
	ScoreTrendImproving        ScoreTrend = "improving"
	ScoreTrendDeclining        ScoreTrend = "declining"
	ScoreTrendStable           ScoreTrend = "stable"
	ScoreTrendInsufficientData ScoreTrend = "insufficient_data"
)

// HealthScore is one wellness score calculation. Rows are kept as an audit
// trail so later calculations can compare against them.
type HealthScore struct {
	ID              string                     `json:"id"`
	UserID          string                     `json:"user_id"`
	OverallScore    float64                    `json:"overall_score"`
	ComponentScores map[ScoreComponent]float64 `json:"component_scores"`
	Weights         map[ScoreComponent]float64 `json:"weights"`
	Trend           ScoreTrend                 `json:"trend"`
	Period          string                     `json:"period"`
	CalculatedAt    time.Time                  `json:"calculated_at"`
}
