package models

import (
	"encoding/json"
	"strings"
	"time"
)

// InsightType represents why an insight was generated
type InsightType string

const (
	InsightTypeDaily     InsightType = "daily"
	InsightTypeWeekly    InsightType = "weekly"
	InsightTypeMonthly   InsightType = "monthly"
	InsightTypeTriggered InsightType = "triggered"
	InsightTypeOnDemand  InsightType = "on_demand"
)

// ParseInsightType converts a query value to an InsightType, defaulting to on_demand
func ParseInsightType(s string) InsightType {
	switch InsightType(strings.ToLower(strings.TrimSpace(s))) {
	case InsightTypeDaily:
		return InsightTypeDaily
	case InsightTypeWeekly:
		return InsightTypeWeekly
	case InsightTypeMonthly:
		return InsightTypeMonthly
	case InsightTypeTriggered:
		return InsightTypeTriggered
	default:
		return InsightTypeOnDemand
	}
}

// InsightItem is one entry in an insight list. Text-generation output is
// loosely typed, so an item may arrive as a bare string or as an object.
type InsightItem struct {
	Title       string `json:"title,omitempty"`
	Description string `json:"description"`
	Metric      string `json:"metric,omitempty"`
	Severity    string `json:"severity,omitempty"`
}

// UnmarshalJSON accepts either a JSON string or an object.
func (i *InsightItem) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = InsightItem{Description: s}
		return nil
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	item := InsightItem{
		Title:    stringField(raw, "title", "name", "category"),
		Metric:   stringField(raw, "metric"),
		Severity: stringField(raw, "severity", "priority", "level"),
	}
	item.Description = stringField(raw, "description", "text", "message", "detail", "recommendation")
	if item.Description == "" {
		item.Description = item.Title
	}
	*i = item
	return nil
}

func stringField(raw map[string]any, keys ...string) string {
	for _, k := range keys {
		if v, ok := raw[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

// InsightPayload is the structured body of an insight
type InsightPayload struct {
	Trends          []InsightItem `json:"trends"`
	Concerns        []InsightItem `json:"concerns"`
	Recommendations []InsightItem `json:"recommendations"`
	Achievements    []InsightItem `json:"achievements"`
}

// InsightMetadata describes how an insight was produced
type InsightMetadata struct {
	ProcessingTimeMs   int64   `json:"processing_time_ms"`
	DataPointsAnalyzed int     `json:"data_points_analyzed"`
	Confidence         float64 `json:"confidence"`
	TriggerReason      string  `json:"trigger_reason,omitempty"`
	Model              string  `json:"model,omitempty"`
	Fallback           bool    `json:"fallback"`
}

// HealthInsight is a persisted, append-only insight record
type HealthInsight struct {
	ID          string          `json:"id"`
	UserID      string          `json:"user_id"`
	InsightType InsightType     `json:"insight_type"`
	Insights    InsightPayload  `json:"insights"`
	Alerts      []UserAlert     `json:"alerts"`
	Metadata    InsightMetadata `json:"metadata"`
	GeneratedAt time.Time       `json:"generated_at"`
}
