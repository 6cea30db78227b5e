package models

import "time"

// Tracker tool identifiers. An entry's Data payload depends on its tool.
const (
	ToolGlucose          = "glucose-tracker"
	ToolMood             = "mood-tracker"
	ToolSleep            = "sleep-tracker"
	ToolMedication       = "medication-tracker"
	ToolBloodPressure    = "blood-pressure-tracker"
	ToolVitalSigns       = "vital-signs-tracker"
	ToolExercise         = "exercise-tracker"
	ToolPhysicalActivity = "physical-activity-tracker"
	ToolNutrition        = "nutrition-tracker"
	ToolSymptom          = "symptom-tracker"
)

// KnownTools lists every tool id accepted by the entry API.
var KnownTools = []string{
	ToolGlucose,
	ToolMood,
	ToolSleep,
	ToolMedication,
	ToolBloodPressure,
	ToolVitalSigns,
	ToolExercise,
	ToolPhysicalActivity,
	ToolNutrition,
	ToolSymptom,
}

// IsKnownTool reports whether id is a supported tracker tool.
func IsKnownTool(id string) bool {
	for _, t := range KnownTools {
		if t == id {
			return true
		}
	}
	return false
}

// UserProfile represents a user's health profile
type UserProfile struct {
	UserID      string          `json:"user_id"`
	DisplayName string          `json:"display_name,omitempty"`
	Conditions  []UserCondition `json:"conditions,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// UserCondition is a diagnosed condition attached to a profile
type UserCondition struct {
	ConditionID string `json:"condition_id"`
	Severity    string `json:"severity,omitempty"`
}

// TrackingEntry is a single time-stamped tracker submission. Entries are
// immutable once created.
type TrackingEntry struct {
	ID        string         `json:"id"`
	UserID    string         `json:"user_id"`
	ToolID    string         `json:"tool_id"`
	Data      map[string]any `json:"data"`
	Timestamp time.Time      `json:"timestamp"`
	CreatedAt time.Time      `json:"created_at"`
}

// CreateEntryRequest represents the request to record a tracker entry
type CreateEntryRequest struct {
	ID        string         `json:"id,omitempty"`
	ToolID    string         `json:"tool_id" binding:"required,toolid"`
	Data      map[string]any `json:"data" binding:"required"`
	Timestamp *time.Time     `json:"timestamp"`
}

// EntryFilter narrows an entry query. Zero values mean "no filter".
type EntryFilter struct {
	ToolID string
	Since  time.Time
	Until  time.Time
	Limit  int
}

// RecordEntryResult is returned after an entry has been stored
type RecordEntryResult struct {
	Entry  *TrackingEntry `json:"entry"`
	Alerts []UserAlert    `json:"alerts"`
}
