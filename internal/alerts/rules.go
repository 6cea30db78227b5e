// Package alerts runs deterministic threshold checks over recent tracker
// entries. It never calls out to text generation.
package alerts

import (
	"fmt"

	"github.com/wellnessgrid/backend/internal/analytics"
	"github.com/wellnessgrid/backend/internal/models"
	"github.com/wellnessgrid/backend/internal/scoring"
)

// Alert types
const (
	TypeHypoglycemia       = "hypoglycemia"
	TypeHyperglycemia      = "hyperglycemia"
	TypeHypertensiveCrisis = "hypertensive_crisis"
	TypeHighBloodPressure  = "high_blood_pressure"
	TypeLowMood            = "low_mood"
	TypeAbnormalHeartRate  = "abnormal_heart_rate"
	TypeSevereSymptom      = "severe_symptom"
	TypeMissedMedication   = "missed_medication"
)

// Finding is a rule match before it becomes a persisted alert
type Finding struct {
	Type           string
	Severity       models.Severity
	Message        string
	ActionRequired string
	Metadata       map[string]any
}

// EntryRule checks a single entry
type EntryRule func(e models.TrackingEntry) []Finding

// AggregateRule checks the whole recent window at once
type AggregateRule func(entries []models.TrackingEntry) []Finding

func metricValue(name string, e models.TrackingEntry) (float64, bool) {
	return analytics.MustMetric(name).Value(e)
}

func entryMeta(e models.TrackingEntry, kv ...any) map[string]any {
	meta := map[string]any{
		"entry_id":  e.ID,
		"tool_id":   e.ToolID,
		"timestamp": e.Timestamp,
	}
	for i := 0; i+1 < len(kv); i += 2 {
		if k, ok := kv[i].(string); ok {
			meta[k] = kv[i+1]
		}
	}
	return meta
}

// GlucoseRule flags hypoglycemia (<70) and severe hyperglycemia (>250)
func GlucoseRule(e models.TrackingEntry) []Finding {
	g, ok := metricValue(analytics.MetricGlucose, e)
	if !ok {
		return nil
	}
	switch {
	case g < 70:
		return []Finding{{
			Type:           TypeHypoglycemia,
			Severity:       models.SeverityCritical,
			Message:        fmt.Sprintf("Low blood glucose detected: %.0f mg/dL", g),
			ActionRequired: "Take 15g of fast-acting carbohydrates and recheck in 15 minutes",
			Metadata:       entryMeta(e, "value", g),
		}}
	case g > 250:
		return []Finding{{
			Type:           TypeHyperglycemia,
			Severity:       models.SeverityUrgent,
			Message:        fmt.Sprintf("High blood glucose detected: %.0f mg/dL", g),
			ActionRequired: "Check for ketones, stay hydrated and contact your care team if it persists",
			Metadata:       entryMeta(e, "value", g),
		}}
	}
	return nil
}

// BloodPressureRule flags crisis readings (≥180/120) and high readings (≥140/90).
// A crisis reading does not also raise a high blood pressure finding.
func BloodPressureRule(e models.TrackingEntry) []Finding {
	sys, okS := metricValue(analytics.MetricSystolic, e)
	dia, okD := metricValue(analytics.MetricDiastolic, e)
	if !okS && !okD {
		return nil
	}
	reading := analytics.FormatBloodPressure(sys, okS, dia, okD) + " mmHg"
	var kv []any
	if okS {
		kv = append(kv, "systolic", sys)
	}
	if okD {
		kv = append(kv, "diastolic", dia)
	}
	switch {
	case (okS && sys >= 180) || (okD && dia >= 120):
		return []Finding{{
			Type:           TypeHypertensiveCrisis,
			Severity:       models.SeverityCritical,
			Message:        "Blood pressure in crisis range: " + reading,
			ActionRequired: "Seek emergency medical care immediately",
			Metadata:       entryMeta(e, kv...),
		}}
	case (okS && sys >= 140) || (okD && dia >= 90):
		return []Finding{{
			Type:           TypeHighBloodPressure,
			Severity:       models.SeverityWarning,
			Message:        "Elevated blood pressure: " + reading,
			ActionRequired: "Rest for five minutes and measure again",
			Metadata:       entryMeta(e, kv...),
		}}
	}
	return nil
}

// HeartRateRule flags resting heart rates below 40 or above 120 bpm
func HeartRateRule(e models.TrackingEntry) []Finding {
	hr, ok := metricValue(analytics.MetricHeartRate, e)
	if !ok || (hr >= 40 && hr <= 120) {
		return nil
	}
	return []Finding{{
		Type:           TypeAbnormalHeartRate,
		Severity:       models.SeverityUrgent,
		Message:        fmt.Sprintf("Abnormal heart rate: %.0f bpm", hr),
		ActionRequired: "Contact your healthcare provider if you feel dizzy or short of breath",
		Metadata:       entryMeta(e, "value", hr),
	}}
}

// MoodRule flags very low mood ratings (≤2)
func MoodRule(e models.TrackingEntry) []Finding {
	m, ok := metricValue(analytics.MetricMood, e)
	if !ok || m > 2 {
		return nil
	}
	return []Finding{{
		Type:           TypeLowMood,
		Severity:       models.SeverityWarning,
		Message:        fmt.Sprintf("You logged a very low mood (%.0f/10)", m),
		ActionRequired: "Consider reaching out to someone you trust or a mental health professional",
		Metadata:       entryMeta(e, "value", m),
	}}
}

// SymptomRule flags symptom severity of 8 or higher
func SymptomRule(e models.TrackingEntry) []Finding {
	s, ok := metricValue(analytics.MetricSymptomSeverity, e)
	if !ok || s < 8 {
		return nil
	}
	name, _ := e.Data["symptom"].(string)
	msg := fmt.Sprintf("Severe symptom reported (severity %.0f/10)", s)
	if name != "" {
		msg = fmt.Sprintf("Severe %s reported (severity %.0f/10)", name, s)
	}
	return []Finding{{
		Type:           TypeSevereSymptom,
		Severity:       models.SeverityUrgent,
		Message:        msg,
		ActionRequired: "Contact your healthcare provider about this symptom",
		Metadata:       entryMeta(e, "value", s),
	}}
}

// MedicationRule flags adherence below 70% once at least three doses are logged
func MedicationRule(entries []models.TrackingEntry) []Finding {
	count := 0
	for _, e := range entries {
		if e.ToolID == models.ToolMedication {
			count++
		}
	}
	if count < 3 {
		return nil
	}
	adherence, ok := scoring.MedicationAdherence(entries)
	if !ok || adherence >= 70 {
		return nil
	}
	return []Finding{{
		Type:           TypeMissedMedication,
		Severity:       models.SeverityWarning,
		Message:        fmt.Sprintf("Medication adherence is %.0f%% this week", adherence),
		ActionRequired: "Set a reminder for your next dose",
		Metadata:       map[string]any{"adherence": adherence, "entries": count},
	}}
}

// DefaultEntryRules lists the per-entry checks
func DefaultEntryRules() []EntryRule {
	return []EntryRule{GlucoseRule, BloodPressureRule, HeartRateRule, MoodRule, SymptomRule}
}

// DefaultAggregateRules lists the window-level checks
func DefaultAggregateRules() []AggregateRule {
	return []AggregateRule{MedicationRule}
}
