package scoring

import (
	"math"
	"strings"
	"time"

	"github.com/wellnessgrid/backend/internal/analytics"
	"github.com/wellnessgrid/backend/internal/models"
)

// Glucose bands in mg/dL
const (
	GlucoseRangeLow    = 70.0
	GlucoseRangeHigh   = 180.0
	GlucoseSevereLow   = 54.0
	GlucoseSevereHigh  = 250.0
	glucoseStableCV    = 0.2
	glucoseVolatileCV  = 0.36
	weeklyExerciseGoal = 150.0
)

// GlucoseScore is time-in-range percentage minus per-reading hypo/hyper
// penalties, adjusted by ±5 for coefficient of variation.
func GlucoseScore(readings []float64) (float64, bool) {
	if len(readings) == 0 {
		return 0, false
	}

	inRange := 0
	var penalty float64
	for _, g := range readings {
		switch {
		case g < GlucoseSevereLow:
			penalty += 15
		case g < GlucoseRangeLow:
			penalty += 10
		case g > GlucoseSevereHigh:
			penalty += 10
		case g > GlucoseRangeHigh:
			penalty += 5
		default:
			inRange++
		}
	}

	score := float64(inRange)/float64(len(readings))*100 - penalty

	cv := analytics.CoefficientOfVariation(readings)
	switch {
	case cv < glucoseStableCV:
		score += 5
	case cv > glucoseVolatileCV:
		score -= 5
	}

	return analytics.Clamp(score, 0, 100), true
}

// medicationTaken reads whether a medication entry records a taken dose
func medicationTaken(data map[string]any) bool {
	if v, ok := data["taken"].(bool); ok {
		return v
	}
	if v, ok := data["adherence"].(bool); ok {
		return v
	}
	if s, ok := data["status"].(string); ok {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "taken", "completed", "done":
			return true
		}
	}
	return false
}

// MedicationAdherence returns the percentage of medication entries marked taken
func MedicationAdherence(entries []models.TrackingEntry) (float64, bool) {
	total, taken := 0, 0
	for _, e := range entries {
		if e.ToolID != models.ToolMedication || e.Data == nil {
			continue
		}
		total++
		if medicationTaken(e.Data) {
			taken++
		}
	}
	if total == 0 {
		return 0, false
	}
	return float64(taken) / float64(total) * 100, true
}

// MedicationScore is adherence with a +5 bonus at ≥95% and a −10 penalty below 70%
func MedicationScore(entries []models.TrackingEntry) (float64, bool) {
	adherence, ok := MedicationAdherence(entries)
	if !ok {
		return 0, false
	}
	score := adherence
	switch {
	case adherence >= 95:
		score += 5
	case adherence < 70:
		score -= 10
	}
	return analytics.Clamp(score, 0, 100), true
}

// sleepDurationPoints peaks at 7-9 hours and tapers outward
func sleepDurationPoints(hours float64) float64 {
	switch {
	case hours >= 7 && hours <= 9:
		return 50
	case (hours >= 6 && hours < 7) || (hours > 9 && hours <= 10):
		return 40
	case (hours >= 5 && hours < 6) || (hours > 10 && hours <= 11):
		return 25
	default:
		return 10
	}
}

// SleepScore averages duration points plus quality points per sleep entry
func SleepScore(entries []models.TrackingEntry) (float64, bool) {
	duration := analytics.MustMetric(analytics.MetricSleepHours)
	quality := analytics.MustMetric(analytics.MetricSleepQuality)

	var scores []float64
	for _, e := range entries {
		hours, ok := duration.Value(e)
		if !ok {
			continue
		}
		q := 25.0
		if rating, ok := quality.Value(e); ok {
			q = rating / 10 * 50
		}
		scores = append(scores, sleepDurationPoints(hours)+q)
	}
	if len(scores) == 0 {
		return 0, false
	}
	return analytics.Clamp(analytics.Mean(scores), 0, 100), true
}

// MoodScore scales 0-10 ratings to 0-100, +10 when stable (sd<1), −10 when volatile (sd>3)
func MoodScore(ratings []float64) (float64, bool) {
	if len(ratings) == 0 {
		return 0, false
	}
	scaled := make([]float64, len(ratings))
	for i, r := range ratings {
		scaled[i] = r / 10 * 100
	}
	score := analytics.Mean(scaled)

	sd := analytics.StdDev(ratings)
	switch {
	case sd < 1:
		score += 10
	case sd > 3:
		score -= 10
	}
	return analytics.Clamp(score, 0, 100), true
}

// BloodPressurePoints bands a reading at 100/85/70/50/25
func BloodPressurePoints(systolic, diastolic float64) float64 {
	switch {
	case systolic < 120 && diastolic < 80:
		return 100
	case systolic < 130 && diastolic < 80:
		return 85
	case systolic < 140 || diastolic < 90:
		return 70
	case systolic < 180 && diastolic < 120:
		return 50
	default:
		return 25
	}
}

// HeartRatePoints bands a resting heart rate at 100/80/70/40/20
func HeartRatePoints(bpm float64) float64 {
	switch {
	case bpm >= 60 && bpm <= 100:
		return 100
	case bpm >= 50 && bpm < 60:
		return 80
	case bpm > 100 && bpm <= 110:
		return 70
	case (bpm >= 40 && bpm < 50) || (bpm > 110 && bpm <= 130):
		return 40
	default:
		return 20
	}
}

// VitalsScore averages blood pressure and heart rate points per entry and
// then across entries
func VitalsScore(entries []models.TrackingEntry) (float64, bool) {
	sysM := analytics.MustMetric(analytics.MetricSystolic)
	diaM := analytics.MustMetric(analytics.MetricDiastolic)
	hrM := analytics.MustMetric(analytics.MetricHeartRate)

	var scores []float64
	for _, e := range entries {
		var parts []float64
		sys, okS := sysM.Value(e)
		dia, okD := diaM.Value(e)
		if okS && okD {
			parts = append(parts, BloodPressurePoints(sys, dia))
		}
		if hr, ok := hrM.Value(e); ok {
			parts = append(parts, HeartRatePoints(hr))
		}
		if len(parts) > 0 {
			scores = append(scores, analytics.Mean(parts))
		}
	}
	if len(scores) == 0 {
		return 0, false
	}
	return analytics.Clamp(analytics.Mean(scores), 0, 100), true
}

// distinctDays counts the calendar days with at least one entry
func distinctDays(entries []models.TrackingEntry) int {
	days := make(map[string]struct{})
	for _, e := range entries {
		days[e.Timestamp.UTC().Format("2006-01-02")] = struct{}{}
	}
	return len(days)
}

func periodDays(period time.Duration) float64 {
	days := period.Hours() / 24
	if days < 1 {
		return 1
	}
	return days
}

// ExerciseScore compares average daily minutes against 150 minutes/week and
// adds +10/+5 for the share of days with exercise
func ExerciseScore(entries []models.TrackingEntry, period time.Duration) (float64, bool) {
	m := analytics.MustMetric(analytics.MetricExerciseMinutes)

	var total float64
	var logged []models.TrackingEntry
	for _, e := range entries {
		if !m.Matches(e.ToolID) {
			continue
		}
		if minutes, ok := m.Value(e); ok {
			total += minutes
		}
		logged = append(logged, e)
	}
	if len(logged) == 0 {
		return 0, false
	}

	days := periodDays(period)
	target := weeklyExerciseGoal / 7
	score := math.Min(100, total/days/target*100)

	coverage := math.Min(1, float64(distinctDays(logged))/days)
	switch {
	case coverage >= 0.7:
		score += 10
	case coverage >= 0.4:
		score += 5
	}
	return analytics.Clamp(score, 0, 100), true
}

// NutritionScore is 70 for any tracking plus 10-20 scaled by day coverage
func NutritionScore(entries []models.TrackingEntry, period time.Duration) (float64, bool) {
	var logged []models.TrackingEntry
	for _, e := range entries {
		if e.ToolID == models.ToolNutrition {
			logged = append(logged, e)
		}
	}
	if len(logged) == 0 {
		return 0, false
	}
	coverage := math.Min(1, float64(distinctDays(logged))/periodDays(period))
	return analytics.Clamp(70+10+10*coverage, 0, 100), true
}
