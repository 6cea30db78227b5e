// Package analytics holds the pure calculators behind the health analytics
// payload: metric extraction, trends, correlations and streaks. Nothing in
// this package performs I/O.
package analytics

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wellnessgrid/backend/internal/models"
)

// Metric names
const (
	MetricGlucose         = "glucose"
	MetricMood            = "mood"
	MetricSleepHours      = "sleep_hours"
	MetricSleepQuality    = "sleep_quality"
	MetricSystolic        = "systolic"
	MetricDiastolic       = "diastolic"
	MetricHeartRate       = "heart_rate"
	MetricExerciseMinutes = "exercise_minutes"
	MetricSymptomSeverity = "symptom_severity"
)

// Accessor reads one candidate value out of an entry payload. The boolean is
// false when the field is missing or not a finite number.
type Accessor func(data map[string]any) (float64, bool)

// Field returns an Accessor for a single numeric payload field.
func Field(name string) Accessor {
	return func(data map[string]any) (float64, bool) {
		return toFloat(data[name])
	}
}

// Scaled converts the result of another accessor by a constant factor.
func Scaled(a Accessor, factor float64) Accessor {
	return func(data map[string]any) (float64, bool) {
		v, ok := a(data)
		if !ok {
			return 0, false
		}
		return v * factor, true
	}
}

// BloodPressurePart reads one side of a "120/80" style reading.
// part 0 is systolic, part 1 is diastolic.
func BloodPressurePart(name string, part int) Accessor {
	return func(data map[string]any) (float64, bool) {
		s, ok := data[name].(string)
		if !ok {
			return 0, false
		}
		pieces := strings.Split(s, "/")
		if len(pieces) != 2 || part < 0 || part > 1 {
			return 0, false
		}
		return toFloat(strings.TrimSpace(pieces[part]))
	}
}

// FormatBloodPressure renders the sides of a reading that were present:
// "150/95", "systolic 150" or "diastolic 95".
func FormatBloodPressure(sys float64, hasSys bool, dia float64, hasDia bool) string {
	switch {
	case hasSys && hasDia:
		return fmt.Sprintf("%.0f/%.0f", sys, dia)
	case hasSys:
		return fmt.Sprintf("systolic %.0f", sys)
	case hasDia:
		return fmt.Sprintf("diastolic %.0f", dia)
	}
	return ""
}

// Metric describes how to read one scalar observation from tracker entries.
// Accessors are tried in order; the first one that yields a value wins.
type Metric struct {
	Name      string
	Tools     []string
	Accessors []Accessor
	Valid     func(v float64) bool
}

// Observation is one extracted value with the timestamp of its entry
type Observation struct {
	Value     float64
	Timestamp time.Time
	EntryID   string
}

// Matches reports whether the metric reads entries of the given tool
func (m Metric) Matches(toolID string) bool {
	for _, t := range m.Tools {
		if t == toolID {
			return true
		}
	}
	return false
}

// Value extracts the metric from a single entry. Malformed payloads are
// treated as missing data.
func (m Metric) Value(entry models.TrackingEntry) (float64, bool) {
	if entry.Data == nil || !m.Matches(entry.ToolID) {
		return 0, false
	}
	for _, acc := range m.Accessors {
		v, ok := acc(entry.Data)
		if !ok {
			continue
		}
		if m.Valid != nil && !m.Valid(v) {
			return 0, false
		}
		return v, true
	}
	return 0, false
}

// Extract returns the metric's observations ordered oldest to newest.
// Entries of other tools and entries without a usable value are skipped.
func Extract(entries []models.TrackingEntry, m Metric) []Observation {
	obs := make([]Observation, 0, len(entries))
	for _, e := range entries {
		v, ok := m.Value(e)
		if !ok {
			continue
		}
		obs = append(obs, Observation{Value: v, Timestamp: e.Timestamp, EntryID: e.ID})
	}

	sort.SliceStable(obs, func(i, j int) bool {
		return obs[i].Timestamp.Before(obs[j].Timestamp)
	})

	return obs
}

// Values strips timestamps from a list of observations
func Values(obs []Observation) []float64 {
	values := make([]float64, len(obs))
	for i, o := range obs {
		values[i] = o.Value
	}
	return values
}

// FilterByTool returns the entries recorded with any of the given tools
func FilterByTool(entries []models.TrackingEntry, tools ...string) []models.TrackingEntry {
	out := make([]models.TrackingEntry, 0)
	for _, e := range entries {
		for _, t := range tools {
			if e.ToolID == t {
				out = append(out, e)
				break
			}
		}
	}
	return out
}

func positive(v float64) bool { return v > 0 }

func between(lo, hi float64) func(float64) bool {
	return func(v float64) bool { return v >= lo && v <= hi }
}

var metrics = map[string]Metric{
	MetricGlucose: {
		Name:      MetricGlucose,
		Tools:     []string{models.ToolGlucose},
		Accessors: []Accessor{Field("glucose_level"), Field("glucose"), Field("value"), Field("reading")},
		Valid:     positive,
	},
	MetricMood: {
		Name:      MetricMood,
		Tools:     []string{models.ToolMood},
		Accessors: []Accessor{Field("mood"), Field("mood_score"), Field("mood_rating"), Field("rating"), Field("score"), Field("value")},
		Valid:     between(0, 10),
	},
	MetricSleepHours: {
		Name:  MetricSleepHours,
		Tools: []string{models.ToolSleep},
		Accessors: []Accessor{
			Field("hours"),
			Field("sleep_hours"),
			Field("duration_hours"),
			Field("duration"),
			Scaled(Field("duration_minutes"), 1.0/60.0),
			Field("value"),
		},
		Valid: between(0.01, 24),
	},
	MetricSleepQuality: {
		Name:      MetricSleepQuality,
		Tools:     []string{models.ToolSleep},
		Accessors: []Accessor{Field("quality"), Field("sleep_quality"), Field("quality_rating")},
		Valid:     between(0, 10),
	},
	MetricSystolic: {
		Name:  MetricSystolic,
		Tools: []string{models.ToolBloodPressure, models.ToolVitalSigns},
		Accessors: []Accessor{
			Field("systolic"),
			Field("systolic_bp"),
			Field("bp_systolic"),
			BloodPressurePart("blood_pressure", 0),
		},
		Valid: positive,
	},
	MetricDiastolic: {
		Name:  MetricDiastolic,
		Tools: []string{models.ToolBloodPressure, models.ToolVitalSigns},
		Accessors: []Accessor{
			Field("diastolic"),
			Field("diastolic_bp"),
			Field("bp_diastolic"),
			BloodPressurePart("blood_pressure", 1),
		},
		Valid: positive,
	},
	MetricHeartRate: {
		Name:      MetricHeartRate,
		Tools:     []string{models.ToolBloodPressure, models.ToolVitalSigns},
		Accessors: []Accessor{Field("heart_rate"), Field("pulse"), Field("bpm")},
		Valid:     positive,
	},
	MetricExerciseMinutes: {
		Name:      MetricExerciseMinutes,
		Tools:     []string{models.ToolExercise, models.ToolPhysicalActivity},
		Accessors: []Accessor{Field("duration"), Field("duration_minutes"), Field("minutes"), Field("exercise_minutes"), Field("value")},
		Valid:     positive,
	},
	MetricSymptomSeverity: {
		Name:      MetricSymptomSeverity,
		Tools:     []string{models.ToolSymptom},
		Accessors: []Accessor{Field("severity"), Field("intensity"), Field("level")},
		Valid:     between(0, 10),
	},
}

// LookupMetric returns the registered metric with the given name
func LookupMetric(name string) (Metric, bool) {
	m, ok := metrics[name]
	return m, ok
}

// MustMetric returns a registered metric and panics on unknown names.
// Only use it with the Metric* constants.
func MustMetric(name string) Metric {
	m, ok := metrics[name]
	if !ok {
		panic("analytics: unknown metric " + name)
	}
	return m
}

// toFloat converts a loosely typed payload value into a finite float64
func toFloat(v any) (float64, bool) {
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, false
		}
		f = parsed
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	default:
		return 0, false
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
