package analytics

import (
	"math"
	"sort"
	"time"

	"github.com/wellnessgrid/backend/internal/models"
)

const (
	// MinCorrelationPairs is the fewest paired days that produce a correlation
	MinCorrelationPairs = 5

	// Strength thresholds on |r|
	CorrelationStrongThreshold   = 0.7
	CorrelationModerateThreshold = 0.4

	// dayLayout buckets entries by calendar day
	dayLayout = "2006-01-02"
)

// MetricPair names two metrics to correlate
type MetricPair struct {
	A string
	B string
}

// DefaultCorrelationPairs lists the metric pairs included in analytics
var DefaultCorrelationPairs = []MetricPair{
	{A: MetricGlucose, B: MetricMood},
	{A: MetricSleepHours, B: MetricMood},
	{A: MetricExerciseMinutes, B: MetricMood},
	{A: MetricExerciseMinutes, B: MetricGlucose},
	{A: MetricSleepHours, B: MetricGlucose},
}

// Pearson computes the sample correlation coefficient using the sum formula.
// It returns false for mismatched lengths, fewer than two points, or a
// series with zero variance.
func Pearson(xs, ys []float64) (float64, bool) {
	n := len(xs)
	if n != len(ys) || n < 2 {
		return 0, false
	}

	var sumX, sumY, sumXY, sumXX, sumYY float64
	for i := 0; i < n; i++ {
		x, y := xs[i], ys[i]
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
		sumYY += y * y
	}

	fn := float64(n)
	numerator := fn*sumXY - sumX*sumY
	denom := math.Sqrt((fn*sumXX - sumX*sumX) * (fn*sumYY - sumY*sumY))
	if denom == 0 || math.IsNaN(denom) {
		return 0, false
	}

	return Clamp(numerator/denom, -1, 1), true
}

// ClassifyStrength buckets a coefficient into strong, moderate or weak
func ClassifyStrength(r float64) models.CorrelationStrength {
	abs := math.Abs(r)
	switch {
	case abs >= CorrelationStrongThreshold:
		return models.StrengthStrong
	case abs >= CorrelationModerateThreshold:
		return models.StrengthModerate
	default:
		return models.StrengthWeak
	}
}

// SignificanceProxy is a sample-size based stand-in for a p-value.
// It is not a statistical test.
func SignificanceProxy(n int) float64 {
	if n > 10 {
		return 0.05
	}
	return 0.1
}

// dayBuckets groups entries by calendar day and then by tool id, keeping the
// input order inside each bucket.
func dayBuckets(entries []models.TrackingEntry, loc *time.Location) map[string]map[string][]models.TrackingEntry {
	if loc == nil {
		loc = time.UTC
	}
	days := make(map[string]map[string][]models.TrackingEntry)
	for _, e := range entries {
		key := e.Timestamp.In(loc).Format(dayLayout)
		if _, ok := days[key]; !ok {
			days[key] = make(map[string][]models.TrackingEntry)
		}
		days[key][e.ToolID] = append(days[key][e.ToolID], e)
	}
	return days
}

// firstValue returns the first usable value of the metric within one day
func firstValue(byTool map[string][]models.TrackingEntry, m Metric) (float64, bool) {
	for _, tool := range m.Tools {
		for _, e := range byTool[tool] {
			if v, ok := m.Value(e); ok {
				return v, true
			}
		}
	}
	return 0, false
}

// AlignDaily pairs the two metrics on days where both have a value. Pairs
// are ordered by day.
func AlignDaily(entries []models.TrackingEntry, a, b Metric, loc *time.Location) (xs, ys []float64) {
	days := dayBuckets(entries, loc)

	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, day := range keys {
		x, okX := firstValue(days[day], a)
		if !okX {
			continue
		}
		y, okY := firstValue(days[day], b)
		if !okY {
			continue
		}
		xs = append(xs, x)
		ys = append(ys, y)
	}
	return xs, ys
}

// CalculateCorrelation correlates two metrics over daily-aligned values. It
// returns false when fewer than MinCorrelationPairs days pair up or the
// coefficient is undefined.
func CalculateCorrelation(entries []models.TrackingEntry, a, b Metric, loc *time.Location) (*models.CorrelationData, bool) {
	xs, ys := AlignDaily(entries, a, b, loc)
	if len(xs) < MinCorrelationPairs {
		return nil, false
	}

	r, ok := Pearson(xs, ys)
	if !ok {
		return nil, false
	}

	return &models.CorrelationData{
		MetricA:      a.Name,
		MetricB:      b.Name,
		Coefficient:  r,
		Significance: SignificanceProxy(len(xs)),
		Strength:     ClassifyStrength(r),
		DataPoints:   len(xs),
	}, true
}
