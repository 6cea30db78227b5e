package analytics

import (
	"math"
	"time"

	"github.com/wellnessgrid/backend/internal/models"
)

// MinTrendObservations is the fewest observations that produce a trend
const MinTrendObservations = 2

// SeriesStats summarizes an ordered series for direction classification
type SeriesStats struct {
	N        int
	Mean     float64
	Variance float64
	Slope    float64
	// PerWeek is the observation frequency over the elapsed span, floored at one week
	PerWeek float64
}

// Classifier maps series statistics to a metric-specific direction label
type Classifier func(s SeriesStats) models.Direction

// TrendRule is the per-metric tuning for trend computation
type TrendRule struct {
	Metric               string
	ConfidenceCap        float64
	ConfidenceFloor      float64
	ConfidenceNormalizer float64
	// Frequency rules report sessions per week as the value and omit the slope
	Frequency bool
	Classify  Classifier
}

// Confidence returns min(cap, max(floor, n/normalizer))
func (r TrendRule) Confidence(n int) float64 {
	normalizer := r.ConfidenceNormalizer
	if normalizer <= 0 {
		normalizer = 1
	}
	return math.Min(r.ConfidenceCap, math.Max(r.ConfidenceFloor, float64(n)/normalizer))
}

// GlucoseClassifier labels glucose trends relative to the high/low mean bounds.
// deadZone is the absolute slope (mg/dL per reading) treated as flat.
func GlucoseClassifier(high, low, deadZone float64) Classifier {
	return func(s SeriesStats) models.Direction {
		if math.Abs(s.Slope) < deadZone {
			return models.DirectionStable
		}
		rising := s.Slope > 0
		switch {
		case s.Mean > high && rising:
			return models.DirectionConcerning
		case s.Mean > high:
			return models.DirectionImproving
		case s.Mean < low && !rising:
			return models.DirectionConcerning
		case s.Mean < low:
			return models.DirectionImproving
		case rising:
			return models.DirectionIncreasing
		default:
			return models.DirectionDecreasing
		}
	}
}

// MoodClassifier labels mood trends on a 0-10 scale
func MoodClassifier(highMean, lowMean, deadZone float64) Classifier {
	return func(s SeriesStats) models.Direction {
		switch {
		case s.Mean >= highMean && s.Slope > 0:
			return models.DirectionImproving
		case s.Mean <= lowMean && s.Slope < 0:
			return models.DirectionDeclining
		case math.Abs(s.Slope) < deadZone:
			return models.DirectionStable
		case s.Slope > 0:
			return models.DirectionImproving
		default:
			return models.DirectionDeclining
		}
	}
}

// SleepClassifier labels sleep duration trends in hours
func SleepClassifier(goodMean, concerningMean, deadZone float64) Classifier {
	return func(s SeriesStats) models.Direction {
		switch {
		case s.Mean >= goodMean:
			return models.DirectionGood
		case s.Mean <= concerningMean:
			return models.DirectionConcerning
		case math.Abs(s.Slope) < deadZone:
			return models.DirectionStable
		case s.Slope > 0:
			return models.DirectionImproving
		default:
			return models.DirectionDeclining
		}
	}
}

// FrequencyClassifier labels activity by sessions per week
func FrequencyClassifier(excellent, good, moderate float64) Classifier {
	return func(s SeriesStats) models.Direction {
		switch {
		case s.PerWeek >= excellent:
			return models.DirectionExcellent
		case s.PerWeek >= good:
			return models.DirectionGood
		case s.PerWeek >= moderate:
			return models.DirectionModerate
		default:
			return models.DirectionLow
		}
	}
}

// SlopeClassifier labels a trend by slope sign outside a dead zone
func SlopeClassifier(deadZone float64) Classifier {
	return func(s SeriesStats) models.Direction {
		switch {
		case math.Abs(s.Slope) < deadZone:
			return models.DirectionStable
		case s.Slope > 0:
			return models.DirectionIncreasing
		default:
			return models.DirectionDecreasing
		}
	}
}

// DefaultTrendRules returns the rule table used by the analytics service
func DefaultTrendRules() map[string]TrendRule {
	return map[string]TrendRule{
		MetricGlucose: {
			Metric: MetricGlucose, ConfidenceCap: 0.95, ConfidenceFloor: 0.6, ConfidenceNormalizer: 30,
			Classify: GlucoseClassifier(140, 70, 1),
		},
		MetricMood: {
			Metric: MetricMood, ConfidenceCap: 0.9, ConfidenceFloor: 0.5, ConfidenceNormalizer: 20,
			Classify: MoodClassifier(7, 4, 0.1),
		},
		MetricSleepHours: {
			Metric: MetricSleepHours, ConfidenceCap: 0.9, ConfidenceFloor: 0.5, ConfidenceNormalizer: 14,
			Classify: SleepClassifier(7.5, 5.5, 0.1),
		},
		MetricExerciseMinutes: {
			Metric: MetricExerciseMinutes, ConfidenceCap: 0.85, ConfidenceFloor: 0.5, ConfidenceNormalizer: 10,
			Frequency: true,
			Classify:  FrequencyClassifier(4, 2, 1),
		},
		MetricSystolic: {
			Metric: MetricSystolic, ConfidenceCap: 0.9, ConfidenceFloor: 0.5, ConfidenceNormalizer: 20,
			Classify: SlopeClassifier(0.5),
		},
		MetricDiastolic: {
			Metric: MetricDiastolic, ConfidenceCap: 0.9, ConfidenceFloor: 0.5, ConfidenceNormalizer: 20,
			Classify: SlopeClassifier(0.5),
		},
		MetricHeartRate: {
			Metric: MetricHeartRate, ConfidenceCap: 0.9, ConfidenceFloor: 0.5, ConfidenceNormalizer: 20,
			Classify: SlopeClassifier(0.5),
		},
		MetricSymptomSeverity: {
			Metric: MetricSymptomSeverity, ConfidenceCap: 0.85, ConfidenceFloor: 0.5, ConfidenceNormalizer: 14,
			Classify: SlopeClassifier(0.1),
		},
	}
}

// Stats computes the statistics of observations ordered oldest to newest
func Stats(obs []Observation) SeriesStats {
	values := Values(obs)
	s := SeriesStats{
		N:        len(values),
		Mean:     Mean(values),
		Variance: Variance(values),
		Slope:    LinearSlope(values),
	}

	if len(obs) > 0 {
		weeks := obs[len(obs)-1].Timestamp.Sub(obs[0].Timestamp).Hours() / (24 * 7)
		if weeks < 1 {
			weeks = 1
		}
		s.PerWeek = float64(len(obs)) / weeks
	}

	return s
}

// CalculateTrend computes the trend for one metric. It returns false when
// fewer than MinTrendObservations observations exist.
func CalculateTrend(obs []Observation, rule TrendRule) (*models.HealthTrend, bool) {
	if len(obs) < MinTrendObservations {
		return nil, false
	}

	s := Stats(obs)
	trend := &models.HealthTrend{
		Metric:     rule.Metric,
		Value:      s.Mean,
		Confidence: rule.Confidence(s.N),
		Variance:   s.Variance,
		DataPoints: s.N,
	}

	if rule.Frequency {
		trend.Value = s.PerWeek
	} else {
		slope := s.Slope
		trend.Slope = &slope
	}

	if rule.Classify != nil {
		trend.Direction = rule.Classify(s)
	} else {
		trend.Direction = SlopeClassifier(0.1)(s)
	}

	return trend, true
}

// LatestTimestamp returns the newest observation time, or the zero time
func LatestTimestamp(obs []Observation) time.Time {
	var latest time.Time
	for _, o := range obs {
		if o.Timestamp.After(latest) {
			latest = o.Timestamp
		}
	}
	return latest
}
