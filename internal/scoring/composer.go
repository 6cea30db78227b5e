package scoring

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/wellnessgrid/backend/internal/analytics"
	"github.com/wellnessgrid/backend/internal/models"
)

const (
	// DefaultPeriod is used when no scoring period is given
	DefaultPeriod = "7d"

	trendThreshold   = 5.0
	trendHistorySize = 3
	minTrendHistory  = 2
)

// NormalizePeriod returns the canonical spelling of a period string, so "7D"
// and " 7d" share score history and cache entries with "7d".
func NormalizePeriod(period string) string {
	p := strings.ToLower(strings.TrimSpace(period))
	if p == "" {
		return DefaultPeriod
	}
	return p
}

// ParsePeriod converts "Nd", "Nw" or "Nh" into a duration. An empty string
// means DefaultPeriod.
func ParsePeriod(period string) (time.Duration, error) {
	p := NormalizePeriod(period)
	if len(p) < 2 {
		return 0, fmt.Errorf("invalid period %q", period)
	}

	n, err := strconv.Atoi(p[:len(p)-1])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid period %q", period)
	}

	switch p[len(p)-1] {
	case 'h':
		return time.Duration(n) * time.Hour, nil
	case 'd':
		return time.Duration(n) * 24 * time.Hour, nil
	case 'w':
		return time.Duration(n) * 7 * 24 * time.Hour, nil
	default:
		return 0, fmt.Errorf("invalid period unit in %q", period)
	}
}

// Composer turns entries and a profile into a HealthScore
type Composer struct {
	Base      Weights
	Overrides []ConditionOverride
}

// NewComposer returns a Composer using the default weight table
func NewComposer() *Composer {
	return &Composer{Base: BaseWeights(), Overrides: DefaultOverrides()}
}

// Components computes every sub-score that has data in the given entries
func Components(entries []models.TrackingEntry, period time.Duration) map[models.ScoreComponent]float64 {
	scores := make(map[models.ScoreComponent]float64)

	glucose := analytics.Values(analytics.Extract(entries, analytics.MustMetric(analytics.MetricGlucose)))
	if s, ok := GlucoseScore(glucose); ok {
		scores[models.ComponentGlucose] = s
	}
	if s, ok := MedicationScore(entries); ok {
		scores[models.ComponentMedication] = s
	}
	if s, ok := SleepScore(entries); ok {
		scores[models.ComponentSleep] = s
	}
	mood := analytics.Values(analytics.Extract(entries, analytics.MustMetric(analytics.MetricMood)))
	if s, ok := MoodScore(mood); ok {
		scores[models.ComponentMood] = s
	}
	if s, ok := VitalsScore(entries); ok {
		scores[models.ComponentVitals] = s
	}
	if s, ok := ExerciseScore(entries, period); ok {
		scores[models.ComponentExercise] = s
	}
	if s, ok := NutritionScore(entries, period); ok {
		scores[models.ComponentNutrition] = s
	}

	return scores
}

// Compose builds a score from entries already limited to the scoring period.
// prior holds earlier scores for the same user and period, newest first.
func (c *Composer) Compose(userID, period string, entries []models.TrackingEntry, conditions []models.UserCondition, prior []models.HealthScore, now time.Time) (*models.HealthScore, error) {
	window, err := ParsePeriod(period)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = DefaultPeriod
	}

	components := Components(entries, window)

	present := make([]models.ScoreComponent, 0, len(components))
	for comp := range components {
		present = append(present, comp)
	}
	sort.Slice(present, func(i, j int) bool { return present[i] < present[j] })

	weights := Renormalize(Adjust(c.Base, c.Overrides, conditions), present)

	var overall float64
	for comp, w := range weights {
		overall += w * components[comp]
	}
	overall = analytics.Clamp(overall, 0, 100)

	return &models.HealthScore{
		UserID:          userID,
		OverallScore:    overall,
		ComponentScores: components,
		Weights:         weights,
		Trend:           ClassifyTrend(overall, prior),
		Period:          period,
		CalculatedAt:    now,
	}, nil
}

// ClassifyTrend compares a score with the mean of up to three prior scores
func ClassifyTrend(current float64, prior []models.HealthScore) models.ScoreTrend {
	if len(prior) < minTrendHistory {
		return models.ScoreTrendInsufficientData
	}
	if len(prior) > trendHistorySize {
		prior = prior[:trendHistorySize]
	}

	var sum float64
	for _, p := range prior {
		sum += p.OverallScore
	}
	delta := current - sum/float64(len(prior))

	switch {
	case delta > trendThreshold:
		return models.ScoreTrendImproving
	case delta < -trendThreshold:
		return models.ScoreTrendDeclining
	default:
		return models.ScoreTrendStable
	}
}
