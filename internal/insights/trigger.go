package insights

import (
	"fmt"
	"time"

	"github.com/wellnessgrid/backend/internal/analytics"
	"github.com/wellnessgrid/backend/internal/models"
)

const (
	DailyInterval   = 24 * time.Hour
	WeeklyInterval  = 7 * 24 * time.Hour
	MinDailyEntries = 3

	// patternHistory is how many earlier readings form the baseline
	patternHistory = 10
)

// Decision says whether and why an insight should be generated
type Decision struct {
	Generate bool
	Type     models.InsightType
	Reason   string
}

// baseline returns values of the metric from entries other than newest
func baseline(m analytics.Metric, newest models.TrackingEntry, history []models.TrackingEntry) []float64 {
	var prior []models.TrackingEntry
	for _, e := range history {
		if sameEntry(e, newest) {
			continue
		}
		if e.Timestamp.After(newest.Timestamp) {
			continue
		}
		prior = append(prior, e)
	}
	values := analytics.Values(analytics.Extract(prior, m))
	if len(values) > patternHistory {
		values = values[len(values)-patternHistory:]
	}
	return values
}

func sameEntry(a, b models.TrackingEntry) bool {
	if a.ID != "" || b.ID != "" {
		return a.ID == b.ID
	}
	return a.ToolID == b.ToolID && a.Timestamp.Equal(b.Timestamp)
}

// DetectPattern checks the newest entry against thresholds and the user's
// recent history. history may include the newest entry.
func DetectPattern(newest models.TrackingEntry, history []models.TrackingEntry) (string, bool) {
	if g, ok := analytics.MustMetric(analytics.MetricGlucose).Value(newest); ok {
		if g < 70 || g > 250 {
			return fmt.Sprintf("glucose reading of %.0f mg/dL is out of the safe range", g), true
		}
		prior := baseline(analytics.MustMetric(analytics.MetricGlucose), newest, history)
		if len(prior) >= 3 {
			mean, sd := analytics.Mean(prior), analytics.StdDev(prior)
			if sd > 0 && (g-mean > 2*sd || mean-g > 2*sd) {
				return fmt.Sprintf("glucose reading of %.0f mg/dL deviates from the recent average of %.0f", g, mean), true
			}
		}
	}

	if m, ok := analytics.MustMetric(analytics.MetricMood).Value(newest); ok {
		if m <= 3 {
			return fmt.Sprintf("mood rating of %.0f is low", m), true
		}
		prior := baseline(analytics.MustMetric(analytics.MetricMood), newest, history)
		if len(prior) > 0 && analytics.Mean(prior)-m >= 3 {
			return fmt.Sprintf("mood dropped to %.0f from a recent average of %.1f", m, analytics.Mean(prior)), true
		}
	}

	sys, okS := analytics.MustMetric(analytics.MetricSystolic).Value(newest)
	dia, okD := analytics.MustMetric(analytics.MetricDiastolic).Value(newest)
	if (okS && sys >= 140) || (okD && dia >= 90) {
		return fmt.Sprintf("blood pressure of %s is elevated", analytics.FormatBloodPressure(sys, okS, dia, okD)), true
	}

	if s, ok := analytics.MustMetric(analytics.MetricSymptomSeverity).Value(newest); ok && s >= 7 {
		return fmt.Sprintf("symptom severity of %.0f is high", s), true
	}

	if h, ok := analytics.MustMetric(analytics.MetricSleepHours).Value(newest); ok && h < 5 {
		return fmt.Sprintf("only %.1f hours of sleep recorded", h), true
	}

	return "", false
}

// Decide applies the trigger policy in priority order: important pattern on
// the newest entry, then daily, then weekly. lastGenerated is nil when the
// user has no insight yet.
func Decide(newest *models.TrackingEntry, recent []models.TrackingEntry, lastGenerated *time.Time, now time.Time) Decision {
	if newest != nil {
		if reason, ok := DetectPattern(*newest, recent); ok {
			return Decision{Generate: true, Type: models.InsightTypeTriggered, Reason: reason}
		}
	}

	if lastGenerated == nil {
		return Decision{Generate: true, Type: models.InsightTypeWeekly, Reason: "no previous insight"}
	}

	since := now.Sub(*lastGenerated)
	if since >= DailyInterval {
		count := 0
		for _, e := range recent {
			if e.Timestamp.After(*lastGenerated) {
				count++
			}
		}
		if count >= MinDailyEntries {
			return Decision{Generate: true, Type: models.InsightTypeDaily, Reason: fmt.Sprintf("%d new entries since last insight", count)}
		}
	}

	if since >= WeeklyInterval {
		return Decision{Generate: true, Type: models.InsightTypeWeekly, Reason: "weekly refresh"}
	}

	return Decision{}
}
