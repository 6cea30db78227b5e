// Package insights builds text-generation prompts from tracked data, parses
// the model's JSON reply defensively and decides when insights regenerate.
package insights

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/wellnessgrid/backend/internal/analytics"
	"github.com/wellnessgrid/backend/internal/models"
)

// MetricSummary aggregates one metric over the summary window
type MetricSummary struct {
	Count     int
	Mean      float64
	Min       float64
	Max       float64
	Latest    float64
	Direction models.Direction
}

// Summary is the aggregated view of a user's data handed to the prompt
type Summary struct {
	InsightType   models.InsightType
	From          time.Time
	To            time.Time
	TotalEntries  int
	EntriesByTool map[string]int
	Metrics       map[string]MetricSummary
	Alerts        []models.UserAlert
	Conditions    []models.UserCondition
	TriggerReason string
}

var summaryMetrics = []string{
	analytics.MetricGlucose,
	analytics.MetricMood,
	analytics.MetricSleepHours,
	analytics.MetricSleepQuality,
	analytics.MetricSystolic,
	analytics.MetricDiastolic,
	analytics.MetricHeartRate,
	analytics.MetricExerciseMinutes,
	analytics.MetricSymptomSeverity,
}

// Summarize aggregates entries into a Summary. trends supplies direction
// labels by metric name and may be nil.
func Summarize(entries []models.TrackingEntry, trends []models.HealthTrend, from, to time.Time) Summary {
	s := Summary{
		From:          from,
		To:            to,
		TotalEntries:  len(entries),
		EntriesByTool: make(map[string]int),
		Metrics:       make(map[string]MetricSummary),
	}
	for _, e := range entries {
		s.EntriesByTool[e.ToolID]++
	}

	directions := make(map[string]models.Direction, len(trends))
	for _, t := range trends {
		directions[t.Metric] = t.Direction
	}

	for _, name := range summaryMetrics {
		obs := analytics.Extract(entries, analytics.MustMetric(name))
		if len(obs) == 0 {
			continue
		}
		values := analytics.Values(obs)
		ms := MetricSummary{
			Count:     len(values),
			Mean:      analytics.Mean(values),
			Min:       values[0],
			Max:       values[0],
			Latest:    values[len(values)-1],
			Direction: directions[name],
		}
		for _, v := range values {
			if v < ms.Min {
				ms.Min = v
			}
			if v > ms.Max {
				ms.Max = v
			}
		}
		s.Metrics[name] = ms
	}

	return s
}

// BuildPrompt renders the summary as an instruction requesting strict JSON
func BuildPrompt(s Summary) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Analyze this user's health tracking data and produce a %s insight.\n\n", insightLabel(s.InsightType))
	fmt.Fprintf(&b, "Period: %s to %s\n", s.From.Format("2006-01-02"), s.To.Format("2006-01-02"))
	fmt.Fprintf(&b, "Total entries: %d\n", s.TotalEntries)
	if s.TriggerReason != "" {
		fmt.Fprintf(&b, "Reason for this analysis: %s\n", s.TriggerReason)
	}

	if len(s.Conditions) > 0 {
		ids := make([]string, 0, len(s.Conditions))
		for _, c := range s.Conditions {
			ids = append(ids, c.ConditionID)
		}
		fmt.Fprintf(&b, "Known conditions: %s\n", strings.Join(ids, ", "))
	}

	if len(s.EntriesByTool) > 0 {
		b.WriteString("\nEntries by tracker:\n")
		for _, tool := range sortedKeys(s.EntriesByTool) {
			fmt.Fprintf(&b, "- %s: %d\n", tool, s.EntriesByTool[tool])
		}
	}

	if len(s.Metrics) > 0 {
		b.WriteString("\nMetrics:\n")
		for _, name := range summaryMetrics {
			m, ok := s.Metrics[name]
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "- %s: n=%d mean=%.1f min=%.1f max=%.1f latest=%.1f", name, m.Count, m.Mean, m.Min, m.Max, m.Latest)
			if m.Direction != "" {
				fmt.Fprintf(&b, " trend=%s", m.Direction)
			}
			b.WriteString("\n")
		}
	}

	if len(s.Alerts) > 0 {
		b.WriteString("\nActive alerts:\n")
		for _, a := range s.Alerts {
			fmt.Fprintf(&b, "- [%s] %s\n", a.Severity, a.Message)
		}
	}

	b.WriteString(`
Respond with only a JSON object in this exact shape:
{
  "trends": [{"title": "...", "description": "...", "metric": "..."}],
  "concerns": [{"title": "...", "description": "...", "severity": "low|medium|high"}],
  "recommendations": [{"title": "...", "description": "..."}],
  "achievements": [{"title": "...", "description": "..."}]
}
Use empty arrays when there is nothing to report. Do not give a diagnosis.`)

	return b.String()
}

func insightLabel(t models.InsightType) string {
	switch t {
	case models.InsightTypeDaily:
		return "daily"
	case models.InsightTypeWeekly:
		return "weekly"
	case models.InsightTypeMonthly:
		return "monthly"
	case models.InsightTypeTriggered:
		return "pattern-triggered"
	default:
		return "general"
	}
}

func sortedKeys(m map[string]int) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
