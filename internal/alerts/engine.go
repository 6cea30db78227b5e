package alerts

import (
	"sort"
	"time"

	"github.com/wellnessgrid/backend/internal/models"
)

const (
	// Window is how far back entries are checked
	Window = 7 * 24 * time.Hour
	// DedupWindow suppresses a repeat alert of the same type
	DedupWindow = 24 * time.Hour
	// DefaultExpiry is how long a raised alert stays relevant
	DefaultExpiry = 7 * 24 * time.Hour
)

// Engine evaluates alert rules over a user's recent entries
type Engine struct {
	EntryRules     []EntryRule
	AggregateRules []AggregateRule
	Expiry         time.Duration
}

// NewEngine returns an Engine with the default rule set
func NewEngine() *Engine {
	return &Engine{
		EntryRules:     DefaultEntryRules(),
		AggregateRules: DefaultAggregateRules(),
		Expiry:         DefaultExpiry,
	}
}

// Recent keeps entries from the last Window before now, newest first
func Recent(entries []models.TrackingEntry, now time.Time) []models.TrackingEntry {
	cutoff := now.Add(-Window)
	out := make([]models.TrackingEntry, 0, len(entries))
	for _, e := range entries {
		if e.Timestamp.Before(cutoff) || e.Timestamp.After(now) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

// Evaluate returns at most one alert per type. Entry rules match the newest
// offending entry first.
func (en *Engine) Evaluate(userID string, entries []models.TrackingEntry, now time.Time) []models.UserAlert {
	recent := Recent(entries, now)

	seen := make(map[string]bool)
	var findings []Finding
	add := func(fs []Finding) {
		for _, f := range fs {
			if seen[f.Type] {
				continue
			}
			seen[f.Type] = true
			findings = append(findings, f)
		}
	}

	for _, e := range recent {
		for _, rule := range en.EntryRules {
			add(rule(e))
		}
	}
	for _, rule := range en.AggregateRules {
		add(rule(recent))
	}

	sort.SliceStable(findings, func(i, j int) bool {
		return findings[i].Severity.Rank() > findings[j].Severity.Rank()
	})

	alerts := make([]models.UserAlert, 0, len(findings))
	for _, f := range findings {
		alert := models.UserAlert{
			UserID:         userID,
			AlertType:      f.Type,
			Severity:       f.Severity,
			Message:        f.Message,
			ActionRequired: f.ActionRequired,
			Metadata:       f.Metadata,
			CreatedAt:      now,
		}
		if en.Expiry > 0 {
			expires := now.Add(en.Expiry)
			alert.ExpiresAt = &expires
		}
		alerts = append(alerts, alert)
	}
	return alerts
}

// Dedup drops candidates whose type already has an undismissed alert created
// within DedupWindow before now.
func Dedup(candidates, existing []models.UserAlert, now time.Time) []models.UserAlert {
	cutoff := now.Add(-DedupWindow)
	active := make(map[string]bool)
	for _, a := range existing {
		if a.IsDismissed || a.CreatedAt.Before(cutoff) {
			continue
		}
		active[a.AlertType] = true
	}

	out := make([]models.UserAlert, 0, len(candidates))
	for _, c := range candidates {
		if active[c.AlertType] {
			continue
		}
		active[c.AlertType] = true
		out = append(out, c)
	}
	return out
}
