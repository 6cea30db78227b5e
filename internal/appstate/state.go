// Package appstate keeps a per-user snapshot of domain data that is updated
// only through typed events. Reduce is pure; Store adds locking and a
// bounded event log.
package appstate

import (
	"time"

	"github.com/wellnessgrid/backend/internal/models"
)

const (
	// MaxRecentEntries caps the entries kept in a snapshot
	MaxRecentEntries = 200
	// MaxAlerts caps the alerts kept in a snapshot, newest first
	MaxAlerts = 50
)

// State is one user's snapshot
type State struct {
	UserID        string                   `json:"user_id"`
	RecentEntries []models.TrackingEntry   `json:"recent_entries"`
	Analytics     *models.AnalyticsPayload `json:"analytics,omitempty"`
	LatestScore   *models.HealthScore      `json:"latest_score,omitempty"`
	Alerts        []models.UserAlert       `json:"alerts"`
	LatestInsight *models.HealthInsight    `json:"latest_insight,omitempty"`
	Version       int                      `json:"version"`
	UpdatedAt     time.Time                `json:"updated_at"`
}

// EventType names a state transition
type EventType string

const (
	EventEntriesLoaded      EventType = "entries_loaded"
	EventEntryRecorded      EventType = "entry_recorded"
	EventAnalyticsRefreshed EventType = "analytics_refreshed"
	EventScoreComputed      EventType = "score_computed"
	EventAlertsRaised       EventType = "alerts_raised"
	EventAlertRead          EventType = "alert_read"
	EventAlertDismissed     EventType = "alert_dismissed"
	EventInsightGenerated   EventType = "insight_generated"
	EventStateReset         EventType = "state_reset"
)

// Event is a typed state transition. Only the payload field matching Type is read.
type Event struct {
	Type      EventType                `json:"type"`
	UserID    string                   `json:"user_id"`
	At        time.Time                `json:"at"`
	Entries   []models.TrackingEntry   `json:"entries,omitempty"`
	Entry     *models.TrackingEntry    `json:"entry,omitempty"`
	Analytics *models.AnalyticsPayload `json:"analytics,omitempty"`
	Score     *models.HealthScore      `json:"score,omitempty"`
	Alerts    []models.UserAlert       `json:"alerts,omitempty"`
	AlertID   string                   `json:"alert_id,omitempty"`
	Insight   *models.HealthInsight    `json:"insight,omitempty"`
}

// Reduce returns the state after applying ev. The input state is never
// modified; slices are copied before changes.
func Reduce(s State, ev Event) State {
	next := s
	next.Version = s.Version + 1
	next.UpdatedAt = ev.At
	if next.UserID == "" {
		next.UserID = ev.UserID
	}

	switch ev.Type {
	case EventEntriesLoaded:
		next.RecentEntries = capEntries(append([]models.TrackingEntry(nil), ev.Entries...))

	case EventEntryRecorded:
		if ev.Entry == nil {
			return s
		}
		entries := make([]models.TrackingEntry, 0, len(s.RecentEntries)+1)
		entries = append(entries, *ev.Entry)
		entries = append(entries, s.RecentEntries...)
		next.RecentEntries = capEntries(entries)
		// a new entry makes derived data stale
		next.Analytics = nil

	case EventAnalyticsRefreshed:
		next.Analytics = ev.Analytics

	case EventScoreComputed:
		next.LatestScore = ev.Score

	case EventAlertsRaised:
		alerts := make([]models.UserAlert, 0, len(ev.Alerts)+len(s.Alerts))
		alerts = append(alerts, ev.Alerts...)
		alerts = append(alerts, s.Alerts...)
		if len(alerts) > MaxAlerts {
			alerts = alerts[:MaxAlerts]
		}
		next.Alerts = alerts

	case EventAlertRead, EventAlertDismissed:
		alerts := make([]models.UserAlert, len(s.Alerts))
		copy(alerts, s.Alerts)
		for i := range alerts {
			if alerts[i].ID != ev.AlertID {
				continue
			}
			if ev.Type == EventAlertRead {
				alerts[i].IsRead = true
			} else {
				alerts[i].IsDismissed = true
			}
		}
		next.Alerts = alerts

	case EventInsightGenerated:
		next.LatestInsight = ev.Insight

	case EventStateReset:
		return State{UserID: s.UserID, Version: next.Version, UpdatedAt: ev.At}

	default:
		return s
	}

	return next
}

func capEntries(entries []models.TrackingEntry) []models.TrackingEntry {
	if len(entries) > MaxRecentEntries {
		return entries[:MaxRecentEntries]
	}
	return entries
}
