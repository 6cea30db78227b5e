package models

import "time"

// Severity ranks how urgently an alert needs attention
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityUrgent   Severity = "urgent"
	SeverityCritical Severity = "critical"
)

// Rank orders severities from least (0) to most (3) severe.
func (s Severity) Rank() int {
	switch s {
	case SeverityWarning:
		return 1
	case SeverityUrgent:
		return 2
	case SeverityCritical:
		return 3
	default:
		return 0
	}
}

// UserAlert is a deterministic threshold alert. Only the read and dismissed
// flags change after creation.
type UserAlert struct {
	ID             string         `json:"id"`
	UserID         string         `json:"user_id"`
	AlertType      string         `json:"alert_type"`
	Severity       Severity       `json:"severity"`
	Message        string         `json:"message"`
	ActionRequired string         `json:"action_required,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	IsRead         bool           `json:"is_read"`
	IsDismissed    bool           `json:"is_dismissed"`
	ExpiresAt      *time.Time     `json:"expires_at,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}

// AlertFilter narrows an alert listing
type AlertFilter struct {
	IncludeDismissed bool `form:"include_dismissed"`
	UnreadOnly       bool `form:"unread_only"`
	Limit            int  `form:"limit"`
}
