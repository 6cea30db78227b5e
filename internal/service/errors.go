package service

import "errors"

var (
	// ErrProfileNotFound aborts a score calculation for a user without a profile
	ErrProfileNotFound = errors.New("profile not found")
	// ErrAlertNotFound is returned when an alert id does not belong to the user
	ErrAlertNotFound = errors.New("alert not found")
	// ErrInsightNotFound is returned when the user has no insight yet
	ErrInsightNotFound = errors.New("insight not found")
	// ErrInvalidEntry wraps entry validation failures
	ErrInvalidEntry = errors.New("invalid entry")
	// ErrInvalidPeriod wraps unparseable period and range strings
	ErrInvalidPeriod = errors.New("invalid period")
)
