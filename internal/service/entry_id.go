package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	// ErrInvalidUUID indicates the string is not a valid UUID format
	ErrInvalidUUID = errors.New("invalid UUID format")
	// ErrNotUUIDv7 indicates the UUID is not version 7
	ErrNotUUIDv7 = errors.New("UUID must be version 7")
	// ErrFutureTimestamp indicates the UUIDv7 timestamp is too far in the future
	ErrFutureTimestamp = errors.New("UUID timestamp is too far in the future")
)

// MaxClockSkew is how far ahead of the server clock a client-supplied entry
// id or timestamp may be
const MaxClockSkew = time.Minute

// ResolveEntryID returns a new UUIDv7 when id is empty. A client-supplied id
// lets offline clients retry a write without creating duplicates, so it must
// be a UUIDv7 whose embedded time is not ahead of now.
func ResolveEntryID(id string, now time.Time) (string, error) {
	if id == "" {
		v7, err := uuid.NewV7()
		if err != nil {
			return "", fmt.Errorf("failed to generate entry id: %w", err)
		}
		return v7.String(), nil
	}

	parsed, err := uuid.Parse(id)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidUUID, err)
	}
	if parsed.Version() != 7 {
		return "", fmt.Errorf("%w: got version %d", ErrNotUUIDv7, parsed.Version())
	}

	sec, nsec := parsed.Time().UnixTime()
	if ts := time.Unix(sec, nsec); ts.After(now.Add(MaxClockSkew)) {
		return "", fmt.Errorf("%w: %v", ErrFutureTimestamp, ts.UTC().Format(time.RFC3339))
	}

	return parsed.String(), nil
}
