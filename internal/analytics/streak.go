package analytics

import (
	"sort"
	"time"

	"github.com/wellnessgrid/backend/internal/models"
)

// civilDay normalizes t to midnight UTC of its calendar day in loc, so day
// differences are whole numbers regardless of DST.
func civilDay(t time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func daysBetween(later, earlier time.Time) int {
	return int(later.Sub(earlier).Hours() / 24)
}

// distinctDaysDesc returns the calendar days that have at least one entry,
// newest first.
func distinctDaysDesc(entries []models.TrackingEntry, loc *time.Location) []time.Time {
	seen := make(map[time.Time]bool)
	days := make([]time.Time, 0)
	for _, e := range entries {
		d := civilDay(e.Timestamp, loc)
		if seen[d] {
			continue
		}
		seen[d] = true
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days
}

// CurrentStreak walks entry days from now backwards. A day within one day of
// the cursor extends the streak and moves the cursor; any larger gap ends it.
func CurrentStreak(entries []models.TrackingEntry, now time.Time, loc *time.Location) int {
	cursor := civilDay(now, loc)
	streak := 0
	for _, day := range distinctDaysDesc(entries, loc) {
		if daysBetween(cursor, day) > 1 {
			break
		}
		streak++
		cursor = day
	}
	return streak
}

// LongestStreak returns the longest run of consecutive entry days in history
func LongestStreak(entries []models.TrackingEntry, loc *time.Location) int {
	days := distinctDaysDesc(entries, loc)
	if len(days) == 0 {
		return 0
	}

	longest, run := 1, 1
	for i := 1; i < len(days); i++ {
		if daysBetween(days[i-1], days[i]) == 1 {
			run++
		} else {
			run = 1
		}
		if run > longest {
			longest = run
		}
	}
	return longest
}

// CalculateStreak builds the streak summary for one tracker's entries
func CalculateStreak(metric string, entries []models.TrackingEntry, now time.Time, loc *time.Location) models.StreakData {
	data := models.StreakData{Metric: metric}
	if len(entries) == 0 {
		return data
	}

	data.CurrentStreak = CurrentStreak(entries, now, loc)
	data.BestStreak = LongestStreak(entries, loc)
	if data.CurrentStreak > data.BestStreak {
		data.BestStreak = data.CurrentStreak
	}

	var last time.Time
	for _, e := range entries {
		if e.Timestamp.After(last) {
			last = e.Timestamp
		}
	}
	data.LastEntryDate = &last

	return data
}
