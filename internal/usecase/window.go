package usecase

import (
	"time"

	"NewsRelay/internal/domain"
)

const startTimeLayout = "15:04"

// CheckStartWindow reports whether now, seen in loc, is at or after the daily start time.
// An empty or malformed start time never blocks.
func CheckStartWindow(startTime string, now time.Time, loc *time.Location) bool {
	if startTime == "" {
		return true
	}
	start, err := time.Parse(startTimeLayout, startTime)
	if err != nil {
		return true
	}
	if loc == nil {
		loc = time.UTC
	}
	local := now.In(loc)
	opening := time.Date(local.Year(), local.Month(), local.Day(), start.Hour(), start.Minute(), 0, 0, loc)
	return !local.Before(opening)
}

// CheckCooldown reports whether enough time passed since the last publication.
func CheckCooldown(lastPostedAt *time.Time, intervalMinutes int, now time.Time) bool {
	if lastPostedAt == nil || intervalMinutes <= 0 {
		return true
	}
	return now.Sub(*lastPostedAt) >= time.Duration(intervalMinutes)*time.Minute
}

// LocalDate is the calendar day of now in loc, used for the daily reset.
func LocalDate(now time.Time, loc *time.Location) string {
	if loc == nil {
		loc = time.UTC
	}
	return now.In(loc).Format(domain.DateLayout)
}
