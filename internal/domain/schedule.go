package domain

import "time"

// GlobalScheduleState is the shared pacing document read and written by the gate.
//
// LockUntil is either nil or an instant after which the lock counts as released,
// whoever set it. LockOwner is informational only.
type GlobalScheduleState struct {
	LockUntil             *time.Time
	LockOwner             string
	LastPostedAt          *time.Time
	UpdateIntervalMinutes int
	StartTime             string
	LastResetDate         string
	PostsToday            int
	DisabledSources       []string
}

// Locked reports whether the timestamp lock is still live at now.
func (s GlobalScheduleState) Locked(now time.Time) bool {
	return s.LockUntil != nil && now.Before(*s.LockUntil)
}

// IsDisabled reports whether the source id is in the disabled-set.
func (s GlobalScheduleState) IsDisabled(id string) bool {
	for _, d := range s.DisabledSources {
		if d == id {
			return true
		}
	}
	return false
}

// LeaseToken identifies an acquired lease so it can be released.
type LeaseToken struct {
	Owner string
	Until time.Time
}

// DateLayout is the calendar-day format used for LastResetDate.
const DateLayout = "2006-01-02"
