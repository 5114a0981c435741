package model

import "time"

// Job is a unit of work entered in the local jobs file, e.g. a mold
// remediation visit at a given address.
type Job struct {
	ID      string `yaml:"id" json:"id"`
	Title   string `yaml:"title" json:"title"`
	Address string `yaml:"address" json:"address"`
	Crew    string `yaml:"crew" json:"crew"`
	Status  string `yaml:"status" json:"status"`
	Notes   string `yaml:"notes" json:"notes"`

	AllDay bool `yaml:"all_day" json:"all_day"`

	Start time.Time `yaml:"start" json:"start"`
	End   time.Time `yaml:"end" json:"end"`
}

// Occurrence represents a single concrete instance of a job on the
// calendar (after recurrence expansion and timezone normalization).
type Occurrence struct {
	SourceID string // feed ID, or "jobs" for the local jobs file
	UID      string

	// InstanceKey uniquely identifies a single occurrence of a recurring
	// job, typically derived from the local start time.
	InstanceKey string

	Title       string
	Address     string
	Description string

	AllDay bool

	// Start / End are in the configured display timezone.
	Start time.Time
	End   time.Time
}

// Span implements colorsched.Interval.
func (o Occurrence) Span() (time.Time, time.Time) {
	return o.Start, o.End
}

// InWindow reports whether [start, end) intersects [rangeStart, rangeEnd).
// A zero-length item counts when its start falls inside the window.
func InWindow(start, end, rangeStart, rangeEnd time.Time) bool {
	if !start.Before(rangeEnd) {
		return false
	}
	if end.After(start) {
		return end.After(rangeStart)
	}
	return !start.Before(rangeStart)
}
