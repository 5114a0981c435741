package ics

import (
	"errors"
	"fmt"
	"time"

	"github.com/teambition/rrule-go"

	appLog "worklog/internal/log"
	"worklog/internal/model"
)

const defaultMaxOccurrencesPerJob = 5000

var ErrInvalidRange = errors.New("ics: range end is before range start")

// ExpandConfig controls recurrence expansion.
type ExpandConfig struct {
	// DisplayLocation is the timezone occurrences are converted to.
	// If nil, time.Local is used.
	DisplayLocation *time.Location

	// RangeStart / RangeEnd bound the window for occurrences.
	RangeStart time.Time
	RangeEnd   time.Time

	// MaxOccurrencesPerJob caps runaway RRULEs. Zero means
	// defaultMaxOccurrencesPerJob.
	MaxOccurrencesPerJob int
}

// ExpandResult wraps the expanded occurrences.
type ExpandResult struct {
	Occurrences []model.Occurrence
	// TruncatedUIDs records UIDs that hit MaxOccurrencesPerJob.
	TruncatedUIDs []string
}

// ExpandOccurrences turns parsed jobs into concrete occurrences inside the
// window. It handles single jobs, RRULE recurrence, EXDATE removals,
// RECURRENCE-ID overrides and all-day jobs.
func ExpandOccurrences(jobs []ParsedJob, cfg ExpandConfig) (ExpandResult, error) {
	var result ExpandResult

	if cfg.RangeEnd.Before(cfg.RangeStart) {
		return result, ErrInvalidRange
	}
	if cfg.DisplayLocation == nil {
		cfg.DisplayLocation = time.Local
	}
	if cfg.MaxOccurrencesPerJob <= 0 {
		cfg.MaxOccurrencesPerJob = defaultMaxOccurrencesPerJob
	}

	// Group base jobs and overrides by UID, keeping first-seen UID order so
	// output is deterministic.
	var uids []string
	baseByUID := make(map[string][]ParsedJob)
	overridesByUID := make(map[string][]ParsedJob)
	for _, j := range jobs {
		if j.IsOverride && j.Recurrence != nil {
			overridesByUID[j.UID] = append(overridesByUID[j.UID], j)
			continue
		}
		if _, ok := baseByUID[j.UID]; !ok {
			uids = append(uids, j.UID)
		}
		baseByUID[j.UID] = append(baseByUID[j.UID], j)
	}

	result.Occurrences = make([]model.Occurrence, 0)
	for _, uid := range uids {
		ov := overridesByUID[uid]
		truncated := false
		for _, j := range baseByUID[uid] {
			occ, hitCap := expandJob(j, ov, cfg)
			truncated = truncated || hitCap
			result.Occurrences = append(result.Occurrences, occ...)
		}
		if truncated {
			result.TruncatedUIDs = append(result.TruncatedUIDs, uid)
			appLog.Error("expand: truncated occurrences",
				fmt.Errorf("max occurrences %d reached", cfg.MaxOccurrencesPerJob),
				"uid", uid,
			)
		}
	}

	return result, nil
}

func expandJob(j ParsedJob, overrides []ParsedJob, cfg ExpandConfig) ([]model.Occurrence, bool) {
	if j.RawRRule == "" {
		return expandSingle(j, overrides, cfg), false
	}
	return expandRecurring(j, overrides, cfg)
}

func expandSingle(j ParsedJob, overrides []ParsedJob, cfg ExpandConfig) []model.Occurrence {
	start, end := j.Start, j.End
	if o, ok := findOverride(overrides, start); ok {
		j, start, end = o, o.Start, o.End
	}
	if !model.InWindow(start, end, cfg.RangeStart, cfg.RangeEnd) {
		return nil
	}
	return []model.Occurrence{makeOccurrence(j, start, end, cfg.DisplayLocation)}
}

func expandRecurring(j ParsedJob, overrides []ParsedJob, cfg ExpandConfig) ([]model.Occurrence, bool) {
	r, err := rrule.StrToRRule(j.RawRRule)
	if err != nil {
		appLog.Error("expand: failed to parse RRULE", err, "uid", j.UID, "rrule", j.RawRRule)
		return nil, false
	}
	r.DTStart(j.Start)

	var set rrule.Set
	set.RRule(r)
	for _, ex := range j.ExDates {
		set.ExDate(ex.In(j.Start.Location()))
	}

	loc := j.Start.Location()
	dur := j.End.Sub(j.Start)

	// Widen the lower bound by the duration so instances that started
	// before the window but are still running are kept.
	starts := set.Between(cfg.RangeStart.Add(-dur).In(loc), cfg.RangeEnd.In(loc), true)

	hitCap := false
	if len(starts) > cfg.MaxOccurrencesPerJob {
		starts = starts[:cfg.MaxOccurrencesPerJob]
		hitCap = true
	}

	out := make([]model.Occurrence, 0, len(starts))
	for _, s := range starts {
		var e time.Time
		if j.AllDay {
			// [date 00:00, next day 00:00) in the job's own zone.
			s = time.Date(s.Year(), s.Month(), s.Day(), 0, 0, 0, 0, s.Location())
			e = s.AddDate(0, 0, 1)
		} else {
			e = s.Add(dur)
		}

		inst := j
		if o, ok := findOverride(overrides, s); ok {
			inst, s, e = o, o.Start, o.End
		}
		if !model.InWindow(s, e, cfg.RangeStart, cfg.RangeEnd) {
			continue
		}
		out = append(out, makeOccurrence(inst, s, e, cfg.DisplayLocation))
	}
	return out, hitCap
}

// findOverride finds an override whose RECURRENCE-ID equals start.
func findOverride(overrides []ParsedJob, start time.Time) (ParsedJob, bool) {
	for _, o := range overrides {
		if o.Recurrence != nil && o.Recurrence.Equal(start) {
			return o, true
		}
	}
	return ParsedJob{}, false
}

func makeOccurrence(j ParsedJob, start, end time.Time, displayLoc *time.Location) model.Occurrence {
	startLocal := start.In(displayLoc)
	return model.Occurrence{
		SourceID:    j.Source.ID,
		UID:         j.UID,
		InstanceKey: startLocal.Format(time.RFC3339Nano),
		Title:       j.Title,
		Address:     j.Address,
		Description: j.Description,
		AllDay:      j.AllDay,
		Start:       startLocal,
		End:         end.In(displayLoc),
	}
}
