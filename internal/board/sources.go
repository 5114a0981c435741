package board

import (
	"context"
	"errors"
	"sync"

	"worklog/internal/ics"
	"worklog/internal/jobs"
	"worklog/internal/model"
)

// FeedSource pulls jobs from ICS feeds.
type FeedSource struct {
	Fetcher *ics.Fetcher
	Feeds   []ics.Source
	// MaxOccurrencesPerJob is passed through to expansion.
	MaxOccurrencesPerJob int
}

func (s *FeedSource) Name() string { return "feeds" }

// Occurrences fetches, parses and expands every feed. Partial failures are
// returned alongside whatever did succeed.
func (s *FeedSource) Occurrences(ctx context.Context, w Window) ([]model.Occurrence, error) {
	if len(s.Feeds) == 0 {
		return nil, nil
	}

	results, fetchErr := s.Fetcher.FetchAll(ctx, s.Feeds)
	errs := []error{fetchErr}

	var parsed []ics.ParsedJob
	for _, res := range results {
		pj, err := ics.ParseICS(res.Source, res.Body)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		parsed = append(parsed, pj...)
	}

	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation:      w.Location,
		RangeStart:           w.Start,
		RangeEnd:             w.End,
		MaxOccurrencesPerJob: s.MaxOccurrencesPerJob,
	})
	if err != nil {
		return nil, errors.Join(append(errs, err)...)
	}
	return expanded.Occurrences, errors.Join(errs...)
}

// FileSource serves jobs from the local jobs file. It reloads lazily after
// Invalidate, which the file watcher calls.
type FileSource struct {
	Path string

	mu     sync.Mutex
	loaded []model.Job
	stale  bool
	ok     bool
}

func (s *FileSource) Name() string { return "jobs_file" }

// Invalidate forces the next Occurrences call to re-read the file.
func (s *FileSource) Invalidate() {
	s.mu.Lock()
	s.stale = true
	s.mu.Unlock()
}

func (s *FileSource) Occurrences(_ context.Context, w Window) ([]model.Occurrence, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.ok || s.stale {
		list, err := jobs.Load(s.Path)
		if err != nil {
			// Keep serving the last good copy.
			return jobs.Occurrences(s.loaded, w.Location, w.Start, w.End), err
		}
		s.loaded, s.ok, s.stale = list, true, false
	}
	return jobs.Occurrences(s.loaded, w.Location, w.Start, w.End), nil
}
