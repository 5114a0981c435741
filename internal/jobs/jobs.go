// Package jobs loads locally entered jobs from a YAML file and watches it
// for edits.
package jobs

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	appLog "worklog/internal/log"
	"worklog/internal/model"
)

// SourceID tags occurrences that come from the jobs file.
const SourceID = "jobs"

var (
	ErrEmptyPath    = errors.New("jobs: path is empty")
	ErrMissingStart = errors.New("jobs: start is required")
)

// fileFormat is the on-disk shape: a top-level "jobs" list.
type fileFormat struct {
	Jobs []model.Job `yaml:"jobs"`
}

// Load reads the jobs file. Jobs without an id get a random UUID (not
// persisted), and jobs without an end become zero-length.
func Load(path string) ([]model.Job, error) {
	if path == "" {
		return nil, ErrEmptyPath
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return Parse(data)
}

// Parse decodes a jobs document.
func Parse(data []byte) ([]model.Job, error) {
	var f fileFormat
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("jobs: parse: %w", err)
	}

	out := make([]model.Job, 0, len(f.Jobs))
	for i, j := range f.Jobs {
		if j.Start.IsZero() {
			return nil, fmt.Errorf("jobs[%d] %q: %w", i, j.Title, ErrMissingStart)
		}
		if j.ID == "" {
			j.ID = uuid.NewString()
		}
		if j.End.IsZero() {
			if j.AllDay {
				j.End = j.Start.AddDate(0, 0, 1)
			} else {
				j.End = j.Start
			}
		}
		out = append(out, j)
	}
	return out, nil
}

// Occurrences converts jobs touching [rangeStart, rangeEnd) into calendar
// occurrences in loc.
func Occurrences(jobs []model.Job, loc *time.Location, rangeStart, rangeEnd time.Time) []model.Occurrence {
	if loc == nil {
		loc = time.Local
	}
	out := make([]model.Occurrence, 0, len(jobs))
	for _, j := range jobs {
		if !model.InWindow(j.Start, j.End, rangeStart, rangeEnd) {
			continue
		}
		start := j.Start.In(loc)
		desc := j.Notes
		if j.Crew != "" {
			desc = "Crew: " + j.Crew + "\n" + desc
		}
		out = append(out, model.Occurrence{
			SourceID:    SourceID,
			UID:         j.ID,
			InstanceKey: start.Format(time.RFC3339Nano),
			Title:       j.Title,
			Address:     j.Address,
			Description: desc,
			AllDay:      j.AllDay,
			Start:       start,
			End:         j.End.In(loc),
		})
	}
	return out
}

// Watch calls onChange whenever path is written, created or renamed into
// place, until ctx is done. Editors that replace the file atomically are
// handled by watching the parent directory.
func Watch(ctx context.Context, path string, onChange func()) error {
	if path == "" {
		return ErrEmptyPath
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("jobs: watch %s: %w", filepath.Dir(abs), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				appLog.Debug("jobs file changed", "path", abs, "op", ev.Op.String())
				onChange()
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			appLog.Error("jobs watcher error", err, "path", abs)
		}
	}
}
