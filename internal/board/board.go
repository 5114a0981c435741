// Package board assembles the colored job calendar: it gathers occurrences
// from every source, assigns palette colors so overlapping jobs stay
// distinguishable, and caches the result for the web layer.
package board

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"worklog/internal/colorsched"
	appLog "worklog/internal/log"
	"worklog/internal/model"
)

// Window is the time range a refresh covers, in the display timezone.
type Window struct {
	Start    time.Time
	End      time.Time
	Location *time.Location
}

// Source produces occurrences for a window.
type Source interface {
	Name() string
	Occurrences(ctx context.Context, w Window) ([]model.Occurrence, error)
}

// ColoredJob is an occurrence with its assigned color.
type ColoredJob struct {
	model.Occurrence
	ColorIndex int
	Color      string
	// Collision is set when the palette ran out and the color is shared
	// with an overlapping job.
	Collision bool
}

// Snapshot is one fully colored calendar.
type Snapshot struct {
	Jobs          []ColoredJob
	Palette       colorsched.Palette
	RangeStart    time.Time
	RangeEnd      time.Time
	Timezone      string
	MaxConcurrent int
	// Overflow reports that more jobs overlapped than the palette has colors.
	Overflow  bool
	UpdatedAt time.Time
	// SourceErrors lists sources that failed during the refresh.
	SourceErrors []string
}

// Options configures a Board.
type Options struct {
	Sources      []Source
	Palette      colorsched.Palette
	Location     *time.Location
	HorizonDays  int
	BackfillDays int
	// Now is overridable for tests.
	Now func() time.Time
}

// Board owns the latest Snapshot.
type Board struct {
	opts Options

	refreshMu sync.Mutex

	mu   sync.RWMutex
	snap *Snapshot
}

// New constructs a Board. Zero values in opts get defaults.
func New(opts Options) *Board {
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if len(opts.Palette) == 0 {
		opts.Palette = colorsched.DefaultPalette
	}
	if opts.HorizonDays <= 0 {
		opts.HorizonDays = 14
	}
	if opts.BackfillDays < 0 {
		opts.BackfillDays = 0
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Board{opts: opts}
}

// Window returns the range a refresh started now would cover.
func (b *Board) Window() Window {
	now := b.opts.Now().In(b.opts.Location)
	day := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, b.opts.Location)
	return Window{
		Start:    day.AddDate(0, 0, -b.opts.BackfillDays),
		End:      day.AddDate(0, 0, b.opts.HorizonDays),
		Location: b.opts.Location,
	}
}

// Refresh rebuilds the snapshot. Failing sources are logged and skipped;
// the returned error joins them but the snapshot is still replaced.
func (b *Board) Refresh(ctx context.Context) (*Snapshot, error) {
	b.refreshMu.Lock()
	defer b.refreshMu.Unlock()

	w := b.Window()
	started := time.Now()

	var (
		all     []model.Occurrence
		errs    []error
		srcErrs []string
	)
	for _, src := range b.opts.Sources {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		occ, err := src.Occurrences(ctx, w)
		if err != nil {
			appLog.Error("board: source failed", err, "source", src.Name())
			errs = append(errs, fmt.Errorf("board: source %s: %w", src.Name(), err))
			srcErrs = append(srcErrs, src.Name())
		}
		all = append(all, occ...)
	}

	snap := b.color(all, w)
	snap.SourceErrors = srcErrs

	b.mu.Lock()
	b.snap = snap
	b.mu.Unlock()

	appLog.Info("board refreshed",
		"jobs", len(snap.Jobs),
		"max_concurrent", snap.MaxConcurrent,
		"overflow", snap.Overflow,
		"source_errors", len(srcErrs),
		"took", time.Since(started).String(),
	)
	return snap, errors.Join(errs...)
}

func (b *Board) color(occ []model.Occurrence, w Window) *Snapshot {
	palette := b.opts.Palette
	assigned := colorsched.AssignColors(occ, palette.Size())

	jobs := make([]ColoredJob, 0, len(assigned))
	for _, a := range assigned {
		jobs = append(jobs, ColoredJob{
			Occurrence: a.Item,
			ColorIndex: a.Color,
			Color:      palette.Color(a.Color),
			Collision:  a.Fallback,
		})
	}

	peak := colorsched.MaxConcurrent(occ)
	return &Snapshot{
		Jobs:          jobs,
		Palette:       palette,
		RangeStart:    w.Start,
		RangeEnd:      w.End,
		Timezone:      w.Location.String(),
		MaxConcurrent: peak,
		Overflow:      peak > palette.Size(),
		UpdatedAt:     b.opts.Now(),
	}
}

// Snapshot returns the latest snapshot, refreshing once if there is none.
func (b *Board) Snapshot(ctx context.Context) (*Snapshot, error) {
	b.mu.RLock()
	s := b.snap
	b.mu.RUnlock()
	if s != nil {
		return s, nil
	}
	s, err := b.Refresh(ctx)
	if s == nil {
		return nil, err
	}
	return s, nil
}

// StartCron runs Refresh on the given cron schedule in loc. The returned
// stop function blocks until a running refresh has finished.
func (b *Board) StartCron(ctx context.Context, spec string, loc *time.Location) (stop func(), err error) {
	if loc == nil {
		loc = b.opts.Location
	}
	c := cron.New(cron.WithLocation(loc), cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	_, err = c.AddFunc(spec, func() {
		if _, err := b.Refresh(ctx); err != nil {
			appLog.Error("board: scheduled refresh had errors", err)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("board: cron %q: %w", spec, err)
	}
	c.Start()
	appLog.Info("board refresh scheduled", "cron", spec, "timezone", loc.String())

	return func() {
		<-c.Stop().Done()
	}, nil
}
