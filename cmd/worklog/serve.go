package main

import (
	"context"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"worklog/internal/board"
	"worklog/internal/config"
	"worklog/internal/ics"
	"worklog/internal/jobs"
	appLog "worklog/internal/log"
	"worklog/internal/web"
)

func newServeCmd(flags *rootFlags) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the job calendar and keep it refreshed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(flags)
			if err != nil {
				return err
			}
			// --listen overrides config file listen if provided.
			if listen != "" {
				conf.Listen = listen
			}
			return runServe(cmd.Context(), conf)
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "HTTP listen address (overrides config if set)")
	return cmd
}

func runServe(ctx context.Context, conf *config.Config) error {
	loc := resolveLocationOrLocal(conf.Timezone)

	appLog.Info("worklog starting",
		"version", version,
		"listen", conf.Listen,
		"timezone", loc.String(),
		"refresh", conf.RefreshCron,
		"horizon_days", conf.HorizonDays,
		"palette_size", len(conf.Palette),
		"feed_count", len(conf.Feeds),
		"jobs_file", conf.JobsFile,
	)

	var fileSrc *board.FileSource
	sources := []board.Source{}
	if len(conf.Feeds) > 0 {
		sources = append(sources, &board.FeedSource{
			Fetcher: ics.NewFetcher(conf.CacheDir),
			Feeds:   feedSources(conf),
		})
	}
	if conf.JobsFile != "" {
		fileSrc = &board.FileSource{Path: conf.JobsFile}
		sources = append(sources, fileSrc)
	}

	b := board.New(board.Options{
		Sources:      sources,
		Palette:      conf.ColorPalette(),
		Location:     loc,
		HorizonDays:  conf.HorizonDays,
		BackfillDays: conf.BackfillDays,
	})
	if _, err := b.Refresh(ctx); err != nil {
		// Partial data is still served; the next cron run retries.
		appLog.Error("initial refresh had errors", err)
	}

	stopCron, err := b.StartCron(ctx, conf.RefreshCron, loc)
	if err != nil {
		return err
	}
	defer stopCron()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return web.NewServer(conf, b).Run(gctx)
	})
	if fileSrc != nil {
		g.Go(func() error {
			err := jobs.Watch(gctx, conf.JobsFile, func() {
				fileSrc.Invalidate()
				if _, err := b.Refresh(gctx); err != nil {
					appLog.Error("refresh after jobs file change had errors", err)
				}
			})
			if err != nil {
				// Serving continues without live reload.
				appLog.Error("jobs file watcher stopped", err, "path", conf.JobsFile)
			}
			return nil
		})
	}

	err = g.Wait()
	appLog.Info("worklog exiting")
	return err
}

func feedSources(conf *config.Config) []ics.Source {
	out := make([]ics.Source, 0, len(conf.Feeds))
	for _, f := range conf.Feeds {
		if f.URL == "" {
			continue
		}
		out = append(out, ics.Source{ID: f.SourceID(), URL: f.URL})
	}
	return out
}

func resolveLocationOrLocal(name string) *time.Location {
	if name == "" {
		return time.Local
	}
	loc, err := time.LoadLocation(name)
	if err != nil {
		appLog.Error("failed to load timezone; falling back to local", err, "name", name)
		return time.Local
	}
	return loc
}
