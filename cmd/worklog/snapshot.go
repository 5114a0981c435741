package main

import (
	"time"

	"github.com/spf13/cobra"

	"worklog/internal/capture"
	appLog "worklog/internal/log"
)

func newSnapshotCmd(flags *rootFlags) *cobra.Command {
	var (
		url     string
		out     string
		width   int
		height  int
		timeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Capture the calendar page of a running server to PNG",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			conf, err := loadConfig(flags)
			if err != nil {
				return err
			}
			if url == "" {
				url = "http://" + conf.Listen + "/calendar/"
			}
			if out == "" {
				out = conf.SnapshotPath
			}

			opts := capture.Options{
				URL:        url,
				OutputPath: out,
				Width:      width,
				Height:     height,
				Timeout:    timeout,
			}
			if err := capture.CaptureCalendarPNG(cmd.Context(), opts); err != nil {
				appLog.Error("snapshot failed", err, "url", url)
				return err
			}
			appLog.Info("snapshot written", "path", out)
			return nil
		},
	}
	cmd.Flags().StringVar(&url, "url", "", "Calendar page URL (default: http://<listen>/calendar/)")
	cmd.Flags().StringVar(&out, "out", "", "Output PNG path (default: snapshot_path from config)")
	cmd.Flags().IntVar(&width, "width", 0, "Viewport width in pixels")
	cmd.Flags().IntVar(&height, "height", 0, "Viewport height in pixels")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Capture timeout")
	return cmd
}
