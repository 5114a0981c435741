package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"worklog/internal/colorsched"
	"worklog/internal/jobs"
	"worklog/internal/model"
)

func newScheduleCmd(flags *rootFlags) *cobra.Command {
	var (
		paletteSize int
		inputOrder  bool
		useConfig   bool
	)

	cmd := &cobra.Command{
		Use:   "schedule JOBS_FILE",
		Short: "Print the color assigned to each job in a jobs file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			list, err := jobs.Load(args[0])
			if err != nil {
				return err
			}

			palette := colorsched.DefaultPalette
			if useConfig {
				conf, err := loadConfig(flags)
				if err != nil {
					return err
				}
				palette = conf.ColorPalette()
			}
			size := palette.Size()
			if paletteSize > 0 {
				size = paletteSize
			}

			return printSchedule(cmd.OutOrStdout(), list, palette, size, inputOrder)
		},
	}
	cmd.Flags().IntVar(&paletteSize, "palette-size", 0, "Limit the number of colors (default and maximum: palette length)")
	cmd.Flags().BoolVar(&inputOrder, "input-order", false, "List jobs in file order instead of by start time")
	cmd.Flags().BoolVar(&useConfig, "use-config", false, "Take the palette from --config")
	return cmd
}

// printSchedule never uses more colors than palette holds; wrapped indexes
// would draw two overlapping jobs in the same color.
func printSchedule(w io.Writer, list []model.Job, palette colorsched.Palette, size int, inputOrder bool) error {
	size = min(size, palette.Size())
	assigned := colorsched.AssignColors(jobSpans(list), size)
	if inputOrder {
		assigned = colorsched.InputOrder(assigned)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tSTART\tEND\tCOLOR\t\tNOTE")
	for _, a := range assigned {
		j := list[a.Index]
		note := ""
		if a.Fallback {
			note = "palette exhausted"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%s\t%s\n",
			j.ID, j.Title,
			j.Start.Format(time.RFC3339), j.End.Format(time.RFC3339),
			a.Color, palette.Color(a.Color), note,
		)
	}
	if peak := colorsched.MaxConcurrent(jobSpans(list)); peak > size {
		fmt.Fprintf(tw, "\n%d jobs overlap at once but only %d colors are available\n", peak, size)
	}
	return tw.Flush()
}

// jobSpan adapts model.Job to colorsched.Interval.
type jobSpan model.Job

func (j jobSpan) Span() (time.Time, time.Time) { return j.Start, j.End }

func jobSpans(list []model.Job) []jobSpan {
	out := make([]jobSpan, len(list))
	for i, j := range list {
		out[i] = jobSpan(j)
	}
	return out
}
