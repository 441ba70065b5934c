package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/sensorlog/aranet-archive/internal/plot"
	"github.com/sensorlog/aranet-archive/internal/store"
)

// PlotOptions holds flags for the plot command.
type PlotOptions struct {
	*RootOptions
	Sensors     string
	Days        int
	StartDate   string
	EndDate     string
	MaxMeasures int
	Output      string
}

// NewPlotCommand creates the plot command: a PNG time series of the
// selected channels.
func NewPlotCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PlotOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "plot",
		Short: "Render archived readings as a PNG time series",
		Long: `Render the selected measurement channels as stacked line plots
sharing a time axis.

By default the last --days days are plotted; --start overrides --days
and --end defaults to the end of today. Dates are YYYY-MM-DD in the
configured local timezone.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlot(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Sensors, "sensors", "co2",
		fmt.Sprintf("comma-separated channels to plot (%s)", strings.Join(plot.ValidChannels(), ", ")))
	cmd.Flags().IntVar(&opts.Days, "days", 3, "plot the last N days (overridden by --start)")
	cmd.Flags().StringVar(&opts.StartDate, "start", "", "start date, YYYY-MM-DD")
	cmd.Flags().StringVar(&opts.EndDate, "end", "", "end date, YYYY-MM-DD")
	cmd.Flags().IntVar(&opts.MaxMeasures, "max-measures", 2000, "thin the series above this many points")
	cmd.Flags().StringVarP(&opts.Output, "output", "o", "aranet4.png", "output PNG path")

	return cmd
}

func runPlot(opts *PlotOptions, cmd *cobra.Command) error {
	loc := opts.timezone()

	from, to, err := plotRange(opts, loc, time.Now())
	if err != nil {
		return WrapExitError(ExitCommandError, "date range", err)
	}

	s, err := opts.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	rows, err := s.QueryRange(cmd.Context(), opts.deviceName(), store.RangeOptions{
		From:  from,
		To:    to,
		Order: store.OldestFirst,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "query archive", err)
	}

	var channels []string
	for _, part := range strings.Split(opts.Sensors, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			channels = append(channels, part)
		}
	}

	err = plot.Render(rows, plot.Options{
		Title:       fmt.Sprintf("%s (%s to %s)", opts.deviceName(), from.In(loc).Format("2006-01-02"), to.In(loc).Format("2006-01-02")),
		Channels:    channels,
		MaxMeasures: opts.MaxMeasures,
		Location:    loc,
	}, opts.Output)
	if err != nil {
		return WrapExitError(ExitFailure, "render plot", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Plotted %d measures to %s.\n", len(plot.Thin(rows, opts.MaxMeasures)), opts.Output)
	return nil
}

// plotRange computes the half-open UTC query window [from, to).
// --end defaults to the end of the current local day; --start defaults
// to --days before the end.
func plotRange(opts *PlotOptions, loc *time.Location, now time.Time) (from, to time.Time, err error) {
	if opts.EndDate == "" {
		y, m, d := now.In(loc).Date()
		to = time.Date(y, m, d, 0, 0, 0, 0, loc).AddDate(0, 0, 1)
	} else {
		end, err := time.ParseInLocation("2006-01-02", opts.EndDate, loc)
		if err != nil {
			return from, to, fmt.Errorf("invalid end date %q: use YYYY-MM-DD", opts.EndDate)
		}
		to = end.AddDate(0, 0, 1) // end of the named day
	}

	if opts.StartDate == "" {
		from = to.AddDate(0, 0, -(opts.Days + 1))
	} else {
		start, err := time.ParseInLocation("2006-01-02", opts.StartDate, loc)
		if err != nil {
			return from, to, fmt.Errorf("invalid start date %q: use YYYY-MM-DD", opts.StartDate)
		}
		from = start
	}

	if !from.Before(to) {
		return from, to, fmt.Errorf("start %s is not before end %s", from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	return from.UTC(), to.UTC(), nil
}
