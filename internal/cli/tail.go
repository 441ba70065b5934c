package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/sensorlog/aranet-archive/internal/store"
)

// TailOptions holds flags for the tail command.
type TailOptions struct {
	*RootOptions
	N int
}

// NewTailCommand creates the tail command: the last N readings in
// chronological order, with a count footer.
func NewTailCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TailOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "tail",
		Short:         "Show the most recent archived readings, oldest first",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTail(opts, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.N, "lines", "n", 30, "number of readings to show")

	return cmd
}

func runTail(opts *TailOptions, cmd *cobra.Command) error {
	s, err := opts.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	device := opts.deviceName()

	// Newest N, then reversed so the output reads chronologically.
	rows, err := s.QueryRange(ctx, device, store.RangeOptions{
		Order: store.NewestFirst,
		Limit: opts.N,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "query archive", err)
	}
	for i, j := 0, len(rows)-1; i < j; i, j = i+1, j-1 {
		rows[i], rows[j] = rows[j], rows[i]
	}

	total, err := s.CountReadings(ctx, device)
	if err != nil {
		return WrapExitError(ExitFailure, "count readings", err)
	}

	loc := opts.timezone()
	return opts.formatter(cmd).Success(rows, func(w io.Writer) error {
		writeTable(w, rows, loc, total)
		return nil
	})
}
