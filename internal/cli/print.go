package cli

import (
	"io"

	"github.com/spf13/cobra"

	"github.com/sensorlog/aranet-archive/internal/store"
)

// PrintOptions holds flags for the print command.
type PrintOptions struct {
	*RootOptions
	Oldest bool
	N      int
}

// NewPrintCommand creates the print command: newest (or oldest) N rows.
func NewPrintCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &PrintOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "print",
		Short:         "Print the latest (or oldest) archived readings",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(opts, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Oldest, "oldest", false, "print the oldest readings instead of the most recent")
	cmd.Flags().IntVarP(&opts.N, "lines", "n", 10, "number of readings to print")

	return cmd
}

func runPrint(opts *PrintOptions, cmd *cobra.Command) error {
	s, err := opts.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	order := store.NewestFirst
	if opts.Oldest {
		order = store.OldestFirst
	}

	rows, err := s.QueryRange(cmd.Context(), opts.deviceName(), store.RangeOptions{
		Order: order,
		Limit: opts.N,
	})
	if err != nil {
		return WrapExitError(ExitFailure, "query archive", err)
	}

	loc := opts.timezone()
	return opts.formatter(cmd).Success(rows, func(w io.Writer) error {
		writeTable(w, rows, loc, -1)
		return nil
	})
}
