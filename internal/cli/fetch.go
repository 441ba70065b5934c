package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sensorlog/aranet-archive/internal/archiver"
	"github.com/sensorlog/aranet-archive/internal/sensor/aranet"
)

// FetchOptions holds flags for the fetch command.
type FetchOptions struct {
	*RootOptions
	Retries int
}

// NewFetchCommand creates the fetch command: one complete archive cycle.
func NewFetchCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &FetchOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Poll the device once and archive its new readings",
		Long: `Poll the configured device once, reconcile its on-board history
against the archive, and insert whatever is new. Intended to run from
cron or a systemd timer; retry across invocations belongs to the
scheduler, not to this command.

Exit status: 0 on success (including nothing new), 1 when the device is
unreachable or the batch failed to commit, 2 on configuration errors.`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFetch(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Retries, "retries", 3, "immediate re-attempts when the device read fails")

	return cmd
}

func runFetch(opts *FetchOptions, cmd *cobra.Command) error {
	if err := opts.cfg.Validate(); err != nil {
		return WrapExitError(ExitCommandError, "configuration", err)
	}

	s, err := opts.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	a := &archiver.Archiver{
		Store:   s,
		Client:  aranet.New(opts.log),
		Log:     opts.log,
		Device:  opts.deviceName(),
		Address: opts.cfg.DeviceMAC,
		Retries: opts.Retries,
	}

	summary, err := a.Run(cmd.Context())
	if err != nil {
		if archiver.IsFetchFailed(err) {
			return WrapExitError(ExitFailure, "fetch failed", err)
		}
		if archiver.IsStoreWriteFailed(err) {
			return WrapExitError(ExitFailure, "archive write failed", err)
		}
		return WrapExitError(ExitFailure, "fetch cycle", err)
	}

	return opts.formatter(cmd).Success(summary, func(w io.Writer) error {
		fmt.Fprintf(w, "device=%s fetched=%d new=%d duplicate=%d gap=%d malformed=%d\n",
			summary.Device, summary.Fetched, summary.New,
			summary.Duplicate, summary.Gap, summary.Malformed)
		if summary.ResetSuspected {
			fmt.Fprintf(w, "device reset suspected: archiving under epoch %d\n", summary.Epoch)
		}
		return nil
	})
}
