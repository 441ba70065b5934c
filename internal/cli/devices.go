package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sensorlog/aranet-archive/internal/store"
)

// DevicesOptions holds flags for the devices command.
type DevicesOptions struct {
	*RootOptions
	Cycles int
}

// NewDevicesCommand creates the devices command: the persisted per-device
// reset-detection state plus recent fetch cycles.
func NewDevicesCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DevicesOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:           "devices",
		Short:         "List known devices and their recent fetch cycles",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevices(opts, cmd)
		},
	}

	cmd.Flags().IntVar(&opts.Cycles, "cycles", 5, "recent fetch cycles to show per device")

	return cmd
}

type deviceReport struct {
	State  store.DeviceState   `json:"state"`
	Cycles []store.CycleRecord `json:"cycles"`
}

func runDevices(opts *DevicesOptions, cmd *cobra.Command) error {
	s, err := opts.openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	states, err := s.ListDeviceStates(ctx)
	if err != nil {
		return WrapExitError(ExitFailure, "list devices", err)
	}

	reports := make([]deviceReport, 0, len(states))
	for _, st := range states {
		cycles, err := s.Cycles(ctx, st.Device, opts.Cycles)
		if err != nil {
			return WrapExitError(ExitFailure, "list cycles", err)
		}
		reports = append(reports, deviceReport{State: st, Cycles: cycles})
	}

	loc := opts.timezone()
	return opts.formatter(cmd).Success(reports, func(w io.Writer) error {
		if len(reports) == 0 {
			fmt.Fprintln(w, "No devices archived yet.")
			return nil
		}
		for _, rep := range reports {
			st := rep.State
			fmt.Fprintf(w, "%s  address=%s epoch=%d last_counter=%d updated=%s\n",
				st.Device, st.Address, st.Epoch, st.LastCounter,
				st.UpdatedAt.In(loc).Format("2006-01-02 15:04:05"))
			for _, c := range rep.Cycles {
				fmt.Fprintf(w, "  %s  %-12s fetched=%d new=%d duplicate=%d gap=%d malformed=%d\n",
					c.StartedAt.In(loc).Format("2006-01-02 15:04:05"),
					c.Outcome, c.Fetched, c.New, c.Duplicate, c.Gap, c.Malformed)
			}
		}
		return nil
	})
}
