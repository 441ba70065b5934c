// Package cli wires the archiver, store and plot renderer into cobra
// commands. All commands share the config/database/device flags; fetch
// is the only one that touches Bluetooth.
package cli

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/sensorlog/aranet-archive/internal/config"
	"github.com/sensorlog/aranet-archive/internal/store"
)

// RootOptions holds global flags and the resolved configuration shared
// by all commands.
type RootOptions struct {
	ConfigPath string
	DBPath     string
	Device     string
	Format     string // "json" | "text"
	Verbose    bool

	cfg config.Config
	log zerolog.Logger
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the archiver CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "aranet-archive",
		Short: "Archive Aranet4 CO2 sensor readings into a local SQLite database",
		Long: `aranet-archive polls an Aranet4 sensor over Bluetooth LE, reconciles
the device's on-board history against the local archive, and stores the
new readings append-only. Run fetch from cron; use tail, print and plot
to look at what has been collected.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return NewExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return WrapExitError(ExitCommandError, "load configuration", err)
			}
			opts.cfg = cfg
			opts.log = newLogger(cfg.LogLevel, opts.Verbose)
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to config.yaml (optional)")
	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "archive database path (overrides DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.Device, "device", "", "device name (overrides DEVICE_NAME)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")

	// Add subcommands
	cmd.AddCommand(NewFetchCommand(opts))
	cmd.AddCommand(NewTailCommand(opts))
	cmd.AddCommand(NewPrintCommand(opts))
	cmd.AddCommand(NewPlotCommand(opts))
	cmd.AddCommand(NewDevicesCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// newLogger builds the console logger, matching the original job's
// "[timestamp] message" lines. Verbose wins over LOG_LEVEL.
func newLogger(level string, verbose bool) zerolog.Logger {
	lvl := zerolog.InfoLevel
	if parsed, err := zerolog.ParseLevel(level); err == nil && level != "" {
		lvl = parsed
	}
	if verbose {
		lvl = zerolog.DebugLevel
	}
	writer := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "2006-01-02 15:04:05"}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

// deviceName resolves the device: flag wins over configuration.
func (o *RootOptions) deviceName() string {
	if o.Device != "" {
		return o.Device
	}
	return o.cfg.DeviceName
}

// dbPath resolves the archive path: flag wins over configuration.
func (o *RootOptions) dbPath() (string, error) {
	if o.DBPath != "" {
		return config.ExpandHome(o.DBPath)
	}
	return o.cfg.DBPath, nil
}

// openStore opens the archive for this command.
func (o *RootOptions) openStore() (*store.Store, error) {
	path, err := o.dbPath()
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "resolve database path", err)
	}
	s, err := store.Open(path)
	if err != nil {
		return nil, WrapExitError(ExitCommandError, fmt.Sprintf("open archive at %s", path), err)
	}
	return s, nil
}

// timezone resolves LOCAL_TIMEZONE for display, falling back to the
// machine's local zone, then UTC.
func (o *RootOptions) timezone() *time.Location {
	if o.cfg.LocalTimezone != "" {
		if loc, err := time.LoadLocation(o.cfg.LocalTimezone); err == nil {
			return loc
		}
		o.log.Warn().Str("tz", o.cfg.LocalTimezone).Msg("unknown LOCAL_TIMEZONE, using local zone")
	}
	return time.Local
}

// formatter builds the output formatter writing to the command's stdout.
func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{Format: o.Format, Writer: cmd.OutOrStdout()}
}
