// Package cli implements the calendar command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"slices"
	"time"

	"github.com/spf13/cobra"

	"github.com/example/resource-calendar/internal/config"
	"github.com/example/resource-calendar/internal/logging"
)

// RootOptions holds global flags and the resolved configuration.
type RootOptions struct {
	DataDir string
	Format  string // "text" | "json"
	Verbose bool

	// Environment replaces the process environment when not nil.
	Environment map[string]string
	// Now replaces time.Now.
	Now func() time.Time

	cfg config.Config
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the calendar command reading the process environment.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the calendar command around opts.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	if opts.Now == nil {
		opts.Now = time.Now
	}

	cmd := &cobra.Command{
		Use:   "calendar",
		Short: "Manage dated events and the resources they hold",
		Long: `Manage dated events and the resources they hold.

Events and the resource registry are kept as JSON documents in the data
directory. Two overlapping events may not share a resource.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !slices.Contains(ValidFormats, opts.Format) {
				return NewExitError(ExitCommandError, fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats))
			}
			cfg, err := config.LoadFrom(opts.Environment)
			if err != nil {
				return WrapExitError(ExitCommandError, "configuration", err)
			}
			if cmd.Flags().Changed("data-dir") {
				if cfg.ArchivePath == filepath.Join(cfg.DataDir, "archive.db") {
					cfg.ArchivePath = filepath.Join(opts.DataDir, "archive.db")
				}
				cfg.DataDir = opts.DataDir
			}
			opts.cfg = cfg
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DataDir, "data-dir", "", "data directory (default $CALENDAR_DATA_DIR or ./data)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log debug records to stderr")

	cmd.AddCommand(
		newAddCommand(opts),
		newRemoveCommand(opts),
		newShowCommand(opts),
		newListCommand(opts),
		newAttachCommand(opts),
		newDetachCommand(opts),
		newSearchCommand(opts),
		newUpcomingCommand(opts),
		newPastCommand(opts),
		newOngoingCommand(opts),
		newUnassignedCommand(opts),
		newReportCommand(opts),
		newResourcesCommand(opts),
		newExportCommand(opts),
		newImportCommand(opts),
		newWipeCommand(opts),
		newStatsCommand(opts),
		newExportICSCommand(opts),
		newImportICSCommand(opts),
		newSnapshotCommand(opts),
	)
	return cmd
}

func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level, err := logging.ParseLevel(o.cfg.LogLevel)
	if err != nil {
		level = slog.LevelInfo
	}
	if o.Verbose {
		level = slog.LevelDebug
	}
	return logging.New(w, level, o.cfg.LogFormat)
}
