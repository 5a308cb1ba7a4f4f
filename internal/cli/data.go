package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/example/resource-calendar/internal/ics"
	"github.com/example/resource-calendar/internal/persistence"
)

func newExportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Copy the documents into dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(s *session) error {
				files, err := s.store.Export(s.ctx, args[0])
				if err != nil {
					return fail(err)
				}
				return s.print.message(map[string]any{"destination": args[0], "files": files},
					"exported %d file(s) to %s", len(files), args[0])
			})
		},
	}
}

func newImportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Replace the documents with those in dir",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(s *session) error {
				files, err := s.store.Import(s.ctx, args[0])
				if err != nil {
					return fail(err)
				}
				return s.print.message(map[string]any{"source": args[0], "files": files, "events": s.store.Len()},
					"imported %d file(s) from %s, %d event(s) loaded", len(files), args[0], s.store.Len())
			})
		},
	}
}

func newWipeCommand(opts *RootOptions) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "wipe",
		Short: "Delete every event and the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes && !confirm(cmd.InOrStdin(), cmd.ErrOrStderr(), "delete all events and resources?") {
				return NewExitError(ExitFailure, "wipe cancelled")
			}
			return opts.run(cmd, false, func(s *session) error {
				deleted, err := s.store.Wipe(s.ctx)
				if err != nil {
					return fail(err)
				}
				return s.print.message(map[string]any{"deleted": deleted}, "deleted %d file(s)", deleted)
			})
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "do not ask for confirmation")
	return cmd
}

func confirm(in io.Reader, out io.Writer, question string) bool {
	fmt.Fprintf(out, "%s [y/N] ", question)
	answer, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && answer == "" {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "y", "yes":
		return true
	}
	return false
}

func newStatsCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Describe the data directory files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(s *session) error {
				stats, err := s.store.Stats(s.ctx)
				if err != nil {
					return fail(err)
				}
				return s.print.emit(stats, func(w io.Writer) { writeStats(w, stats, opts.Now()) })
			})
		},
	}
}

func writeStats(w io.Writer, stats persistence.Stats, now time.Time) {
	fmt.Fprintf(w, "directory\t%s\n", stats.Directory)
	if !stats.Exists {
		fmt.Fprintln(w, "directory does not exist")
		return
	}
	if len(stats.Files) == 0 {
		fmt.Fprintln(w, "no files")
		return
	}
	for _, f := range stats.Files {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", f.Name, f.Size, humanize.RelTime(f.Modified, now, "ago", "from now"), shortDigest(f.Digest))
	}
}

func shortDigest(digest string) string {
	if len(digest) > 12 {
		return digest[:12]
	}
	return digest
}

func newExportICSCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "export-ics <file|->",
		Short: "Write the events as an iCalendar file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(s *session) error {
				if args[0] == "-" {
					_, err := ics.Encode(cmd.OutOrStdout(), s.store.List(), ics.WithStamp(opts.Now()))
					return fail(err)
				}
				f, err := os.Create(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "export-ics", err)
				}
				written, err := ics.Encode(f, s.store.List(), ics.WithStamp(opts.Now()))
				if cerr := f.Close(); err == nil {
					err = cerr
				}
				if err != nil {
					return WrapExitError(ExitCommandError, "export-ics", err)
				}
				return s.print.message(map[string]any{"file": args[0], "events": written},
					"wrote %d event(s) to %s", written, args[0])
			})
		},
	}
}

type importFailure struct {
	Event string `json:"event"`
	Error string `json:"error"`
}

type importICSResult struct {
	Added   []string        `json:"added"`
	Failed  []importFailure `json:"failed"`
	Skipped []string        `json:"skipped"`
}

func newImportICSCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "import-ics <file|->",
		Short: "Add the events of an iCalendar file",
		Long: `Add the events of an iCalendar file.

Each VEVENT is added like the add command; events that clash with existing
ones are reported and the rest are still added.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var in io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return WrapExitError(ExitCommandError, "import-ics", err)
				}
				defer f.Close()
				in = f
			}

			events, err := ics.Decode(in)
			result := importICSResult{Added: []string{}, Failed: []importFailure{}, Skipped: []string{}}
			var decodeErr *ics.DecodeError
			switch {
			case errors.As(err, &decodeErr):
				for _, skipped := range decodeErr.Skipped {
					result.Skipped = append(result.Skipped, fmt.Sprintf("%s: %s", skipped.UID, skipped.Reason))
				}
			case err != nil:
				return WrapExitError(ExitFailure, "import-ics", err)
			}

			return opts.run(cmd, false, func(s *session) error {
				for _, event := range events {
					if _, err := s.store.Add(s.ctx, event); err != nil {
						result.Failed = append(result.Failed, importFailure{Event: event.Name, Error: err.Error()})
						continue
					}
					result.Added = append(result.Added, event.Name)
				}
				return s.print.emit(result, func(w io.Writer) {
					fmt.Fprintf(w, "added %d event(s)\n", len(result.Added))
					for _, f := range result.Failed {
						fmt.Fprintf(w, "failed\t%s\t%s\n", f.Event, f.Error)
					}
					for _, skipped := range result.Skipped {
						fmt.Fprintf(w, "skipped\t%s\n", skipped)
					}
				})
			})
		},
	}
}
