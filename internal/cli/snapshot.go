package cli

import (
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

func newSnapshotCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Archive and restore copies of the documents",
	}

	var label string
	create := &cobra.Command{
		Use:   "create",
		Short: "Archive the current events and registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, true, func(s *session) error {
				info, err := s.store.Snapshot(s.ctx, label)
				if err != nil {
					return fail(err)
				}
				return s.print.message(info, "snapshot %s created with %d event(s)", info.ID, info.EventCount)
			})
		},
	}
	create.Flags().StringVarP(&label, "label", "l", "", "description stored with the snapshot")

	list := &cobra.Command{
		Use:   "list",
		Short: "Archived snapshots, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, true, func(s *session) error {
				snapshots, err := s.store.Snapshots(s.ctx)
				if err != nil {
					return fail(err)
				}
				return s.print.emit(snapshots, func(w io.Writer) {
					if len(snapshots) == 0 {
						fmt.Fprintln(w, "no snapshots")
						return
					}
					for _, snap := range snapshots {
						fmt.Fprintf(w, "%s\t%s\t%s\t%d event(s)\t%s\n",
							snap.ID,
							snap.CreatedAt.Format(time.RFC3339),
							humanize.RelTime(snap.CreatedAt, opts.Now(), "ago", "from now"),
							snap.EventCount,
							snap.Label,
						)
					}
				})
			})
		},
	}

	restore := &cobra.Command{
		Use:   "restore <id>",
		Short: "Replace events and registry with a snapshot",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, true, func(s *session) error {
				result, err := s.store.RestoreSnapshot(s.ctx, args[0])
				if err != nil {
					return fail(err)
				}
				return s.print.message(result, "restored snapshot %s, %d event(s) loaded", result.Snapshot.ID, result.Events)
			})
		},
	}

	cmd.AddCommand(create, list, restore)
	return cmd
}
