package cli

import (
	"github.com/spf13/cobra"

	"github.com/example/resource-calendar/internal/application"
	"github.com/example/resource-calendar/internal/scheduler"
)

func newAddCommand(opts *RootOptions) *cobra.Command {
	var resources []string
	cmd := &cobra.Command{
		Use:   "add <name> <start> [end]",
		Short: "Add an event; dates are DD/MM/YYYY and end defaults to start",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			event := scheduler.Event{Name: args[0], Start: args[1], End: args[1], Resources: resources}
			if len(args) == 3 {
				event.End = args[2]
			}
			return opts.run(cmd, false, func(s *session) error {
				added, err := s.store.Add(s.ctx, event)
				if err != nil {
					return fail(err)
				}
				return s.print.event(added)
			})
		},
	}
	cmd.Flags().StringSliceVarP(&resources, "resource", "r", nil, "resource held by the event (repeatable or comma separated)")
	return cmd
}

func newRemoveCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name>",
		Short: "Remove an event and release its resources",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(s *session) error {
				removed, err := s.store.Remove(s.ctx, args[0])
				if err != nil {
					return fail(err)
				}
				return s.print.event(removed)
			})
		},
	}
}

func newShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <name>",
		Short: "Show one event",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(s *session) error {
				event, err := s.store.Get(args[0])
				if err != nil {
					return fail(err)
				}
				return s.print.event(event)
			})
		},
	}
}

func newListCommand(opts *RootOptions) *cobra.Command {
	var (
		sortKey string
		desc    bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List events in insertion order, or sorted with --sort",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(s *session) error {
				if sortKey == "" && !desc {
					return s.print.events(s.store.List())
				}
				events, err := s.store.Sorted(application.SortKey(sortKey), !desc)
				if err != nil {
					return fail(err)
				}
				return s.print.events(events)
			})
		},
	}
	cmd.Flags().StringVar(&sortKey, "sort", "", "sort by date or name")
	cmd.Flags().BoolVar(&desc, "desc", false, "sort descending")
	return cmd
}

func newAttachCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "attach <event> <resource>",
		Short: "Give a resource to an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(s *session) error {
				updated, err := s.store.AttachResource(s.ctx, args[0], args[1])
				if err != nil {
					return fail(err)
				}
				return s.print.event(updated)
			})
		},
	}
}

func newDetachCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "detach <event> <resource>",
		Short: "Take a resource away from an event",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(s *session) error {
				updated, err := s.store.DetachResource(s.ctx, args[0], args[1])
				if err != nil {
					return fail(err)
				}
				return s.print.event(updated)
			})
		},
	}
}
