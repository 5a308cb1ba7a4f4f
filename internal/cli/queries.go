package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/example/resource-calendar/internal/application"
	"github.com/example/resource-calendar/internal/query"
	"github.com/example/resource-calendar/internal/scheduler"
)

func newSearchCommand(opts *RootOptions) *cobra.Command {
	var (
		criteria     application.SearchCriteria
		maxResources int
	)
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Find events matching every given filter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Flags().Changed("max-resources") {
				criteria.MaxResources = &maxResources
			}
			return opts.run(cmd, false, func(s *session) error {
				events, err := s.store.Search(criteria)
				if err != nil {
					return fail(err)
				}
				return s.print.events(events)
			})
		},
	}
	flags := cmd.Flags()
	flags.StringVar(&criteria.Name, "name", "", "name contains text, ignoring case")
	flags.StringVar(&criteria.Resource, "resource", "", "a resource name contains text, ignoring case")
	flags.StringVar(&criteria.Date, "date", "", "active on DD/MM/YYYY")
	flags.StringVar(&criteria.From, "from", "", "overlaps the range starting DD/MM/YYYY (needs --to)")
	flags.StringVar(&criteria.To, "to", "", "overlaps the range ending DD/MM/YYYY (needs --from)")
	flags.IntVar(&criteria.MinResources, "min-resources", 0, "holds at least this many resources")
	flags.IntVar(&maxResources, "max-resources", 0, "holds at most this many resources")
	return cmd
}

func eventQueryCommand(opts *RootOptions, use, short string, fn func(s *session) []scheduler.Event) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(s *session) error {
				return s.print.events(fn(s))
			})
		},
	}
}

func newUpcomingCommand(opts *RootOptions) *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "upcoming",
		Short: "Events starting within the next days, nearest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") {
				days = opts.cfg.UpcomingDays
			} else if days < 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("--days must not be negative, got %d", days))
			}
			return opts.run(cmd, false, func(s *session) error {
				return s.print.events(s.store.Upcoming(days))
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "window in days, 0 for today only (default $CALENDAR_UPCOMING_DAYS)")
	return cmd
}

func newPastCommand(opts *RootOptions) *cobra.Command {
	return eventQueryCommand(opts, "past", "Events that ended before today",
		func(s *session) []scheduler.Event { return s.store.Past() })
}

func newOngoingCommand(opts *RootOptions) *cobra.Command {
	return eventQueryCommand(opts, "ongoing", "Events active today",
		func(s *session) []scheduler.Event { return s.store.Ongoing() })
}

func newUnassignedCommand(opts *RootOptions) *cobra.Command {
	return eventQueryCommand(opts, "unassigned", "Events holding no resource",
		func(s *session) []scheduler.Event { return s.store.WithoutResources() })
}

func newReportCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "report",
		Short: "Summary figures for today",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return opts.run(cmd, false, func(s *session) error {
				report := s.store.Report()
				return s.print.emit(report, func(w io.Writer) { writeReport(w, report) })
			})
		},
	}
}

func writeReport(w io.Writer, r query.Report) {
	fmt.Fprintf(w, "today\t%s\n", r.Today)
	fmt.Fprintf(w, "total\t%d\n", r.Total)
	fmt.Fprintf(w, "ongoing\t%d\n", r.Ongoing)
	fmt.Fprintf(w, "upcoming (%d days)\t%d\n", r.UpcomingDays, r.Upcoming)
	fmt.Fprintf(w, "past\t%d\n", r.Past)
	fmt.Fprintf(w, "without resources\t%d\n", r.WithoutResources)

	if len(r.ResourceUsage) > 0 {
		fmt.Fprintln(w, "\nresource\tevents")
		for _, usage := range r.ResourceUsage {
			fmt.Fprintf(w, "%s\t%d\n", usage.Resource, usage.Count)
		}
	}

	if len(r.ByMonth) > 0 {
		months := make([]string, 0, len(r.ByMonth))
		for month := range r.ByMonth {
			months = append(months, month)
		}
		sort.Strings(months)
		fmt.Fprintln(w, "\nmonth\tevents")
		for _, month := range months {
			fmt.Fprintf(w, "%s\t%d\n", month, r.ByMonth[month])
		}
	}
}
