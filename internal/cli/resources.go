package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

type resourceStatus struct {
	Name      string   `json:"name"`
	Available bool     `json:"available"`
	Holders   []string `json:"holders"`
}

func newResourcesCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "resources",
		Short: "Inspect and register resources (defaults to list)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return listResources(opts, cmd)
		},
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "Every registered resource with its holders",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return listResources(opts, cmd)
			},
		},
		&cobra.Command{
			Use:   "available",
			Short: "Resources no event holds",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.run(cmd, false, func(s *session) error {
					return s.print.names(s.store.AvailableResources(), "no available resources")
				})
			},
		},
		&cobra.Command{
			Use:   "register <name>",
			Short: "Register a resource without assigning it",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.run(cmd, false, func(s *session) error {
					added, err := s.store.RegisterResource(s.ctx, args[0])
					if err != nil {
						return fail(err)
					}
					name := strings.TrimSpace(args[0])
					result := map[string]any{"name": name, "registered": added}
					if !added {
						return s.print.message(result, "%s was already registered", name)
					}
					return s.print.message(result, "registered %s", name)
				})
			},
		},
		&cobra.Command{
			Use:   "holders <name>",
			Short: "Events holding a resource, in acquisition order",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return opts.run(cmd, false, func(s *session) error {
					return s.print.names(s.store.ResourceHolders(args[0]), "no holders")
				})
			},
		},
	)
	return cmd
}

func listResources(opts *RootOptions, cmd *cobra.Command) error {
	return opts.run(cmd, false, func(s *session) error {
		names := s.store.Resources()
		statuses := make([]resourceStatus, 0, len(names))
		for _, name := range names {
			statuses = append(statuses, resourceStatus{
				Name:      name,
				Available: s.store.IsResourceAvailable(name),
				Holders:   s.store.ResourceHolders(name),
			})
		}
		return s.print.emit(statuses, func(w io.Writer) {
			if len(statuses) == 0 {
				fmt.Fprintln(w, "no resources")
				return
			}
			for _, st := range statuses {
				holders := "available"
				if !st.Available {
					holders = strings.Join(st.Holders, ", ")
				}
				fmt.Fprintf(w, "%s\t%s\n", st.Name, holders)
			}
		})
	})
}
