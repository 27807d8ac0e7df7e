package cli

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"
)

func NewComponentsCommand(rootOpts *RootOptions) *cobra.Command {
	var pageSize int
	cmd := &cobra.Command{
		Use:   "components",
		Short: "List components as the webhook directory sees them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := rootOpts.store()
			if err != nil {
				return err
			}
			if pageSize <= 0 {
				pageSize = cfg.Store.PageSize
			}
			components, err := client.ListComponents(commandContext(cmd), pageSize)
			if err != nil {
				return err
			}
			sort.SliceStable(components, func(i, j int) bool { return components[i].Name < components[j].Name })
			return rootOpts.output(cmd, components, func(w io.Writer) {
				fmt.Fprintln(w, "ID\tNAME\tSTATUS")
				for _, c := range components {
					fmt.Fprintf(w, "%d\t%s\t%s\n", c.ID, c.Name, c.Status)
				}
			})
		},
	}
	cmd.Flags().IntVar(&pageSize, "page-size", 0, "components per request (default STORE_PAGE_SIZE)")
	return cmd
}

func NewGroupsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "groups",
		Short: "List component groups and their enabled components",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, _, err := rootOpts.store()
			if err != nil {
				return err
			}
			groups, err := client.ListGroups(commandContext(cmd))
			if err != nil {
				return err
			}
			return rootOpts.output(cmd, groups, func(w io.Writer) {
				fmt.Fprintln(w, "GROUP\tID\tCOMPONENT\tSTATUS")
				for _, g := range groups {
					if len(g.EnabledComponents) == 0 {
						fmt.Fprintf(w, "%s\t-\t-\t-\n", g.Name)
					}
					for _, c := range g.EnabledComponents {
						fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", g.Name, c.ID, c.Name, c.Status)
					}
				}
			})
		},
	}
}

