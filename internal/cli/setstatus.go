package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"statuspage-sync/internal/directory"
	"statuspage-sync/internal/journal"
	"statuspage-sync/internal/reconcile"
	"statuspage-sync/internal/status"
	"statuspage-sync/internal/webhook"
)

type setStatusResult struct {
	ComponentID   int    `json:"component_id"`
	ComponentName string `json:"component_name"`
	Status        string `json:"status"`
	Code          int    `json:"code"`
}

func NewSetStatusCommand(rootOpts *RootOptions) *cobra.Command {
	var exact bool
	cmd := &cobra.Command{
		Use:   "set-status <component> <status>",
		Short: "Set a component status by name",
		Long: `Set a component status by name.

The component is looked up the way the webhook does it: the name is
capitalized ("drift" -> "Drift") unless --exact is given. The status is a
name such as "major-outage" or a numeric code 0-4.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			target, err := status.Parse(args[1])
			if err != nil {
				return err
			}
			client, cfg, err := rootOpts.store()
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			logger := rootOpts.logger(cmd)

			name := args[0]
			if alias, ok := cfg.Aliases[name]; ok && alias != "" {
				name = alias
			} else if !exact {
				name = webhook.ComponentName(name)
			}
			index := directory.New(client, cfg.Store.PageSize, logger).Refresh(ctx)
			id, ok := index.Lookup(name)
			if !ok {
				return fmt.Errorf("%w: %q", webhook.ErrComponentNotFound, name)
			}

			recorder, err := journal.Open(ctx, cfg.Journal.Driver, cfg.Journal.DSN)
			if err != nil {
				return err
			}
			defer recorder.Close()
			observer := &reconcile.Observer{Journal: recorder, Logger: logger}

			err = client.SetStatus(ctx, id, target)
			observer.Observe(ctx, reconcile.Write{
				Source:        journal.SourceCLI,
				ComponentID:   id,
				ComponentName: name,
				Status:        target,
				Err:           err,
			})
			if err != nil {
				return err
			}
			res := setStatusResult{ComponentID: id, ComponentName: name, Status: target.String(), Code: int(target)}
			return rootOpts.output(cmd, res, func(w io.Writer) {
				fmt.Fprintf(w, "%s (%d)\t-> %s\n", res.ComponentName, res.ComponentID, res.Status)
			})
		},
	}
	cmd.Flags().BoolVar(&exact, "exact", false, "use the component name as given")
	return cmd
}
