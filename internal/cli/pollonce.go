package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"statuspage-sync/internal/journal"
	"statuspage-sync/internal/poller"
	"statuspage-sync/internal/reconcile"
)

type pollComponent struct {
	Group     string `json:"group"`
	ID        int    `json:"id"`
	Name      string `json:"name"`
	ProbeCode int    `json:"probe_code,omitempty"`
	Target    string `json:"target"`
	Error     string `json:"error,omitempty"`
}

type pollSummary struct {
	CycleID    string          `json:"cycle_id"`
	Groups     int             `json:"groups"`
	Failed     int             `json:"failed"`
	Error      string          `json:"error,omitempty"`
	Components []pollComponent `json:"components"`
}

func summarize(report poller.Report) pollSummary {
	s := pollSummary{
		CycleID:    report.CycleID,
		Groups:     report.Groups,
		Failed:     report.Failed(),
		Components: make([]pollComponent, 0, len(report.Components)),
	}
	if report.Err != nil {
		s.Error = report.Err.Error()
	}
	for _, c := range report.Components {
		pc := pollComponent{Group: c.Group, ID: c.ComponentID, Name: c.ComponentName, ProbeCode: c.ProbeCode, Target: c.Target.String()}
		if c.Err != nil {
			pc.Error = c.Err.Error()
		}
		s.Components = append(s.Components, pc)
	}
	return s
}

func NewPollOnceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "poll-once",
		Short: "Run a single poll cycle and print what was written",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, cfg, err := rootOpts.store()
			if err != nil {
				return err
			}
			prober, err := rootOpts.prober(cfg)
			if err != nil {
				return err
			}
			ctx := commandContext(cmd)
			logger := rootOpts.logger(cmd)
			recorder, err := journal.Open(ctx, cfg.Journal.Driver, cfg.Journal.DSN)
			if err != nil {
				return err
			}
			defer recorder.Close()

			p := poller.New(client, prober, poller.Options{
				Observer: &reconcile.Observer{Journal: recorder, Logger: logger},
				Logger:   logger,
			})
			summary := summarize(p.RunCycle(ctx))
			if err := rootOpts.output(cmd, summary, func(w io.Writer) {
				fmt.Fprintln(w, "GROUP\tID\tCOMPONENT\tCODE\tSTATUS\tERROR")
				for _, c := range summary.Components {
					fmt.Fprintf(w, "%s\t%d\t%s\t%d\t%s\t%s\n", c.Group, c.ID, c.Name, c.ProbeCode, c.Target, c.Error)
				}
			}); err != nil {
				return err
			}
			if summary.Error != "" {
				return fmt.Errorf("poll cycle %s: %s", summary.CycleID, summary.Error)
			}
			if summary.Failed > 0 {
				return fmt.Errorf("poll cycle %s: %d of %d components failed", summary.CycleID, summary.Failed, len(summary.Components))
			}
			return nil
		},
	}
}
