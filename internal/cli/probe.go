package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"statuspage-sync/internal/status"
)

type probeResult struct {
	Component string `json:"component"`
	URL       string `json:"url"`
	Code      int    `json:"code,omitempty"`
	Error     string `json:"error,omitempty"`
	Status    string `json:"status"`
}

func NewProbeCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "probe <component>",
		Short: "Probe one service and show the status it maps to",
		Long: `Probe one service the way the poller does and print the resulting
status. Nothing is written to Cachet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.config()
			if err != nil {
				return err
			}
			prober, err := rootOpts.prober(cfg)
			if err != nil {
				return err
			}
			res := prober.Probe(commandContext(cmd), args[0])
			out := probeResult{
				Component: args[0],
				URL:       prober.URL(args[0]),
				Code:      res.Code,
				Status:    status.FromProbeResult(res.Code, res.Err).String(),
			}
			if res.Err != nil {
				out.Code = 0
				out.Error = res.Err.Error()
			}
			return rootOpts.output(cmd, out, func(w io.Writer) {
				fmt.Fprintln(w, "COMPONENT\tURL\tCODE\tSTATUS")
				code := fmt.Sprint(out.Code)
				if out.Error != "" {
					code = "error: " + out.Error
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", out.Component, out.URL, code, out.Status)
			})
		},
	}
}
