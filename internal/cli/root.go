package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"statuspage-sync/internal/cachet"
	"statuspage-sync/internal/config"
	"statuspage-sync/internal/probe"
)

// RootOptions holds global flags for all commands. Flags override the
// environment and CONFIG_FILE.
type RootOptions struct {
	StoreURL string
	Token    string
	ProbeURL string
	Format   string
	Verbose  bool

	// loadConfig is replaced in tests.
	loadConfig func() (config.Config, error)
}

var ValidFormats = []string{"text", "json"}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{loadConfig: config.Load})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "statusctl",
		Short: "Inspect and drive Cachet component status",
		Long: `statusctl talks to the same Cachet instance and probe target as statusd.

It lists components and groups, sets a component status by name, probes a
single service and runs one poll cycle on demand.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range ValidFormats {
				if f == opts.Format {
					return nil
				}
			}
			return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
		},
	}

	cmd.PersistentFlags().StringVar(&opts.StoreURL, "store-url", "", "Cachet API base url (overrides STORE_URL)")
	cmd.PersistentFlags().StringVar(&opts.Token, "token", "", "Cachet API token (overrides STORE_TOKEN)")
	cmd.PersistentFlags().StringVar(&opts.ProbeURL, "probe-url", "", "probe target base url (overrides PROBE_SERVER)")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log reconciliation steps to stderr")

	cmd.AddCommand(NewComponentsCommand(opts))
	cmd.AddCommand(NewGroupsCommand(opts))
	cmd.AddCommand(NewSetStatusCommand(opts))
	cmd.AddCommand(NewProbeCommand(opts))
	cmd.AddCommand(NewPollOnceCommand(opts))
	return cmd
}

func (o *RootOptions) config() (config.Config, error) {
	cfg, err := o.loadConfig()
	if err != nil {
		return config.Config{}, err
	}
	if o.StoreURL != "" {
		cfg.Store.BaseURL = o.StoreURL
	}
	if o.Token != "" {
		cfg.Store.Token = o.Token
	}
	if o.ProbeURL != "" {
		cfg.Probe.BaseURL = o.ProbeURL
	}
	return cfg, nil
}

func (o *RootOptions) store() (*cachet.Client, config.Config, error) {
	cfg, err := o.config()
	if err != nil {
		return nil, config.Config{}, err
	}
	if cfg.Store.BaseURL == "" {
		return nil, config.Config{}, fmt.Errorf("cachet url not configured: set STORE_URL or --store-url")
	}
	client, err := cachet.NewClient(cachet.Options{
		BaseURL:            cfg.Store.BaseURL,
		Token:              cfg.Store.Token,
		Timeout:            cfg.Store.Timeout.Duration(),
		RateLimit:          cfg.Store.RateLimit,
		InsecureSkipVerify: cfg.Store.InsecureSkipVerify,
	})
	return client, cfg, err
}

func (o *RootOptions) prober(cfg config.Config) (*probe.Prober, error) {
	if cfg.Probe.BaseURL == "" {
		return nil, fmt.Errorf("probe target not configured: set PROBE_SERVER or --probe-url")
	}
	return probe.New(probe.Options{
		BaseURL:            cfg.Probe.BaseURL,
		Username:           cfg.Probe.Username,
		Password:           cfg.Probe.Password,
		Timeout:            cfg.Probe.Timeout.Duration(),
		InsecureSkipVerify: cfg.Probe.InsecureSkipVerify,
	})
}

func (o *RootOptions) logger(cmd *cobra.Command) *slog.Logger {
	if !o.Verbose {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
}

// output writes v as JSON, or calls text with a tabwriter.
func (o *RootOptions) output(cmd *cobra.Command, v any, text func(w io.Writer)) error {
	if o.Format == "json" {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	text(tw)
	return tw.Flush()
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
