// Package commands implements the lotcom command line.
package commands

import (
	"io"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vsinha/lotcom/pkg/interfaces/cli/output"
)

type rootOptions struct {
	configFile string
	format     string
	logLevel   string
}

// NewRootCommand builds the lotcom command tree. Results are written to out.
func NewRootCommand(out io.Writer) *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "lotcom",
		Short:         "Serial allocation and production lineage for lot-controlled parts",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if !output.ValidFormat(opts.format) {
				return errors.Errorf("unsupported output format %q (expected text, json or csv)", opts.format)
			}
			return nil
		},
	}
	cmd.SetOut(out)

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to a YAML, TOML or JSON config file")
	flags.StringVarP(&opts.format, "format", "f", output.FormatText, "Output format: text, json, csv")
	flags.StringVar(&opts.logLevel, "log-level", "", "Override the configured log level")

	cmd.AddCommand(
		newConsumeCommand(opts),
		newSeedCommand(opts),
		newCountersCommand(opts),
		newPingCommand(opts),
		newTraceCommand(opts),
	)
	return cmd
}

func (o *rootOptions) output(cmd *cobra.Command) output.Config {
	return output.Config{Format: o.format, Out: cmd.OutOrStdout()}
}
