package commands

import (
	"context"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/interfaces/cli/output"
)

func parseMode(raw string) (entities.SerializationMode, error) {
	mode, err := entities.ParseSerializationMode(raw)
	if err != nil {
		return entities.SerializationNone, err
	}
	if mode == entities.SerializationNone {
		return mode, errors.New("--mode must be jbk or lot")
	}
	return mode, nil
}

func newConsumeCommand(opts *rootOptions) *cobra.Command {
	var partNumber, rawMode string

	cmd := &cobra.Command{
		Use:   "consume",
		Short: "Allocate the next serial number for a part",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := parseMode(rawMode)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				alloc, err := a.allocator()
				if err != nil {
					return err
				}
				serial, err := alloc.Consume(ctx, partNumber, mode)
				if err != nil {
					return err
				}
				return output.Generate(output.NewSerialReport(partNumber, serial), opts.output(cmd))
			})
		},
	}
	cmd.Flags().StringVarP(&partNumber, "part", "p", "", "Part number to allocate for")
	cmd.Flags().StringVarP(&rawMode, "mode", "m", "", "Serialization mode: jbk or lot")
	_ = cmd.MarkFlagRequired("part")
	_ = cmd.MarkFlagRequired("mode")
	return cmd
}

func newSeedCommand(opts *rootOptions) *cobra.Command {
	var partNumber, rawMode string
	var start int

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Add a part to a ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := parseMode(rawMode)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				alloc, err := a.allocator()
				if err != nil {
					return err
				}
				if err := alloc.Seed(ctx, partNumber, mode, start); err != nil {
					return err
				}
				counters, err := alloc.Counters(ctx, mode)
				if err != nil {
					return err
				}
				report := output.CounterReport{Mode: mode.String(), Counters: map[string]int{partNumber: counters[partNumber]}}
				return output.Generate(report, opts.output(cmd))
			})
		},
	}
	cmd.Flags().StringVarP(&partNumber, "part", "p", "", "Part number to add")
	cmd.Flags().StringVarP(&rawMode, "mode", "m", "", "Serialization mode: jbk or lot")
	cmd.Flags().IntVar(&start, "start", 0, "Counter value; the next serial is start+1")
	_ = cmd.MarkFlagRequired("part")
	_ = cmd.MarkFlagRequired("mode")
	return cmd
}

func newCountersCommand(opts *rootOptions) *cobra.Command {
	var rawMode string

	cmd := &cobra.Command{
		Use:   "counters",
		Short: "List the counters held by a ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mode, err := parseMode(rawMode)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				alloc, err := a.allocator()
				if err != nil {
					return err
				}
				counters, err := alloc.Counters(ctx, mode)
				if err != nil {
					return err
				}
				return output.Generate(output.CounterReport{Mode: mode.String(), Counters: counters}, opts.output(cmd))
			})
		},
	}
	cmd.Flags().StringVarP(&rawMode, "mode", "m", "", "Serialization mode: jbk or lot")
	_ = cmd.MarkFlagRequired("mode")
	return cmd
}

// ErrLedgerUnreachable is returned by ping when a ledger cannot be read
var ErrLedgerUnreachable = errors.New("ledger unreachable")

func newPingCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ping",
		Short: "Check that every configured ledger is readable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				alloc, err := a.allocator()
				if err != nil {
					return err
				}
				report := output.PingReport{Healthy: alloc.Ping(ctx)}
				for _, mode := range alloc.Modes() {
					report.Modes = append(report.Modes, mode.String())
				}
				if err := output.Generate(report, opts.output(cmd)); err != nil {
					return err
				}
				if !report.Healthy {
					return ErrLedgerUnreachable
				}
				return nil
			})
		},
	}
}
