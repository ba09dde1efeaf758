package commands

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"github.com/vsinha/lotcom/pkg/application/dto"
	"github.com/vsinha/lotcom/pkg/application/services/production"
	"github.com/vsinha/lotcom/pkg/domain/entities"
	"github.com/vsinha/lotcom/pkg/domain/services"
	"github.com/vsinha/lotcom/pkg/infrastructure/repositories/csv"
	"github.com/vsinha/lotcom/pkg/infrastructure/repositories/memory"
	"github.com/vsinha/lotcom/pkg/interfaces/cli/output"
)

type traceOptions struct {
	eventsFile  string
	eventID     int
	orphansOnly bool
	shifts      bool
}

func newTraceCommand(opts *rootOptions) *cobra.Command {
	topts := &traceOptions{}

	cmd := &cobra.Command{
		Use:   "trace",
		Short: "Trace recorded prints and scans back through the process graph",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), opts, func(ctx context.Context, a *app) error {
				report, err := runTrace(ctx, a, topts)
				if err != nil {
					return err
				}
				return output.Generate(report, opts.output(cmd))
			})
		},
	}
	cmd.Flags().StringVarP(&topts.eventsFile, "events", "e", "", "Events CSV (defaults to data.events_file)")
	cmd.Flags().IntVar(&topts.eventID, "event", 0, "Trace only this event id")
	cmd.Flags().BoolVar(&topts.orphansOnly, "orphans", false, "Report only events whose lineage is broken")
	cmd.Flags().BoolVar(&topts.shifts, "shifts", false, "Include the shift breakdown of each traced event")
	return cmd
}

func runTrace(ctx context.Context, a *app, topts *traceOptions) (output.TraceReport, error) {
	processes, parts, err := a.directories()
	if err != nil {
		return output.TraceReport{}, err
	}

	eventsFile := topts.eventsFile
	if eventsFile == "" {
		eventsFile = a.cfg.Data.EventsFile
	}
	recorded, err := csv.NewLoader(time.Local).LoadEvents(eventsFile, processes, parts)
	if err != nil {
		return output.TraceReport{}, err
	}
	history := memory.NewEventRepository()
	for _, event := range recorded {
		if err := history.Save(event); err != nil {
			return output.TraceReport{}, err
		}
	}

	service := production.NewService(processes, parts, history, nil,
		services.NewLineageValidator(a.cfg.Lineage.WindowDays), a.logger,
		production.WithEventStore(a.events))

	targets := recorded
	if topts.eventID != 0 {
		event, err := history.Get(topts.eventID)
		if err != nil {
			return output.TraceReport{}, err
		}
		targets = []*entities.UnitEvent{event}
	}

	var report output.TraceReport
	for _, event := range targets {
		trace, err := service.Trace(ctx, event.ID)
		if err != nil {
			return output.TraceReport{}, err
		}
		if topts.orphansOnly && trace.Complete {
			continue
		}
		report.Traces = append(report.Traces, trace)
		if topts.shifts {
			report.Shifts = append(report.Shifts, production.SummarizeShifts(event))
		}
	}
	if report.Traces == nil {
		report.Traces = []*dto.TraceResult{}
	}
	return report, nil
}
