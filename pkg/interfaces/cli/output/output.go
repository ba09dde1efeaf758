// Package output renders command results as text, JSON or CSV.
package output

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"

	"github.com/pkg/errors"

	"github.com/vsinha/lotcom/pkg/application/dto"
	"github.com/vsinha/lotcom/pkg/domain/entities"
)

// Supported formats
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Config holds configuration for output generation
type Config struct {
	Format string
	Out    io.Writer
}

// Report is a command result that can be rendered in every format
type Report interface {
	writeText(w io.Writer) error
	table() (header []string, rows [][]string)
}

// ValidFormat reports whether format is supported
func ValidFormat(format string) bool {
	switch format {
	case FormatText, FormatJSON, FormatCSV:
		return true
	default:
		return false
	}
}

// Generate writes report in the configured format
func Generate(report Report, config Config) error {
	out := config.Out
	if out == nil {
		out = os.Stdout
	}
	switch config.Format {
	case FormatText, "":
		return report.writeText(out)
	case FormatJSON:
		return generateJSONOutput(report, out)
	case FormatCSV:
		return generateCSVOutput(report, out)
	default:
		return errors.Errorf("unsupported output format: %s", config.Format)
	}
}

func generateJSONOutput(report Report, out io.Writer) error {
	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return errors.Wrap(err, "marshal JSON")
	}
	_, err = fmt.Fprintln(out, string(data))
	return err
}

func generateCSVOutput(report Report, out io.Writer) error {
	header, rows := report.table()
	w := csv.NewWriter(out)
	if err := w.Write(header); err != nil {
		return errors.Wrap(err, "write CSV header")
	}
	if err := w.WriteAll(rows); err != nil {
		return errors.Wrap(err, "write CSV rows")
	}
	return nil
}

// SerialReport is the result of consuming one serial number
type SerialReport struct {
	PartNumber string `json:"part_number"`
	Mode       string `json:"mode"`
	Value      int    `json:"value"`
	Formatted  string `json:"formatted"`
}

// NewSerialReport describes serial as allocated for partNumber
func NewSerialReport(partNumber string, serial entities.SerialNumber) SerialReport {
	return SerialReport{
		PartNumber: partNumber,
		Mode:       serial.Mode.String(),
		Value:      serial.Value,
		Formatted:  serial.FormattedValue(),
	}
}

func (r SerialReport) writeText(w io.Writer) error {
	_, err := fmt.Fprintf(w, "🏷️  %s %s serial: %s\n", r.PartNumber, r.Mode, r.Formatted)
	return err
}

func (r SerialReport) table() ([]string, [][]string) {
	return []string{"part_number", "mode", "value", "formatted"},
		[][]string{{r.PartNumber, r.Mode, strconv.Itoa(r.Value), r.Formatted}}
}

// CounterReport lists the next-counter values held by one ledger
type CounterReport struct {
	Mode     string         `json:"mode"`
	Counters map[string]int `json:"counters"`
}

func (r CounterReport) parts() []string {
	parts := make([]string, 0, len(r.Counters))
	for part := range r.Counters {
		parts = append(parts, part)
	}
	sort.Strings(parts)
	return parts
}

func (r CounterReport) writeText(w io.Writer) error {
	fmt.Fprintf(w, "📒 %s ledger: %d parts\n", r.Mode, len(r.Counters))
	fmt.Fprintf(w, "%-20s %-10s\n", "Part Number", "Counter")
	fmt.Fprintf(w, "%-20s %-10s\n", "--------------------", "----------")
	for _, part := range r.parts() {
		if _, err := fmt.Fprintf(w, "%-20s %-10d\n", part, r.Counters[part]); err != nil {
			return err
		}
	}
	return nil
}

func (r CounterReport) table() ([]string, [][]string) {
	rows := make([][]string, 0, len(r.Counters))
	for _, part := range r.parts() {
		rows = append(rows, []string{r.Mode, part, strconv.Itoa(r.Counters[part])})
	}
	return []string{"mode", "part_number", "counter"}, rows
}

// PingReport is the ledger health check result
type PingReport struct {
	Healthy bool     `json:"healthy"`
	Modes   []string `json:"modes"`
}

func (r PingReport) writeText(w io.Writer) error {
	status := "✅ ledgers reachable"
	if !r.Healthy {
		status = "❌ ledgers unreachable"
	}
	_, err := fmt.Fprintf(w, "%s %v\n", status, r.Modes)
	return err
}

func (r PingReport) table() ([]string, [][]string) {
	return []string{"healthy", "modes"}, [][]string{{strconv.FormatBool(r.Healthy), fmt.Sprint(r.Modes)}}
}

// TraceReport holds lineage traces and, optionally, shift breakdowns
type TraceReport struct {
	Traces []*dto.TraceResult `json:"traces"`
	Shifts []dto.ShiftSummary `json:"shifts,omitempty"`
}

// Orphans returns the traces that did not reach a line-start process
func (r TraceReport) Orphans() []*dto.TraceResult {
	var orphans []*dto.TraceResult
	for _, trace := range r.Traces {
		if !trace.Complete {
			orphans = append(orphans, trace)
		}
	}
	return orphans
}

func (r TraceReport) writeText(w io.Writer) error {
	fmt.Fprintf(w, "🔗 Lineage Summary\n")
	fmt.Fprintf(w, "==================\n\n")
	fmt.Fprintf(w, "Events traced: %d\n", len(r.Traces))
	fmt.Fprintf(w, "Orphaned: %d\n\n", len(r.Orphans()))

	for _, trace := range r.Traces {
		status := "complete"
		if !trace.Complete {
			status = "broken"
		}
		fmt.Fprintf(w, "Event %d (%s)\n", trace.EventID, status)
		for _, step := range trace.Chain {
			fmt.Fprintf(w, "  %-6d %-5s %-15s %-10s %-25s %s\n",
				step.EventID,
				step.Kind,
				step.PartNumber,
				step.Serial,
				step.Process,
				step.EventDate.Format("2006-01-02"))
		}
		if trace.BrokenAt != nil {
			fmt.Fprintf(w, "  ⚠️  %s at event %d: %s\n", trace.BrokenAt.FailedStep, trace.BrokenAt.EventID, trace.BrokenAt.Reason)
		}
		fmt.Fprintln(w)
	}

	if len(r.Shifts) > 0 {
		fmt.Fprintf(w, "📦 Shift Breakdown:\n")
		fmt.Fprintf(w, "%-8s %-6s %-9s %-8s %-8s\n", "Event", "Shift", "Operator", "Qty", "Percent")
		for _, summary := range r.Shifts {
			for _, share := range summary.Shifts {
				fmt.Fprintf(w, "%-8d %-6s %-9s %-8d %-8s\n",
					summary.EventID, share.Shift, share.Operator, share.Quantity, share.Percent.StringFixed(2))
			}
		}
	}
	return nil
}

func (r TraceReport) table() ([]string, [][]string) {
	var rows [][]string
	for _, trace := range r.Traces {
		failedStep, reason := "", ""
		if trace.BrokenAt != nil {
			failedStep, reason = trace.BrokenAt.FailedStep, trace.BrokenAt.Reason
		}
		for depth, step := range trace.Chain {
			rows = append(rows, []string{
				strconv.Itoa(trace.EventID),
				strconv.Itoa(depth),
				strconv.Itoa(step.EventID),
				step.Kind,
				step.PartNumber,
				step.Serial,
				step.Process,
				step.LabelProcess,
				entities.FormatTimestamp(step.EventDate),
				strconv.FormatBool(trace.Complete),
				failedStep,
				reason,
			})
		}
	}
	return []string{
		"event_id", "depth", "step_event_id", "kind", "part_number", "serial",
		"process", "label_process", "event_date", "complete", "failed_step", "reason",
	}, rows
}
