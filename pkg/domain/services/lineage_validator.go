package services

import (
	"fmt"

	"github.com/vsinha/lotcom/pkg/domain/entities"
)

// DefaultLineageWindowDays is the longest a basket may sit between two recorded events
const DefaultLineageWindowDays = 60

// LineageStep names the check that decided a lineage comparison
type LineageStep int

const (
	StepNone LineageStep = iota
	StepProcessGraph
	StepSerialNumber
	StepModelCode
	StepTimeWindow
)

// String method for LineageStep enum
func (s LineageStep) String() string {
	switch s {
	case StepNone:
		return "none"
	case StepProcessGraph:
		return "process-graph"
	case StepSerialNumber:
		return "serial-number"
	case StepModelCode:
		return "model-code"
	case StepTimeWindow:
		return "time-window"
	default:
		return "unknown"
	}
}

// LineageCheck is the outcome of comparing a candidate against an alleged predecessor
type LineageCheck struct {
	Successor  bool
	FailedStep LineageStep
	Reason     string
}

// LineageValidator decides whether one unit event legitimately descends from another.
// It is a pure predicate over already-resolved records.
type LineageValidator struct {
	windowDays int
}

// NewLineageValidator creates a validator with the given time window; non-positive values use the default
func NewLineageValidator(windowDays int) *LineageValidator {
	if windowDays <= 0 {
		windowDays = DefaultLineageWindowDays
	}
	return &LineageValidator{windowDays: windowDays}
}

// WindowDays returns the configured time window
func (v *LineageValidator) WindowDays() int {
	return v.windowDays
}

// IsSuccessor reports whether candidate descends from allegedPredecessor
func (v *LineageValidator) IsSuccessor(candidate, allegedPredecessor *entities.UnitEvent) bool {
	return v.Check(candidate, allegedPredecessor).Successor
}

// Check runs the lineage checks cheapest first and stops at the first failure:
// process graph adjacency, serial number, model code, then elapsed time.
func (v *LineageValidator) Check(candidate, allegedPredecessor *entities.UnitEvent) LineageCheck {
	label := candidate.LabelProcess
	if !label.HasPreviousProcess() {
		return fail(StepProcessGraph, "%s is a line-start process", label.FullName())
	}
	if !label.IsPrecededBy(allegedPredecessor.LabelProcess.ID) {
		return fail(StepProcessGraph, "%s does not follow %s", label.FullName(), allegedPredecessor.LabelProcess.FullName())
	}

	previousSerial, err := allegedPredecessor.FormattedSerial()
	if err != nil {
		return fail(StepSerialNumber, "predecessor serial unavailable: %v", err)
	}
	if label.Type == entities.Machining {
		// machining labels reference the deburr basket through a separate field
		deburr := candidate.VariableFields.DeburrJBKNumber
		if deburr == nil {
			return fail(StepSerialNumber, "machining label has no deburr JBK number")
		}
		if deburr.Formatted() != previousSerial {
			return fail(StepSerialNumber, "deburr JBK %s does not match %s", deburr.Formatted(), previousSerial)
		}
	} else {
		serial, err := candidate.FormattedSerial()
		if err != nil {
			return fail(StepSerialNumber, "candidate serial unavailable: %v", err)
		}
		if serial != previousSerial {
			return fail(StepSerialNumber, "serial %s does not match %s", serial, previousSerial)
		}
	}

	if candidate.Part.ModelCode.Code() != allegedPredecessor.Part.ModelCode.Code() {
		return fail(StepModelCode, "model %s does not match %s", candidate.Part.ModelCode, allegedPredecessor.Part.ModelCode)
	}

	if !allegedPredecessor.WithinRange(candidate.EventDate, v.windowDays) {
		days := entities.ElapsedDays(allegedPredecessor.EventDate, candidate.EventDate)
		return fail(StepTimeWindow, "%d days elapsed, allowed 0 to %d", days, v.windowDays)
	}

	return LineageCheck{Successor: true, FailedStep: StepNone}
}

// FindPredecessor returns the first event in history that candidate succeeds
func (v *LineageValidator) FindPredecessor(candidate *entities.UnitEvent, history []*entities.UnitEvent) (*entities.UnitEvent, bool) {
	if !candidate.LabelProcess.HasPreviousProcess() {
		return nil, false
	}
	for _, previous := range history {
		if previous == candidate || (candidate.ID != 0 && previous.ID == candidate.ID) {
			continue
		}
		if v.IsSuccessor(candidate, previous) {
			return previous, true
		}
	}
	return nil, false
}

func fail(step LineageStep, format string, args ...any) LineageCheck {
	return LineageCheck{
		Successor:  false,
		FailedStep: step,
		Reason:     fmt.Sprintf(format, args...),
	}
}
