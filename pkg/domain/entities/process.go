package entities

import (
	"fmt"
	"slices"
	"strings"
)

// SerializationMode selects the serial numbering scheme a process mints
type SerializationMode int

const (
	SerializationNone SerializationMode = iota
	SerializationJBK
	SerializationLot
)

// String method for SerializationMode enum
func (m SerializationMode) String() string {
	switch m {
	case SerializationJBK:
		return "JBK"
	case SerializationLot:
		return "Lot"
	default:
		return "None"
	}
}

// Limit returns the value after which the mode's counter wraps
func (m SerializationMode) Limit() int {
	switch m {
	case SerializationJBK:
		return JBKLimit
	case SerializationLot:
		return LotLimit
	default:
		return 0
	}
}

// ParseSerializationMode converts "JBK", "Lot" or "None"/"" to a SerializationMode
func ParseSerializationMode(s string) (SerializationMode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jbk":
		return SerializationJBK, nil
	case "lot":
		return SerializationLot, nil
	case "", "none", "null":
		return SerializationNone, nil
	default:
		return SerializationNone, newValidationError("serialization mode", s, "expected JBK, Lot or None")
	}
}

// PassThroughType selects the header format a pass-through process prints
type PassThroughType int

const (
	PassThroughNone PassThroughType = iota
	PassThroughJBK
	PassThroughLot
)

// String method for PassThroughType enum
func (t PassThroughType) String() string {
	switch t {
	case PassThroughJBK:
		return "JBK"
	case PassThroughLot:
		return "Lot"
	default:
		return "None"
	}
}

// ParsePassThroughType converts "JBK", "Lot" or "None"/"" to a PassThroughType
func ParsePassThroughType(s string) (PassThroughType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "jbk":
		return PassThroughJBK, nil
	case "lot":
		return PassThroughLot, nil
	case "", "none", "null":
		return PassThroughNone, nil
	default:
		return PassThroughNone, newValidationError("pass-through type", s, "expected JBK, Lot or None")
	}
}

// OriginationType says whether a process mints serials or carries them forward
type OriginationType int

const (
	Originator OriginationType = iota
	PassThrough
)

// String method for OriginationType enum
func (o OriginationType) String() string {
	switch o {
	case Originator:
		return "Originator"
	case PassThrough:
		return "PassThrough"
	default:
		return "Unknown"
	}
}

// ParseOriginationType accepts "Originator", "PassThrough" and "Pass-through"
func ParseOriginationType(s string) (OriginationType, error) {
	switch strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", "")) {
	case "originator":
		return Originator, nil
	case "passthrough":
		return PassThrough, nil
	default:
		return Originator, newValidationError("origination type", s, "expected Originator or Pass-through")
	}
}

// ProcessType names the kind of work done at a process
type ProcessType int

const (
	Casting ProcessType = iota
	Deburring
	ShotBlasting
	Machining
	Processing
	Welding
	Clinching
	Comping
	SubAssembly
	Assembly
)

var processTypeNames = []string{
	"Casting",
	"Deburring",
	"Shot-Blasting",
	"Machining",
	"Processing",
	"Welding",
	"Clinching",
	"Comping",
	"Sub-Assembly",
	"Assembly",
}

// String method for ProcessType enum
func (t ProcessType) String() string {
	if t < 0 || int(t) >= len(processTypeNames) {
		return "Unknown"
	}
	return processTypeNames[t]
}

// ParseProcessType accepts the display names, with or without hyphens
func ParseProcessType(s string) (ProcessType, error) {
	normalized := strings.ToLower(strings.ReplaceAll(strings.TrimSpace(s), "-", ""))
	for i, name := range processTypeNames {
		if strings.ToLower(strings.ReplaceAll(name, "-", "")) == normalized {
			return ProcessType(i), nil
		}
	}
	return Casting, newValidationError("process type", s, "unknown process type")
}

// RequiredFieldSet declares which optional identifiers a process's labels carry
type RequiredFieldSet struct {
	JBKNumber       bool
	LotNumber       bool
	DieNumber       bool
	DeburrJBKNumber bool
	HeatNumber      bool
}

// Count returns how many fields are required
func (r RequiredFieldSet) Count() int {
	n := 0
	for _, required := range []bool{r.JBKNumber, r.LotNumber, r.DeburrJBKNumber, r.DieNumber, r.HeatNumber} {
		if required {
			n++
		}
	}
	return n
}

// Process is one node of the production graph, as loaded from the process directory
type Process struct {
	ID                 int
	LineCode           int
	LineName           string
	Title              string
	Serialization      SerializationMode
	Type               ProcessType
	Origination        OriginationType
	PassThroughType    PassThroughType
	DoesPrint          bool
	DoesScan           bool
	RequiredFields     RequiredFieldSet
	PreviousProcessIDs []int
}

// NewProcess validates a process configuration and normalizes its predecessor set
func NewProcess(p Process) (*Process, error) {
	previous := slices.Clone(p.PreviousProcessIDs)
	slices.Sort(previous)
	p.PreviousProcessIDs = slices.Compact(previous)

	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the origination/serialization invariant
func (p *Process) Validate() error {
	switch p.Origination {
	case Originator:
		if p.Serialization == SerializationNone {
			return &FormatError{Reason: fmt.Sprintf("originator process %s has no serialization mode", p.FullName())}
		}
	case PassThrough:
		if p.PassThroughType == PassThroughNone {
			return &FormatError{Reason: fmt.Sprintf("pass-through process %s has no pass-through type", p.FullName())}
		}
		if p.Serialization != SerializationNone {
			return &FormatError{Reason: fmt.Sprintf("pass-through process %s cannot mint %s serials", p.FullName(), p.Serialization)}
		}
	default:
		return &FormatError{Reason: fmt.Sprintf("process %s has unknown origination type %d", p.FullName(), p.Origination)}
	}
	if slices.Contains(p.PreviousProcessIDs, p.ID) {
		return &FormatError{Reason: fmt.Sprintf("process %s lists itself as a previous process", p.FullName())}
	}
	return nil
}

// FullName returns the "{lineCode}-{lineName}-{title}" identity key
func (p *Process) FullName() string {
	return fmt.Sprintf("%d-%s-%s", p.LineCode, p.LineName, p.Title)
}

// HasPreviousProcess reports whether the process is fed by any other process
func (p *Process) HasPreviousProcess() bool {
	return len(p.PreviousProcessIDs) > 0
}

// IsPrecededBy reports whether processID is a declared immediate predecessor
func (p *Process) IsPrecededBy(processID int) bool {
	return slices.Contains(p.PreviousProcessIDs, processID)
}

// HeaderMode resolves the numbering scheme the process's labels display.
// The serialization mode wins when both it and a pass-through type are set.
func (p *Process) HeaderMode() SerializationMode {
	if p.Serialization != SerializationNone {
		return p.Serialization
	}
	switch p.PassThroughType {
	case PassThroughJBK:
		return SerializationJBK
	case PassThroughLot:
		return SerializationLot
	default:
		return SerializationNone
	}
}

func (p *Process) String() string {
	return p.FullName()
}
