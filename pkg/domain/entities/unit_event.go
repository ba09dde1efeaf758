package entities

import (
	"fmt"
	"net/netip"
	"time"
)

// EventKind distinguishes label prints from downstream scans
type EventKind int

const (
	PrintEvent EventKind = iota
	ScanEvent
)

// String method for EventKind enum
func (k EventKind) String() string {
	switch k {
	case PrintEvent:
		return "Print"
	case ScanEvent:
		return "Scan"
	default:
		return "Unknown"
	}
}

// UnitEvent is one recorded print or scan of a basket label.
// Records are point-in-time snapshots and are not mutated after construction.
type UnitEvent struct {
	ID             int
	Kind           EventKind
	EventProcess   *Process
	LabelProcess   *Process
	Part           *Part
	VariableFields VariableFieldSet
	ProductionDate time.Time
	EventDate      time.Time
	EventAddress   netip.Addr
	PrimaryData    PartialDataSet
	SecondaryData  *PartialDataSet
	TertiaryData   *PartialDataSet
}

// NewPrintEvent records a label printed by process. The event date is the production date.
func NewPrintEvent(
	id int,
	process *Process,
	part *Part,
	fields VariableFieldSet,
	productionDate time.Time,
	primary PartialDataSet,
	additional ...*PartialDataSet,
) (*UnitEvent, error) {
	event := &UnitEvent{
		ID:             id,
		Kind:           PrintEvent,
		EventProcess:   process,
		LabelProcess:   process,
		Part:           part,
		VariableFields: fields,
		ProductionDate: productionDate,
		EventDate:      productionDate,
		PrimaryData:    primary,
	}
	if err := event.attach(additional); err != nil {
		return nil, err
	}
	if err := event.validate(); err != nil {
		return nil, err
	}
	return event, nil
}

// NewScanEvent records a label read at scanProcess. The production date is copied from the label.
func NewScanEvent(
	id int,
	scanProcess *Process,
	scanDate time.Time,
	address netip.Addr,
	labelProcess *Process,
	part *Part,
	fields VariableFieldSet,
	productionDate time.Time,
	primary PartialDataSet,
	additional ...*PartialDataSet,
) (*UnitEvent, error) {
	event := &UnitEvent{
		ID:             id,
		Kind:           ScanEvent,
		EventProcess:   scanProcess,
		LabelProcess:   labelProcess,
		Part:           part,
		VariableFields: fields,
		ProductionDate: productionDate,
		EventDate:      scanDate,
		EventAddress:   address,
		PrimaryData:    primary,
	}
	if err := event.attach(additional); err != nil {
		return nil, err
	}
	if err := event.validate(); err != nil {
		return nil, err
	}
	return event, nil
}

func (e *UnitEvent) attach(additional []*PartialDataSet) error {
	if len(additional) > 2 {
		return newValidationError("partial data sets", len(additional)+1, "a basket spans at most three shifts")
	}
	if len(additional) > 0 {
		e.SecondaryData = additional[0]
	}
	if len(additional) > 1 {
		e.TertiaryData = additional[1]
	}
	return nil
}

func (e *UnitEvent) validate() error {
	if e.EventProcess == nil {
		return fmt.Errorf("%s event %d has no event process", e.Kind, e.ID)
	}
	if e.LabelProcess == nil {
		return fmt.Errorf("%s event %d has no label process", e.Kind, e.ID)
	}
	if e.Part == nil {
		return fmt.Errorf("%s event %d has no part", e.Kind, e.ID)
	}
	return e.VariableFields.Validate(e.LabelProcess.RequiredFields)
}

// PartialDataSets returns the primary data set followed by any shift-split sets
func (e *UnitEvent) PartialDataSets() []PartialDataSet {
	sets := []PartialDataSet{e.PrimaryData}
	if e.SecondaryData != nil {
		sets = append(sets, *e.SecondaryData)
	}
	if e.TertiaryData != nil {
		sets = append(sets, *e.TertiaryData)
	}
	return sets
}

// SerialNumber recovers the basket serial from the label fields the label process prints.
// A label process with neither a serialization mode nor a pass-through type is a FormatError.
func (e *UnitEvent) SerialNumber() (SerialNumber, error) {
	mode := e.LabelProcess.HeaderMode()
	switch mode {
	case SerializationJBK:
		if e.VariableFields.JBKNumber == nil {
			return SerialNumber{}, &FormatError{Reason: fmt.Sprintf("event %d from %s carries no JBK number", e.ID, e.LabelProcess.FullName())}
		}
		return SerialNumber{Mode: mode, PartID: e.Part.ID, Value: e.VariableFields.JBKNumber.Literal()}, nil
	case SerializationLot:
		if e.VariableFields.LotNumber == nil {
			return SerialNumber{}, &FormatError{Reason: fmt.Sprintf("event %d from %s carries no Lot number", e.ID, e.LabelProcess.FullName())}
		}
		return SerialNumber{Mode: mode, PartID: e.Part.ID, Value: e.VariableFields.LotNumber.Literal()}, nil
	default:
		return SerialNumber{}, &FormatError{Reason: fmt.Sprintf("process %s has no serialization configured", e.LabelProcess.FullName())}
	}
}

// FormattedSerial formats the serial number the way the label process displays it
func (e *UnitEvent) FormattedSerial() (string, error) {
	serial, err := e.SerialNumber()
	if err != nil {
		return "", err
	}
	return serial.FormattedValueFor(e.LabelProcess), nil
}

// IsIdenticalTo reports whether other records the same label: same label process,
// production date and serial. Used for deduplication, not lineage.
func (e *UnitEvent) IsIdenticalTo(other *UnitEvent) bool {
	if e.LabelProcess.ID != other.LabelProcess.ID {
		return false
	}
	if !e.ProductionDate.Equal(other.ProductionDate) {
		return false
	}
	serial, err := e.FormattedSerial()
	if err != nil {
		return false
	}
	otherSerial, err := other.FormattedSerial()
	if err != nil {
		return false
	}
	return serial == otherSerial
}

// WithinRange reports whether candidateDate falls between 0 and rangeDays whole days after this event
func (e *UnitEvent) WithinRange(candidateDate time.Time, rangeDays int) bool {
	days := ElapsedDays(e.EventDate, candidateDate)
	return days >= 0 && days <= rangeDays
}

// ElapsedDays returns the whole days from start to end, truncated toward zero
func ElapsedDays(start, end time.Time) int {
	return int(end.Sub(start) / (24 * time.Hour))
}

func (e *UnitEvent) String() string {
	serial, err := e.FormattedSerial()
	if err != nil {
		serial = "?"
	}
	return fmt.Sprintf("%s %d %s %s @ %s", e.Kind, e.ID, e.Part.Number, serial, e.EventProcess.FullName())
}
