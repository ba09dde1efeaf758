package entities

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// SerialNumber is a minted or recovered basket serial for one part.
// It is derived from a unit event's fields and label process, never stored on its own.
type SerialNumber struct {
	Mode   SerializationMode
	PartID int
	Value  int
}

// NewSerialNumber creates a SerialNumber after checking the value against the mode's range
func NewSerialNumber(mode SerializationMode, partID int, value int) (SerialNumber, error) {
	if value < 0 {
		return SerialNumber{}, newValidationError("serial number", value, "cannot be negative")
	}
	if limit := mode.Limit(); limit > 0 && value > limit {
		return SerialNumber{}, newValidationError("serial number", value, fmt.Sprintf("exceeds %s limit %d", mode, limit))
	}
	return SerialNumber{Mode: mode, PartID: partID, Value: value}, nil
}

// FormattedValue pads the value for the serial's own mode: JBK to 3 digits, Lot to 9, None unpadded.
// Pass-through labels must use FormattedValueFor instead.
func (s SerialNumber) FormattedValue() string {
	switch s.Mode {
	case SerializationJBK:
		return padLeft(s.Value, 3)
	case SerializationLot:
		return padLeft(s.Value, 9)
	default:
		return strconv.Itoa(s.Value)
	}
}

// FormattedValueFor formats the value the way labels from process display it.
// The value is always padded to 3 digits first, then to 9 when the resolved mode is Lot.
func (s SerialNumber) FormattedValueFor(process *Process) string {
	raw := strconv.Itoa(s.Value)
	mode := process.HeaderMode()
	if mode == SerializationNone {
		return raw
	}

	formatted := raw
	if len(formatted) < 3 {
		formatted = strings.Repeat("0", 3-len(formatted)) + formatted
	}
	if mode == SerializationLot && len(formatted) < 9 {
		formatted = strings.Repeat("0", 9-len(formatted)) + formatted
	}
	return formatted
}

// ParseFormattedValue reverses FormattedValue for any mode
func ParseFormattedValue(formatted string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(formatted))
	if err != nil || value < 0 {
		return 0, newValidationError("serial number", formatted, "not a non-negative integer")
	}
	return value, nil
}

func (s SerialNumber) String() string {
	return fmt.Sprintf("%s %s (part %d)", s.Mode, s.FormattedValue(), s.PartID)
}

type serialNumberJSON struct {
	Mode  string `json:"Mode"`
	Part  string `json:"Part"`
	Value string `json:"Value"`
}

// MarshalJSON writes the serial with every field as a string
func (s SerialNumber) MarshalJSON() ([]byte, error) {
	return json.Marshal(serialNumberJSON{
		Mode:  s.Mode.String(),
		Part:  strconv.Itoa(s.PartID),
		Value: strconv.Itoa(s.Value),
	})
}

// UnmarshalJSON reads the string-valued form written by MarshalJSON
func (s *SerialNumber) UnmarshalJSON(data []byte) error {
	var raw serialNumberJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return &FormatError{Reason: fmt.Sprintf("cannot decode serial number: %v", err)}
	}
	mode, err := ParseSerializationMode(raw.Mode)
	if err != nil {
		return &FormatError{Reason: fmt.Sprintf("no serialization mode in serial number %s", data)}
	}
	partID, err := strconv.Atoi(raw.Part)
	if err != nil {
		return &FormatError{Reason: fmt.Sprintf("no part id in serial number %s", data)}
	}
	value, err := strconv.Atoi(raw.Value)
	if err != nil {
		return &FormatError{Reason: fmt.Sprintf("no value in serial number %s", data)}
	}
	*s = SerialNumber{Mode: mode, PartID: partID, Value: value}
	return nil
}

// ParseSerialNumberJSON decodes a serial number written by MarshalJSON
func ParseSerialNumberJSON(data []byte) (SerialNumber, error) {
	var s SerialNumber
	if err := s.UnmarshalJSON(data); err != nil {
		return SerialNumber{}, err
	}
	return s, nil
}
