package entities

import (
	"fmt"
	"strings"
)

// Shift is the production shift a partial basket was filled on
type Shift int

const (
	FirstShift Shift = iota + 1
	SecondShift
	ThirdShift
)

// String method for Shift enum
func (s Shift) String() string {
	switch s {
	case FirstShift:
		return "1"
	case SecondShift:
		return "2"
	case ThirdShift:
		return "3"
	default:
		return "Unknown"
	}
}

// ParseShift converts "1", "2" or "3" to a Shift
func ParseShift(s string) (Shift, error) {
	switch strings.TrimSpace(s) {
	case "1":
		return FirstShift, nil
	case "2":
		return SecondShift, nil
	case "3":
		return ThirdShift, nil
	default:
		return 0, newValidationError("shift", s, "expected 1, 2 or 3")
	}
}

// PartialDataSet captures the quantity, shift and operator for one shift's share of a basket
type PartialDataSet struct {
	Quantity Quantity
	Shift    Shift
	Operator Operator
}

// NewPartialDataSet creates a PartialDataSet with a valid shift
func NewPartialDataSet(quantity Quantity, shift Shift, operator Operator) (*PartialDataSet, error) {
	if shift < FirstShift || shift > ThirdShift {
		return nil, newValidationError("shift", int(shift), "expected 1, 2 or 3")
	}
	return &PartialDataSet{
		Quantity: quantity,
		Shift:    shift,
		Operator: operator,
	}, nil
}

// SelfValidate checks the data set can be submitted: a positive quantity and proper operator initials
func (d *PartialDataSet) SelfValidate() error {
	if !d.Quantity.IsPositive() {
		return newValidationError("quantity", d.Quantity.Value(), "production quantity must be greater than 0")
	}
	if d.Operator.IsZero() {
		return newValidationError("operator initials", "", "operator initials are required")
	}
	return nil
}

func (d *PartialDataSet) String() string {
	return fmt.Sprintf("%d on shift %s by %s", d.Quantity.Value(), d.Shift, d.Operator)
}
