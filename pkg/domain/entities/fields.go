package entities

import (
	"fmt"
	"strings"
)

// maxVariableFields bounds the values accepted from one label
const maxVariableFields = 6

// VariableFieldSet is the sparse set of identifiers printed on a label.
// Which fields are present is dictated by the label process's RequiredFieldSet.
type VariableFieldSet struct {
	JBKNumber       *JBKNumber
	LotNumber       *LotNumber
	DeburrJBKNumber *JBKNumber
	DieNumber       *DieNumber
	HeatNumber      *HeatNumber
}

// ParseVariableFields consumes values positionally in the order JBK, Lot, Deburr JBK, Die, Heat,
// taking one value for each field that is required.
func ParseVariableFields(values []string, required RequiredFieldSet) (VariableFieldSet, error) {
	if len(values) > maxVariableFields {
		return VariableFieldSet{}, newValidationError("variable field set", strings.Join(values, ","),
			fmt.Sprintf("cannot exceed %d fields (got %d)", maxVariableFields, len(values)))
	}

	var fields VariableFieldSet
	offset := 0
	next := func(name string) (string, error) {
		if offset >= len(values) {
			return "", newValidationError(name, "", "required value missing")
		}
		value := values[offset]
		offset++
		return value, nil
	}

	if required.JBKNumber {
		raw, err := next("JBK number")
		if err != nil {
			return VariableFieldSet{}, err
		}
		n, err := ParseJBKNumber(raw)
		if err != nil {
			return VariableFieldSet{}, err
		}
		fields.JBKNumber = &n
	}
	if required.LotNumber {
		raw, err := next("Lot number")
		if err != nil {
			return VariableFieldSet{}, err
		}
		n, err := ParseLotNumber(raw)
		if err != nil {
			return VariableFieldSet{}, err
		}
		fields.LotNumber = &n
	}
	if required.DeburrJBKNumber {
		raw, err := next("Deburr JBK number")
		if err != nil {
			return VariableFieldSet{}, err
		}
		n, err := ParseJBKNumber(raw)
		if err != nil {
			return VariableFieldSet{}, err
		}
		fields.DeburrJBKNumber = &n
	}
	if required.DieNumber {
		raw, err := next("Die number")
		if err != nil {
			return VariableFieldSet{}, err
		}
		n, err := NewDieNumber(raw)
		if err != nil {
			return VariableFieldSet{}, err
		}
		fields.DieNumber = &n
	}
	if required.HeatNumber {
		raw, err := next("Heat number")
		if err != nil {
			return VariableFieldSet{}, err
		}
		n, err := ParseHeatNumber(raw)
		if err != nil {
			return VariableFieldSet{}, err
		}
		fields.HeatNumber = &n
	}

	return fields, nil
}

// Validate fails when a field required by the process is absent.
// Unrequired fields that happen to be present are tolerated.
func (f VariableFieldSet) Validate(required RequiredFieldSet) error {
	missing := make([]string, 0)
	if required.JBKNumber && f.JBKNumber == nil {
		missing = append(missing, "JBKNumber")
	}
	if required.LotNumber && f.LotNumber == nil {
		missing = append(missing, "LotNumber")
	}
	if required.DeburrJBKNumber && f.DeburrJBKNumber == nil {
		missing = append(missing, "DeburrJBKNumber")
	}
	if required.DieNumber && f.DieNumber == nil {
		missing = append(missing, "DieNumber")
	}
	if required.HeatNumber && f.HeatNumber == nil {
		missing = append(missing, "HeatNumber")
	}
	if len(missing) > 0 {
		return newValidationError("variable field set", f.String(), "missing "+strings.Join(missing, ", "))
	}
	return nil
}

// Values lists the present fields in label order, formatted
func (f VariableFieldSet) Values() []string {
	values := make([]string, 0, 5)
	if f.JBKNumber != nil {
		values = append(values, f.JBKNumber.Formatted())
	}
	if f.LotNumber != nil {
		values = append(values, f.LotNumber.Formatted())
	}
	if f.DeburrJBKNumber != nil {
		values = append(values, f.DeburrJBKNumber.Formatted())
	}
	if f.DieNumber != nil {
		values = append(values, f.DieNumber.Formatted())
	}
	if f.HeatNumber != nil {
		values = append(values, f.HeatNumber.Formatted())
	}
	return values
}

func (f VariableFieldSet) String() string {
	return strings.Join(f.Values(), ",")
}
