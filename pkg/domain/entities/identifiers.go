package entities

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

const (
	// JBKLimit is the highest value a JBK number can hold
	JBKLimit = 999
	// LotLimit is the highest value a Lot number can hold
	LotLimit = 999999999
	// HeatLimit is the highest value a Heat number can hold
	HeatLimit = 999999999
	// DieLimit is the highest literal a Die number can hold
	DieLimit = 99
)

var (
	operatorPattern  = regexp.MustCompile(`^[A-Za-z]{2,3}$`)
	modelCodePattern = regexp.MustCompile(`^[A-Za-z0-9]{3,4}$`)
	diePattern       = regexp.MustCompile(`^([0-9]{1,3})([AB]?)$`)
)

// padLeft zero-pads a decimal literal to width
func padLeft(value int, width int) string {
	return fmt.Sprintf("%0*d", width, value)
}

func parseLiteral(typ, raw string) (int, error) {
	value, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return 0, newValidationError(typ, raw, "not an integer")
	}
	return value, nil
}

// JBKNumber is a three-digit cyclic basket serial
type JBKNumber struct {
	literal int
}

// NewJBKNumber creates a JBKNumber in the range [0, 999]
func NewJBKNumber(value int) (JBKNumber, error) {
	if value < 0 || value > JBKLimit {
		return JBKNumber{}, newValidationError("JBK number", value, fmt.Sprintf("must be between 0 and %d", JBKLimit))
	}
	return JBKNumber{literal: value}, nil
}

// ParseJBKNumber parses a JBKNumber from its decimal text, padded or not
func ParseJBKNumber(raw string) (JBKNumber, error) {
	value, err := parseLiteral("JBK number", raw)
	if err != nil {
		return JBKNumber{}, err
	}
	return NewJBKNumber(value)
}

// Literal returns the raw integer value
func (n JBKNumber) Literal() int { return n.literal }

// Formatted returns the value zero-padded to three digits
func (n JBKNumber) Formatted() string { return padLeft(n.literal, 3) }

func (n JBKNumber) String() string { return n.Formatted() }

// LotNumber is a nine-digit cyclic basket serial
type LotNumber struct {
	literal int
}

// NewLotNumber creates a LotNumber in the range [0, 999999999]
func NewLotNumber(value int) (LotNumber, error) {
	if value < 0 || value > LotLimit {
		return LotNumber{}, newValidationError("Lot number", value, fmt.Sprintf("must be between 0 and %d", LotLimit))
	}
	return LotNumber{literal: value}, nil
}

// ParseLotNumber parses a LotNumber, ignoring embedded spaces as printed on labels
func ParseLotNumber(raw string) (LotNumber, error) {
	value, err := parseLiteral("Lot number", strings.ReplaceAll(raw, " ", ""))
	if err != nil {
		return LotNumber{}, err
	}
	return NewLotNumber(value)
}

// Literal returns the raw integer value
func (n LotNumber) Literal() int { return n.literal }

// Formatted returns the value zero-padded to nine digits
func (n LotNumber) Formatted() string { return padLeft(n.literal, 9) }

func (n LotNumber) String() string { return n.Formatted() }

// DieNumber identifies the casting die, with an optional A/B suffix for split dies
type DieNumber struct {
	literal int
	split   string
}

// NewDieNumber parses a die number such as "5", "12" or "5A". The split suffix is
// an uppercase A or B.
func NewDieNumber(raw string) (DieNumber, error) {
	value := strings.TrimSpace(raw)
	if len(value) > 3 {
		return DieNumber{}, newValidationError("Die number", raw, "too long")
	}
	matches := diePattern.FindStringSubmatch(value)
	if matches == nil {
		return DieNumber{}, newValidationError("Die number", raw, "expected digits with an optional A or B suffix")
	}
	literal, _ := strconv.Atoi(matches[1])
	if literal > DieLimit {
		return DieNumber{}, newValidationError("Die number", raw, fmt.Sprintf("must be between 0 and %d", DieLimit))
	}
	return DieNumber{literal: literal, split: matches[2]}, nil
}

// Literal returns the numeric part of the die number
func (n DieNumber) Literal() int { return n.literal }

// SplitIdentifier returns "A", "B" or "" when the die is not split
func (n DieNumber) SplitIdentifier() string { return n.split }

// Formatted returns the digits followed by the split identifier, if any
func (n DieNumber) Formatted() string { return strconv.Itoa(n.literal) + n.split }

func (n DieNumber) String() string { return n.Formatted() }

// HeatNumber identifies the metal heat a casting was poured from
type HeatNumber struct {
	literal int
}

// NewHeatNumber creates a HeatNumber in the range [0, 999999999]
func NewHeatNumber(value int) (HeatNumber, error) {
	if value < 0 || value > HeatLimit {
		return HeatNumber{}, newValidationError("Heat number", value, fmt.Sprintf("must be between 0 and %d", HeatLimit))
	}
	return HeatNumber{literal: value}, nil
}

// ParseHeatNumber parses a HeatNumber from decimal text
func ParseHeatNumber(raw string) (HeatNumber, error) {
	value, err := parseLiteral("Heat number", raw)
	if err != nil {
		return HeatNumber{}, err
	}
	return NewHeatNumber(value)
}

// Literal returns the raw integer value
func (n HeatNumber) Literal() int { return n.literal }

// Formatted returns the unpadded decimal value
func (n HeatNumber) Formatted() string { return strconv.Itoa(n.literal) }

func (n HeatNumber) String() string { return n.Formatted() }

// Operator holds the initials of the operator who produced a basket
type Operator struct {
	initials string
}

// NewOperator creates an Operator from two or three letters, stored upper-cased
func NewOperator(initials string) (Operator, error) {
	if !operatorPattern.MatchString(initials) {
		return Operator{}, newValidationError("operator initials", initials, "expected 2 or 3 letters")
	}
	return Operator{initials: strings.ToUpper(initials)}, nil
}

// Initials returns the upper-cased initials
func (o Operator) Initials() string { return o.initials }

// IsZero reports whether the operator was never set
func (o Operator) IsZero() bool { return o.initials == "" }

func (o Operator) String() string { return o.initials }

// ModelCode is the three or four character vehicle model a part belongs to
type ModelCode struct {
	code string
}

// NewModelCode creates a ModelCode, stored upper-cased
func NewModelCode(code string) (ModelCode, error) {
	if !modelCodePattern.MatchString(code) {
		return ModelCode{}, newValidationError("model code", code, "expected 3 or 4 alphanumeric characters")
	}
	return ModelCode{code: strings.ToUpper(code)}, nil
}

// Code returns the upper-cased model code
func (m ModelCode) Code() string { return m.code }

func (m ModelCode) String() string { return m.code }

// Quantity is a non-negative count of parts in a basket
type Quantity struct {
	value int
}

// NewQuantity creates a Quantity; zero is allowed but cannot be submitted
func NewQuantity(value int) (Quantity, error) {
	if value < 0 {
		return Quantity{}, newValidationError("quantity", value, "cannot be negative")
	}
	return Quantity{value: value}, nil
}

// Value returns the count
func (q Quantity) Value() int { return q.value }

// IsPositive reports whether the quantity is submittable (greater than zero)
func (q Quantity) IsPositive() bool { return q.value > 0 }

func (q Quantity) String() string { return strconv.Itoa(q.value) }
