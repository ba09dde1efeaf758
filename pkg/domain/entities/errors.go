package entities

import (
	"errors"
	"fmt"
)

// ValidationError reports a value that failed the range or format check of an identifier type
type ValidationError struct {
	Type   string
	Value  string
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("invalid %s %q", e.Type, e.Value)
	}
	return fmt.Sprintf("invalid %s %q: %s", e.Type, e.Value, e.Reason)
}

func newValidationError(typ string, value any, reason string) error {
	return &ValidationError{Type: typ, Value: fmt.Sprint(value), Reason: reason}
}

// NotFoundError reports a missing ledger entry or directory record
type NotFoundError struct {
	Kind string
	Key  string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Kind, e.Key)
}

// NewNotFoundError creates a NotFoundError for the given kind of record
func NewNotFoundError(kind string, key any) error {
	return &NotFoundError{Kind: kind, Key: fmt.Sprint(key)}
}

// SerializationError reports a failure to read, parse or write a serial ledger.
// The ledger is never left partially written when one is returned.
type SerializationError struct {
	Op   string
	Part string
	Mode SerializationMode
	Path string
	Err  error
}

func (e *SerializationError) Error() string {
	msg := fmt.Sprintf("serial ledger %s failed", e.Op)
	if e.Part != "" {
		msg += fmt.Sprintf(" for part %s", e.Part)
	}
	if e.Mode != SerializationNone {
		msg += fmt.Sprintf(" (%s)", e.Mode)
	}
	if e.Path != "" {
		msg += fmt.Sprintf(" at %s", e.Path)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *SerializationError) Unwrap() error {
	return e.Err
}

// FormatError reports a record whose process configuration cannot produce a serial number
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "format error: " + e.Reason
}

// IsValidationError reports whether err is or wraps a ValidationError
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsNotFound reports whether err is or wraps a NotFoundError
func IsNotFound(err error) bool {
	var target *NotFoundError
	return errors.As(err, &target)
}

// IsSerializationError reports whether err is or wraps a SerializationError
func IsSerializationError(err error) bool {
	var target *SerializationError
	return errors.As(err, &target)
}

// IsFormatError reports whether err is or wraps a FormatError
func IsFormatError(err error) bool {
	var target *FormatError
	return errors.As(err, &target)
}
