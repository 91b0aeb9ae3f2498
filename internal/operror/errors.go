// Package operror defines the failure taxonomy shared by operator
// construction and graph import.
//
// Every failure is one of three sentinels. Detail types carry the operator,
// field and attribute involved and unwrap to their sentinel, so callers can
// use errors.Is for the class and errors.As for the detail.
package operror

import (
	"errors"
	"fmt"
)

// Failure classes.
var (
	ErrInvalidConfiguration        = errors.New("invalid configuration")
	ErrMissingAttribute            = errors.New("missing attribute")
	ErrUnsupportedExternalOperator = errors.New("unsupported external operator")
)

// ConfigError reports a field value outside its accepted domain.
type ConfigError struct {
	Op     string // Internal operator name
	Field  string // Field name
	Value  any    // Offending value
	Reason string // Optional detail
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("%s: %s: field %q = %v: %s", ErrInvalidConfiguration, e.Op, e.Field, e.Value, e.Reason)
	}
	return fmt.Sprintf("%s: %s: field %q = %v", ErrInvalidConfiguration, e.Op, e.Field, e.Value)
}

// Unwrap returns ErrInvalidConfiguration.
func (e *ConfigError) Unwrap() error {
	return ErrInvalidConfiguration
}

// AttributeError reports a required field that import could not resolve.
// Exactly one of Attribute and Position describes where the value was expected;
// Position is -1 for attribute sources.
type AttributeError struct {
	Op        string
	Field     string
	Attribute string
	Position  int
}

// Error implements the error interface.
func (e *AttributeError) Error() string {
	if e.Position >= 0 {
		return fmt.Sprintf("%s: %s: field %q expects a constant at input %d", ErrMissingAttribute, e.Op, e.Field, e.Position)
	}
	return fmt.Sprintf("%s: %s: field %q (attribute %q)", ErrMissingAttribute, e.Op, e.Field, e.Attribute)
}

// Unwrap returns ErrMissingAttribute.
func (e *AttributeError) Unwrap() error {
	return ErrMissingAttribute
}

// UnsupportedError reports an external operator name with no registered mapping.
type UnsupportedError struct {
	Format string
	Name   string
}

// Error implements the error interface.
func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("%s: %s %q", ErrUnsupportedExternalOperator, e.Format, e.Name)
}

// Unwrap returns ErrUnsupportedExternalOperator.
func (e *UnsupportedError) Unwrap() error {
	return ErrUnsupportedExternalOperator
}

// InvalidField returns a ConfigError for op.field = value.
func InvalidField(op, field string, value any, reason string) error {
	return &ConfigError{Op: op, Field: field, Value: value, Reason: reason}
}

// MissingAttribute returns an AttributeError for an attribute-sourced field.
func MissingAttribute(op, field, attribute string) error {
	return &AttributeError{Op: op, Field: field, Attribute: attribute, Position: -1}
}

// MissingInput returns an AttributeError for an input-sourced field.
func MissingInput(op, field string, position int) error {
	return &AttributeError{Op: op, Field: field, Position: position}
}

// Unsupported returns an UnsupportedError.
func Unsupported(format, name string) error {
	return &UnsupportedError{Format: format, Name: name}
}
