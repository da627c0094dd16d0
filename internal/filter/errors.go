package filter

import (
	"errors"
	"fmt"

	"github.com/roach88/beaconq/internal/entity"
)

// Error codes carried by filter errors.
const (
	ErrCodeMissingField        = "MISSING_FIELD"
	ErrCodeUnsupportedOperator = "UNSUPPORTED_OPERATOR"
	ErrCodeUnknownFilter       = "UNKNOWN_FILTER"
	ErrCodeInvalidFilter       = "INVALID_FILTER"
)

// MissingFieldError reports a filter without a field its constraint needs,
// typically the operator or value of a column comparison.
type MissingFieldError struct {
	ID    string
	Field string
}

// Error implements the error interface.
func (e *MissingFieldError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("%s: filter is missing %s", ErrCodeMissingField, e.Field)
	}
	return fmt.Sprintf("%s: filter %q is missing %s", ErrCodeMissingField, e.ID, e.Field)
}

// Code returns ErrCodeMissingField.
func (e *MissingFieldError) Code() string { return ErrCodeMissingField }

// UnsupportedOperatorError reports an operator that is not valid for the
// kind of value it is applied to.
type UnsupportedOperatorError struct {
	ID        string
	Operator  Operator
	ValueKind string // "numeric" or "text"; empty for an unrecognized operator
}

// Error implements the error interface.
func (e *UnsupportedOperatorError) Error() string {
	if e.ValueKind == "" {
		if e.ID == "" {
			return fmt.Sprintf("%s: operator %q is not recognized", ErrCodeUnsupportedOperator, e.Operator)
		}
		return fmt.Sprintf("%s: filter %q: operator %q is not recognized", ErrCodeUnsupportedOperator, e.ID, e.Operator)
	}
	if e.ID == "" {
		return fmt.Sprintf("%s: operator %q is not supported for %s values", ErrCodeUnsupportedOperator, e.Operator, e.ValueKind)
	}
	return fmt.Sprintf("%s: filter %q: operator %q is not supported for %s values", ErrCodeUnsupportedOperator, e.ID, e.Operator, e.ValueKind)
}

// Code returns ErrCodeUnsupportedOperator.
func (e *UnsupportedOperatorError) Code() string { return ErrCodeUnsupportedOperator }

// UnknownFilterError reports a filter id that matches no column, linked
// column, or ontology term. Only raised in strict mode.
type UnknownFilterError struct {
	ID     string
	Target entity.Type
}

// Error implements the error interface.
func (e *UnknownFilterError) Error() string {
	return fmt.Sprintf("%s: filter %q matches nothing on %s", ErrCodeUnknownFilter, e.ID, e.Target)
}

// Code returns ErrCodeUnknownFilter.
func (e *UnknownFilterError) Code() string { return ErrCodeUnknownFilter }

// InvalidFilterError reports a request filter that could not be decoded.
type InvalidFilterError struct {
	Index int
	Err   error
}

// Error implements the error interface.
func (e *InvalidFilterError) Error() string {
	return fmt.Sprintf("%s: filters[%d]: %v", ErrCodeInvalidFilter, e.Index, e.Err)
}

// Unwrap returns the underlying decode error.
func (e *InvalidFilterError) Unwrap() error { return e.Err }

// Code returns ErrCodeInvalidFilter.
func (e *InvalidFilterError) Code() string { return ErrCodeInvalidFilter }

// IsMissingField returns true if err wraps a MissingFieldError.
func IsMissingField(err error) bool {
	var me *MissingFieldError
	return errors.As(err, &me)
}

// IsUnsupportedOperator returns true if err wraps an UnsupportedOperatorError.
func IsUnsupportedOperator(err error) bool {
	var ue *UnsupportedOperatorError
	return errors.As(err, &ue)
}

// IsUnknownFilter returns true if err wraps an UnknownFilterError.
func IsUnknownFilter(err error) bool {
	var ue *UnknownFilterError
	return errors.As(err, &ue)
}

// ErrorCode extracts the code from any error produced while compiling
// filters, or "" if err carries none.
func ErrorCode(err error) string {
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		return coded.Code()
	}
	return ""
}
