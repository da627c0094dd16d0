package entity

import (
	"errors"
	"fmt"
)

// ErrCodeUnknownEntityType is the error code carried by UnknownEntityTypeError.
const ErrCodeUnknownEntityType = "UNKNOWN_ENTITY_TYPE"

// UnknownEntityTypeError reports an entity type that is not registered.
// Passing one to the compiler is a caller programming error.
type UnknownEntityTypeError struct {
	Name string
}

// Error implements the error interface.
func (e *UnknownEntityTypeError) Error() string {
	return fmt.Sprintf("%s: entity type %q is not recognised", ErrCodeUnknownEntityType, e.Name)
}

// Code returns ErrCodeUnknownEntityType.
func (e *UnknownEntityTypeError) Code() string {
	return ErrCodeUnknownEntityType
}

// IsUnknownEntityType returns true if err wraps an UnknownEntityTypeError.
func IsUnknownEntityType(err error) bool {
	var ue *UnknownEntityTypeError
	return errors.As(err, &ue)
}

// ConfigError describes an invalid registry configuration.
type ConfigError struct {
	Field   string
	Message string
}

// Error implements the error interface.
func (e *ConfigError) Error() string {
	return fmt.Sprintf("entity config: %s: %s", e.Field, e.Message)
}
