package config

import (
	"errors"
	"fmt"
)

// Errors returned by configuration operations.
var (
	// ErrValidationFailed indicates a value fails validation. Every
	// *ValidationError matches it.
	ErrValidationFailed = errors.New("validation failed")

	// ErrFileNotFound indicates an explicitly named configuration file
	// doesn't exist.
	ErrFileNotFound = errors.New("config file not found")

	// ErrDecode indicates the merged configuration could not be decoded,
	// typically an unknown key or a value of the wrong type.
	ErrDecode = errors.New("config decode failed")
)

// ValidationError describes a validation failure for a setting.
type ValidationError struct {
	// Path is the setting path that failed validation.
	Path string
	// Message describes the validation error.
	Message string
	// Value is the invalid value.
	Value any
	// Code categorizes the validation error.
	Code ValidationErrorCode
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s (value: %v)", e.Path, e.Message, e.Value)
}

// Is matches ErrValidationFailed.
func (e *ValidationError) Is(target error) bool {
	return target == ErrValidationFailed
}

// ValidationErrorCode categorizes validation errors.
type ValidationErrorCode uint8

const (
	// ErrCodeOutOfRange indicates a numeric value is out of range.
	ErrCodeOutOfRange ValidationErrorCode = iota
	// ErrCodeInvalidEnum indicates the value is not in the allowed enum.
	ErrCodeInvalidEnum
	// ErrCodeRequiredMissing indicates a required setting is missing.
	ErrCodeRequiredMissing
	// ErrCodeInvalidFormat indicates a string that doesn't parse.
	ErrCodeInvalidFormat
)

// String returns a human-readable name for the error code.
func (c ValidationErrorCode) String() string {
	switch c {
	case ErrCodeOutOfRange:
		return "out_of_range"
	case ErrCodeInvalidEnum:
		return "invalid_enum"
	case ErrCodeRequiredMissing:
		return "required_missing"
	case ErrCodeInvalidFormat:
		return "invalid_format"
	default:
		return "unknown"
	}
}
