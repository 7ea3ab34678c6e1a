package dtokit

import (
	"errors"
	"fmt"

	"github.com/hengadev/errsx"

	"github.com/dtokit/dtokit/internal/serialization"
)

var (
	// Configuration errors
	ErrInvalidConfiguration = errors.New("invalid configuration")
	ErrInvalidAnnotation    = errors.New("invalid handler annotation")
	ErrInvalidMark          = errors.New("invalid field mark")

	// Request errors
	ErrValidation           = errors.New("validation failed")
	ErrUnsupportedMediaType = serialization.ErrUnsupportedMediaType

	// Internal errors
	ErrConstruction = errors.New("transfer model construction failed")
)

// ValidationError carries the per-field failures of one decode, keyed by
// dotted source path. It matches ErrValidation under errors.Is.
type ValidationError struct {
	Fields errsx.Map
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %v", ErrValidation, e.Fields.AsError())
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// Unwrap exposes the aggregated field errors.
func (e *ValidationError) Unwrap() error {
	return e.Fields.AsError()
}

func NewInvalidConfigurationError(detail string) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfiguration, detail)
}

func NewInvalidAnnotationError(annotation any, detail string) error {
	return fmt.Errorf("%w: %T: %s", ErrInvalidAnnotation, annotation, detail)
}

func NewInvalidMarkError(fieldName, mark string) error {
	return fmt.Errorf("%w: field '%s' has unknown mark %q", ErrInvalidMark, fieldName, mark)
}

func NewValidationError(fields errsx.Map) error {
	return &ValidationError{Fields: fields}
}

func NewConstructionError(modelName string, cause error) error {
	return fmt.Errorf("%w: model '%s': %v", ErrConstruction, modelName, cause)
}

// IsConfigurationError returns true if the error represents a misconfigured
// binding rather than bad request data.
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrInvalidConfiguration) ||
		errors.Is(err, ErrInvalidAnnotation) ||
		errors.Is(err, ErrInvalidMark)
}

// IsValidationError returns true if the error represents invalid request
// data and should map to a 4xx response.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrValidation)
}

// IsUnsupportedMediaTypeError returns true if no codec serves the request's
// media type.
func IsUnsupportedMediaTypeError(err error) bool {
	return errors.Is(err, ErrUnsupportedMediaType)
}
