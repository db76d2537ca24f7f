package core

import (
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			return err.Fields[0].Field + ": " + err.Fields[0].Error
		}
		return ""
	}
	return err.Err.Error()
}

// MergeValidation folds field errors found outside the validator into err, so that one
// response lists every bad field. err may be nil, validator.ValidationErrors or *ValidationError;
// anything else is returned untouched. Each field is reported once, the first message wins.
func MergeValidation(err error, flds ...FieldError) error {
	var merged ValidationError
	switch e := err.(type) {
	case nil:
	case validator.ValidationErrors:
		merged.Err = e
	case *ValidationError:
		merged.Err = e.Err
		flds = append(flds, e.Fields...)
	default:
		return err
	}

	seen := make(map[string]bool, len(flds))
	for _, f := range flds {
		if !seen[f.Field] {
			seen[f.Field] = true
			merged.Fields = append(merged.Fields, f)
		}
	}
	if merged.Err == nil && len(merged.Fields) == 0 {
		return nil
	}
	return &merged
}

// NotFoundError is returned by repositories when a record does not exist.
type NotFoundError struct {
	message string
}

func NewNotFoundError(msg string) error {
	return &NotFoundError{message: msg}
}

func (e NotFoundError) Error() string {
	return e.message
}

func IsNotFound(err error) bool {
	_, ok := errors.Cause(err).(*NotFoundError)
	return ok
}

// PermissionError is returned when the caller is authenticated but not allowed to act.
type PermissionError struct {
	message string
}

func NewPermissionError(msg string) error {
	return &PermissionError{message: msg}
}

func (e PermissionError) Error() string {
	return e.message
}

type shutdown struct {
	message string
}

func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
