package core

import (
	"strings"

	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific form field.
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

// ValidationErrorFrom converts validator errors into a *ValidationError with translated messages.
// Errors of other types are returned as is.
func ValidationErrorFrom(err error, translator ut.Translator) error {
	var vErrs validator.ValidationErrors
	if !errors.As(err, &vErrs) {
		return err
	}
	flds := make([]FieldError, 0, len(vErrs))
	for _, vErr := range vErrs {
		flds = append(flds, FieldError{Field: vErr.Field(), Error: vErr.Translate(translator)})
	}
	return &ValidationError{Err: errors.New("invalid input"), Fields: flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		if len(err.Fields) > 0 {
			msgs := make([]string, 0, len(err.Fields))
			for _, f := range err.Fields {
				msgs = append(msgs, f.Field+": "+f.Error)
			}
			return strings.Join(msgs, "; ")
		}
		return ""
	}
	return err.Err.Error()
}

// FieldMap indexes the field errors by field name, for forms.
func (err ValidationError) FieldMap() map[string]string {
	m := make(map[string]string, len(err.Fields))
	for _, f := range err.Fields {
		m[f.Field] = f.Error
	}
	return m
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
