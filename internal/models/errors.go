package models

import (
	"errors"
	"fmt"
)

// ErrParse is matched by every *ParseError via errors.Is
var ErrParse = errors.New("parse error")

// ErrValidation is matched by every *ValidationError via errors.Is
var ErrValidation = errors.New("validation error")

// ParseError reports a field that could not be parsed, such as a strike signature or date.
// Row is -1 when the value was parsed outside of a batch.
type ParseError struct {
	Err   error
	Field string
	Value string
	Row   int
}

func (e *ParseError) Error() string {
	msg := fmt.Sprintf("parsing %s %q", e.Field, e.Value)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if e.Row < 0 {
		return msg
	}
	return fmt.Sprintf("row %d: %s", e.Row, msg)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrParse) match.
func (e *ParseError) Is(target error) bool { return target == ErrParse }

// ValidationError reports a record that is structurally invalid.
type ValidationError struct {
	Field  string
	Reason string
	Row    int
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("row %d: %s %s", e.Row, e.Field, e.Reason)
}

// Is lets errors.Is(err, ErrValidation) match.
func (e *ValidationError) Is(target error) bool { return target == ErrValidation }
