package utils

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/ArthurBrioche/Agent-tracing/pkg/tracetree"
)

// UserError represents an error with a user-friendly message and solution
type UserError struct {
	Message  string
	Solution string
	Err      error
}

func (e *UserError) Error() string {
	msg := e.Message
	if e.Solution != "" {
		msg += fmt.Sprintf("\n\n💡 Solution: %s", e.Solution)
	}
	if e.Err != nil {
		msg += fmt.Sprintf("\n\nDetails: %v", e.Err)
	}
	return msg
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new UserError
func NewUserError(message, solution string, err error) *UserError {
	return &UserError{
		Message:  message,
		Solution: solution,
		Err:      err,
	}
}

// ValidationError represents a validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError creates a new ValidationError
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{
		Field:   field,
		Message: message,
	}
}

// ExplainInputError turns reconstruction failures for source into user
// errors. Errors it does not recognise are returned unchanged.
func ExplainInputError(source string, err error) error {
	if err == nil {
		return nil
	}
	var ue *UserError
	if errors.As(err, &ue) {
		return err
	}

	switch {
	case errors.Is(err, tracetree.ErrNoValidRecords):
		return NewUserError(
			fmt.Sprintf("No valid JSON objects found in %s", source),
			"Make sure the file is JSONL: one JSON object per line, each with an \"event\" field",
			err,
		)
	case errors.Is(err, fs.ErrNotExist):
		return NewUserError(
			fmt.Sprintf("Trace file not found: %s", source),
			"Check the path, or pass - to read from stdin",
			err,
		)
	case errors.Is(err, fs.ErrPermission):
		return NewUserError(
			fmt.Sprintf("Cannot read %s", source),
			"Check the file permissions",
			err,
		)
	}
	return err
}
