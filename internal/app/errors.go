package app

import (
	"errors"
	"fmt"
)

var (
	// ErrJobNotFound indicates the referenced job does not exist.
	ErrJobNotFound = errors.New("job not found")
	// ErrAttachmentNotFound indicates the referenced attachment row or its
	// blob does not exist.
	ErrAttachmentNotFound = errors.New("file not found")
	// ErrTooManyFiles indicates an upload exceeded the per-request file cap.
	ErrTooManyFiles = errors.New("too many files")
	// ErrFileTooLarge indicates a single file exceeded the size ceiling.
	ErrFileTooLarge = errors.New("file too large")
)

// ValidationError reports missing or invalid required input.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}
