package util

import "github.com/google/uuid"

// NewID returns an opaque unique identifier for jobs, attachments, and
// request correlation.
func NewID() string {
	return uuid.NewString()
}
