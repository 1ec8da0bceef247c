package errors

import "errors"

var (
	ErrNotFound = errors.New("slot not found")

	ErrInvalidID = errors.New("invalid slot ID format")

	ErrDuplicate = errors.New("slot already exists for resource, date and time")

	// ErrStatusMismatch means a conditional write found the slot in a
	// different status than the caller expected.
	ErrStatusMismatch = errors.New("slot status changed")
)
