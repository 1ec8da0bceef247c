package errors

import "errors"

var (
	ErrNotFound = errors.New("blocked date not found")

	ErrInvalidID = errors.New("invalid blocked date ID format")
)
