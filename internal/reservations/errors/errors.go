package errors

import "errors"

var (
	ErrBookingNotFound = errors.New("booking not found")

	ErrInvalidID = errors.New("invalid booking ID format")

	ErrSlotNotFound = errors.New("slot not found")

	ErrBlockedDateConflict = errors.New("slot falls on a blocked date")

	// ErrReservationRaceLost means at least one chain slot stopped being
	// available between validation and commit.
	ErrReservationRaceLost = errors.New("reservation lost the race for its slots")

	ErrInvalidTransition = errors.New("invalid booking status transition")

	// ErrStatusMismatch means a conditional booking write found a status
	// other than the ones it expected.
	ErrStatusMismatch = errors.New("booking status changed")
)
