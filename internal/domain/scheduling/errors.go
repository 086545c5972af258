package scheduling

import "errors"

var (
	ErrNotFound     = errors.New("appointment not found")
	ErrPastDate     = errors.New("appointment date cannot be in the past")
	ErrSlotConflict = errors.New("this time slot is already booked for the selected doctor")
	ErrInvalidState = errors.New("invalid appointment state for this action")
	ErrForbidden    = errors.New("you do not have permission to perform this action")
	ErrValidation   = errors.New("invalid input")
)
