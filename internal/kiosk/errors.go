package kiosk

import "errors"

var (
	// ErrInvariant reports ledger state the engine refuses to act on, such as
	// two open attempts at once.
	ErrInvariant = errors.New("kiosk invariant violated")
	// ErrNoShift is returned when a timer or plan operation has no open shift to bind to.
	ErrNoShift = errors.New("no active shift")
	// ErrShiftClosed is returned when the bound shift has already ended.
	ErrShiftClosed = errors.New("shift is closed")
	// ErrNoActiveAttempt is returned by step views when nothing is being packed.
	ErrNoActiveAttempt = errors.New("no active packing attempt")
	// ErrNotMaster is returned when a master-only operation runs outside master mode.
	ErrNotMaster = errors.New("master mode required")
	// ErrForbidden is returned when a kiosk setting disallows the operator action.
	ErrForbidden = errors.New("operation disabled by kiosk settings")
	// ErrValidation flags malformed caller input.
	ErrValidation = errors.New("invalid input")
)
