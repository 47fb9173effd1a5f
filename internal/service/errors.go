package service

import "errors"

var (
	// ErrNotConnected is returned when an operation requires a live mailbox
	// connection and the user has none.
	ErrNotConnected = errors.New("mailbox not connected")
	// ErrPermissionDenied is returned when a user operates on another
	// user's record. It is deliberately distinct from not-found.
	ErrPermissionDenied = errors.New("permission denied")
	// ErrInvalidConsent is returned when the consent callback state does not
	// match the state issued for this user.
	ErrInvalidConsent = errors.New("consent state mismatch")
	// ErrInvalidAmount rejects review edits that would break the positive
	// amount invariant.
	ErrInvalidAmount = errors.New("amount must be positive")
)
