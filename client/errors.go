package client

import "errors"

// Failure classes for the placement and claim flows. Callers map these onto
// the notification surface; nothing here is fatal to the process, and every
// failure leaves previously settled local state untouched.
var (
	// ErrValidation is a rejected creation payload (missing field, bad stock).
	ErrValidation = errors.New("invalid treasure submission")

	// ErrNotFound means the store no longer recognizes the treasure id.
	ErrNotFound = errors.New("treasure no longer available")

	// ErrExhausted means the claim lost the race for the last box.
	ErrExhausted = errors.New("treasure already claimed")

	// ErrMissingEvidence is a local precondition failure; the store is never
	// contacted.
	ErrMissingEvidence = errors.New("proof image required")

	// ErrTransport covers network failures and unexpected statuses. Store
	// operations are individually atomic, so a manual retry is always safe.
	ErrTransport = errors.New("treasure store unreachable")

	// ErrBusy means a claim submission is already in flight.
	ErrBusy = errors.New("claim already in progress")

	// ErrCooldown means the submission guard dropped the attempt.
	ErrCooldown = errors.New("submitted too soon after previous attempt")
)
