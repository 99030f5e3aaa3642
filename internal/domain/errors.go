package domain

import "errors"

var (
	// ErrValidation marks caller-contract violations (empty or oversized input).
	ErrValidation = errors.New("validation error")

	// ErrNotFound marks lookups for tracking ids that were never created.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID marks a tracking id collision on create. Under correct id
	// generation it never occurs; the store rejects the create rather than
	// silently overwriting an existing record.
	ErrDuplicateID = errors.New("duplicate tracking id")

	// ErrNoProvider marks a dispatch attempted with no provider configured.
	ErrNoProvider = errors.New("no sms provider configured")
)
