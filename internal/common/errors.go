// Package common defines shared constants and sentinel errors used across
// the store layers. Callers should use errors.Is to match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound        = errors.New("not found")
	ErrDuplicateUsername = errors.New("username already taken")
	ErrDuplicateEmail    = errors.New("email already registered")

	// Authentication collapses unknown identifier and wrong password into one outcome.
	ErrInvalidCredentials = errors.New("invalid username/email or password")

	// Validation errors (caller input).
	ErrValidation        = errors.New("validation error")
	ErrInvalidStatsDelta = errors.New("stats delta must not be negative")

	// Lifecycle errors.
	ErrStoreUnavailable    = errors.New("store unavailable")
	ErrAlreadyBootstrapped = errors.New("store already bootstrapped")

	// Persistence and schema errors.
	ErrCorruptEncoding = errors.New("corrupt encoding")
	ErrMigrationFailed = errors.New("schema migration failed")

	// ErrRemoteUnavailable never leaves the snapshot layer; it is absorbed as "absent".
	ErrRemoteUnavailable = errors.New("remote snapshot unavailable")
)
