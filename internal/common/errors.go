// Package common defines shared sentinel errors used across all layers of
// TaskPilot. Callers should use errors.Is to match these values; the HTTP
// boundary maps each category to a status code.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("already exists")

	// Validation errors. Wrap with a field-level message:
	// fmt.Errorf("%w: task name is required", common.ErrValidation).
	ErrValidation = errors.New("validation error")

	// Auth errors. Messages stay generic so a caller cannot tell which
	// part of the credentials was wrong.
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// OTP challenge window elapsed (or no challenge exists at all).
	ErrChallengeExpired = errors.New("challenge expired")

	// Service-level errors (generic/internal flow control).
	ErrInternal = errors.New("internal error")
)
