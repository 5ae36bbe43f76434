// Package common defines shared constants and sentinel errors used across
// client and server layers of sessionkeeper. Callers should use errors.Is to
// match these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrorAlreadyExists = errors.New("already exists")

	// Service-level errors.
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid or malformed token).
	ErrInvalidToken = errors.New("invalid token")

	// Token lifecycle errors.
	ErrTokenExpired      = errors.New("token expired")
	ErrRefreshRejected   = errors.New("refresh token rejected")
	ErrSessionTerminated = errors.New("session terminated")

	// Business-rule and capacity failures surfaced to the user.
	ErrBillingRequired  = errors.New("billing required")
	ErrUpgradeRequired  = errors.New("membership upgrade required")
	ErrServerOverloaded = errors.New("server overloaded")
)
