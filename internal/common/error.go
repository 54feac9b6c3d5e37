// Package common defines shared constants and sentinel errors used across
// the scenesync client and server. Callers should use errors.Is to match
// these values.
package common

import "errors"

var (
	// Repository-level errors.
	ErrNotFound      = errors.New("not found")
	ErrDuplicateName = errors.New("there is already a scene with this name")

	// Ownership and access.
	ErrNotOwner     = errors.New("not the scene owner")
	ErrUnauthorized = errors.New("unauthorized")
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Transport.
	ErrUnavailable = errors.New("server unavailable")

	// Validation.
	ErrInvalidName = errors.New("invalid scene name")
)
