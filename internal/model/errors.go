package model

import "errors"

var (
	// ErrNotFound is returned by stores when the requested entity does not exist.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when a unique username or email is already taken.
	ErrConflict = errors.New("already exists")
	// ErrTokenMismatch is returned when a conditional refresh token swap finds a different stored value.
	ErrTokenMismatch = errors.New("refresh token mismatch")
	// ErrPasswordTooLong is returned by hashers for passwords the algorithm cannot hash in full.
	ErrPasswordTooLong = errors.New("password too long")
)
