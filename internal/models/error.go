package models

import "errors"

var (
	// ErrNotFound indicates the requested record does not exist
	ErrNotFound = errors.New("record not found")

	// ErrInvalidCredentials indicates a failed login attempt. Deliberately
	// generic so callers cannot distinguish unknown identity from bad password.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrDuplicateEmail indicates the email is already registered
	ErrDuplicateEmail = errors.New("email already registered")
)
