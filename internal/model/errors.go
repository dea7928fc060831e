package model

import "errors"

var (
	// Session errors. Every one of these is reported to the client as 401.
	ErrInvalidSession     = errors.New("invalid session")
	ErrInactiveIdentity   = errors.New("identity is inactive")
	ErrInvalidCredentials = errors.New("invalid credentials")

	ErrForbidden = errors.New("forbidden")

	ErrNotFound          = errors.New("not found")
	ErrAlreadyExists     = errors.New("already exists")
	ErrInvalidInput      = errors.New("invalid input")
	ErrInvalidTransition = errors.New("invalid status transition")
)
