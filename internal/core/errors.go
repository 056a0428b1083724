package core

import "errors"

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrUnknownCategory = errors.New("unknown category")
	ErrEmptyUsername   = errors.New("empty username")
	ErrNoSession       = errors.New("no active session")

	// ErrPersist wraps every failure to write a snapshot to durable storage.
	ErrPersist = errors.New("persist snapshot")

	// ErrNotFound is returned by storage backends for a missing key.
	ErrNotFound = errors.New("not found")
)
