package store

import "errors"

var (
	// ErrNotFound is returned when the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInsufficientBalance is returned when a balance batch would
	// drive any token balance below zero. The batch is applied
	// all-or-nothing.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrAlreadyExists is returned on unique constraint violations,
	// such as creating a second user for the same wallet address.
	ErrAlreadyExists = errors.New("already exists")
)
