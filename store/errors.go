package store

import "errors"

var (
	// ErrDuplicateUsername is returned when a signup or profile update would
	// reuse a username that already exists.
	ErrDuplicateUsername = errors.New("username already exists")

	// ErrUserNotFound is returned when a username or user id does not resolve.
	ErrUserNotFound = errors.New("user not found")

	// ErrNotFound is returned when a task or list id does not resolve.
	ErrNotFound = errors.New("not found")

	// ErrOwnerCannotBeRemoved rejects removing a list's owner from its own
	// membership roster.
	ErrOwnerCannotBeRemoved = errors.New("list owner cannot be removed")
)
