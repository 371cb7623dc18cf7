package repository

import "errors"

var (
	// ErrInvalidTransition is returned when a status update finds the post in a
	// state the transition does not start from.
	ErrInvalidTransition = errors.New("post is not in the expected state")
	ErrTokenChanged      = errors.New("stored token changed since it was read")
)
