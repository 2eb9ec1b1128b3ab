package service

import "errors"

var (
	// ErrNoSnapshot is returned while no model snapshot has been published.
	ErrNoSnapshot = errors.New("no model snapshot published")

	// ErrInvalidRequest marks a malformed similarity query.
	ErrInvalidRequest = errors.New("invalid request")

	// ErrNoResults is returned when acquisition produced no usable event.
	ErrNoResults = errors.New("no race results acquired")
)
