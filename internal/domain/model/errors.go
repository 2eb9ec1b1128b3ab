package model

import "errors"

// Sentinel errors for the data model.
var (
	ErrUnknownClass   = errors.New("unknown race class")
	ErrInvalidOutcome = errors.New("invalid outcome")
	ErrUnknownEvent   = errors.New("unknown race event")
)
