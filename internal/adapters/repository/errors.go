package repository

import "errors"

// Sentinel kinds for persistence errors.
var (
	ErrNotFound = errors.New("key not found")
	ErrChecksum = errors.New("checksum mismatch")
	ErrFormat   = errors.New("malformed payload")
)

func isNotFound(err error) bool { return errors.Is(err, ErrNotFound) }
