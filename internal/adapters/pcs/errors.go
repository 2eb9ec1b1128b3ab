package pcs

import "errors"

// Internal failure kinds. They classify gaps in logs and metrics and never
// leave the client.
var (
	ErrNotFound = errors.New("page not found")
	ErrParse    = errors.New("page could not be parsed")
	ErrStatus   = errors.New("unexpected status")
)

func gapReason(err error) string {
	switch {
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrParse):
		return "parse"
	case errors.Is(err, ErrStatus):
		return "status"
	default:
		return "network"
	}
}
