package factorization

import (
	"errors"
	"fmt"
)

// ErrInsufficientData is matched by every InsufficientDataError.
var ErrInsufficientData = errors.New("insufficient training data")

// InsufficientDataError reports a training population below two riders or
// two events.
type InsufficientDataError struct {
	Riders int
	Events int
}

func (e *InsufficientDataError) Error() string {
	return fmt.Sprintf("insufficient training data: %d riders, %d events (need at least 2 of each)", e.Riders, e.Events)
}

func (e *InsufficientDataError) Is(target error) bool { return target == ErrInsufficientData }
