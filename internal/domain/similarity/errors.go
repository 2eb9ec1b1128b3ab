package similarity

import (
	"errors"
	"fmt"
)

// ErrUnknownSubject is matched by every UnknownSubjectError.
var ErrUnknownSubject = errors.New("unknown subject")

// UnknownSubjectError reports a query for a rider outside the snapshot.
type UnknownSubjectError struct {
	Subject string
}

func (e *UnknownSubjectError) Error() string {
	return fmt.Sprintf("unknown subject %q", e.Subject)
}

func (e *UnknownSubjectError) Is(target error) bool { return target == ErrUnknownSubject }
