package normalize

import "errors"

// ErrUnknownStrategy is returned for unrecognised normalization keys.
var ErrUnknownStrategy = errors.New("unknown normalization strategy")
