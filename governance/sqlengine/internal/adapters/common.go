package adapters

import (
	"errors"
)

// ErrUnsupportedIsolationLevel is returned when a resolved isolation level has
// no mapping for the underlying driver. Seeing it indicates a hole in the
// engine capability matrix rather than a caller mistake.
var ErrUnsupportedIsolationLevel = errors.New("isolation level not mapped for this driver")
