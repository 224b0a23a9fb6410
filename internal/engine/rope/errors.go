package rope

import "errors"

// ErrOutOfRange indicates a character offset, line index or range lies
// outside the rope. The rope is never modified by a failed operation.
var ErrOutOfRange = errors.New("rope: index out of range")
