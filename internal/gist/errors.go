package gist

import (
	"errors"
)

// ErrUnsupportedTransform is returned when a transformation cannot be applied
// to the targeted property, e.g. plucking a non-textual property.
var ErrUnsupportedTransform = errors.New("unsupported transformation")
