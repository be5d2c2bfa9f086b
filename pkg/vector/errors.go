package vector

import (
	"errors"
	"fmt"
)

// Common errors
var (
	// ErrDimensionMismatch is returned when two vectors of different length are combined
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidArgument is returned for caller-correctable argument errors,
	// such as an unsupported distance metric
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrEmpty is returned by aggregate helpers given no vectors
	ErrEmpty = errors.New("empty vector collection")
)

func mismatch(a, b int) error {
	return fmt.Errorf("%w: %d != %d", ErrDimensionMismatch, a, b)
}
