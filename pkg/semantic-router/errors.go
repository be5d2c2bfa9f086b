package semanticrouter

import (
	"errors"
	"fmt"
	"strings"

	"github.com/liliang-cn/semrouter/pkg/vector"
)

// Configuration errors, reported by New and ValidateCatalog.
var (
	// ErrConfiguration matches every error returned for an invalid catalog or encoder
	ErrConfiguration = errors.New("invalid router configuration")

	// ErrEmptyCatalog is returned when no routes are provided
	ErrEmptyCatalog = errors.New("no routes provided")

	// ErrDuplicateName is returned when two routes share a name
	ErrDuplicateName = errors.New("duplicate route name")

	// ErrDuplicateDescription is returned when two routes share a description
	ErrDuplicateDescription = errors.New("duplicate route description")

	// ErrInvalidEncoder is returned when no usable encoder is supplied
	ErrInvalidEncoder = errors.New("invalid encoder")
)

var (
	// ErrInvalidArgument is returned for caller-correctable argument errors
	// such as a non-positive top_k or an unsupported query shape
	ErrInvalidArgument = vector.ErrInvalidArgument

	// ErrEncodingFailure wraps every failure of the encoder, including
	// results that violate the encoder contract
	ErrEncodingFailure = errors.New("encoding failed")
)

// ConfigError collects every problem found in a catalog.
type ConfigError struct {
	Problems []error
}

// Error implements the error interface
func (e *ConfigError) Error() string {
	msgs := make([]string, len(e.Problems))
	for i, p := range e.Problems {
		msgs[i] = p.Error()
	}
	return fmt.Sprintf("semanticrouter: %v: %s", ErrConfiguration, strings.Join(msgs, "; "))
}

// Unwrap exposes ErrConfiguration and every individual problem to errors.Is
func (e *ConfigError) Unwrap() []error {
	return append([]error{ErrConfiguration}, e.Problems...)
}

// RouterError wraps errors with operation context
type RouterError struct {
	Op  string // Operation name
	Err error  // Underlying error
}

// Error implements the error interface
func (e *RouterError) Error() string {
	if e.Op == "" {
		return fmt.Sprintf("semanticrouter: %v", e.Err)
	}
	return fmt.Sprintf("semanticrouter: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error
func (e *RouterError) Unwrap() error {
	return e.Err
}

// wrapError wraps an error with operation context
func wrapError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &RouterError{Op: op, Err: err}
}

// encodingFailure chains cause under ErrEncodingFailure.
func encodingFailure(cause error) error {
	return fmt.Errorf("%w: %w", ErrEncodingFailure, cause)
}

func invalidTopK(k int) error {
	return fmt.Errorf("%w: top_k must be a positive integer, got %d", ErrInvalidArgument, k)
}
