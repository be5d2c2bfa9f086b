// Package encoding implements the binary layout used to persist vectors.
//
// A vector is stored as a little-endian int32 element count followed by the
// IEEE 754 bits of every float64 element, also little-endian.
package encoding

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// ErrInvalidVector is returned when a vector is invalid
var ErrInvalidVector = errors.New("invalid vector")

const headerSize = 4

// EncodeVector encodes a float64 vector to bytes
func EncodeVector(vector []float64) ([]byte, error) {
	if vector == nil {
		return nil, ErrInvalidVector
	}

	vectorLen := len(vector)
	if vectorLen > math.MaxInt32 {
		return nil, fmt.Errorf("vector too large: %d elements exceeds maximum", vectorLen)
	}

	buf := make([]byte, headerSize+8*vectorLen)
	binary.LittleEndian.PutUint32(buf, uint32(vectorLen))
	for i, val := range vector {
		binary.LittleEndian.PutUint64(buf[headerSize+8*i:], math.Float64bits(val))
	}

	return buf, nil
}

// DecodeVector decodes bytes produced by EncodeVector
func DecodeVector(data []byte) ([]float64, error) {
	if len(data) < headerSize {
		return nil, ErrInvalidVector
	}

	length := int32(binary.LittleEndian.Uint32(data))
	if length < 0 {
		return nil, ErrInvalidVector
	}

	// Check if we have exactly enough bytes for the vector
	expectedBytes := int(length) * 8
	if len(data)-headerSize != expectedBytes {
		return nil, fmt.Errorf("%w: expected %d payload bytes, got %d", ErrInvalidVector, expectedBytes, len(data)-headerSize)
	}

	vector := make([]float64, length)
	for i := range vector {
		vector[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[headerSize+8*i:]))
	}

	return vector, nil
}

// ValidateVector checks that a vector is non-empty and holds only finite values.
func ValidateVector(vector []float64) error {
	if len(vector) == 0 {
		return ErrInvalidVector
	}

	for i, val := range vector {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return fmt.Errorf("%w: non-finite value at index %d", ErrInvalidVector, i)
		}
	}

	return nil
}
