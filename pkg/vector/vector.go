package vector

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/liliang-cn/semrouter/internal/encoding"
)

// Epsilon is added to the denominator of CosineSimilarity so that zero
// vectors yield 0 instead of a division by zero.
const Epsilon = 1e-12

// Vector is an immutable fixed-length numeric vector.
type Vector struct {
	data []float64
}

// New creates a vector holding a copy of values.
func New(values ...float64) Vector {
	return FromSlice(values)
}

// FromSlice creates a vector holding a copy of values.
func FromSlice(values []float64) Vector {
	data := make([]float64, len(values))
	copy(data, values)
	return Vector{data: data}
}

// FromFloat32 converts a float32 embedding into a Vector.
func FromFloat32(values []float32) Vector {
	data := make([]float64, len(values))
	for i, v := range values {
		data[i] = float64(v)
	}
	return Vector{data: data}
}

// Zeros returns a zero vector of the given dimension.
func Zeros(dim int) Vector {
	return Vector{data: make([]float64, dim)}
}

// Len returns the dimensionality of the vector.
func (v Vector) Len() int {
	return len(v.data)
}

// At returns the i-th element. It panics if i is out of range.
func (v Vector) At(i int) float64 {
	return v.data[i]
}

// Values returns a copy of the elements.
func (v Vector) Values() []float64 {
	out := make([]float64, len(v.data))
	copy(out, v.data)
	return out
}

// Float32 returns the elements converted to float32.
func (v Vector) Float32() []float32 {
	out := make([]float32, len(v.data))
	for i, x := range v.data {
		out[i] = float32(x)
	}
	return out
}

// Magnitude returns the Euclidean norm.
func (v Vector) Magnitude() float64 {
	var sum float64
	for _, x := range v.data {
		sum += x * x
	}
	return math.Sqrt(sum)
}

// Dot returns the sum of elementwise products.
func (v Vector) Dot(other Vector) (float64, error) {
	if len(v.data) != len(other.data) {
		return 0, mismatch(len(v.data), len(other.data))
	}
	return dot(v.data, other.data), nil
}

// CosineSimilarity returns dot(v, other) / (|v|*|other| + Epsilon).
//
// The result is nominally in [-1, 1]; vectors of near-zero magnitude may
// land very slightly outside that band because of the epsilon term.
func (v Vector) CosineSimilarity(other Vector) (float64, error) {
	if len(v.data) != len(other.data) {
		return 0, mismatch(len(v.data), len(other.data))
	}
	return cosine(v.data, other.data), nil
}

// Normalize returns the unit vector in the direction of v. A zero vector
// has no direction and is returned unchanged.
func (v Vector) Normalize() Vector {
	m := v.Magnitude()
	if m == 0 {
		return FromSlice(v.data)
	}
	return v.Scale(1 / m)
}

// Add returns v + other.
func (v Vector) Add(other Vector) (Vector, error) {
	if len(v.data) != len(other.data) {
		return Vector{}, mismatch(len(v.data), len(other.data))
	}
	out := make([]float64, len(v.data))
	for i := range out {
		out[i] = v.data[i] + other.data[i]
	}
	return Vector{data: out}, nil
}

// Sub returns v - other.
func (v Vector) Sub(other Vector) (Vector, error) {
	if len(v.data) != len(other.data) {
		return Vector{}, mismatch(len(v.data), len(other.data))
	}
	out := make([]float64, len(v.data))
	for i := range out {
		out[i] = v.data[i] - other.data[i]
	}
	return Vector{data: out}, nil
}

// Scale returns v multiplied by s.
func (v Vector) Scale(s float64) Vector {
	out := make([]float64, len(v.data))
	for i, x := range v.data {
		out[i] = x * s
	}
	return Vector{data: out}
}

// Equal reports exact elementwise equality. Vectors of different
// dimensionality are never equal.
func (v Vector) Equal(other Vector) bool {
	if len(v.data) != len(other.data) {
		return false
	}
	for i := range v.data {
		if v.data[i] != other.data[i] {
			return false
		}
	}
	return true
}

// IsZero reports whether every element is zero.
func (v Vector) IsZero() bool {
	for _, x := range v.data {
		if x != 0 {
			return false
		}
	}
	return true
}

// Clip limits every element to the closed interval [lo, hi].
func (v Vector) Clip(lo, hi float64) Vector {
	out := make([]float64, len(v.data))
	for i, x := range v.data {
		out[i] = math.Min(math.Max(x, lo), hi)
	}
	return Vector{data: out}
}

// Project applies a linear map: the result's i-th element is the dot
// product of matrix row i with v.
func (v Vector) Project(matrix [][]float64) (Vector, error) {
	out := make([]float64, len(matrix))
	for i, row := range matrix {
		if len(row) != len(v.data) {
			return Vector{}, fmt.Errorf("matrix row %d: %w", i, mismatch(len(row), len(v.data)))
		}
		out[i] = dot(row, v.data)
	}
	return Vector{data: out}, nil
}

// String implements fmt.Stringer.
func (v Vector) String() string {
	return fmt.Sprint(v.data)
}

// MarshalJSON encodes the vector as a flat list of numbers.
func (v Vector) MarshalJSON() ([]byte, error) {
	if v.data == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(v.data)
}

// UnmarshalJSON decodes a flat list of numbers.
func (v *Vector) UnmarshalJSON(data []byte) error {
	var values []float64
	if err := json.Unmarshal(data, &values); err != nil {
		return err
	}
	if values == nil {
		values = []float64{}
	}
	v.data = values
	return nil
}

// MarshalBinary encodes the vector with the exact bits of every element.
func (v Vector) MarshalBinary() ([]byte, error) {
	data := v.data
	if data == nil {
		data = []float64{}
	}
	return encoding.EncodeVector(data)
}

// UnmarshalBinary decodes data produced by MarshalBinary.
func (v *Vector) UnmarshalBinary(data []byte) error {
	values, err := encoding.DecodeVector(data)
	if err != nil {
		return err
	}
	v.data = values
	return nil
}

func dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

func cosine(a, b []float64) float64 {
	var dp, normA, normB float64
	for i := range a {
		dp += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}
	return dp / (math.Sqrt(normA)*math.Sqrt(normB) + Epsilon)
}

// Validate reports an error if v is empty or holds NaN or infinite values.
func (v Vector) Validate() error {
	return encoding.ValidateVector(v.data)
}
