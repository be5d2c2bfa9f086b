package vector

import "fmt"

// Mean returns the elementwise arithmetic mean of vs.
func Mean(vs []Vector) (Vector, error) {
	dim, err := commonDim(vs)
	if err != nil {
		return Vector{}, err
	}

	out := make([]float64, dim)
	for _, v := range vs {
		for i, x := range v.data {
			out[i] += x
		}
	}
	n := float64(len(vs))
	for i := range out {
		out[i] /= n
	}
	return Vector{data: out}, nil
}

// Stack collects vs into rows of a matrix, preserving input order.
func Stack(vs []Vector) ([][]float64, error) {
	if _, err := commonDim(vs); err != nil {
		return nil, err
	}

	rows := make([][]float64, len(vs))
	for i, v := range vs {
		rows[i] = v.Values()
	}
	return rows, nil
}

// commonDim returns the shared dimensionality of a non-empty collection.
func commonDim(vs []Vector) (int, error) {
	if len(vs) == 0 {
		return 0, ErrEmpty
	}
	dim := vs[0].Len()
	for i, v := range vs[1:] {
		if v.Len() != dim {
			return 0, fmt.Errorf("vector %d: %w", i+1, mismatch(v.Len(), dim))
		}
	}
	return dim, nil
}
