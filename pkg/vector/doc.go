// Package vector provides the immutable embedding vector used by the router.
//
// A Vector owns its elements: constructors copy their input and accessors
// return copies, so a Vector can be shared between goroutines freely.
//
// Operations that combine two vectors require equal dimensionality and
// return ErrDimensionMismatch otherwise. Nothing is truncated or padded.
//
//	a := vector.New(1, 0)
//	b := vector.New(0, 1)
//	sim, _ := a.CosineSimilarity(b)              // 0
//	d, _ := a.Distance(b, vector.MetricManhattan) // 2
package vector
