package vector

import (
	"fmt"
	"math"
	"strings"
)

// Metric names a distance function.
type Metric string

// Supported distance metrics.
const (
	MetricEuclidean Metric = "euclidean"
	MetricCosine    Metric = "cosine"
	MetricManhattan Metric = "manhattan"
)

// Metrics returns every supported metric.
func Metrics() []Metric {
	return []Metric{MetricEuclidean, MetricCosine, MetricManhattan}
}

// ParseMetric resolves a metric name, ignoring case and surrounding space.
func ParseMetric(name string) (Metric, error) {
	m := Metric(strings.ToLower(strings.TrimSpace(name)))
	if !m.Valid() {
		return "", fmt.Errorf("%w: unsupported distance metric %q", ErrInvalidArgument, name)
	}
	return m, nil
}

// Valid reports whether m is a supported metric.
func (m Metric) Valid() bool {
	switch m {
	case MetricEuclidean, MetricCosine, MetricManhattan:
		return true
	}
	return false
}

// Distance measures how far v is from other under metric.
//
// Euclidean is the norm of the difference, Manhattan the sum of absolute
// differences and Cosine is 1 - CosineSimilarity. An unsupported metric
// fails with ErrInvalidArgument; there is no default.
func (v Vector) Distance(other Vector, metric Metric) (float64, error) {
	if !metric.Valid() {
		return 0, fmt.Errorf("%w: unsupported distance metric %q", ErrInvalidArgument, string(metric))
	}
	if len(v.data) != len(other.data) {
		return 0, mismatch(len(v.data), len(other.data))
	}

	switch metric {
	case MetricEuclidean:
		var sum float64
		for i := range v.data {
			d := v.data[i] - other.data[i]
			sum += d * d
		}
		return math.Sqrt(sum), nil
	case MetricManhattan:
		var sum float64
		for i := range v.data {
			sum += math.Abs(v.data[i] - other.data[i])
		}
		return sum, nil
	default:
		return 1 - cosine(v.data, other.data), nil
	}
}
