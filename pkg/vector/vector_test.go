package vector

import (
	"encoding/json"
	"errors"
	"math"
	"testing"
)

const tolerance = 1e-9

func approx(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

func TestAlgebra(t *testing.T) {
	a, b := New(1, 2, 3), New(4, 5, 6)

	sum, err := a.Add(b)
	if err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if !sum.Equal(New(5, 7, 9)) {
		t.Errorf("a+b = %v", sum)
	}

	diff, err := b.Sub(a)
	if err != nil {
		t.Fatalf("Sub() error = %v", err)
	}
	if !diff.Equal(New(3, 3, 3)) {
		t.Errorf("b-a = %v", diff)
	}

	if got := a.Scale(2); !got.Equal(New(2, 4, 6)) {
		t.Errorf("a*2 = %v", got)
	}
	if got := b.Scale(3); !got.Equal(New(12, 15, 18)) {
		t.Errorf("3*b = %v", got)
	}
}

func TestImmutability(t *testing.T) {
	src := []float64{1, 2}
	v := FromSlice(src)
	src[0] = 99
	if v.At(0) != 1 {
		t.Fatal("vector aliases its constructor input")
	}

	values := v.Values()
	values[1] = 99
	if v.At(1) != 2 {
		t.Fatal("Values() exposes internal storage")
	}

	_ = v.Scale(10)
	_ = v.Normalize()
	if !v.Equal(New(1, 2)) {
		t.Fatalf("operations mutated receiver: %v", v)
	}
}

func TestMagnitudeDotCosine(t *testing.T) {
	v := New(3, 4)
	if !approx(v.Magnitude(), 5) {
		t.Errorf("Magnitude() = %v, want 5", v.Magnitude())
	}

	n := v.Normalize()
	if !approx(n.Magnitude(), 1) {
		t.Errorf("|Normalize()| = %v, want 1", n.Magnitude())
	}

	u := New(3, 4)
	d, err := v.Dot(u)
	if err != nil || d != 25 {
		t.Errorf("Dot() = %v, %v; want 25", d, err)
	}

	sim, err := v.CosineSimilarity(u)
	if err != nil || !approx(sim, 1) {
		t.Errorf("CosineSimilarity() = %v, %v; want 1", sim, err)
	}
}

func TestCosineSimilarityProperties(t *testing.T) {
	vectors := []Vector{
		New(1, 0, 0),
		New(0.5, -2, 7),
		New(-3, 1e-3, 42),
		New(1e6, 1e6),
	}

	for _, v := range vectors {
		self, err := v.CosineSimilarity(v)
		if err != nil || !approx(self, 1) {
			t.Errorf("cos(%v, itself) = %v, %v; want ~1", v, self, err)
		}
		opposite, err := v.CosineSimilarity(v.Scale(-1))
		if err != nil || !approx(opposite, -1) {
			t.Errorf("cos(%v, -itself) = %v, %v; want ~-1", v, opposite, err)
		}
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	z := Zeros(3)
	sim, err := z.CosineSimilarity(New(1, 2, 3))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if sim != 0 {
		t.Errorf("cos(0, v) = %v, want 0", sim)
	}

	sim, err = z.CosineSimilarity(z)
	if err != nil || sim != 0 {
		t.Errorf("cos(0, 0) = %v, %v; want 0", sim, err)
	}
}

func TestCosineSimilarityEpsilon(t *testing.T) {
	// With tiny magnitudes the epsilon term dominates the denominator.
	a := New(1e-7, 0)
	sim, err := a.CosineSimilarity(a)
	if err != nil {
		t.Fatal(err)
	}
	want := 1e-14 / (1e-14 + Epsilon)
	if !approx(sim, want) {
		t.Errorf("cos = %v, want %v", sim, want)
	}
}

func TestNormalizeZero(t *testing.T) {
	z := Zeros(4)
	n := z.Normalize()
	if !n.Equal(z) {
		t.Errorf("Normalize(0) = %v, want zero vector", n)
	}
}

func TestDimensionMismatch(t *testing.T) {
	a, b := New(1, 2), New(1, 2, 3)

	checks := map[string]error{}
	_, checks["Dot"] = a.Dot(b)
	_, checks["CosineSimilarity"] = a.CosineSimilarity(b)
	_, checks["Distance"] = a.Distance(b, MetricEuclidean)
	_, checks["Add"] = a.Add(b)
	_, checks["Sub"] = a.Sub(b)
	_, checks["Project"] = a.Project([][]float64{{1, 2, 3}})

	for op, err := range checks {
		if !errors.Is(err, ErrDimensionMismatch) {
			t.Errorf("%s: expected ErrDimensionMismatch, got %v", op, err)
		}
	}

	if a.Equal(b) {
		t.Error("vectors of different length compare equal")
	}
}

func TestDistanceMetrics(t *testing.T) {
	tests := []struct {
		name     string
		a, b     Vector
		metric   Metric
		expected float64
	}{
		{"euclidean zero", New(0, 0), New(0, 0), MetricEuclidean, 0},
		{"euclidean orthogonal", New(1, 0), New(0, 1), MetricEuclidean, math.Sqrt2},
		{"manhattan orthogonal", New(1, 0), New(0, 1), MetricManhattan, 2},
		{"cosine orthogonal", New(1, 0), New(0, 1), MetricCosine, 1},
		{"manhattan mixed signs", New(1, -2, 3), New(-1, 2, 0), MetricManhattan, 9},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d, err := tt.a.Distance(tt.b, tt.metric)
			if err != nil {
				t.Fatalf("Distance() error = %v", err)
			}
			if !approx(d, tt.expected) {
				t.Errorf("Distance() = %v, want %v", d, tt.expected)
			}
		})
	}
}

func TestDistanceProperties(t *testing.T) {
	a, b := New(1.5, -2, 0.25), New(-4, 3, 8)

	diff, _ := a.Sub(b)
	d, err := a.Distance(b, MetricEuclidean)
	if err != nil || !approx(d, diff.Magnitude()) {
		t.Errorf("euclidean = %v, |a-b| = %v", d, diff.Magnitude())
	}

	for _, m := range Metrics() {
		self, err := a.Distance(a, m)
		if err != nil || !approx(self, 0) {
			t.Errorf("%s: distance(a, a) = %v, %v; want 0", m, self, err)
		}
	}
}

func TestDistanceInvalidMetric(t *testing.T) {
	for _, name := range []string{"chebyshev", "unsupported", ""} {
		d, err := New(1, 2).Distance(New(3, 4), Metric(name))
		if !errors.Is(err, ErrInvalidArgument) {
			t.Errorf("metric %q: expected ErrInvalidArgument, got %v (d=%v)", name, err, d)
		}
	}
}

func TestParseMetric(t *testing.T) {
	m, err := ParseMetric(" Manhattan ")
	if err != nil || m != MetricManhattan {
		t.Errorf("ParseMetric() = %q, %v", m, err)
	}
	if _, err := ParseMetric("hamming"); !errors.Is(err, ErrInvalidArgument) {
		t.Errorf("expected ErrInvalidArgument, got %v", err)
	}
}

func TestProject(t *testing.T) {
	v := New(1, 0)
	rot := [][]float64{{0, -1}, {1, 0}} // 90 degree rotation
	got, err := v.Project(rot)
	if err != nil {
		t.Fatalf("Project() error = %v", err)
	}
	if !got.Equal(New(0, 1)) {
		t.Errorf("Project() = %v, want [0 1]", got)
	}
}

func TestIsZeroClip(t *testing.T) {
	if !Zeros(3).IsZero() {
		t.Error("Zeros(3).IsZero() = false")
	}
	if New(0, 1e-300).IsZero() {
		t.Error("non-zero vector reported as zero")
	}

	clipped := New(-2, 0.5, 3).Clip(0, 2)
	if !clipped.Equal(New(0, 0.5, 2)) {
		t.Errorf("Clip() = %v", clipped)
	}
}

func TestMeanStack(t *testing.T) {
	vs := []Vector{New(1, 2), New(3, 4), New(5, 6)}

	mean, err := Mean(vs)
	if err != nil {
		t.Fatalf("Mean() error = %v", err)
	}
	if !mean.Equal(New(3, 4)) {
		t.Errorf("Mean() = %v, want [3 4]", mean)
	}

	stacked, err := Stack(vs)
	if err != nil {
		t.Fatalf("Stack() error = %v", err)
	}
	want := [][]float64{{1, 2}, {3, 4}, {5, 6}}
	for i := range want {
		if !FromSlice(stacked[i]).Equal(FromSlice(want[i])) {
			t.Errorf("row %d = %v, want %v", i, stacked[i], want[i])
		}
	}

	if _, err := Mean(nil); !errors.Is(err, ErrEmpty) {
		t.Errorf("Mean(nil) error = %v, want ErrEmpty", err)
	}
	if _, err := Stack([]Vector{New(1), New(1, 2)}); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("Stack(mixed) error = %v, want ErrDimensionMismatch", err)
	}
}

func TestRoundTrip(t *testing.T) {
	values := []float64{0.1, -0.2, 1.0 / 3.0, math.MaxFloat64, math.SmallestNonzeroFloat64}
	v := FromSlice(values)

	t.Run("slice", func(t *testing.T) {
		if !FromSlice(v.Values()).Equal(v) {
			t.Error("slice round trip lost precision")
		}
	})

	t.Run("json", func(t *testing.T) {
		data, err := json.Marshal(v)
		if err != nil {
			t.Fatal(err)
		}
		var decoded Vector
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatal(err)
		}
		if !decoded.Equal(v) {
			t.Errorf("json round trip: %v != %v", decoded, v)
		}
	})

	t.Run("binary", func(t *testing.T) {
		data, err := v.MarshalBinary()
		if err != nil {
			t.Fatal(err)
		}
		var decoded Vector
		if err := decoded.UnmarshalBinary(data); err != nil {
			t.Fatal(err)
		}
		if !decoded.Equal(v) {
			t.Errorf("binary round trip: %v != %v", decoded, v)
		}
	})
}

func TestFromFloat32(t *testing.T) {
	v := FromFloat32([]float32{0.5, -1.25})
	if !v.Equal(New(0.5, -1.25)) {
		t.Errorf("FromFloat32() = %v", v)
	}
	f := v.Float32()
	if len(f) != 2 || f[0] != 0.5 || f[1] != -1.25 {
		t.Errorf("Float32() = %v", f)
	}
}

func BenchmarkCosineSimilarity(b *testing.B) {
	data := make([]float64, 384)
	for i := range data {
		data[i] = float64(i%17) / 17
	}
	x, y := FromSlice(data), FromSlice(data).Scale(-0.5)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_, _ = x.CosineSimilarity(y)
	}
}

func TestValidate(t *testing.T) {
	if err := New(1, 2).Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
	for _, bad := range []Vector{{}, New(), New(math.NaN()), New(1, math.Inf(1))} {
		if err := bad.Validate(); err == nil {
			t.Errorf("Validate(%v) = nil, want error", bad)
		}
	}
}
