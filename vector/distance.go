package vector

import (
	"fmt"
	"math"

	"github.com/viant/nearest/errs"
)

// CosineDistance computes 1 - (a.b)/(|a||b|), clamped to [0, 2]. A
// zero-norm input yields NaN, which is propagated unchanged.
//
// Each vector is first scaled by a power of two so its largest component
// lies in [0.5, 1). Scaling does not change the angle and is exact, and it
// keeps the squared norms away from overflow and underflow. The norm product
// is then taken as one square root, so the distance of a nonzero vector to
// itself is exactly 0 at any magnitude.
func CosineDistance(a, b Vector) (float64, error) {
	if err := sameLength("cosine", a, b); err != nil {
		return 0, err
	}
	sa, sb := unitExponent(a), unitExponent(b)
	var dot, na2, nb2 float64
	for i := range a {
		x, y := math.Ldexp(a[i], sa), math.Ldexp(b[i], sb)
		// explicit conversions keep the products unfused
		dot += float64(x * y)
		na2 += float64(x * x)
		nb2 += float64(y * y)
	}
	d := 1 - dot/math.Sqrt(na2*nb2)
	switch {
	case d < 0:
		return 0, nil
	case d > 2:
		return 2, nil
	}
	return d, nil
}

// unitExponent returns the power of two that brings the largest finite
// magnitude in v into [0.5, 1), or 0 when v is all zeros or not finite.
func unitExponent(v Vector) int {
	var peak float64
	for _, x := range v {
		if ax := math.Abs(x); ax > peak {
			peak = ax
		}
	}
	if peak == 0 || math.IsInf(peak, 0) {
		return 0
	}
	_, exp := math.Frexp(peak)
	return -exp
}

// EuclideanDistance computes the square root of the summed squared
// differences between a and b.
func EuclideanDistance(a, b Vector) (float64, error) {
	if err := sameLength("euclidean", a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		d := a[i] - b[i]
		sum += float64(d * d)
	}
	return math.Sqrt(sum), nil
}

// ManhattanDistance computes the sum of absolute differences between a and b.
func ManhattanDistance(a, b Vector) (float64, error) {
	if err := sameLength("manhattan", a, b); err != nil {
		return 0, err
	}
	var sum float64
	for i := range a {
		sum += math.Abs(a[i] - b[i])
	}
	return sum, nil
}

func sameLength(metric string, a, b Vector) error {
	if len(a) == len(b) {
		return nil
	}
	return errs.New(errs.CodeDimensionMismatch,
		fmt.Sprintf("vector: %s distance dimension mismatch: %d vs %d", metric, len(a), len(b)),
		errs.FieldMetric(metric),
		errs.Field("expected", len(a)),
		errs.Field("actual", len(b)),
	)
}

func sameBits(a, b float64) bool {
	return math.Float64bits(a) == math.Float64bits(b)
}
