package vector

import (
	"github.com/viant/nearest/errs"
)

// Metric enumerates the supported distance metrics. The set is closed:
// there is no registry and no default.
type Metric int

const (
	Cosine Metric = iota + 1
	Euclidean
	Manhattan
)

const (
	CosineName    = "cosine"
	EuclideanName = "euclidean"
	ManhattanName = "manhattan"
)

// Metrics lists every supported metric.
var Metrics = []Metric{Cosine, Euclidean, Manhattan}

// Func computes the distance between two equal-length vectors. It returns a
// dimension mismatch error instead of comparing vectors of different length.
type Func func(a, b Vector) (float64, error)

// ParseMetric maps an exact, case-sensitive metric name to its Metric.
// Any other name is a configuration error.
func ParseMetric(name string) (Metric, error) {
	switch name {
	case CosineName:
		return Cosine, nil
	case EuclideanName:
		return Euclidean, nil
	case ManhattanName:
		return Manhattan, nil
	}
	return 0, errs.New(errs.CodeMetricUnknown, "vector: unrecognised metric "+quote(name), errs.FieldMetric(name))
}

// Select returns the distance function registered under name.
func Select(name string) (Func, error) {
	m, err := ParseMetric(name)
	if err != nil {
		return nil, err
	}
	return m.Func(), nil
}

func (m Metric) String() string {
	switch m {
	case Cosine:
		return CosineName
	case Euclidean:
		return EuclideanName
	case Manhattan:
		return ManhattanName
	}
	return "unknown"
}

// Valid reports whether m is one of the supported metrics.
func (m Metric) Valid() bool {
	return m >= Cosine && m <= Manhattan
}

// Func returns the distance function for m, or nil for an invalid metric.
func (m Metric) Func() Func {
	switch m {
	case Cosine:
		return CosineDistance
	case Euclidean:
		return EuclideanDistance
	case Manhattan:
		return ManhattanDistance
	}
	return nil
}

// Distance computes the distance between a and b under m.
func (m Metric) Distance(a, b Vector) (float64, error) {
	fn := m.Func()
	if fn == nil {
		return 0, errs.New(errs.CodeMetricUnknown, "vector: invalid metric "+m.String(), errs.FieldMetric(m.String()))
	}
	return fn(a, b)
}

func (m Metric) MarshalText() ([]byte, error) {
	if !m.Valid() {
		return nil, errs.New(errs.CodeMetricUnknown, "vector: invalid metric", errs.FieldMetric(m.String()))
	}
	return []byte(m.String()), nil
}

func (m *Metric) UnmarshalText(text []byte) error {
	parsed, err := ParseMetric(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}

func quote(s string) string { return `"` + s + `"` }
