package vector

import "slices"

// Vector is an ordered, fixed-length sequence of float64 values. Two vectors
// can only be compared when their lengths match.
type Vector []float64

// Clone returns an independent copy of v.
func (v Vector) Clone() Vector {
	return slices.Clone(v)
}

// Equal reports whether v and o have the same length and bit-identical
// elements, so NaN equals NaN and -0 differs from +0.
func (v Vector) Equal(o Vector) bool {
	if len(v) != len(o) {
		return false
	}
	for i := range v {
		if !sameBits(v[i], o[i]) {
			return false
		}
	}
	return true
}

// Snapshot is the durable form of an index: the metric name in effect and
// every stored vector keyed by identifier.
type Snapshot struct {
	MetricName string            `json:"metric_name" msgpack:"metric_name"`
	Vectors    map[string]Vector `json:"vectors" msgpack:"vectors"`
}

// Equal reports whether both snapshots hold the same metric, the same id set
// and bit-identical vectors.
func (s *Snapshot) Equal(o *Snapshot) bool {
	if s == nil || o == nil {
		return s == o
	}
	if s.MetricName != o.MetricName || len(s.Vectors) != len(o.Vectors) {
		return false
	}
	for id, v := range s.Vectors {
		ov, ok := o.Vectors[id]
		if !ok || !v.Equal(ov) {
			return false
		}
	}
	return true
}
