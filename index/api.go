package index

import "github.com/viant/nearest/vector"

// Index defines a vector index keyed by string identifiers.
type Index interface {
	// Insert stores vector under id, replacing any previous vector for the
	// same id.
	Insert(id string, vec vector.Vector) error

	// BatchInsert inserts ids[i] -> vectors[i] in order; ids and vectors
	// must have the same length.
	BatchInsert(ids []string, vectors []vector.Vector) error

	// Query returns up to k ids ordered by ascending distance to query.
	// A length mismatch against any stored vector fails the whole query.
	Query(query vector.Vector, k int) ([]string, error)

	// QueryMatches is Query with the raw distances attached.
	QueryMatches(query vector.Vector, k int) ([]Match, error)

	// Len returns the number of stored vectors.
	Len() int

	// Metric returns the metric the index was created with.
	Metric() vector.Metric

	// Snapshot returns a deep copy of the index contents.
	Snapshot() *vector.Snapshot
}

// Match is a single query hit.
type Match struct {
	ID       string
	Distance float64
}
