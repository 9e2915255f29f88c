package bruteforce

import (
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/index"
	"github.com/viant/nearest/vector"
	"github.com/viant/nearest/vector/ordered"
)

// Index is an exact nearest-neighbour index over a map of id -> vector.
type Index struct {
	mu       sync.Mutex
	metric   vector.Metric
	distance vector.Func
	vectors  map[string]vector.Vector
	logger   zerolog.Logger
}

// Option configures an Index.
type Option func(*Index)

// WithLogger sets the logger used for debug output. The default discards.
func WithLogger(logger zerolog.Logger) Option {
	return func(i *Index) { i.logger = logger }
}

// New creates an empty index bound to the named metric. An unrecognised
// name is a configuration error; there is no fallback metric.
func New(metricName string, opts ...Option) (*Index, error) {
	m, err := vector.ParseMetric(metricName)
	if err != nil {
		return nil, err
	}
	return NewWithMetric(m, opts...)
}

// NewWithMetric creates an empty index bound to m.
func NewWithMetric(m vector.Metric, opts ...Option) (*Index, error) {
	if !m.Valid() {
		return nil, errs.New(errs.CodeMetricUnknown, "bruteforce: invalid metric", errs.FieldMetric(m.String()))
	}
	i := &Index{
		metric:   m,
		distance: m.Func(),
		vectors:  make(map[string]vector.Vector),
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i, nil
}

// FromSnapshot builds an index holding a copy of every vector in snap.
func FromSnapshot(snap *vector.Snapshot, opts ...Option) (*Index, error) {
	if snap == nil {
		return nil, errs.New(errs.CodePersistInvalidData, "bruteforce: nil snapshot")
	}
	i, err := New(snap.MetricName, opts...)
	if err != nil {
		return nil, err
	}
	for id, vec := range snap.Vectors {
		if err := i.insert(id, vec); err != nil {
			return nil, err
		}
	}
	return i, nil
}

// Insert stores a copy of vec under id. Re-inserting an id replaces its
// vector. Lengths are not checked against other entries here; mismatches
// surface when the vectors are compared.
func (i *Index) Insert(id string, vec vector.Vector) error {
	i.mu.Lock()
	defer i.mu.Unlock()
	if err := i.insert(id, vec); err != nil {
		return err
	}
	i.logger.Debug().Str("id", id).Int("dimension", len(vec)).Msg("insert completed")
	return nil
}

// BatchInsert inserts every ids[j] -> vectors[j] pair. Nothing is inserted
// when the arguments are malformed.
func (i *Index) BatchInsert(ids []string, vectors []vector.Vector) error {
	if len(ids) != len(vectors) {
		return errs.New(errs.CodeBatchMismatch,
			fmt.Sprintf("bruteforce: ids and vectors length mismatch: %d != %d", len(ids), len(vectors)))
	}
	for j, vec := range vectors {
		if len(vec) == 0 {
			return emptyVector(ids[j])
		}
	}
	i.mu.Lock()
	defer i.mu.Unlock()
	for j, id := range ids {
		if err := i.insert(id, vectors[j]); err != nil {
			return err
		}
	}
	i.logger.Debug().Int("count", len(ids)).Msg("batch insert completed")
	return nil
}

func (i *Index) insert(id string, vec vector.Vector) error {
	if len(vec) == 0 {
		return emptyVector(id)
	}
	i.vectors[id] = vec.Clone()
	return nil
}

// Get returns a copy of the vector stored under id.
func (i *Index) Get(id string) (vector.Vector, bool) {
	i.mu.Lock()
	defer i.mu.Unlock()
	vec, ok := i.vectors[id]
	if !ok {
		return nil, false
	}
	return vec.Clone(), true
}

// IDs returns every stored id in ascending order.
func (i *Index) IDs() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return slices.Sorted(maps.Keys(i.vectors))
}

func (i *Index) Len() int {
	i.mu.Lock()
	defer i.mu.Unlock()
	return len(i.vectors)
}

func (i *Index) Metric() vector.Metric { return i.metric }

// Snapshot returns a deep copy of the index contents.
func (i *Index) Snapshot() *vector.Snapshot {
	i.mu.Lock()
	defer i.mu.Unlock()
	vectors := make(map[string]vector.Vector, len(i.vectors))
	for id, vec := range i.vectors {
		vectors[id] = vec.Clone()
	}
	return &vector.Snapshot{MetricName: i.metric.String(), Vectors: vectors}
}

// Query returns up to k ids ordered by ascending distance to query. When the
// index holds fewer than k vectors all ids are returned. Entries with equal
// distances are ordered by id; callers should not depend on that.
func (i *Index) Query(query vector.Vector, k int) ([]string, error) {
	matches, err := i.QueryMatches(query, k)
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(matches))
	for n, m := range matches {
		ids[n] = m.ID
	}
	return ids, nil
}

// QueryMatches is Query with the distances attached. Any stored vector
// whose length differs from query aborts the query; no partial result is
// returned.
func (i *Index) QueryMatches(query vector.Vector, k int) ([]index.Match, error) {
	if k < 0 {
		return nil, errs.New(errs.CodeInvalidK, fmt.Sprintf("bruteforce: k must not be negative, got %d", k), errs.Field("k", k))
	}
	i.mu.Lock()
	defer i.mu.Unlock()

	type scored struct {
		key  ordered.Key
		id   string
		dist float64
	}
	scoreds := make([]scored, 0, len(i.vectors))
	for id, vec := range i.vectors {
		d, err := i.distance(vec, query)
		if err != nil {
			i.logger.Debug().Err(err).Str("id", id).Msg("query aborted")
			return nil, errs.With(err, errs.FieldID(id))
		}
		scoreds = append(scoreds, scored{key: ordered.Encode(d), id: id, dist: d})
	}
	slices.SortFunc(scoreds, func(a, b scored) int {
		if c := a.key.Compare(b.key); c != 0 {
			return c
		}
		return strings.Compare(a.id, b.id)
	})
	if k > len(scoreds) {
		k = len(scoreds)
	}
	out := make([]index.Match, k)
	for n := 0; n < k; n++ {
		out[n] = index.Match{ID: scoreds[n].id, Distance: scoreds[n].dist}
	}
	i.logger.Debug().Str("metric", i.metric.String()).Int("k", k).Int("results", len(out)).Msg("query completed")
	return out, nil
}

func emptyVector(id string) error {
	return errs.New(errs.CodeEmptyVector, "bruteforce: empty vector for id "+id, errs.FieldID(id))
}

// Ensure Index satisfies the index.Index interface.
var _ index.Index = (*Index)(nil)
