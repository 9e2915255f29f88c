package engine

import (
	"database/sql/driver"
	"fmt"
	"sync"

	"github.com/viant/nearest/vector"
	sqlite "modernc.org/sqlite"
)

var (
	registerOnce sync.Once
	registerErr  error
)

// RegisterDistanceFunctions registers nn_cosine, nn_euclidean and
// nn_manhattan with the driver so they are available on connections opened
// after this call. Each takes two float64 embedding BLOBs (see
// vector.EncodeEmbedding) and returns the distance, NULL when either side is
// NULL, or an error when the lengths differ.
func RegisterDistanceFunctions() error {
	registerOnce.Do(func() {
		for _, m := range vector.Metrics {
			if err := sqlite.RegisterDeterministicScalarFunction("nn_"+m.String(), 2, distanceImpl(m)); err != nil {
				registerErr = err
				return
			}
		}
	})
	return registerErr
}

func distanceImpl(m vector.Metric) func(*sqlite.FunctionContext, []driver.Value) (driver.Value, error) {
	name := "nn_" + m.String()
	return func(_ *sqlite.FunctionContext, args []driver.Value) (driver.Value, error) {
		if len(args) != 2 {
			return nil, fmt.Errorf("%s: expected 2 arguments, got %d", name, len(args))
		}
		a, err := asEmbedding(args[0])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		b, err := asEmbedding(args[1])
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		if a == nil || b == nil {
			return nil, nil
		}
		d, err := m.Distance(a, b)
		if err != nil {
			return nil, err
		}
		return d, nil
	}
}

func asEmbedding(arg driver.Value) (vector.Vector, error) {
	switch v := arg.(type) {
	case nil:
		return nil, nil
	case []byte:
		return vector.DecodeEmbedding(v)
	default:
		return nil, fmt.Errorf("unsupported argument type %T for embedding; want BLOB", arg)
	}
}
