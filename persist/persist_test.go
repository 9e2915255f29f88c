package persist

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/nearest/engine"
	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/index/bruteforce"
	"github.com/viant/nearest/vector"
)

func populated(t *testing.T, metric string) *bruteforce.Index {
	t.Helper()
	idx, err := bruteforce.New(metric)
	require.NoError(t, err)
	require.NoError(t, idx.BatchInsert(
		[]string{"a", "b", "c", "d"},
		[]vector.Vector{{1, 2, 3}, {7, 2, 9}, {4, 2.1, 3.4}, {0.9, 8.2, 4.6}},
	))
	return idx
}

type backendCase struct {
	name string
	open func(t *testing.T) Backend
}

func backends() []backendCase {
	return []backendCase{
		{"json file", func(t *testing.T) Backend {
			return NewFile(filepath.Join(t.TempDir(), "index.nn"))
		}},
		{"msgpack file", func(t *testing.T) Backend {
			return NewFile(filepath.Join(t.TempDir(), "index.nnb"))
		}},
		{"sqlite", func(t *testing.T) Backend {
			db, err := engine.Open(filepath.Join(t.TempDir(), "index.db"))
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			b, err := NewSQLite(context.Background(), db, "test")
			require.NoError(t, err)
			return b
		}},
		{"badger", func(t *testing.T) Backend {
			db, err := OpenBadger("", true, zerolog.Nop())
			require.NoError(t, err)
			t.Cleanup(func() { _ = db.Close() })
			b, err := NewBadger(db, "test")
			require.NoError(t, err)
			return b
		}},
	}
}

func TestRoundTrip_QueryResultsSurvive(t *testing.T) {
	ctx := context.Background()
	for _, bc := range backends() {
		for _, m := range vector.Metrics {
			t.Run(bc.name+"/"+m.String(), func(t *testing.T) {
				idx := populated(t, m.String())
				query := vector.Vector{7, 2, 9}
				before, err := idx.Query(query, 1)
				require.NoError(t, err)
				require.Equal(t, []string{"b"}, before)

				b := bc.open(t)
				require.NoError(t, SaveIndex(ctx, b, idx))
				loaded, err := LoadIndex(ctx, b)
				require.NoError(t, err)

				assert.Equal(t, m, loaded.Metric())
				assert.True(t, idx.Snapshot().Equal(loaded.Snapshot()))
				after, err := loaded.Query(query, 1)
				require.NoError(t, err)
				assert.Equal(t, before, after)

				all, err := idx.Query(vector.Vector{1, 1, 1}, 10)
				require.NoError(t, err)
				allLoaded, err := loaded.Query(vector.Vector{1, 1, 1}, 10)
				require.NoError(t, err)
				assert.Equal(t, all, allLoaded)
			})
		}
	}
}

func TestRoundTrip_BitExact(t *testing.T) {
	snap := &vector.Snapshot{
		MetricName: "euclidean",
		Vectors: map[string]vector.Vector{
			"tricky":    {0.1, 1.0 / 3, 1e-310, math.Copysign(0, -1), math.MaxFloat64, math.SmallestNonzeroFloat64},
			"unicode ✓": {-2.5},
		},
	}
	ctx := context.Background()
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			b := bc.open(t)
			require.NoError(t, b.Save(ctx, snap))
			loaded, err := b.Load(ctx)
			require.NoError(t, err)
			assert.True(t, snap.Equal(loaded), "loaded %v", loaded)
		})
	}
}

func TestRoundTrip_ResaveReplaces(t *testing.T) {
	ctx := context.Background()
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			b := bc.open(t)
			require.NoError(t, b.Save(ctx, &vector.Snapshot{MetricName: "cosine", Vectors: map[string]vector.Vector{
				"old": {1}, "kept": {2},
			}}))
			second := &vector.Snapshot{MetricName: "manhattan", Vectors: map[string]vector.Vector{
				"kept": {3}, "new": {4},
			}}
			require.NoError(t, b.Save(ctx, second))
			loaded, err := b.Load(ctx)
			require.NoError(t, err)
			assert.True(t, second.Equal(loaded), "loaded %v", loaded)
		})
	}
}

func TestRoundTrip_EmptyIndex(t *testing.T) {
	ctx := context.Background()
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			idx, err := bruteforce.New("cosine")
			require.NoError(t, err)
			b := bc.open(t)
			require.NoError(t, SaveIndex(ctx, b, idx))
			loaded, err := LoadIndex(ctx, b)
			require.NoError(t, err)
			assert.Equal(t, 0, loaded.Len())
			assert.Equal(t, vector.Cosine, loaded.Metric())
		})
	}
}

func TestLoad_NotFound(t *testing.T) {
	for _, bc := range backends() {
		t.Run(bc.name, func(t *testing.T) {
			_, err := bc.open(t).Load(context.Background())
			require.Error(t, err)
			assert.True(t, errs.IsNotFound(err))
			assert.True(t, errs.IsIO(err))
		})
	}
}

func TestSaveLoad_Path(t *testing.T) {
	path := filepath.Join(t.TempDir(), "integration_test.nn")
	idx := populated(t, "manhattan")
	require.NoError(t, Save(path, idx))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"metric_name":"manhattan"`)
	assert.Contains(t, string(data), `"b":[7,2,9]`)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, idx.IDs(), loaded.IDs())
}

func TestFile_SaveNaNAsJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nan.json")
	err := NewFile(path).Save(context.Background(), &vector.Snapshot{
		MetricName: "cosine",
		Vectors:    map[string]vector.Vector{"z": {0, 0}, "n": {math.NaN()}},
	})
	require.Error(t, err)
	assert.True(t, errs.IsIO(err))
	assert.Equal(t, path, errs.FieldsOf(err)["path"])
	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr))
}

func TestFile_MsgpackKeepsNaN(t *testing.T) {
	b := NewFile(filepath.Join(t.TempDir(), "nan.msgpack"))
	snap := &vector.Snapshot{MetricName: "cosine", Vectors: map[string]vector.Vector{"n": {math.NaN(), math.Inf(-1)}}}
	require.NoError(t, b.Save(context.Background(), snap))
	loaded, err := b.Load(context.Background())
	require.NoError(t, err)
	assert.True(t, snap.Equal(loaded))
}

func TestFile_LoadInvalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		check   func(t *testing.T, err error)
	}{
		{"malformed", `{"metric_name": "cosine", "vectors": `, func(t *testing.T, err error) {
			assert.True(t, errs.HasCode(err, errs.CodePersistInvalidData))
		}},
		{"missing metric", `{"vectors": {"a": [1]}}`, func(t *testing.T, err error) {
			assert.True(t, errs.HasCode(err, errs.CodePersistInvalidData))
		}},
		{"missing vectors", `{"metric_name": "cosine"}`, func(t *testing.T, err error) {
			assert.True(t, errs.HasCode(err, errs.CodePersistInvalidData))
		}},
		{"empty vector", `{"metric_name": "cosine", "vectors": {"a": []}}`, func(t *testing.T, err error) {
			assert.True(t, errs.HasCode(err, errs.CodePersistInvalidData))
			assert.Equal(t, "a", errs.FieldsOf(err)["id"])
		}},
		{"wrong type", `{"metric_name": "cosine", "vectors": {"a": ["x"]}}`, func(t *testing.T, err error) {
			assert.True(t, errs.HasCode(err, errs.CodePersistInvalidData))
		}},
		{"unknown metric", `{"metric_name": "chebyshev", "vectors": {}}`, func(t *testing.T, err error) {
			assert.True(t, errs.IsConfiguration(err))
			assert.Equal(t, "chebyshev", errs.FieldsOf(err)["metric"])
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.nn")
			require.NoError(t, os.WriteFile(path, []byte(tt.content), 0o644))
			_, err := Load(path)
			require.Error(t, err)
			assert.Equal(t, path, errs.FieldsOf(err)["path"])
			tt.check(t, err)
		})
	}
}

func TestCodecFor(t *testing.T) {
	assert.Equal(t, "json", CodecFor("index.nn").Name())
	assert.Equal(t, "json", CodecFor("index.json").Name())
	assert.Equal(t, "msgpack", CodecFor("index.NNB").Name())
	assert.Equal(t, "msgpack", CodecFor("/tmp/x.msgpack").Name())

	c, err := CodecByName("msgpack")
	require.NoError(t, err)
	assert.Equal(t, Msgpack, c)
	_, err = CodecByName("xml")
	assert.True(t, errs.IsConfiguration(err))
}

func TestSQLite_NamedIndexesShareDatabase(t *testing.T) {
	ctx := context.Background()
	db, err := engine.Open(filepath.Join(t.TempDir(), "shared.db"))
	require.NoError(t, err)
	defer db.Close()

	first, err := NewSQLite(ctx, db, "first")
	require.NoError(t, err)
	second, err := NewSQLite(ctx, db, "second")
	require.NoError(t, err)

	require.NoError(t, SaveIndex(ctx, first, populated(t, "cosine")))
	require.NoError(t, second.Save(ctx, &vector.Snapshot{MetricName: "euclidean", Vectors: map[string]vector.Vector{"z": {1}}}))

	a, err := LoadIndex(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, 4, a.Len())
	b, err := LoadIndex(ctx, second)
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, b.IDs())
	assert.Equal(t, vector.Euclidean, b.Metric())

	_, err = NewSQLite(ctx, db, "")
	assert.True(t, errs.IsConfiguration(err))
	_, err = NewSQLite(ctx, nil, "x")
	assert.True(t, errs.IsConfiguration(err))
}

func TestBadger_InvalidName(t *testing.T) {
	db, err := OpenBadger("", true, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()

	for _, name := range []string{"", "a/b"} {
		_, err := NewBadger(db, name)
		assert.True(t, errs.IsConfiguration(err), "name %q", name)
	}
	_, err = OpenBadger("", false, zerolog.Nop())
	assert.True(t, errs.IsConfiguration(err))
}

func TestBadger_OnDisk(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	db, err := OpenBadger(dir, false, zerolog.Nop())
	require.NoError(t, err)
	b, err := NewBadger(db, "disk")
	require.NoError(t, err)
	require.NoError(t, SaveIndex(ctx, b, populated(t, "euclidean")))
	require.NoError(t, db.Close())

	db, err = OpenBadger(dir, false, zerolog.Nop())
	require.NoError(t, err)
	defer db.Close()
	b, err = NewBadger(db, "disk")
	require.NoError(t, err)
	idx, err := LoadIndex(ctx, b)
	require.NoError(t, err)
	ids, err := idx.Query(vector.Vector{7, 2, 9}, 1)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, ids)
}
