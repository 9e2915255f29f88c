package persist

import (
	"context"
	"errors"
	"fmt"
	"strings"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/rs/zerolog"
	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/vector"
	"github.com/vmihailenco/msgpack/v5"
)

// OpenBadger opens a Badger database in dir, or purely in memory when
// inMemory is set (dir is then ignored). Badger's own logging is routed
// through logger.
func OpenBadger(dir string, inMemory bool, logger zerolog.Logger) (*badger.DB, error) {
	if !inMemory && dir == "" {
		return nil, errs.New(errs.CodeConfigInvalid, "persist: badger dir is required for on-disk mode")
	}
	opts := badger.DefaultOptions(dir)
	if inMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts = opts.WithLogger(badgerLogger{logger})
	db, err := badger.Open(opts)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodePersistReadFailure, "persist: opening badger "+dir, errs.FieldPath(dir))
	}
	return db, nil
}

// Badger is a Backend keeping one key per vector under the index name:
// <name>/meta holds the metric and vector count, <name>/v/<id> each
// embedding.
type Badger struct {
	DB     *badger.DB
	Name   string
	Logger zerolog.Logger
}

type badgerMeta struct {
	MetricName string `msgpack:"metric_name"`
	Count      int    `msgpack:"count"`
}

// NewBadger returns a backend for the index called name. Names must not
// contain '/'.
func NewBadger(db *badger.DB, name string) (*Badger, error) {
	if db == nil {
		return nil, errs.New(errs.CodeConfigInvalid, "persist: badger db is nil")
	}
	if name == "" || strings.Contains(name, "/") {
		return nil, errs.New(errs.CodeConfigInvalid, fmt.Sprintf("persist: invalid badger index name %q", name), errs.Field("name", name))
	}
	return &Badger{DB: db, Name: name, Logger: zerolog.Nop()}, nil
}

func (b *Badger) metaKey() []byte { return []byte(b.Name + "/meta") }

func (b *Badger) vectorPrefix() []byte { return []byte(b.Name + "/v/") }

func (b *Badger) vectorKey(id string) []byte { return append(b.vectorPrefix(), id...) }

// Save writes the snapshot in one write batch: stale vectors of the index
// are deleted, current ones set, meta last. A crash in between leaves a
// count mismatch that Load reports.
func (b *Badger) Save(_ context.Context, snap *vector.Snapshot) error {
	meta, err := msgpack.Marshal(badgerMeta{MetricName: snap.MetricName, Count: len(snap.Vectors)})
	if err != nil {
		return errs.Wrap(err, errs.CodePersistWriteFailure, "persist: encoding badger meta", errs.Field("name", b.Name))
	}
	stale, err := b.storedIDs()
	if err != nil {
		return errs.Wrap(err, errs.CodePersistReadFailure, "persist: listing badger index "+b.Name, errs.Field("name", b.Name))
	}

	wb := b.DB.NewWriteBatch()
	defer wb.Cancel()
	for _, id := range stale {
		if _, ok := snap.Vectors[id]; ok {
			continue
		}
		if err := wb.Delete(b.vectorKey(id)); err != nil {
			return errs.Wrap(err, errs.CodePersistWriteFailure, "persist: deleting badger vector", errs.Field("name", b.Name), errs.FieldID(id))
		}
	}
	for id, vec := range snap.Vectors {
		if err := wb.Set(b.vectorKey(id), vector.EncodeEmbedding(vec)); err != nil {
			return errs.Wrap(err, errs.CodePersistWriteFailure, "persist: writing badger vector", errs.Field("name", b.Name), errs.FieldID(id))
		}
	}
	if err := wb.Set(b.metaKey(), meta); err != nil {
		return errs.Wrap(err, errs.CodePersistWriteFailure, "persist: writing badger meta", errs.Field("name", b.Name))
	}
	if err := wb.Flush(); err != nil {
		return errs.Wrap(err, errs.CodePersistWriteFailure, "persist: flushing badger index "+b.Name, errs.Field("name", b.Name))
	}
	b.Logger.Info().Str("name", b.Name).Int("count", len(snap.Vectors)).Msg("index saved")
	return nil
}

func (b *Badger) storedIDs() ([]string, error) {
	var ids []string
	err := b.DB.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Prefix = b.vectorPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			ids = append(ids, string(it.Item().Key()[len(opts.Prefix):]))
		}
		return nil
	})
	return ids, err
}

// Load reads the index back.
func (b *Badger) Load(_ context.Context) (*vector.Snapshot, error) {
	var snap *vector.Snapshot
	err := b.DB.View(func(txn *badger.Txn) error {
		item, err := txn.Get(b.metaKey())
		if err != nil {
			return err
		}
		raw, err := item.ValueCopy(nil)
		if err != nil {
			return err
		}
		var meta badgerMeta
		if err := msgpack.Unmarshal(raw, &meta); err != nil {
			return errs.Wrap(err, errs.CodePersistInvalidData, "persist: decoding badger meta")
		}

		snap = &vector.Snapshot{MetricName: meta.MetricName, Vectors: make(map[string]vector.Vector, meta.Count)}
		opts := badger.DefaultIteratorOptions
		opts.Prefix = b.vectorPrefix()
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			item := it.Item()
			id := string(item.Key()[len(opts.Prefix):])
			blob, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			vec, err := vector.DecodeEmbedding(blob)
			if err != nil {
				return errs.With(err, errs.FieldID(id))
			}
			snap.Vectors[id] = vec
		}
		if len(snap.Vectors) != meta.Count {
			return errs.New(errs.CodePersistInvalidData,
				fmt.Sprintf("persist: badger index holds %d vectors, meta says %d", len(snap.Vectors), meta.Count))
		}
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, errs.New(errs.CodePersistNotFound, "persist: no badger index "+b.Name, errs.Field("name", b.Name))
	}
	if err != nil {
		if errs.CodeOf(err) != "" {
			return nil, errs.With(err, errs.Field("name", b.Name))
		}
		return nil, errs.Wrap(err, errs.CodePersistReadFailure, "persist: reading badger index "+b.Name, errs.Field("name", b.Name))
	}
	if err := validate(snap, "badger:"+b.Name); err != nil {
		return nil, err
	}
	b.Logger.Info().Str("name", b.Name).Int("count", len(snap.Vectors)).Msg("index loaded")
	return snap, nil
}

// badgerLogger adapts zerolog to badger.Logger.
type badgerLogger struct {
	zerolog.Logger
}

func (l badgerLogger) Errorf(format string, args ...interface{}) {
	l.Logger.Error().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Warningf(format string, args ...interface{}) {
	l.Logger.Warn().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.Logger.Debug().Msgf(strings.TrimSpace(format), args...)
}

func (l badgerLogger) Debugf(format string, args ...interface{}) {
	l.Logger.Trace().Msgf(strings.TrimSpace(format), args...)
}
