package persist

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/viant/nearest/errs"
	"github.com/viant/nearest/index"
	"github.com/viant/nearest/vector"
)

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS nn_index (
    name   TEXT PRIMARY KEY,
    metric TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS nn_vector (
    name      TEXT NOT NULL,
    id        TEXT NOT NULL,
    embedding BLOB NOT NULL,
    PRIMARY KEY(name, id)
)`,
}

// EnsureSchema creates the index and vector tables if they do not exist.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range sqliteSchema {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return errs.Wrap(err, errs.CodePersistWriteFailure, "persist: creating sqlite schema")
		}
	}
	return nil
}

// SQLite is a Backend storing named indexes in a SQLite database opened via
// engine.Open. Several indexes can share one database under distinct names.
type SQLite struct {
	DB     *sql.DB
	Name   string
	Logger zerolog.Logger
}

// NewSQLite ensures the schema exists and returns a backend for the index
// called name.
func NewSQLite(ctx context.Context, db *sql.DB, name string) (*SQLite, error) {
	if db == nil {
		return nil, errs.New(errs.CodeConfigInvalid, "persist: sqlite db is nil")
	}
	if name == "" {
		return nil, errs.New(errs.CodeConfigInvalid, "persist: sqlite index name is empty")
	}
	if err := EnsureSchema(ctx, db); err != nil {
		return nil, err
	}
	return &SQLite{DB: db, Name: name, Logger: zerolog.Nop()}, nil
}

// Save replaces the named index in a single transaction.
func (s *SQLite) Save(ctx context.Context, snap *vector.Snapshot) error {
	if err := s.save(ctx, snap); err != nil {
		return errs.Wrap(err, errs.CodePersistWriteFailure, "persist: saving sqlite index "+s.Name, errs.Field("name", s.Name))
	}
	s.Logger.Info().Str("name", s.Name).Int("count", len(snap.Vectors)).Msg("index saved")
	return nil
}

func (s *SQLite) save(ctx context.Context, snap *vector.Snapshot) error {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `INSERT INTO nn_index(name, metric) VALUES (?, ?)
ON CONFLICT(name) DO UPDATE SET metric = excluded.metric`, s.Name, snap.MetricName); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM nn_vector WHERE name = ?`, s.Name); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO nn_vector(name, id, embedding) VALUES (?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()
	for id, vec := range snap.Vectors {
		if _, err := stmt.ExecContext(ctx, s.Name, id, vector.EncodeEmbedding(vec)); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// Load reads the named index.
func (s *SQLite) Load(ctx context.Context) (*vector.Snapshot, error) {
	source := "sqlite:" + s.Name
	var metric string
	err := s.DB.QueryRowContext(ctx, `SELECT metric FROM nn_index WHERE name = ?`, s.Name).Scan(&metric)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, errs.New(errs.CodePersistNotFound, "persist: no sqlite index "+s.Name, errs.Field("name", s.Name))
	}
	if err != nil {
		return nil, errs.Wrap(err, errs.CodePersistReadFailure, "persist: reading sqlite index "+s.Name, errs.Field("name", s.Name))
	}

	rows, err := s.DB.QueryContext(ctx, `SELECT id, embedding FROM nn_vector WHERE name = ?`, s.Name)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodePersistReadFailure, "persist: reading sqlite vectors "+s.Name, errs.Field("name", s.Name))
	}
	defer rows.Close()

	snap := &vector.Snapshot{MetricName: metric, Vectors: make(map[string]vector.Vector)}
	for rows.Next() {
		var id string
		var blob []byte
		if err := rows.Scan(&id, &blob); err != nil {
			return nil, errs.Wrap(err, errs.CodePersistReadFailure, "persist: scanning sqlite vector", errs.Field("name", s.Name))
		}
		vec, err := vector.DecodeEmbedding(blob)
		if err != nil {
			return nil, errs.With(err, errs.Field("name", s.Name), errs.FieldID(id))
		}
		snap.Vectors[id] = vec
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(err, errs.CodePersistReadFailure, "persist: reading sqlite vectors "+s.Name, errs.Field("name", s.Name))
	}
	if err := validate(snap, source); err != nil {
		return nil, err
	}
	s.Logger.Info().Str("name", s.Name).Int("count", len(snap.Vectors)).Msg("index loaded")
	return snap, nil
}

// Nearest answers a top-k query inside the database with the nn_* distance
// functions, so db must come from engine.Open. Results match
// bruteforce.Index.QueryMatches on the same snapshot: ascending distance,
// ties by id, NaN distances last. A stored vector whose length differs from
// query fails the whole query.
func (s *SQLite) Nearest(ctx context.Context, query vector.Vector, k int) ([]index.Match, error) {
	if k < 0 {
		return nil, errs.New(errs.CodeInvalidK, fmt.Sprintf("persist: k must not be negative, got %d", k), errs.Field("k", k))
	}
	m, err := s.metric(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.checkDimension(ctx, len(query)); err != nil {
		return nil, err
	}
	if k == 0 {
		return []index.Match{}, nil
	}

	// the function name comes from the closed Metric set
	stmt := `SELECT id, distance FROM (
    SELECT id, nn_` + m.String() + `(embedding, ?) AS distance
    FROM nn_vector
    WHERE name = ?
)
ORDER BY distance IS NULL, distance, id
LIMIT ?`
	rows, err := s.DB.QueryContext(ctx, stmt, vector.EncodeEmbedding(query), s.Name, k)
	if err != nil {
		return nil, errs.Wrap(err, errs.CodePersistReadFailure, "persist: querying sqlite index "+s.Name, errs.Field("name", s.Name))
	}
	defer rows.Close()

	out := make([]index.Match, 0, k)
	for rows.Next() {
		var id string
		var d sql.NullFloat64
		if err := rows.Scan(&id, &d); err != nil {
			return nil, errs.Wrap(err, errs.CodePersistReadFailure, "persist: scanning sqlite match", errs.Field("name", s.Name))
		}
		// SQLite stores a NaN result as NULL
		if !d.Valid {
			d.Float64 = math.NaN()
		}
		out = append(out, index.Match{ID: id, Distance: d.Float64})
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Wrap(err, errs.CodePersistReadFailure, "persist: querying sqlite index "+s.Name, errs.Field("name", s.Name))
	}
	s.Logger.Debug().Str("name", s.Name).Str("metric", m.String()).Int("k", k).Int("results", len(out)).Msg("query completed")
	return out, nil
}

func (s *SQLite) metric(ctx context.Context) (vector.Metric, error) {
	var name string
	err := s.DB.QueryRowContext(ctx, `SELECT metric FROM nn_index WHERE name = ?`, s.Name).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, errs.New(errs.CodePersistNotFound, "persist: no sqlite index "+s.Name, errs.Field("name", s.Name))
	}
	if err != nil {
		return 0, errs.Wrap(err, errs.CodePersistReadFailure, "persist: reading sqlite index "+s.Name, errs.Field("name", s.Name))
	}
	m, err := vector.ParseMetric(name)
	if err != nil {
		return 0, errs.With(err, errs.Field("name", s.Name))
	}
	return m, nil
}

// checkDimension reports the first stored vector, by id, whose length is
// not n.
func (s *SQLite) checkDimension(ctx context.Context, n int) error {
	var id string
	var size int
	err := s.DB.QueryRowContext(ctx, `SELECT id, length(embedding) FROM nn_vector
WHERE name = ? AND length(embedding) != ?
ORDER BY id LIMIT 1`, s.Name, n*8).Scan(&id, &size)
	if errors.Is(err, sql.ErrNoRows) {
		return nil
	}
	if err != nil {
		return errs.Wrap(err, errs.CodePersistReadFailure, "persist: checking sqlite dimensions "+s.Name, errs.Field("name", s.Name))
	}
	return errs.New(errs.CodeDimensionMismatch,
		fmt.Sprintf("persist: vector %s has %d components, query has %d", id, size/8, n),
		errs.Field("name", s.Name), errs.FieldID(id), errs.Field("expected", size/8), errs.Field("actual", n))
}
