// Package persist stores and restores index snapshots and ingests raw JSON
// vector dumps. A Backend saves and loads a vector.Snapshot; this package
// ships a file backend (JSON or msgpack encoded), a SQLite backend for
// databases opened with engine.Open and a Badger key-value backend.
// SQLite.Nearest answers top-k queries inside the database through the
// nn_* distance functions.
//
// Round trips are bit-exact: load(save(x)) yields the same metric, the same
// ids and identical float64 bit patterns.
package persist
