// Package vector defines the numeric model shared by the index and its
// persistence adapters. It includes:
//   - Vector and Snapshot (the persisted id -> vector record)
//   - Metric: the closed set of distance metrics and their selector
//   - Cosine, Euclidean and Manhattan distance functions
//   - Embedding encoding (little-endian float64 BLOB)
package vector
