// Package index defines the abstraction for exact nearest-neighbour indexes:
// insert named vectors, answer top-k queries under the index's metric, and
// expose a snapshot for persistence. The brute-force implementation lives in
// the bruteforce subpackage.
package index
