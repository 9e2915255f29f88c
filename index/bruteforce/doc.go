// Package bruteforce provides an exact vector index that answers kNN queries
// by scanning every stored vector, turning each distance into an ordered key
// and sorting. It targets small to medium datasets where a linear scan is
// acceptable.
//
// All methods take one exclusive lock for the whole index; queries touch
// every entry, so finer-grained locking would buy nothing.
package bruteforce
