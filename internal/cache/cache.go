// Package cache stores summarization results keyed by content hash so
// repeated runs never pay for the same LLM call twice. The cache is the
// only state mutated by multiple workers: Get may run concurrently,
// every Put is serialized by the backend.
package cache

import "errors"

// ErrNotFound is returned when a hash has no cached entry.
var ErrNotFound = errors.New("cache: entry not found")

// Entry is one cached summarization result.
type Entry struct {
	Summary string `json:"summary"`
	IsTech  bool   `json:"is_tech"`
}

// Store is the injectable cache abstraction. Backends treat their own
// I/O failures as misses on read; writes may return an error but the
// caller never treats it as fatal.
type Store interface {
	Get(hash string) (Entry, error)
	Put(hash string, entry Entry) error
	Close() error
}
