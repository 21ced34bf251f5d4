// Package testutil provides test utilities for indexopt, including:
//   - an in-process Elasticsearch REST stand-in (elasticsearch.go)
//   - Miniredis helpers for leader election tests (miniredis.go)
//
// Neither helper requires Docker; both work with regular tests.
package testutil
