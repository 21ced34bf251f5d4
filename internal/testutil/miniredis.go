package testutil

import (
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

// NewMiniredis starts an in-memory Redis that is closed with the test
func NewMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()

	return miniredis.RunT(t)
}

// NewMiniredisURL starts an in-memory Redis and returns it with the
// redis:// URL the configuration expects
func NewMiniredisURL(t *testing.T) (*miniredis.Miniredis, string) {
	t.Helper()

	mr := miniredis.RunT(t)

	return mr, "redis://" + mr.Addr()
}

// NewMiniredisOptions starts an in-memory Redis and returns go-redis options
// pointing at it
func NewMiniredisOptions(t *testing.T) (*miniredis.Miniredis, *redis.Options) {
	t.Helper()

	mr := miniredis.RunT(t)

	return mr, &redis.Options{Addr: mr.Addr()}
}
