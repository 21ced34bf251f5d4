// Package history keeps the outcome of the latest optimization run in Redis
// so every scheduler replica can report it, not only the leader that ran it.
package history

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ethpandaops/indexopt/pkg/optimizer"
	"github.com/ethpandaops/indexopt/pkg/scheduler"
	"github.com/redis/go-redis/v9"
)

// DefaultTTL bounds how long a run stays visible after it finished
const DefaultTTL = 7 * 24 * time.Hour

// entry is the stored form of a scheduler.RunRecord
type entry struct {
	Summary    *optimizer.Summary `json:"summary,omitempty"`
	Error      string             `json:"error,omitempty"`
	FinishedAt time.Time          `json:"finished_at"`
}

// Store reads and writes the latest run record
type Store struct {
	redisClient *redis.Client
	key         string
	ttl         time.Duration
}

// NewStore creates a store keeping the latest run under key
func NewStore(redisOpt *redis.Options, key string, ttl time.Duration) *Store {
	return &Store{
		redisClient: redis.NewClient(redisOpt),
		key:         key,
		ttl:         ttl,
	}
}

// Save overwrites the stored run with record
func (s *Store) Save(ctx context.Context, record *scheduler.RunRecord) error {
	e := entry{
		Summary:    record.Summary,
		FinishedAt: record.FinishedAt,
	}

	if record.Err != nil {
		e.Error = record.Err.Error()
	}

	data, err := json.Marshal(e)
	if err != nil {
		return err
	}

	return s.redisClient.Set(ctx, s.key, data, s.ttl).Err()
}

// Last returns the stored run, or nil when none is stored
func (s *Store) Last(ctx context.Context) (*scheduler.RunRecord, error) {
	data, err := s.redisClient.Get(ctx, s.key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}

		return nil, err
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, err
	}

	record := &scheduler.RunRecord{
		Summary:    e.Summary,
		FinishedAt: e.FinishedAt,
	}

	if e.Error != "" {
		record.Err = errors.New(e.Error) //nolint:err113 // restored from storage
	}

	return record, nil
}

// Close closes the Redis connection
func (s *Store) Close() error {
	return s.redisClient.Close()
}
