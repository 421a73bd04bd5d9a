package runs

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"jobmate/aggregator-service/internal/logger"
)

const (
	// EventJobsScraped is the pub/sub channel notified when a run finishes.
	EventJobsScraped = "EVENT_JOBS_SCRAPED"

	// DefaultTTL bounds how long a finished run stays queryable.
	DefaultTTL = 24 * time.Hour

	keyPrefix = "aggregator:run:"
)

// RedisStore persists runs as Redis hashes.
type RedisStore struct {
	rdb redis.UniversalClient
	ttl time.Duration
	log logger.Logger
}

// NewRedisStore returns a RedisStore. A non-positive ttl falls back to
// DefaultTTL.
func NewRedisStore(rdb redis.UniversalClient, ttl time.Duration, log logger.Logger) *RedisStore {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &RedisStore{rdb: rdb, ttl: ttl, log: log.With(logger.Component("runs"))}
}

func key(id string) string { return keyPrefix + id }

// Save writes r and refreshes its expiry. Terminal runs are also announced
// on EventJobsScraped; a failed publish is logged, not returned.
func (s *RedisStore) Save(ctx context.Context, r Run) error {
	fields := map[string]any{
		"id":         r.ID,
		"query":      r.Query,
		"status":     string(r.Status),
		"fetched":    r.Fetched,
		"inserted":   r.Inserted,
		"message":    r.Message,
		"error":      r.Error,
		"started_at": r.StartedAt.UTC().Format(time.RFC3339Nano),
	}
	if r.FinishedAt != nil {
		fields["finished_at"] = r.FinishedAt.UTC().Format(time.RFC3339Nano)
	}

	_, err := s.rdb.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HSet(ctx, key(r.ID), fields)
		p.Expire(ctx, key(r.ID), s.ttl)
		return nil
	})
	if err != nil {
		return fmt.Errorf("save run %s: %w", r.ID, err)
	}

	if IsTerminal(r.Status) {
		s.publish(ctx, r)
	}
	return nil
}

func (s *RedisStore) publish(ctx context.Context, r Run) {
	event, _ := json.Marshal(map[string]any{
		"type":     EventJobsScraped,
		"runId":    r.ID,
		"query":    r.Query,
		"status":   r.Status,
		"fetched":  r.Fetched,
		"inserted": r.Inserted,
	})
	if err := s.rdb.Publish(ctx, EventJobsScraped, event).Err(); err != nil {
		s.log.Warn("publish "+EventJobsScraped+" failed",
			logger.String(logger.FieldRunID, r.ID),
			logger.Error(err),
		)
	}
}

// Get loads a run by ID. It returns ErrNotFound when the run is unknown or
// its TTL has elapsed.
func (s *RedisStore) Get(ctx context.Context, id string) (*Run, error) {
	m, err := s.rdb.HGetAll(ctx, key(id)).Result()
	if err != nil {
		return nil, fmt.Errorf("get run %s: %w", id, err)
	}
	if len(m) == 0 {
		return nil, ErrNotFound
	}
	return decode(m)
}

func decode(m map[string]string) (*Run, error) {
	st, err := ParseStatus(m["status"])
	if err != nil {
		return nil, err
	}
	r := &Run{
		ID:      m["id"],
		Query:   m["query"],
		Status:  st,
		Message: m["message"],
		Error:   m["error"],
	}
	if r.Fetched, err = atoi(m["fetched"]); err != nil {
		return nil, fmt.Errorf("decode fetched: %w", err)
	}
	if r.Inserted, err = atoi(m["inserted"]); err != nil {
		return nil, fmt.Errorf("decode inserted: %w", err)
	}
	if r.StartedAt, err = time.Parse(time.RFC3339Nano, m["started_at"]); err != nil {
		return nil, fmt.Errorf("decode started_at: %w", err)
	}
	if v := m["finished_at"]; v != "" {
		t, err := time.Parse(time.RFC3339Nano, v)
		if err != nil {
			return nil, fmt.Errorf("decode finished_at: %w", err)
		}
		r.FinishedAt = &t
	}
	return r, nil
}

func atoi(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	return strconv.Atoi(s)
}
