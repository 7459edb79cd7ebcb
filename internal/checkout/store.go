package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const outcomePrefix = "checkout:outcome:v1:"

// Store keeps the last outcome of each slot. Save overwrites.
type Store interface {
	Save(ctx context.Context, slot string, outcome Outcome) error
	Load(ctx context.Context, slot string) (Outcome, bool, error)
}

type memoryEntry struct {
	outcome Outcome
	expires time.Time
}

type memoryStore struct {
	mu       sync.Mutex
	ttl      time.Duration
	now      func() time.Time
	outcomes map[string]memoryEntry
}

// NewMemoryStore keeps outcomes in process memory. Like the Redis store, a
// zero ttl keeps outcomes forever; expired outcomes are dropped on access.
func NewMemoryStore(ttl time.Duration) Store {
	return newMemoryStore(ttl, time.Now)
}

func newMemoryStore(ttl time.Duration, now func() time.Time) *memoryStore {
	return &memoryStore{ttl: ttl, now: now, outcomes: make(map[string]memoryEntry)}
}

func (s *memoryStore) Save(_ context.Context, slot string, outcome Outcome) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	s.sweep(now)
	entry := memoryEntry{outcome: outcome}
	if s.ttl > 0 {
		entry.expires = now.Add(s.ttl)
	}
	s.outcomes[slot] = entry
	return nil
}

func (s *memoryStore) Load(_ context.Context, slot string) (Outcome, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.outcomes[slot]
	if !ok {
		return Outcome{}, false, nil
	}
	if entry.expired(s.now()) {
		delete(s.outcomes, slot)
		return Outcome{}, false, nil
	}
	return entry.outcome, true, nil
}

func (s *memoryStore) sweep(now time.Time) {
	for slot, entry := range s.outcomes {
		if entry.expired(now) {
			delete(s.outcomes, slot)
		}
	}
}

func (e memoryEntry) expired(now time.Time) bool {
	return !e.expires.IsZero() && !now.Before(e.expires)
}

// RedisStore keeps outcomes in Redis as JSON with a TTL.
type RedisStore struct {
	cache *redis.Client
	ttl   time.Duration
}

// NewRedisStore builds a Redis-backed store. A zero ttl keeps outcomes forever.
func NewRedisStore(cache *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{cache: cache, ttl: ttl}
}

// Save writes the outcome, replacing any previous one.
func (s *RedisStore) Save(ctx context.Context, slot string, outcome Outcome) error {
	payload, err := json.Marshal(outcome)
	if err != nil {
		return fmt.Errorf("encode outcome: %w", err)
	}
	if err := s.cache.Set(ctx, outcomePrefix+slot, payload, s.ttl).Err(); err != nil {
		return fmt.Errorf("store outcome: %w", err)
	}
	return nil
}

// Load reads the last outcome of slot.
func (s *RedisStore) Load(ctx context.Context, slot string) (Outcome, bool, error) {
	cached, err := s.cache.Get(ctx, outcomePrefix+slot).Bytes()
	if errors.Is(err, redis.Nil) {
		return Outcome{}, false, nil
	}
	if err != nil {
		return Outcome{}, false, fmt.Errorf("load outcome: %w", err)
	}
	var o Outcome
	if err := json.Unmarshal(cached, &o); err != nil {
		return Outcome{}, false, fmt.Errorf("decode outcome: %w", err)
	}
	return o, true, nil
}
