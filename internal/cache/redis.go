package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"
)

// SiteHintsPrefix namespaces shared site-hint entries.
const SiteHintsPrefix = "buddy:sitehints:"

// RedisStore mirrors cache entries into Redis as JSON so several instances
// can share them. Every failure is logged and reported as a miss.
type RedisStore[V any] struct {
	client redis.UniversalClient
	prefix string
	ttl    time.Duration
	logger *log.Logger
}

// NewRedisStore wires a store on an existing client.
func NewRedisStore[V any](client redis.UniversalClient, prefix string, ttl time.Duration, logger *log.Logger) *RedisStore[V] {
	if logger == nil {
		logger = log.New(log.Writer(), "[CACHE] ", log.LstdFlags)
	}
	return &RedisStore[V]{client: client, prefix: prefix, ttl: ttl, logger: logger}
}

// Get loads key. Missing, expired and undecodable entries are all misses.
func (s *RedisStore[V]) Get(ctx context.Context, key string) (V, bool) {
	var out V
	raw, err := s.client.Get(ctx, s.prefix+key).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			s.logger.Printf("get %s failed: %v", key, err)
		}
		return out, false
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		s.logger.Printf("decode %s failed: %v", key, err)
		return out, false
	}
	return out, true
}

// Put stores value under key with the store TTL.
func (s *RedisStore[V]) Put(ctx context.Context, key string, value V) {
	if err := s.put(ctx, key, value); err != nil {
		s.logger.Printf("put %s failed: %v", key, err)
	}
}

func (s *RedisStore[V]) put(ctx context.Context, key string, value V) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("encode: %w", err)
	}
	return s.client.Set(ctx, s.prefix+key, data, s.ttl).Err()
}
