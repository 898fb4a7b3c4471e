// Package session stores guidance sessions so a goal's recent steps follow
// the user from page to page.
package session

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AcceptableTrouble/button-buddy/models"
	"github.com/AcceptableTrouble/button-buddy/session/inmemory"
	redis_session "github.com/AcceptableTrouble/button-buddy/session/redis"
)

// Store persists guidance sessions. Unknown or expired ids yield
// models.ErrSessionNotFound.
type Store interface {
	Create(ctx context.Context, goal string) (models.GuidanceSession, error)
	Get(ctx context.Context, id string) (models.GuidanceSession, error)
	Append(ctx context.Context, id string, step models.Step) (models.GuidanceSession, error)
}

type StoreType string

const (
	InMemoryStore StoreType = "memory"
	RedisStore    StoreType = "redis"
)

// NewStore builds the configured backend. client is required for RedisStore.
func NewStore(storeType StoreType, ttl time.Duration, client redis.UniversalClient) (Store, error) {
	switch storeType {
	case InMemoryStore:
		return inmemory.New(ttl), nil
	case RedisStore:
		if client == nil {
			return nil, fmt.Errorf("session store %q needs a redis client", storeType)
		}
		return redis_session.New(client, ttl), nil
	default:
		return nil, fmt.Errorf("unsupported session store type: %s", storeType)
	}
}
