package redis_session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/AcceptableTrouble/button-buddy/models"
)

const (
	keyPrefix     = "buddy:session:"
	appendRetries = 3
)

// Store keeps sessions as JSON values with a sliding TTL.
type Store struct {
	client redis.UniversalClient
	ttl    time.Duration
}

func New(client redis.UniversalClient, ttl time.Duration) *Store {
	return &Store{client: client, ttl: ttl}
}

func key(id string) string { return keyPrefix + id }

func (store *Store) Create(ctx context.Context, goal string) (models.GuidanceSession, error) {
	now := time.Now().UTC()
	sess := models.GuidanceSession{
		ID:        uuid.NewString(),
		Goal:      strings.TrimSpace(goal),
		CreatedAt: now,
		UpdatedAt: now,
	}
	data, err := json.Marshal(sess)
	if err != nil {
		return models.GuidanceSession{}, err
	}
	if err := store.client.Set(ctx, key(sess.ID), data, store.ttl).Err(); err != nil {
		return models.GuidanceSession{}, fmt.Errorf("create session: %w", err)
	}
	return sess, nil
}

func (store *Store) Get(ctx context.Context, id string) (models.GuidanceSession, error) {
	raw, err := store.client.Get(ctx, key(id)).Bytes()
	return decode(raw, err)
}

// Append adds step under optimistic locking so concurrent appends to one
// session are never lost.
func (store *Store) Append(ctx context.Context, id string, step models.Step) (models.GuidanceSession, error) {
	var out models.GuidanceSession
	txf := func(tx *redis.Tx) error {
		sess, err := decode(tx.Get(ctx, key(id)).Bytes())
		if err != nil {
			return err
		}
		now := time.Now().UTC()
		if step.At.IsZero() {
			step.At = now
		}
		sess = sess.WithStep(step, now)
		data, err := json.Marshal(sess)
		if err != nil {
			return err
		}
		_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			pipe.Set(ctx, key(id), data, store.ttl)
			return nil
		})
		if err == nil {
			out = sess
		}
		return err
	}

	for i := 0; i < appendRetries; i++ {
		err := store.client.Watch(ctx, txf, key(id))
		if errors.Is(err, redis.TxFailedErr) {
			continue
		}
		if err != nil {
			return models.GuidanceSession{}, err
		}
		return out, nil
	}
	return models.GuidanceSession{}, fmt.Errorf("append to session %s: too much contention", id)
}

func decode(raw []byte, err error) (models.GuidanceSession, error) {
	if errors.Is(err, redis.Nil) {
		return models.GuidanceSession{}, models.ErrSessionNotFound
	}
	if err != nil {
		return models.GuidanceSession{}, fmt.Errorf("load session: %w", err)
	}
	var sess models.GuidanceSession
	if err := json.Unmarshal(raw, &sess); err != nil {
		return models.GuidanceSession{}, fmt.Errorf("decode session: %w", err)
	}
	return sess, nil
}
