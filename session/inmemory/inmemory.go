package inmemory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/AcceptableTrouble/button-buddy/models"
)

type entry struct {
	sess    models.GuidanceSession
	expires time.Time
}

// Store keeps sessions in process memory with a sliding TTL.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*entry
	ttl      time.Duration
	now      func() time.Time
}

func New(ttl time.Duration) *Store {
	return &Store{sessions: make(map[string]*entry), ttl: ttl, now: time.Now}
}

// WithClock replaces time.Now; intended for tests.
func (store *Store) WithClock(now func() time.Time) *Store {
	store.now = now
	return store
}

func (store *Store) Create(_ context.Context, goal string) (models.GuidanceSession, error) {
	now := store.now()
	sess := models.GuidanceSession{
		ID:        uuid.NewString(),
		Goal:      strings.TrimSpace(goal),
		CreatedAt: now,
		UpdatedAt: now,
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	store.purgeLocked(now)
	store.sessions[sess.ID] = &entry{sess: sess, expires: now.Add(store.ttl)}
	return sess, nil
}

func (store *Store) Get(_ context.Context, id string) (models.GuidanceSession, error) {
	store.mu.RLock()
	defer store.mu.RUnlock()
	e, ok := store.sessions[id]
	if !ok || !store.now().Before(e.expires) {
		return models.GuidanceSession{}, models.ErrSessionNotFound
	}
	return e.sess.Clone(), nil
}

func (store *Store) Append(_ context.Context, id string, step models.Step) (models.GuidanceSession, error) {
	now := store.now()
	store.mu.Lock()
	defer store.mu.Unlock()
	e, ok := store.sessions[id]
	if !ok || !now.Before(e.expires) {
		delete(store.sessions, id)
		return models.GuidanceSession{}, models.ErrSessionNotFound
	}
	if step.At.IsZero() {
		step.At = now
	}
	e.sess = e.sess.WithStep(step, now)
	e.expires = now.Add(store.ttl)
	return e.sess.Clone(), nil
}

// Len counts stored sessions, expired ones included until the next purge.
func (store *Store) Len() int {
	store.mu.RLock()
	defer store.mu.RUnlock()
	return len(store.sessions)
}

func (store *Store) purgeLocked(now time.Time) {
	for id, e := range store.sessions {
		if !now.Before(e.expires) {
			delete(store.sessions, id)
		}
	}
}
