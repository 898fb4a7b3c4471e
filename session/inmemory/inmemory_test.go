package inmemory

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcceptableTrouble/button-buddy/models"
)

func TestCreateGetAppend(t *testing.T) {
	ctx := context.Background()
	store := New(time.Minute)

	sess, err := store.Create(ctx, "  cancel my subscription ")
	require.NoError(t, err)
	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "cancel my subscription", sess.Goal)

	for i, id := range []string{"a", "b", "c", "d"} {
		got, err := store.Append(ctx, sess.ID, models.Step{TargetID: id, Provenance: models.ProvenanceLLM})
		require.NoError(t, err)
		assert.Equal(t, i+1, got.Uses)
		assert.False(t, got.Steps[len(got.Steps)-1].At.IsZero())
	}

	got, err := store.Get(ctx, sess.ID)
	require.NoError(t, err)
	assert.Len(t, got.Steps, 4)
	hist := got.History()
	require.Len(t, hist, models.MaxHistory)
	assert.Equal(t, "b", hist[0].TargetID)

	got.Steps[0].TargetID = "mutated"
	again, _ := store.Get(ctx, sess.ID)
	assert.Equal(t, "a", again.Steps[0].TargetID)
}

func TestUnknownSession(t *testing.T) {
	store := New(time.Minute)
	_, err := store.Get(context.Background(), "missing")
	assert.True(t, errors.Is(err, models.ErrSessionNotFound))
	_, err = store.Append(context.Background(), "missing", models.Step{})
	assert.True(t, errors.Is(err, models.ErrSessionNotFound))
}

func TestSlidingExpiry(t *testing.T) {
	now := time.Unix(1_700_000_000, 0)
	var mu sync.Mutex
	clock := func() time.Time { mu.Lock(); defer mu.Unlock(); return now }
	advance := func(d time.Duration) { mu.Lock(); now = now.Add(d); mu.Unlock() }

	ctx := context.Background()
	store := New(10 * time.Second).WithClock(clock)
	sess, _ := store.Create(ctx, "goal")

	advance(8 * time.Second)
	_, err := store.Append(ctx, sess.ID, models.Step{TargetID: "x"})
	require.NoError(t, err)

	advance(8 * time.Second)
	_, err = store.Get(ctx, sess.ID)
	require.NoError(t, err, "append refreshed the ttl")

	advance(3 * time.Second)
	_, err = store.Get(ctx, sess.ID)
	assert.True(t, errors.Is(err, models.ErrSessionNotFound))

	_, _ = store.Create(ctx, "other")
	assert.Equal(t, 1, store.Len(), "expired sessions are purged on create")
}

func TestStepsAreBounded(t *testing.T) {
	ctx := context.Background()
	store := New(time.Minute)
	sess, _ := store.Create(ctx, "goal")
	var last models.GuidanceSession
	for i := 0; i < models.MaxStoredSteps+5; i++ {
		last, _ = store.Append(ctx, sess.ID, models.Step{TargetID: "x"})
	}
	assert.Len(t, last.Steps, models.MaxStoredSteps)
	assert.Equal(t, models.MaxStoredSteps+5, last.Uses)
}
