package ranker

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcceptableTrouble/button-buddy/internal/scorer"
	"github.com/AcceptableTrouble/button-buddy/models"
)

var quiet = log.New(io.Discard, "", 0)

func passwordPage() []models.ScoredCandidate {
	return scorer.Score("change my password", []models.Candidate{
		{ID: "a", Text: "Menu"},
		{ID: "b", Text: "Settings"},
		{ID: "c", Text: "Billing"},
	}).Ranked
}

func goal(text string) models.Goal { return models.Goal{Text: text} }

func replying(raw string) Oracle {
	return OracleFunc(func(context.Context, string, any) (string, error) { return raw, nil })
}

func TestRankAcceptsValidatedReply(t *testing.T) {
	c := New(replying(`{"target":"b","label":"<b>Settings</b>","confidence":"85","explanation":"Passwords live under settings.","alternates":["c","z","c"]}`), WithLogger(quiet))
	v := c.Rank(context.Background(), goal("change my password"), passwordPage(), nil)

	require.NotNil(t, v.Suggestion.Target)
	assert.Equal(t, "b", *v.Suggestion.Target)
	assert.Equal(t, "Settings", v.Suggestion.Label)
	assert.InDelta(t, 0.85, v.Suggestion.Confidence, 1e-9)
	assert.Equal(t, models.ProvenanceLLM, v.Suggestion.Provenance)
	assert.Equal(t, []string{"c"}, v.Suggestion.Alternates)
	assert.False(t, v.TimedOut)
}

func TestRankToleratesFencesAndProse(t *testing.T) {
	raw := "Here is my answer:\n```json\n{\"target\": \"c\", \"confidence\": 0.5, \"scale\": 100}\n```"
	c := New(replying(raw), WithLogger(quiet))
	v := c.Rank(context.Background(), goal("billing"), passwordPage(), nil)

	require.NotNil(t, v.Suggestion.Target)
	assert.Equal(t, "c", *v.Suggestion.Target)
	assert.Equal(t, "Billing", v.Suggestion.Label, "label falls back to the candidate text")
	assert.InDelta(t, 0.005, v.Suggestion.Confidence, 1e-9)
}

func TestRankRejectsOutOfSetTarget(t *testing.T) {
	c := New(replying(`{"target":"z","label":"Zed","confidence":0.97,"alternates":["z","a"]}`), WithLogger(quiet))
	v := c.Rank(context.Background(), goal("change my password"), passwordPage(), nil)

	assert.Nil(t, v.Suggestion.Target)
	assert.Equal(t, NoMatchLabel, v.Suggestion.Label)
	assert.LessOrEqual(t, v.Suggestion.Confidence, 0.1)
	assert.Equal(t, []string{"a"}, v.Suggestion.Alternates)
	assert.Contains(t, v.Suggestion.Explanation, `"z"`)
}

func TestRankUnparseableReplyUsesTopLocal(t *testing.T) {
	c := New(replying("I think you should click the settings button."), WithLogger(quiet))
	v := c.Rank(context.Background(), goal("change my password"), passwordPage(), nil)

	require.NotNil(t, v.Suggestion.Target)
	assert.Equal(t, "b", *v.Suggestion.Target)
	assert.Equal(t, 0.1, v.Suggestion.Confidence)
	assert.Equal(t, models.ProvenanceLocal, v.Suggestion.Provenance)
}

func TestRankTimeoutFallsBackWithinBudget(t *testing.T) {
	cancelled := make(chan struct{})
	slow := OracleFunc(func(ctx context.Context, _ string, _ any) (string, error) {
		<-ctx.Done()
		close(cancelled)
		return `{"target":"a","confidence":1}`, nil
	})
	c := New(slow, WithTimeout(50*time.Millisecond), WithLogger(quiet))

	start := time.Now()
	v := c.Rank(context.Background(), goal("change my password"), passwordPage(), nil)
	elapsed := time.Since(start)

	assert.True(t, v.TimedOut)
	assert.Equal(t, models.ProvenanceTimeoutFallback, v.Suggestion.Provenance)
	assert.Equal(t, 0.2, v.Suggestion.Confidence)
	require.NotNil(t, v.Suggestion.Target)
	assert.Equal(t, "b", *v.Suggestion.Target)
	assert.Less(t, elapsed, time.Second)
	assert.GreaterOrEqual(t, v.LatencyMs, int64(50))

	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("oracle context was not cancelled after timeout")
	}
}

func TestRankTransportErrorFallsBack(t *testing.T) {
	failing := OracleFunc(func(context.Context, string, any) (string, error) {
		return "", errors.New("connection refused")
	})
	v := New(failing, WithLogger(quiet)).Rank(context.Background(), goal("x"), passwordPage(), nil)

	assert.False(t, v.TimedOut)
	assert.Equal(t, models.ProvenanceTimeoutFallback, v.Suggestion.Provenance)
	assert.Contains(t, v.Suggestion.Explanation, "unavailable")
}

func TestRankCallerCancellation(t *testing.T) {
	blocking := OracleFunc(func(ctx context.Context, _ string, _ any) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	v := New(blocking, WithLogger(quiet)).Rank(ctx, goal("x"), passwordPage(), nil)
	assert.Equal(t, models.ProvenanceTimeoutFallback, v.Suggestion.Provenance)
}

func TestRankWithoutOracle(t *testing.T) {
	c := New(nil, WithLogger(quiet))
	assert.False(t, c.Available())
	v := c.Rank(context.Background(), goal("x"), passwordPage(), nil)
	assert.Equal(t, models.ProvenanceTimeoutFallback, v.Suggestion.Provenance)
}

func TestRankSendsTrimmedPayload(t *testing.T) {
	var got Request
	capture := OracleFunc(func(_ context.Context, prompt string, payload any) (string, error) {
		assert.Equal(t, Prompt, prompt)
		got = payload.(Request)
		return `{"target":null}`, nil
	})
	g := models.Goal{Text: "billing", History: []models.Step{{TargetID: "1"}, {TargetID: "2"}, {TargetID: "3"}, {TargetID: "4"}}}
	hints := []models.SiteHint{{Path: "/billing", Label: "Billing", Score: 4}}
	New(capture, WithLogger(quiet)).Rank(context.Background(), g, passwordPage(), hints)

	assert.Equal(t, "billing", got.Goal)
	assert.Len(t, got.History, models.MaxHistory)
	assert.Equal(t, hints, got.SiteHints)
	require.Len(t, got.Candidates, 3)
	assert.Equal(t, "b", got.Candidates[0].ID)
	assert.Equal(t, 2.0, got.Candidates[0].LocalScore)
}

func TestFallbackKeywordSelection(t *testing.T) {
	scored := []models.ScoredCandidate{
		{Candidate: models.Candidate{ID: "1", Text: "Home"}},
		{Candidate: models.Candidate{ID: "2", AriaLabel: "Your Account"}},
		{Candidate: models.Candidate{ID: "3", Text: "Email"}},
	}
	s := Fallback(scored, "x")
	require.NotNil(t, s.Target)
	assert.Equal(t, "2", *s.Target)
	assert.Equal(t, "Your Account", s.Label)

	s = Fallback(scored[:1], "x")
	assert.Equal(t, "1", *s.Target)

	s = Fallback(nil, "x")
	assert.Nil(t, s.Target)
	assert.Zero(t, s.Confidence)
}
