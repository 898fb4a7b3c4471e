package reconcile

import (
	"context"
	"encoding/json"
	"io"
	"log"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcceptableTrouble/button-buddy/internal/scorer"
	"github.com/AcceptableTrouble/button-buddy/models"
)

func newEngine() *Engine { return New(Config{}, log.New(io.Discard, "", 0)) }

func passwordScored() []models.ScoredCandidate {
	return scorer.Score("change my password", []models.Candidate{
		{ID: "a", Text: "Menu"},
		{ID: "b", Text: "Settings"},
		{ID: "c", Text: "Billing"},
	}).Ranked
}

func sug(target string, conf float64, prov models.Provenance) *models.Suggestion {
	s := models.Suggestion{Confidence: conf, Provenance: prov, Label: "x"}
	if target != "" {
		s.Target = models.StringPtr(target)
	}
	return &s
}

func TestResolveAccepted(t *testing.T) {
	res := newEngine().Resolve(context.Background(), "g", passwordScored(), sug("b", 0.9, models.ProvenanceLLM), NewLiveSet("a", "b", "c"))

	assert.Equal(t, Accepted, res.Outcome)
	assert.Equal(t, StatusAccepted, res.Status)
	require.NotNil(t, res.Primary)
	assert.Equal(t, "b", res.Primary.TargetID())
	assert.Equal(t, 0.9, res.Primary.Confidence)
	assert.False(t, res.UsedAlternate)
}

func TestResolveThresholdIsExclusive(t *testing.T) {
	res := newEngine().Resolve(context.Background(), "g", passwordScored(), sug("b", 0.55, models.ProvenanceLLM), nil)
	assert.NotEqual(t, Accepted, res.Outcome)
}

func TestResolveOutOfSetTargetUsesAlternate(t *testing.T) {
	// the ranker nulls unknown ids before reconciliation
	oracle := sug("", 0.1, models.ProvenanceLLM)
	res := newEngine().Resolve(context.Background(), "change my password", passwordScored(), oracle, nil)

	assert.Equal(t, UsedAlternate, res.Outcome)
	assert.Equal(t, StatusUnavailable, res.Status)
	require.NotNil(t, res.Primary)
	assert.Equal(t, "b", res.Primary.TargetID())
	assert.Equal(t, models.ProvenanceAlternate, res.Primary.Provenance)
	assert.InDelta(t, 2.0/7.0, res.Primary.Confidence, 1e-9)
	assert.True(t, res.UsedAlternate)
}

func TestResolveUnknownIDNeverBecomesPrimary(t *testing.T) {
	res := newEngine().Resolve(context.Background(), "g", passwordScored(), sug("z", 0.99, models.ProvenanceLLM), nil)
	require.NotNil(t, res.Primary)
	assert.NotEqual(t, "z", res.Primary.TargetID())
	assert.Equal(t, StatusUnavailable, res.Status)
}

func TestResolveStaleOracleTarget(t *testing.T) {
	res := newEngine().Resolve(context.Background(), "g", passwordScored(), sug("b", 0.95, models.ProvenanceLLM), NewLiveSet("a", "c"))
	assert.Equal(t, UnavailableOriginal, res.Outcome, "b is gone and nothing else scores above zero")
	assert.Equal(t, StatusUnavailable, res.Status)
	require.NotNil(t, res.Primary)
	assert.Nil(t, res.Primary.Target)
	assert.LessOrEqual(t, res.Primary.Confidence, DefaultDegradedCap)
}

func TestResolveTimeoutFallbackDegrades(t *testing.T) {
	res := newEngine().Resolve(context.Background(), "change my password", passwordScored(), sug("b", 0.2, models.ProvenanceTimeoutFallback), nil)

	assert.Equal(t, DegradedOriginal, res.Outcome)
	assert.Equal(t, StatusDegraded, res.Status)
	require.NotNil(t, res.Primary)
	assert.Equal(t, "b", res.Primary.TargetID())
	assert.Equal(t, models.ProvenanceTimeoutFallback, res.Primary.Provenance)
	assert.Equal(t, 0.2, res.Primary.Confidence)
}

func TestResolveDegradedCapsConfidence(t *testing.T) {
	scored := []models.ScoredCandidate{{Candidate: models.Candidate{ID: "only"}, Score: 0}}
	res := newEngine().Resolve(context.Background(), "g", scored, sug("only", 0.5, models.ProvenanceLLM), nil)
	assert.Equal(t, DegradedOriginal, res.Outcome)
	assert.Equal(t, DefaultDegradedCap, res.Primary.Confidence)
}

func TestResolveWithoutOracle(t *testing.T) {
	res := newEngine().Resolve(context.Background(), "change my password", passwordScored(), nil, nil)
	assert.Equal(t, UsedAlternate, res.Outcome)
	assert.Equal(t, StatusAlternate, res.Status)
	assert.Equal(t, "b", res.Primary.TargetID())
	assert.Equal(t, models.ProvenanceAlternate, res.Primary.Provenance)
}

func TestResolveNoMatch(t *testing.T) {
	scored := []models.ScoredCandidate{{Candidate: models.Candidate{ID: "a"}, Score: 0}}
	res := newEngine().Resolve(context.Background(), "g", scored, nil, nil)
	assert.Equal(t, NoMatch, res.Outcome)
	assert.Equal(t, StatusNoMatch, res.Status)
	assert.Nil(t, res.Primary)
}

func TestAlternatesOrderingAndLimits(t *testing.T) {
	scored := []models.ScoredCandidate{
		{Candidate: models.Candidate{ID: "dis", Text: "Disabled thing", Disabled: true}, Score: 9},
		{Candidate: models.Candidate{ID: "short", Text: "Go"}, Score: 4},
		{Candidate: models.Candidate{ID: "long", Text: "Go to settings"}, Score: 4},
		{Candidate: models.Candidate{ID: "gone", Text: "Gone"}, Score: 3},
		{Candidate: models.Candidate{ID: "x", Text: "X"}, Score: 2},
		{Candidate: models.Candidate{ID: "y", Text: "Y"}, Score: 1},
		{Candidate: models.Candidate{ID: "zero", Text: "Zero"}, Score: 0},
	}
	live := NewLiveSet("dis", "short", "long", "x", "y", "zero")
	res := newEngine().Resolve(context.Background(), "g", scored, nil, live)

	require.Equal(t, UsedAlternate, res.Outcome)
	got := []string{res.Primary.TargetID()}
	for _, a := range res.Alternates {
		got = append(got, a.TargetID())
	}
	assert.Equal(t, []string{"long", "short", "x"}, got)
	for _, a := range res.Alternates {
		assert.LessOrEqual(t, a.Confidence, DefaultThreshold)
	}
}

func TestAlternatesAllowDisabledWhenNothingElse(t *testing.T) {
	scored := []models.ScoredCandidate{{Candidate: models.Candidate{ID: "dis", Disabled: true}, Score: 1}}
	res := newEngine().Resolve(context.Background(), "g", scored, nil, nil)
	assert.Equal(t, UsedAlternate, res.Outcome)
	assert.Equal(t, "dis", res.Primary.TargetID())
}

type ctxPage struct{ sawCancelled bool }

func (p *ctxPage) Resolves(ctx context.Context, _ string) bool {
	if ctx.Err() != nil {
		p.sawCancelled = true
	}
	return true
}

func TestLiveChecksSurviveCallerCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	page := &ctxPage{}
	res := newEngine().Resolve(ctx, "g", passwordScored(), sug("b", 0.9, models.ProvenanceLLM), page)
	assert.Equal(t, Accepted, res.Outcome)
	assert.False(t, page.sawCancelled)
}

func TestPrimaryIsACopy(t *testing.T) {
	oracle := sug("b", 0.9, models.ProvenanceLLM)
	res := newEngine().Resolve(context.Background(), "g", passwordScored(), oracle, nil)
	*res.Primary.Target = "mutated"
	assert.Equal(t, "b", *oracle.Target)
}

func TestOutcomeJSON(t *testing.T) {
	b, err := json.Marshal(Result{Outcome: UsedAlternate, Status: StatusAlternate})
	require.NoError(t, err)
	assert.Contains(t, string(b), `"outcome":"used_alternate"`)
	assert.Contains(t, string(b), `"status":"alternate"`)
}

func TestOutcomeText(t *testing.T) {
	b, err := UsedAlternate.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "used_alternate", string(b))

	var o Outcome
	require.NoError(t, o.UnmarshalText([]byte("degraded_original")))
	assert.Equal(t, DegradedOriginal, o)
	assert.Error(t, o.UnmarshalText([]byte("maybe")))
}
