package scorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AcceptableTrouble/button-buddy/models"
)

func ids(ranked []models.ScoredCandidate) []string {
	out := make([]string, len(ranked))
	for i, r := range ranked {
		out[i] = r.ID
	}
	return out
}

func scores(ranked []models.ScoredCandidate) map[string]float64 {
	out := make(map[string]float64, len(ranked))
	for _, r := range ranked {
		out[r.ID] = r.Score
	}
	return out
}

func TestScorePasswordGoalPrefersSettings(t *testing.T) {
	res := Score("change my password", []models.Candidate{
		{ID: "a", Text: "Menu"},
		{ID: "b", Text: "Settings"},
		{ID: "c", Text: "Billing"},
	})

	assert.Equal(t, map[string]float64{"a": 0, "b": 2, "c": 0}, scores(res.Ranked))
	assert.Equal(t, []string{"b", "a", "c"}, ids(res.Ranked))
	require.NotNil(t, res.Best)
	assert.Equal(t, "b", res.Best.ID)
	assert.Equal(t, 2.0, res.BestScore)
	assert.Equal(t, 1, res.Best.Index)
}

func TestScoreTiesKeepOriginalOrder(t *testing.T) {
	res := Score("zzz", []models.Candidate{{ID: "1"}, {ID: "2"}, {ID: "3"}, {ID: "4"}})
	assert.Equal(t, []string{"1", "2", "3", "4"}, ids(res.Ranked))
}

func TestScoreRules(t *testing.T) {
	cases := []struct {
		name string
		goal string
		cand models.Candidate
		want float64
	}{
		{"whole goal and tokens", "sign in", models.Candidate{Text: "Sign in"}, 7},
		{"ancestor only", "billing", models.Candidate{Text: "View", AncestorText: "Billing overview"}, 1},
		{"labels count as primary", "billing", models.Candidate{Labels: []string{"Billing"}}, 2},
		{"clickable and sized", "zzz", models.Candidate{Clickable: true, Rect: models.Rect{W: 10, H: 20}}, 1.5},
		{"oversized box", "zzz", models.Candidate{Rect: models.Rect{W: 1000, H: 1000}}, 0},
		{"disabled", "zzz", models.Candidate{Disabled: true}, -3},
		{"diacritics folded", "paramètres", models.Candidate{Text: "PARAMETRES"}, 5},
		{"email prior on text input", "update email", models.Candidate{Tag: "input", Type: "email", Labels: []string{"Email"}}, 3.5},
		{"email prior needs text-like control", "update email", models.Candidate{Tag: "input", Type: "checkbox", Labels: []string{"Email"}}, 2},
		{"email prior on untyped textarea", "your name", models.Candidate{Tag: "textarea", AriaLabel: "Name"}, 3.5},
		{"email prior needs a hit", "update email", models.Candidate{Tag: "input", Type: "text", Text: "Search"}, 0},
		{"password control corroborates", "new password", models.Candidate{Tag: "input", Type: "password"}, 2},
		{"security hint in ancestor", "security", models.Candidate{Text: "Open", AncestorText: "Privacy center"}, 2},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			tc.cand.ID = "x"
			res := Score(tc.goal, []models.Candidate{tc.cand})
			require.Len(t, res.Ranked, 1)
			assert.InDelta(t, tc.want, res.Ranked[0].Score, 1e-9)
		})
	}
}

func TestScoreDuplicateGoalTokensCountOnce(t *testing.T) {
	res := Score("billing billing", []models.Candidate{{ID: "a", Labels: []string{"Billing"}}})
	assert.Equal(t, 2.0, res.Ranked[0].Score)
}

func TestBestSkipsDisabledWhenEnabledPositiveExists(t *testing.T) {
	res := Score("delete account", []models.Candidate{
		{ID: "enabled", Text: "Account"},
		{ID: "disabled", Text: "Delete account", Disabled: true},
	})
	assert.Equal(t, []string{"disabled", "enabled"}, ids(res.Ranked))
	require.NotNil(t, res.Best)
	assert.Equal(t, "enabled", res.Best.ID)
}

func TestBestFallsBackToTopWhenNothingPositive(t *testing.T) {
	res := Score("zzz", []models.Candidate{{ID: "a", Disabled: true}, {ID: "b", Disabled: true}})
	require.NotNil(t, res.Best)
	assert.Equal(t, "a", res.Best.ID)
	assert.Equal(t, -3.0, res.BestScore)
}

func TestScoreEmpty(t *testing.T) {
	res := Score("anything", nil)
	assert.Empty(t, res.Ranked)
	assert.Nil(t, res.Best)
}

func TestTruncate(t *testing.T) {
	cands := make([]models.Candidate, 60)
	for i := range cands {
		cands[i] = models.Candidate{ID: string(rune('A' + i%26))}
	}
	cands[55].Text = "Settings"
	res := Truncate(Score("settings", cands), 50)
	require.Len(t, res.Ranked, 50)
	assert.Equal(t, 55, res.Ranked[0].Index)
	require.NotNil(t, res.Best)
	assert.Equal(t, 55, res.Best.Index)

	same := Truncate(res, 100)
	assert.Len(t, same.Ranked, 50)
}
