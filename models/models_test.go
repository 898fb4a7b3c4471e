package models

import (
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClampConfidence(t *testing.T) {
	cases := map[string]struct {
		in, want float64
	}{
		"negative": {-0.4, 0},
		"above":    {7, 1},
		"inside":   {0.42, 0.42},
		"nan":      {math.NaN(), 0},
		"inf":      {math.Inf(1), 1},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, tc.want, ClampConfidence(tc.in))
		})
	}
}

func TestSuggestionNormalize(t *testing.T) {
	s := Suggestion{
		Confidence:  1.7,
		Label:       "  Settings  ",
		Explanation: strings.Repeat("é", 300),
		Alternates:  []string{"a", "b", "c", "d"},
	}.Normalize()

	assert.Equal(t, 1.0, s.Confidence)
	assert.Equal(t, "Settings", s.Label)
	assert.Equal(t, MaxExplanationLen, len([]rune(s.Explanation)))
	assert.Equal(t, []string{"a", "b", "c"}, s.Alternates)
}

func TestSuggestionCloneIsDeep(t *testing.T) {
	orig := Suggestion{Target: StringPtr("a"), Alternates: []string{"b"}}
	cp := orig.Clone()
	*cp.Target = "z"
	cp.Alternates[0] = "y"

	require.NotNil(t, orig.Target)
	assert.Equal(t, "a", *orig.Target)
	assert.Equal(t, "b", orig.Alternates[0])
}

func TestTrimHistoryKeepsMostRecent(t *testing.T) {
	steps := []Step{{TargetID: "1"}, {TargetID: "2"}, {TargetID: "3"}, {TargetID: "4"}}
	got := TrimHistory(steps)
	require.Len(t, got, MaxHistory)
	assert.Equal(t, "2", got[0].TargetID)
	assert.Equal(t, "4", got[2].TargetID)
}

func TestCandidateDisplayText(t *testing.T) {
	assert.Equal(t, "Account", Candidate{AccessibleName: " Account ", Text: "acct"}.DisplayText())
	assert.Equal(t, "Email", Candidate{Labels: []string{"", "Email"}}.DisplayText())
	assert.Equal(t, "button", Candidate{Tag: "button"}.DisplayText())
}
