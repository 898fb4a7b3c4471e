// Package scorer ranks page candidates against a goal with deterministic
// keyword rules. It never touches the network and its output is stable for a
// given input.
package scorer

import (
	"sort"
	"strings"

	"github.com/AcceptableTrouble/button-buddy/internal/helpers"
	"github.com/AcceptableTrouble/button-buddy/models"
)

const (
	wholeGoalBonus   = 3.0
	primaryTokenHit  = 2.0
	ancestorTokenHit = 1.0
	securityPrior    = 2.0
	identityPrior    = 1.5
	clickableBonus   = 1.0
	disabledPenalty  = -3.0
	sizeBonus        = 0.5

	minUsefulArea = 100.0
	maxUsefulArea = 200000.0
)

var (
	securityGoalMarkers    = []string{"password", "security"}
	securityCandidateHints = []string{"password", "security", "settings", "account", "privacy"}
	identityGoalMarkers    = []string{"email", "name"}
	textLikeTypes          = map[string]struct{}{"text": {}, "email": {}, "search": {}, "tel": {}, "url": {}}
)

// Result is the ranked candidate list plus the preferred pick.
type Result struct {
	Ranked    []models.ScoredCandidate
	Best      *models.ScoredCandidate
	BestScore float64
}

// Score ranks candidates for goal. Ties keep their original order.
func Score(goal string, candidates []models.Candidate) Result {
	normGoal := helpers.NormalizeText(goal)
	tokens := goalTokens(normGoal)

	ranked := make([]models.ScoredCandidate, len(candidates))
	for i, c := range candidates {
		ranked[i] = models.ScoredCandidate{
			Candidate: c,
			Score:     scoreCandidate(normGoal, tokens, c),
			Index:     i,
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].Score > ranked[j].Score })

	res := Result{Ranked: ranked}
	res.Best = pickBest(ranked)
	if res.Best != nil {
		res.BestScore = res.Best.Score
	}
	return res
}

// Truncate keeps the first n ranked candidates. Best is preserved when it
// survives the cut, otherwise the new top entry takes its place.
func Truncate(res Result, n int) Result {
	if n < 0 || len(res.Ranked) <= n {
		return res
	}
	out := Result{Ranked: res.Ranked[:n:n]}
	out.Best = pickBest(out.Ranked)
	if out.Best != nil {
		out.BestScore = out.Best.Score
	}
	return out
}

func pickBest(ranked []models.ScoredCandidate) *models.ScoredCandidate {
	if len(ranked) == 0 {
		return nil
	}
	for i := range ranked {
		if !ranked[i].Disabled && ranked[i].Score > 0 {
			return &ranked[i]
		}
	}
	return &ranked[0]
}

func goalTokens(normGoal string) []string {
	fields := strings.Fields(normGoal)
	seen := make(map[string]struct{}, len(fields))
	out := fields[:0]
	for _, f := range fields {
		if _, ok := seen[f]; ok {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func scoreCandidate(normGoal string, tokens []string, c models.Candidate) float64 {
	name := helpers.NormalizeText(c.AccessibleName)
	text := helpers.NormalizeText(c.Text)
	primary := helpers.NormalizeText(strings.Join(append([]string{c.AccessibleName, c.Text, c.AriaLabel}, c.Labels...), " "))
	ancestor := helpers.NormalizeText(c.AncestorText)
	ctype := strings.ToLower(strings.TrimSpace(c.Type))

	var score float64
	if normGoal != "" && (strings.Contains(name, normGoal) || strings.Contains(text, normGoal)) {
		score += wholeGoalBonus
	}

	hits := 0
	for _, tok := range tokens {
		switch {
		case strings.Contains(primary, tok):
			score += primaryTokenHit
			hits++
		case strings.Contains(ancestor, tok):
			score += ancestorTokenHit
			hits++
		}
	}

	if anyTokenContains(tokens, securityGoalMarkers) && corroboratesSecurity(ctype, primary, ancestor) {
		score += securityPrior
	}
	if hits > 0 && anyTokenContains(tokens, identityGoalMarkers) && isTextLike(c.Tag, ctype) {
		score += identityPrior
	}

	if c.Clickable {
		score += clickableBonus
	}
	if c.Disabled {
		score += disabledPenalty
	}
	if area := c.Rect.Area(); area >= minUsefulArea && area <= maxUsefulArea {
		score += sizeBonus
	}
	return score
}

func anyTokenContains(tokens, markers []string) bool {
	for _, tok := range tokens {
		for _, m := range markers {
			if strings.Contains(tok, m) {
				return true
			}
		}
	}
	return false
}

func corroboratesSecurity(ctype, primary, ancestor string) bool {
	if ctype == "password" {
		return true
	}
	for _, h := range securityCandidateHints {
		if strings.Contains(primary, h) || strings.Contains(ancestor, h) || strings.Contains(ctype, h) {
			return true
		}
	}
	return false
}

func isTextLike(tag, ctype string) bool {
	if _, ok := textLikeTypes[ctype]; ok {
		return true
	}
	if ctype != "" {
		return false
	}
	tag = strings.ToLower(strings.TrimSpace(tag))
	return tag == "input" || tag == "textarea"
}
