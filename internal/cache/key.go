package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/cespare/xxhash/v2"

	"github.com/AcceptableTrouble/button-buddy/internal/helpers"
	"github.com/AcceptableTrouble/button-buddy/models"
)

// SignatureCandidates bounds how many candidates feed the page signature.
const SignatureCandidates = 50

// PageSignature hashes the sorted, de-duplicated token set taken from the
// candidates' accessible name, text, labels, role and tag. Candidate order
// does not matter and no page text is retained.
func PageSignature(candidates []models.Candidate) string {
	if len(candidates) > SignatureCandidates {
		candidates = candidates[:SignatureCandidates]
	}
	set := make(map[string]struct{})
	add := func(s string) {
		for _, tok := range helpers.Tokens(s) {
			set[tok] = struct{}{}
		}
	}
	for _, c := range candidates {
		add(c.AccessibleName)
		add(c.Text)
		for _, l := range c.Labels {
			add(l)
		}
		add(c.Role)
		add(c.Tag)
	}
	toks := make([]string, 0, len(set))
	for t := range set {
		toks = append(toks, t)
	}
	sort.Strings(toks)
	return fmt.Sprintf("%016x", xxhash.Sum64String(strings.Join(toks, "\x00")))
}

// RankingKey addresses a ranking verdict: normalized goal plus page signature.
func RankingKey(goal string, candidates []models.Candidate) string {
	return helpers.NormalizeText(goal) + "|" + PageSignature(candidates)
}

// SiteHintKey addresses a site-hint response for a canonical origin.
func SiteHintKey(origin, goal string) string {
	return origin + "|" + helpers.NormalizeText(goal)
}
