package sitehints

import (
	"strings"

	"github.com/AcceptableTrouble/button-buddy/internal/helpers"
)

const (
	genericWeight = 1.0
	mappedWeight  = 3.0
	tokenWeight   = 2.0
	depthPenalty  = 0.5
	slugBonus     = 5.0

	minTokenLen = 3
)

var genericKeywords = []string{
	"settings", "account", "billing", "security", "profile", "subscription",
	"password", "privacy", "preferences", "payment", "invoices", "orders",
	"notifications", "plan", "support",
}

// goalKeywords maps a fragment of a goal token to path keywords that
// usually host that task.
var goalKeywords = []struct {
	match    []string
	keywords []string
}{
	{[]string{"password", "security", "2fa", "login"}, []string{"security", "password", "account", "settings"}},
	{[]string{"email", "mail"}, []string{"email", "account", "profile", "settings"}},
	{[]string{"subscri", "cancel", "plan", "upgrade", "downgrade"}, []string{"subscription", "billing", "plan", "account"}},
	{[]string{"bill", "invoice", "payment", "card", "receipt", "refund"}, []string{"billing", "invoices", "payment"}},
	{[]string{"order", "purchase", "return"}, []string{"orders", "account"}},
	{[]string{"privacy", "data", "cookie"}, []string{"privacy", "settings"}},
	{[]string{"notif", "alert", "unsubscribe", "newsletter"}, []string{"notifications", "preferences", "settings"}},
	{[]string{"profile", "name", "avatar", "photo"}, []string{"profile", "account"}},
	{[]string{"address", "shipping", "delivery"}, []string{"addresses", "shipping", "account"}},
	{[]string{"help", "support", "contact"}, []string{"support", "help", "contact"}},
}

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "you": {}, "your": {}, "with": {}, "how": {},
	"can": {}, "want": {}, "need": {}, "find": {}, "where": {}, "what": {},
	"change": {}, "update": {}, "edit": {}, "manage": {}, "see": {}, "view": {},
	"show": {}, "open": {}, "get": {}, "make": {}, "this": {}, "that": {},
	"from": {}, "into": {}, "page": {}, "please": {},
}

// goalTerms is the goal reduced to what path scoring needs.
type goalTerms struct {
	tokens   []string
	keywords []string
	slug     string
}

func newGoalTerms(goal string) goalTerms {
	var g goalTerms
	kw := map[string]struct{}{}
	for _, tok := range helpers.Tokens(goal) {
		for _, m := range goalKeywords {
			if containsAny(tok, m.match) {
				for _, k := range m.keywords {
					kw[k] = struct{}{}
				}
			}
		}
		if len(tok) < minTokenLen {
			continue
		}
		if _, stop := stopwords[tok]; stop {
			continue
		}
		g.tokens = append(g.tokens, tok)
	}
	for _, m := range goalKeywords {
		for _, k := range m.keywords {
			if _, ok := kw[k]; ok {
				g.keywords = append(g.keywords, k)
				delete(kw, k)
			}
		}
	}
	g.slug = "/" + strings.Join(g.tokens, "-")
	return g
}

// scorePath rates a normalized stem for the goal.
func scorePath(stem string, g goalTerms) float64 {
	var score float64
	for _, k := range genericKeywords {
		if strings.Contains(stem, k) {
			score += genericWeight
		}
	}
	for _, k := range g.keywords {
		if strings.Contains(stem, k) {
			score += mappedWeight
		}
	}
	for _, tok := range g.tokens {
		if strings.Contains(stem, tok) {
			score += tokenWeight
		}
	}
	score -= depthPenalty * float64(len(helpers.PathSegments(stem)))
	if len(g.tokens) > 0 && stem == g.slug {
		score += slugBonus
	}
	return score
}

// labelFor titles the last path segment: "/account/payment-methods" -> "Payment Methods".
func labelFor(stem string) string {
	segs := helpers.PathSegments(stem)
	if len(segs) == 0 {
		return ""
	}
	return helpers.TitleWords(segs[len(segs)-1])
}

func containsAny(s string, subs []string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
