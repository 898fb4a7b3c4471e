// Package ranker asks a remote language model to pick the target element and
// guards that call with a timeout, deterministic fallbacks and strict output
// validation.
package ranker

import (
	"context"

	"github.com/AcceptableTrouble/button-buddy/models"
)

// Oracle is the remote ranking model. Complete returns the raw model reply for
// prompt with payload attached as JSON context.
type Oracle interface {
	Complete(ctx context.Context, prompt string, payload any) (string, error)
}

// OracleFunc adapts a function to Oracle.
type OracleFunc func(ctx context.Context, prompt string, payload any) (string, error)

func (f OracleFunc) Complete(ctx context.Context, prompt string, payload any) (string, error) {
	return f(ctx, prompt, payload)
}

// Prompt is the instruction sent with every ranking request.
const Prompt = `You help a user reach their goal on a web page.
Pick the single element from "candidates" the user should interact with next.
Reply with JSON only: {"target": "<candidate id or null>", "label": "<short label>",
"confidence": <0..1>, "explanation": "<one sentence>", "alternates": ["<id>", ...]}.
Only use ids that appear in "candidates". Use "siteHints" paths as context for
where the goal usually lives on this site.`

// Request is the JSON payload handed to the oracle.
type Request struct {
	Goal       string            `json:"goal"`
	History    []models.Step     `json:"history,omitempty"`
	Candidates []CandidateView   `json:"candidates"`
	SiteHints  []models.SiteHint `json:"siteHints,omitempty"`
}

// CandidateView is the trimmed candidate shape the oracle sees.
type CandidateView struct {
	ID           string   `json:"id"`
	Tag          string   `json:"tag,omitempty"`
	Role         string   `json:"role,omitempty"`
	Type         string   `json:"type,omitempty"`
	Name         string   `json:"name,omitempty"`
	Text         string   `json:"text,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	AncestorText string   `json:"context,omitempty"`
	Disabled     bool     `json:"disabled,omitempty"`
	LocalScore   float64  `json:"localScore"`
}

func buildRequest(goal models.Goal, scored []models.ScoredCandidate, hints []models.SiteHint) Request {
	views := make([]CandidateView, len(scored))
	for i, s := range scored {
		views[i] = CandidateView{
			ID:           s.ID,
			Tag:          s.Tag,
			Role:         s.Role,
			Type:         s.Type,
			Name:         firstNonEmpty(s.AccessibleName, s.AriaLabel),
			Text:         models.Truncate(s.Text, 200),
			Labels:       s.Labels,
			AncestorText: models.Truncate(s.AncestorText, 200),
			Disabled:     s.Disabled,
			LocalScore:   s.Score,
		}
	}
	return Request{
		Goal:       goal.Text,
		History:    models.TrimHistory(goal.History),
		Candidates: views,
		SiteHints:  hints,
	}
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
