package server

import (
	"github.com/AcceptableTrouble/button-buddy/internal/reconcile"
	"github.com/AcceptableTrouble/button-buddy/models"
)

// HTTPError is the JSON body of every error response.
type HTTPError struct {
	Error string `json:"error"`
}

type RankRequest struct {
	Goal       string             `json:"goal"`
	History    []models.Step      `json:"history,omitempty"`
	Candidates []models.Candidate `json:"candidates"`
	SiteHints  []models.SiteHint  `json:"siteHints,omitempty"`
}

type RankResponse struct {
	Target      *string           `json:"target"`
	Label       string            `json:"label"`
	Confidence  float64           `json:"confidence"`
	Explanation string            `json:"explanation"`
	Alternates  []string          `json:"alternates"`
	Provenance  models.Provenance `json:"provenance"`
	LatencyMs   int64             `json:"latencyMs"`
	Cached      bool              `json:"cached"`
	TimedOut    bool              `json:"timedOut,omitempty"`
}

type SiteHintsRequest struct {
	Origin string `json:"origin"`
	Goal   string `json:"goal"`
}

type ResolveRequest struct {
	Goal       string             `json:"goal"`
	Candidates []models.Candidate `json:"candidates"`
	// LiveIDs lists ids the client confirmed on the page. Absent means all live.
	LiveIDs   []string `json:"liveIds,omitempty"`
	Origin    string   `json:"origin,omitempty"`
	URL       string   `json:"url,omitempty"`
	SessionID string   `json:"sessionId,omitempty"`
}

type ResolveResponse struct {
	Primary       *models.Suggestion  `json:"primary"`
	Alternates    []models.Suggestion `json:"alternates"`
	UsedAlternate bool                `json:"usedAlternate"`
	Status        reconcile.Status    `json:"status"`
	Message       string              `json:"message"`
	Outcome       reconcile.Outcome   `json:"outcome"`
	SessionID     string              `json:"sessionId,omitempty"`
	SiteHints     []models.SiteHint   `json:"siteHints,omitempty"`
}
