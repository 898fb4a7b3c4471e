package models

import (
	"errors"
	"math"
	"strings"
	"time"
	"unicode/utf8"
)

// ErrInvalidInput is returned when a goal or candidate set is missing.
var ErrInvalidInput = errors.New("invalid input")

const (
	// MaxHistory bounds how many prior steps travel with a goal.
	MaxHistory = 3
	// MaxExplanationLen is the rune limit applied to Suggestion.Explanation.
	MaxExplanationLen = 160
	// MaxLabelLen is the rune limit applied to Suggestion.Label.
	MaxLabelLen = 120
	// MaxAlternates bounds alternates attached to a suggestion.
	MaxAlternates = 3
)

// Rect is the element bounding box in CSS pixels.
type Rect struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	W float64 `json:"w"`
	H float64 `json:"h"`
}

// Area returns W*H, or zero for degenerate boxes.
func (r Rect) Area() float64 {
	if r.W <= 0 || r.H <= 0 {
		return 0
	}
	return r.W * r.H
}

// Candidate is one interactable element captured from a page snapshot.
// ID is assigned by the page observer and is only meaningful within that page load.
type Candidate struct {
	ID             string   `json:"id"`
	Tag            string   `json:"tag,omitempty"`
	Role           string   `json:"role,omitempty"`
	Type           string   `json:"type,omitempty"`
	Text           string   `json:"text,omitempty"`
	AccessibleName string   `json:"accessibleName,omitempty"`
	AriaLabel      string   `json:"ariaLabel,omitempty"`
	Labels         []string `json:"labels,omitempty"`
	AncestorText   string   `json:"ancestorText,omitempty"`
	DOMPath        string   `json:"domPath,omitempty"`
	Rect           Rect     `json:"rect"`
	Visible        bool     `json:"visible"`
	Clickable      bool     `json:"clickable"`
	Disabled       bool     `json:"disabled"`
	Locale         string   `json:"locale,omitempty"`
}

// DisplayText returns the best human-readable name for the candidate.
func (c Candidate) DisplayText() string {
	for _, s := range []string{c.AccessibleName, c.AriaLabel, c.Text} {
		if s = strings.TrimSpace(s); s != "" {
			return s
		}
	}
	for _, l := range c.Labels {
		if l = strings.TrimSpace(l); l != "" {
			return l
		}
	}
	return strings.TrimSpace(c.Tag)
}

// CandidateIDs returns the set of ids in candidates.
func CandidateIDs(candidates []Candidate) map[string]struct{} {
	out := make(map[string]struct{}, len(candidates))
	for _, c := range candidates {
		if c.ID != "" {
			out[c.ID] = struct{}{}
		}
	}
	return out
}

// Provenance tags which component produced a Suggestion.
type Provenance string

const (
	ProvenanceLocal           Provenance = "local"
	ProvenanceLLM             Provenance = "llm"
	ProvenanceAlternate       Provenance = "alternate"
	ProvenanceTimeoutFallback Provenance = "timeout-fallback"
)

// Step records one resolved suggestion in a guidance session.
type Step struct {
	URL        string     `json:"url,omitempty"`
	TargetID   string     `json:"targetId"`
	Confidence float64    `json:"confidence"`
	Provenance Provenance `json:"provenance"`
	At         time.Time  `json:"at"`
}

// Goal is the user's free-text intent plus recent history.
type Goal struct {
	Text    string `json:"goal"`
	History []Step `json:"history,omitempty"`
}

// TrimHistory keeps only the most recent MaxHistory steps.
func TrimHistory(steps []Step) []Step {
	if len(steps) <= MaxHistory {
		return steps
	}
	out := make([]Step, MaxHistory)
	copy(out, steps[len(steps)-MaxHistory:])
	return out
}

// ScoredCandidate pairs a candidate with its local heuristic score.
// Index is the candidate's position in the original snapshot.
type ScoredCandidate struct {
	Candidate
	Score float64 `json:"score"`
	Index int     `json:"index"`
}

// Suggestion is exchanged with the oracle and returned to callers.
type Suggestion struct {
	Target      *string    `json:"target"`
	Label       string     `json:"label"`
	Confidence  float64    `json:"confidence"`
	Explanation string     `json:"explanation"`
	Provenance  Provenance `json:"provenance"`
	Alternates  []string   `json:"alternates,omitempty"`
}

// TargetID returns the target id or "" when the target is nil.
func (s Suggestion) TargetID() string {
	if s.Target == nil {
		return ""
	}
	return *s.Target
}

// Normalize clamps confidence and truncates free-text fields.
func (s Suggestion) Normalize() Suggestion {
	s.Confidence = ClampConfidence(s.Confidence)
	s.Label = Truncate(strings.TrimSpace(s.Label), MaxLabelLen)
	s.Explanation = Truncate(strings.TrimSpace(s.Explanation), MaxExplanationLen)
	if len(s.Alternates) > MaxAlternates {
		s.Alternates = append([]string(nil), s.Alternates[:MaxAlternates]...)
	}
	return s
}

// Clone returns a deep copy so cached values are never shared.
func (s Suggestion) Clone() Suggestion {
	if s.Target != nil {
		id := *s.Target
		s.Target = &id
	}
	if s.Alternates != nil {
		s.Alternates = append([]string(nil), s.Alternates...)
	}
	return s
}

// StringPtr returns a pointer to a copy of v.
func StringPtr(v string) *string { return &v }

// ClampConfidence maps any float into [0,1]; NaN becomes 0.
func ClampConfidence(v float64) float64 {
	switch {
	case math.IsNaN(v), v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}

// Truncate cuts s to at most max runes.
func Truncate(s string, max int) string {
	if max <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}

// SiteHint is a goal-relevant path stem discovered on a site.
type SiteHint struct {
	Path  string  `json:"path"`
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// HintSource reports where site hints came from.
type HintSource string

const (
	HintSourceSitemap  HintSource = "sitemap"
	HintSourceCrawl    HintSource = "crawl"
	HintSourceNone     HintSource = "none"
	HintSourceError    HintSource = "error"
	HintSourceDisabled HintSource = "disabled"
)

// SiteHintMeta describes how a hint list was obtained.
type SiteHintMeta struct {
	Source     HintSource `json:"source"`
	FetchedMs  int64      `json:"fetchedMs"`
	TTLSeconds int64      `json:"ttlSeconds"`
	Cached     bool       `json:"cached"`
}

// ErrSessionNotFound is returned for unknown or expired guidance sessions.
var ErrSessionNotFound = errors.New("session not found")

// MaxStoredSteps bounds the steps kept per guidance session.
const MaxStoredSteps = 20

// GuidanceSession tracks one user's progress toward a goal across pages.
type GuidanceSession struct {
	ID        string    `json:"id"`
	Goal      string    `json:"goal"`
	Steps     []Step    `json:"steps"`
	Uses      int       `json:"uses"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// History returns the most recent steps to send with the next goal.
func (s GuidanceSession) History() []Step { return TrimHistory(s.Steps) }

// WithStep returns a copy of s with step appended and Uses incremented.
// Older steps are dropped beyond MaxStoredSteps.
func (s GuidanceSession) WithStep(step Step, now time.Time) GuidanceSession {
	steps := make([]Step, 0, len(s.Steps)+1)
	steps = append(steps, s.Steps...)
	steps = append(steps, step)
	if len(steps) > MaxStoredSteps {
		steps = steps[len(steps)-MaxStoredSteps:]
	}
	s.Steps = steps
	s.Uses++
	s.UpdatedAt = now
	return s
}

// Clone copies s so the caller cannot alias stored steps.
func (s GuidanceSession) Clone() GuidanceSession {
	if s.Steps != nil {
		s.Steps = append([]Step(nil), s.Steps...)
	}
	return s
}
