package ranker

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/AcceptableTrouble/button-buddy/internal/helpers"
	"github.com/AcceptableTrouble/button-buddy/models"
)

const (
	// NoMatchLabel replaces the label when the oracle names an unknown element.
	NoMatchLabel = "No validated match"
	// maxUnvalidatedConfidence caps confidence for out-of-set answers.
	maxUnvalidatedConfidence = 0.1
)

type reply struct {
	Target      any    `json:"target"`
	Label       string `json:"label"`
	Confidence  any    `json:"confidence"`
	Scale       any    `json:"scale"`
	Explanation string `json:"explanation"`
	Alternates  []any  `json:"alternates"`
}

// decodeReply parses raw strictly first, then retries on the first balanced
// object found in it.
func decodeReply(raw string) (reply, error) {
	var r reply
	if trimmed := strings.TrimSpace(raw); strings.HasPrefix(trimmed, "{") {
		if err := json.Unmarshal([]byte(trimmed), &r); err == nil {
			return r, nil
		}
		r = reply{}
	}
	fragment, err := helpers.ExtractJSON(raw)
	if err != nil {
		return reply{}, err
	}
	if err := json.Unmarshal([]byte(fragment), &r); err != nil {
		return reply{}, fmt.Errorf("decode oracle reply: %w", err)
	}
	return r, nil
}

// validate turns a decoded reply into a Suggestion whose target and
// alternates are guaranteed to belong to scored.
func validate(r reply, scored []models.ScoredCandidate) models.Suggestion {
	byID := make(map[string]*models.ScoredCandidate, len(scored))
	for i := range scored {
		if scored[i].ID != "" {
			byID[scored[i].ID] = &scored[i]
		}
	}

	s := models.Suggestion{
		Label:       helpers.PlainText(r.Label),
		Confidence:  parseConfidence(r.Confidence, r.Scale),
		Explanation: helpers.PlainText(r.Explanation),
		Provenance:  models.ProvenanceLLM,
	}

	target := idString(r.Target)
	if target != "" {
		if c, ok := byID[target]; ok {
			s.Target = models.StringPtr(target)
			if s.Label == "" {
				s.Label = c.DisplayText()
			}
		} else {
			s.Confidence = math.Min(s.Confidence, maxUnvalidatedConfidence)
			s.Label = NoMatchLabel
			s.Explanation = fmt.Sprintf("Suggested element %q is not on this page.", target)
		}
	}

	seen := map[string]struct{}{target: {}}
	for _, a := range r.Alternates {
		id := idString(a)
		if _, dup := seen[id]; dup || id == "" {
			continue
		}
		if _, ok := byID[id]; !ok {
			continue
		}
		seen[id] = struct{}{}
		s.Alternates = append(s.Alternates, id)
		if len(s.Alternates) == models.MaxAlternates {
			break
		}
	}
	return s.Normalize()
}

// parseConfidence accepts numbers or numeric strings. Percent-style values
// (scale 100, a trailing %, or anything in (1,100]) are divided by 100.
func parseConfidence(v, scale any) float64 {
	f, percent, ok := toFloat(v)
	if !ok {
		return 0
	}
	if sc, _, ok := toFloat(scale); ok && sc == 100 {
		percent = true
	}
	if percent || (f > 1 && f <= 100) {
		f /= 100
	}
	return models.ClampConfidence(f)
}

func toFloat(v any) (float64, bool, bool) {
	switch t := v.(type) {
	case float64:
		return t, false, true
	case string:
		s := strings.TrimSpace(t)
		percent := strings.HasSuffix(s, "%")
		f, err := strconv.ParseFloat(strings.TrimSpace(strings.TrimSuffix(s, "%")), 64)
		if err != nil {
			return 0, false, false
		}
		return f, percent, true
	default:
		return 0, false, false
	}
}

func idString(v any) string {
	switch t := v.(type) {
	case string:
		return strings.TrimSpace(t)
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return ""
	}
}
