package ranker

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/AcceptableTrouble/button-buddy/internal/helpers"
	"github.com/AcceptableTrouble/button-buddy/internal/metrics"
	"github.com/AcceptableTrouble/button-buddy/models"
)

const (
	// DefaultTimeout is the budget for one oracle call.
	DefaultTimeout = 8000 * time.Millisecond

	fallbackConfidence  = 0.2
	parseFailConfidence = 0.1
)

// fallbackKeywords pick the timeout fallback, checked in scored order.
var fallbackKeywords = []string{"email", "subscription", "billing", "settings", "account", "password"}

// Verdict is one ranking outcome.
type Verdict struct {
	Suggestion models.Suggestion `json:"suggestion"`
	LatencyMs  int64             `json:"latencyMs"`
	TimedOut   bool              `json:"timedOut"`
	Cached     bool              `json:"cached"`
}

// Client races the oracle against a timer.
type Client struct {
	oracle  Oracle
	timeout time.Duration
	logger  *log.Logger
	metrics *metrics.Metrics
}

// Option customizes a Client.
type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New builds a client. A nil oracle is allowed; every Rank then returns the
// deterministic fallback.
func New(oracle Oracle, opts ...Option) *Client {
	c := &Client{
		oracle:  oracle,
		timeout: DefaultTimeout,
		logger:  log.New(log.Writer(), "[RANK] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Available reports whether an oracle is configured.
func (c *Client) Available() bool { return c != nil && c.oracle != nil }

// Timeout returns the oracle budget.
func (c *Client) Timeout() time.Duration { return c.timeout }

type outcome struct {
	raw string
	err error
}

// Rank asks the oracle to choose among scored, which must already be in
// local score order. It never returns an error: timeouts, transport failures
// and unparseable replies all degrade to a local suggestion.
func (c *Client) Rank(ctx context.Context, goal models.Goal, scored []models.ScoredCandidate, hints []models.SiteHint) Verdict {
	start := time.Now()
	v := c.rank(ctx, goal, scored, hints)
	v.LatencyMs = time.Since(start).Milliseconds()
	c.metrics.RankVerdict(string(v.Suggestion.Provenance))
	return v
}

func (c *Client) rank(ctx context.Context, goal models.Goal, scored []models.ScoredCandidate, hints []models.SiteHint) Verdict {
	if c.oracle == nil {
		return Verdict{Suggestion: Fallback(scored, "Ranker not configured; picked a likely control locally.")}
	}

	payload := buildRequest(goal, scored, hints)
	octx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the oracle goroutine never blocks after losing the race.
	done := make(chan outcome, 1)
	started := time.Now()
	go func() {
		raw, err := c.oracle.Complete(octx, Prompt, payload)
		done <- outcome{raw: raw, err: err}
	}()

	timer := time.NewTimer(c.timeout)
	defer timer.Stop()

	select {
	case res := <-done:
		c.metrics.OracleLatency(time.Since(started))
		if res.err != nil {
			c.logger.Printf("oracle error for goal %q: %v", goal.Text, res.err)
			return Verdict{Suggestion: Fallback(scored, "Ranker unavailable; picked a likely control locally.")}
		}
		r, err := decodeReply(res.raw)
		if err != nil {
			c.logger.Printf("unparseable oracle reply (%d bytes): %v", len(res.raw), err)
			return Verdict{Suggestion: topLocal(scored)}
		}
		return Verdict{Suggestion: validate(r, scored)}
	case <-timer.C:
		c.metrics.OracleLatency(c.timeout)
		c.logger.Printf("oracle timed out after %s for goal %q", c.timeout, goal.Text)
		return Verdict{Suggestion: Fallback(scored, "Ranker timed out; picked a likely control locally."), TimedOut: true}
	case <-ctx.Done():
		reason := "request cancelled"
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = "request deadline exceeded"
		}
		c.logger.Printf("oracle abandoned: %s", reason)
		return Verdict{Suggestion: Fallback(scored, "Ranker abandoned ("+reason+"); picked a likely control locally.")}
	}
}

// Fallback picks the first scored candidate whose text, accessible name or
// aria-label mentions a common account-management keyword, else the first
// candidate.
func Fallback(scored []models.ScoredCandidate, explanation string) models.Suggestion {
	s := models.Suggestion{
		Confidence:  fallbackConfidence,
		Explanation: explanation,
		Provenance:  models.ProvenanceTimeoutFallback,
	}
	if len(scored) == 0 {
		s.Confidence = 0
		return s.Normalize()
	}
	pick := &scored[0]
	for i := range scored {
		if mentionsFallbackKeyword(scored[i].Candidate) {
			pick = &scored[i]
			break
		}
	}
	s.Target = models.StringPtr(pick.ID)
	s.Label = pick.DisplayText()
	return s.Normalize()
}

func mentionsFallbackKeyword(c models.Candidate) bool {
	hay := helpers.NormalizeText(c.Text + " " + c.AccessibleName + " " + c.AriaLabel)
	for _, kw := range fallbackKeywords {
		if strings.Contains(hay, kw) {
			return true
		}
	}
	return false
}

func topLocal(scored []models.ScoredCandidate) models.Suggestion {
	s := models.Suggestion{
		Confidence:  parseFailConfidence,
		Explanation: "Ranker reply was unreadable; using the best local match.",
		Provenance:  models.ProvenanceLocal,
	}
	if len(scored) == 0 {
		s.Confidence = 0
		return s.Normalize()
	}
	s.Target = models.StringPtr(scored[0].ID)
	s.Label = scored[0].DisplayText()
	return s.Normalize()
}
