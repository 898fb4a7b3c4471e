// Package resolver strings the scorer, ranking cache, site hints, ranker and
// reconciliation engine into one request pipeline.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/AcceptableTrouble/button-buddy/internal/cache"
	"github.com/AcceptableTrouble/button-buddy/internal/metrics"
	"github.com/AcceptableTrouble/button-buddy/internal/ranker"
	"github.com/AcceptableTrouble/button-buddy/internal/reconcile"
	"github.com/AcceptableTrouble/button-buddy/internal/scorer"
	"github.com/AcceptableTrouble/button-buddy/internal/sitehints"
	"github.com/AcceptableTrouble/button-buddy/models"
)

// DefaultMaxCandidates is how many ranked candidates reach the oracle.
const DefaultMaxCandidates = 50

// HintProvider supplies site hints for an origin.
type HintProvider interface {
	Hints(ctx context.Context, origin, goal string) (sitehints.Response, error)
}

// Request is one resolution attempt.
type Request struct {
	Goal       models.Goal
	Candidates []models.Candidate
	// Origin enables site hints when set.
	Origin string
	// Page answers freshness checks; nil treats every candidate as live.
	Page reconcile.LivePage
}

// Response carries the reconciled result and the intermediate verdict.
type Response struct {
	reconcile.Result
	Verdict   ranker.Verdict           `json:"verdict"`
	SiteHints *sitehints.Response      `json:"siteHints,omitempty"`
	Ranked    []models.ScoredCandidate `json:"-"`
}

// Resolver is safe for concurrent use.
type Resolver struct {
	ranker        *ranker.Client
	engine        *reconcile.Engine
	hints         HintProvider
	cache         *cache.TTLCache[models.Suggestion]
	maxCandidates int
	logger        *log.Logger
	metrics       *metrics.Metrics
}

// Option customizes a Resolver.
type Option func(*Resolver)

func WithHints(h HintProvider) Option { return func(r *Resolver) { r.hints = h } }

func WithCache(c *cache.TTLCache[models.Suggestion]) Option {
	return func(r *Resolver) {
		if c != nil {
			r.cache = c
		}
	}
}

func WithMaxCandidates(n int) Option {
	return func(r *Resolver) {
		if n > 0 {
			r.maxCandidates = n
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option { return func(r *Resolver) { r.metrics = m } }

// New wires a resolver. Without WithCache a 500 entry, 60 second ranking
// cache is created.
func New(rk *ranker.Client, engine *reconcile.Engine, opts ...Option) *Resolver {
	r := &Resolver{
		ranker:        rk,
		engine:        engine,
		maxCandidates: DefaultMaxCandidates,
		logger:        log.New(log.Writer(), "[RESOLVE] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.cache == nil {
		r.cache = cache.New[models.Suggestion](500, time.Minute)
	}
	if r.ranker == nil {
		r.ranker = ranker.New(nil)
	}
	if r.engine == nil {
		r.engine = reconcile.New(reconcile.Config{}, r.logger)
	}
	return r
}

// RankResult is the output of the ranking step alone.
type RankResult struct {
	Verdict ranker.Verdict
	Scored  scorer.Result
}

// Rank scores candidates locally and asks the ranker, consulting the ranking
// cache first. Only input problems produce an error.
func (r *Resolver) Rank(ctx context.Context, goal models.Goal, candidates []models.Candidate, hints []models.SiteHint) (RankResult, error) {
	goal, err := validate(goal, candidates)
	if err != nil {
		return RankResult{}, err
	}
	scored := scorer.Truncate(scorer.Score(goal.Text, candidates), r.maxCandidates)
	return RankResult{Verdict: r.rank(ctx, goal, candidates, scored, hints), Scored: scored}, nil
}

func (r *Resolver) rank(ctx context.Context, goal models.Goal, candidates []models.Candidate, scored scorer.Result, hints []models.SiteHint) ranker.Verdict {
	key := cache.RankingKey(goal.Text, candidates)
	if s, ok := r.cache.Get(key); ok {
		r.metrics.RankCache(true)
		return ranker.Verdict{Suggestion: s.Clone(), Cached: true}
	}
	r.metrics.RankCache(false)

	v := r.ranker.Rank(ctx, goal, scored.Ranked, hints)
	if v.Suggestion.Provenance == models.ProvenanceLLM {
		r.cache.Put(key, v.Suggestion.Clone())
	}
	return v
}

// Resolve runs the full pipeline.
func (r *Resolver) Resolve(ctx context.Context, req Request) (Response, error) {
	goal, err := validate(req.Goal, req.Candidates)
	if err != nil {
		return Response{}, err
	}
	scored := scorer.Truncate(scorer.Score(goal.Text, req.Candidates), r.maxCandidates)

	var resp Response
	var hints []models.SiteHint
	if req.Origin != "" && r.hints != nil {
		h, err := r.hints.Hints(ctx, req.Origin, goal.Text)
		switch {
		case err == nil:
			resp.SiteHints = &h
			hints = h.Hints
		case errors.Is(err, sitehints.ErrInvalidOrigin):
			r.logger.Printf("ignoring invalid origin %q", req.Origin)
		default:
			r.logger.Printf("site hints for %s: %v", req.Origin, err)
		}
	}

	resp.Verdict = r.rank(ctx, goal, req.Candidates, scored, hints)

	// Fallback and local verdicts are our own picks, not the oracle's, and
	// must not exclude their target from the alternates.
	var oracle *models.Suggestion
	if resp.Verdict.Suggestion.Provenance == models.ProvenanceLLM {
		s := resp.Verdict.Suggestion
		oracle = &s
	}
	resp.Result = r.engine.Resolve(ctx, goal.Text, scored.Ranked, oracle, req.Page)
	resp.Ranked = scored.Ranked
	r.metrics.Resolve(resp.Outcome.String())
	return resp, nil
}

func validate(goal models.Goal, candidates []models.Candidate) (models.Goal, error) {
	goal.Text = strings.TrimSpace(goal.Text)
	if goal.Text == "" {
		return goal, fmt.Errorf("%w: goal is required", models.ErrInvalidInput)
	}
	if len(candidates) == 0 {
		return goal, fmt.Errorf("%w: at least one candidate is required", models.ErrInvalidInput)
	}
	goal.History = models.TrimHistory(goal.History)
	return goal, nil
}
