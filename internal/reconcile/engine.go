package reconcile

import (
	"context"
	"log"
	"math"
	"sort"
	"time"

	"github.com/AcceptableTrouble/button-buddy/models"
)

const (
	DefaultThreshold        = 0.55
	DefaultDegradedCap      = 0.3
	DefaultLiveCheckTimeout = time.Second

	// alternateDamping shapes score/(score+k) into a confidence.
	alternateDamping = 5.0
)

// LivePage confirms that a candidate still exists on the current page.
type LivePage interface {
	Resolves(ctx context.Context, id string) bool
}

// LiveSet is a LivePage backed by a fixed set of ids.
type LiveSet map[string]struct{}

// NewLiveSet builds a LiveSet from ids.
func NewLiveSet(ids ...string) LiveSet {
	s := make(LiveSet, len(ids))
	for _, id := range ids {
		s[id] = struct{}{}
	}
	return s
}

func (s LiveSet) Resolves(_ context.Context, id string) bool {
	_, ok := s[id]
	return ok
}

// Result is the reconciled answer.
type Result struct {
	Outcome       Outcome             `json:"outcome"`
	Primary       *models.Suggestion  `json:"primary"`
	Alternates    []models.Suggestion `json:"alternates"`
	UsedAlternate bool                `json:"usedAlternate"`
	Status        Status              `json:"status"`
	Message       string              `json:"message"`
}

// Config tunes the engine.
type Config struct {
	Threshold        float64
	DegradedCap      float64
	MaxAlternates    int
	LiveCheckTimeout time.Duration
}

// Engine runs reconciliation. It holds no per-request state.
type Engine struct {
	cfg    Config
	logger *log.Logger
}

// New fills unset config values with defaults.
func New(cfg Config, logger *log.Logger) *Engine {
	if cfg.Threshold <= 0 {
		cfg.Threshold = DefaultThreshold
	}
	if cfg.DegradedCap <= 0 {
		cfg.DegradedCap = DefaultDegradedCap
	}
	if cfg.MaxAlternates <= 0 {
		cfg.MaxAlternates = models.MaxAlternates
	}
	if cfg.LiveCheckTimeout <= 0 {
		cfg.LiveCheckTimeout = DefaultLiveCheckTimeout
	}
	if logger == nil {
		logger = log.New(log.Writer(), "[RESOLVE] ", log.LstdFlags)
	}
	return &Engine{cfg: cfg, logger: logger}
}

// Threshold returns the acceptance threshold in use.
func (e *Engine) Threshold() float64 { return e.cfg.Threshold }

// Resolve reconciles oracle (may be nil) against scored, which must be in
// local score order. A nil page treats every known candidate as live.
func (e *Engine) Resolve(ctx context.Context, goal string, scored []models.ScoredCandidate, oracle *models.Suggestion, page LivePage) Result {
	// Freshness checks must finish even if the caller has gone away, so the
	// outcome stays deterministic for logging and metrics.
	liveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.cfg.LiveCheckTimeout)
	defer cancel()
	live := func(id string) bool {
		if page == nil {
			return true
		}
		return page.Resolves(liveCtx, id)
	}

	known := make(map[string]*models.ScoredCandidate, len(scored))
	for i := range scored {
		known[scored[i].ID] = &scored[i]
	}

	var (
		oracleID     string
		oracleKnown  bool
		oracleIsLive bool
	)
	if oracle != nil && oracle.Target != nil {
		oracleID = *oracle.Target
		_, oracleKnown = known[oracleID]
		oracleIsLive = oracleKnown && live(oracleID)
	}

	if oracleIsLive && oracle.Confidence > e.cfg.Threshold {
		primary := oracle.Clone().Normalize()
		return Result{
			Outcome: Accepted,
			Primary: &primary,
			Status:  StatusAccepted,
			Message: "Ranker pick confirmed on the page.",
		}
	}

	alts := e.alternates(scored, oracleID, live)
	if len(alts) > 0 {
		primary := alts[0]
		res := Result{
			Outcome:       UsedAlternate,
			Primary:       &primary,
			Alternates:    alts[1:],
			UsedAlternate: true,
			Status:        StatusAlternate,
			Message:       "Using the best local match.",
		}
		if oracle != nil && !oracleIsLive {
			res.Status = StatusUnavailable
			res.Message = "Suggested element is unavailable; using the best local match."
		}
		e.logger.Printf("goal %q: alternate %s replaces %q", goal, primary.TargetID(), oracleID)
		return res
	}

	if oracleIsLive {
		primary := oracle.Clone().Normalize()
		primary.Confidence = math.Min(primary.Confidence, e.cfg.DegradedCap)
		return Result{
			Outcome: DegradedOriginal,
			Primary: &primary,
			Status:  StatusDegraded,
			Message: "Low-confidence match; double-check before clicking.",
		}
	}

	if oracle != nil {
		primary := oracle.Clone().Normalize()
		primary.Target = nil
		primary.Confidence = math.Min(primary.Confidence, e.cfg.DegradedCap)
		return Result{
			Outcome: UnavailableOriginal,
			Primary: &primary,
			Status:  StatusUnavailable,
			Message: "Suggested element is not available on this page.",
		}
	}

	return Result{Outcome: NoMatch, Status: StatusNoMatch, Message: "No matching element found."}
}

// alternates picks live, positively scored candidates other than exclude.
// Disabled candidates are only considered when no enabled one scores above zero.
func (e *Engine) alternates(scored []models.ScoredCandidate, exclude string, live func(string) bool) []models.Suggestion {
	pool := make([]models.ScoredCandidate, 0, len(scored))
	enabledPositive := false
	for _, s := range scored {
		if s.ID == "" || s.ID == exclude || s.Score <= 0 {
			continue
		}
		if !s.Disabled {
			enabledPositive = true
		}
		pool = append(pool, s)
	}
	sort.SliceStable(pool, func(i, j int) bool {
		if pool[i].Score != pool[j].Score {
			return pool[i].Score > pool[j].Score
		}
		return len([]rune(pool[i].DisplayText())) > len([]rune(pool[j].DisplayText()))
	})

	out := make([]models.Suggestion, 0, e.cfg.MaxAlternates)
	for _, s := range pool {
		if len(out) == e.cfg.MaxAlternates {
			break
		}
		if enabledPositive && s.Disabled {
			continue
		}
		if !live(s.ID) {
			continue
		}
		out = append(out, models.Suggestion{
			Target:      models.StringPtr(s.ID),
			Label:       s.DisplayText(),
			Confidence:  math.Min(e.cfg.Threshold, s.Score/(s.Score+alternateDamping)),
			Explanation: "Best local match for the goal.",
			Provenance:  models.ProvenanceAlternate,
		}.Normalize())
	}
	return out
}
