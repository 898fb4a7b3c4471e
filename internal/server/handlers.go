package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/AcceptableTrouble/button-buddy/internal/reconcile"
	"github.com/AcceptableTrouble/button-buddy/internal/resolver"
	"github.com/AcceptableTrouble/button-buddy/internal/sitehints"
	"github.com/AcceptableTrouble/button-buddy/models"
)

type handlers struct {
	deps          Deps
	maxCandidates int
	logger        *log.Logger
}

func (h *handlers) Register(g *echo.Group) {
	g.POST("/rank", h.rank)
	g.POST("/site-hints", h.siteHints)
	g.POST("/resolve", h.resolve)
}

func (h *handlers) checkCandidates(n int) error {
	if h.maxCandidates > 0 && n > h.maxCandidates {
		return echo.NewHTTPError(http.StatusBadRequest, fmt.Sprintf("too many candidates: %d > %d", n, h.maxCandidates))
	}
	return nil
}

func (h *handlers) rank(c echo.Context) error {
	var req RankRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.checkCandidates(len(req.Candidates)); err != nil {
		return err
	}
	goal := models.Goal{Text: req.Goal, History: req.History}
	res, err := h.deps.Resolver.Rank(c.Request().Context(), goal, req.Candidates, req.SiteHints)
	if err != nil {
		return inputError(err)
	}
	s := res.Verdict.Suggestion
	alts := s.Alternates
	if alts == nil {
		alts = []string{}
	}
	return c.JSON(http.StatusOK, RankResponse{
		Target:      s.Target,
		Label:       s.Label,
		Confidence:  s.Confidence,
		Explanation: s.Explanation,
		Alternates:  alts,
		Provenance:  s.Provenance,
		LatencyMs:   res.Verdict.LatencyMs,
		Cached:      res.Verdict.Cached,
		TimedOut:    res.Verdict.TimedOut,
	})
}

func (h *handlers) siteHints(c echo.Context) error {
	var req SiteHintsRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if h.deps.Hints == nil {
		return echo.NewHTTPError(http.StatusServiceUnavailable, "site hints not configured")
	}
	res, err := h.deps.Hints.Hints(c.Request().Context(), req.Origin, req.Goal)
	if err != nil {
		if errors.Is(err, sitehints.ErrInvalidOrigin) {
			return echo.NewHTTPError(http.StatusBadRequest, "invalid origin")
		}
		return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
	}
	return c.JSON(http.StatusOK, res)
}

func (h *handlers) resolve(c echo.Context) error {
	var req ResolveRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	if err := h.checkCandidates(len(req.Candidates)); err != nil {
		return err
	}
	ctx := c.Request().Context()

	goal := models.Goal{Text: req.Goal}
	var sess *models.GuidanceSession
	store := h.deps.Sessions
	if store != nil && req.SessionID != "" {
		s, err := store.Get(ctx, req.SessionID)
		switch {
		case errors.Is(err, models.ErrSessionNotFound):
			return echo.NewHTTPError(http.StatusNotFound, "session not found")
		case err != nil:
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		sess = &s
		goal.History = s.History()
	}

	rreq := resolver.Request{Goal: goal, Candidates: req.Candidates, Origin: req.Origin}
	if req.LiveIDs != nil {
		rreq.Page = reconcile.NewLiveSet(req.LiveIDs...)
	}
	res, err := h.deps.Resolver.Resolve(ctx, rreq)
	if err != nil {
		return inputError(err)
	}

	// New sessions are opened only for requests that resolved.
	if store != nil && sess == nil {
		s, err := store.Create(ctx, req.Goal)
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
		}
		sess = &s
	}

	out := ResolveResponse{
		Primary:       res.Primary,
		Alternates:    res.Alternates,
		UsedAlternate: res.UsedAlternate,
		Status:        res.Status,
		Message:       res.Message,
		Outcome:       res.Outcome,
	}
	if out.Alternates == nil {
		out.Alternates = []models.Suggestion{}
	}
	if res.SiteHints != nil {
		out.SiteHints = res.SiteHints.Hints
	}
	if sess != nil {
		out.SessionID = sess.ID
		if res.Primary != nil && res.Primary.Target != nil {
			step := models.Step{
				URL:        req.URL,
				TargetID:   *res.Primary.Target,
				Confidence: res.Primary.Confidence,
				Provenance: res.Primary.Provenance,
				At:         time.Now().UTC(),
			}
			if _, err := h.deps.Sessions.Append(ctx, sess.ID, step); err != nil {
				h.logger.Printf("append step to session %s: %v", sess.ID, err)
			}
		}
	}
	return c.JSON(http.StatusOK, out)
}

func inputError(err error) error {
	if errors.Is(err, models.ErrInvalidInput) {
		return echo.NewHTTPError(http.StatusBadRequest, err.Error())
	}
	return echo.NewHTTPError(http.StatusInternalServerError, err.Error())
}
