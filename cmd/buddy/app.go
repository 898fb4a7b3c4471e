package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/AcceptableTrouble/button-buddy/config"
	"github.com/AcceptableTrouble/button-buddy/internal/cache"
	"github.com/AcceptableTrouble/button-buddy/internal/metrics"
	"github.com/AcceptableTrouble/button-buddy/internal/ranker"
	"github.com/AcceptableTrouble/button-buddy/internal/reconcile"
	"github.com/AcceptableTrouble/button-buddy/internal/resolver"
	"github.com/AcceptableTrouble/button-buddy/internal/sitehints"
	"github.com/AcceptableTrouble/button-buddy/models"
	"github.com/AcceptableTrouble/button-buddy/provider"
	"github.com/AcceptableTrouble/button-buddy/session"
)

// app holds the shared dependencies built once per process.
type app struct {
	cfg      *config.Config
	metrics  *metrics.Metrics
	rdb      *redis.Client
	sessions session.Store
	hints    *sitehints.Provider
	resolver *resolver.Resolver
}

func buildApp(ctx context.Context, cfg *config.Config) (*app, error) {
	a := &app{cfg: cfg}
	if cfg.Telemetry.Enabled {
		a.metrics = metrics.New()
	}

	if cfg.Storage.Redis.Enabled() {
		r := cfg.Storage.Redis
		a.rdb = redis.NewClient(&redis.Options{
			Addr:        r.Addr(),
			Password:    r.Password,
			DB:          r.DB,
			DialTimeout: r.Timeout,
			ReadTimeout: r.Timeout,
		})
		pingCtx, cancel := context.WithTimeout(ctx, r.Timeout)
		err := a.rdb.Ping(pingCtx).Err()
		cancel()
		if err != nil {
			_ = a.rdb.Close()
			return nil, fmt.Errorf("redis connection failed (%s): %w", r.Addr(), err)
		}
	}

	var sessionClient redis.UniversalClient
	if a.rdb != nil {
		sessionClient = a.rdb
	}
	sessions, err := session.NewStore(session.StoreType(cfg.Session.Backend), cfg.Session.TTL, sessionClient)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.sessions = sessions

	hintOpts := []sitehints.Option{
		sitehints.WithHTTPClient(&http.Client{}),
		sitehints.WithCache(cache.New[sitehints.Response](cfg.Cache.SiteHints.Capacity, cfg.Cache.SiteHints.TTL)),
		sitehints.WithMetrics(a.metrics),
	}
	if cfg.Cache.Shared && a.rdb != nil {
		shared := cache.NewRedisStore[sitehints.Response](a.rdb, cache.SiteHintsPrefix, cfg.Cache.SiteHints.TTL,
			log.New(log.Writer(), "[CACHE] ", log.LstdFlags))
		hintOpts = append(hintOpts, sitehints.WithSharedStore(shared))
	}
	a.hints = sitehints.New(cfg.SiteHints, hintOpts...)

	oracle, err := provider.NewOracle(ctx, cfg.LLM)
	if err != nil {
		a.Close()
		return nil, err
	}
	if oracle == nil {
		log.Printf("no llm provider configured; ranking uses local scores only")
	}
	rk := ranker.New(oracle, ranker.WithTimeout(cfg.Ranker.Timeout), ranker.WithMetrics(a.metrics))
	eng := reconcile.New(reconcile.Config{
		Threshold:        cfg.Reconcile.Threshold,
		DegradedCap:      cfg.Reconcile.DegradedCap,
		MaxAlternates:    cfg.Reconcile.MaxAlternates,
		LiveCheckTimeout: cfg.Reconcile.LiveCheckTimeout,
	}, nil)
	a.resolver = resolver.New(rk, eng,
		resolver.WithHints(a.hints),
		resolver.WithCache(cache.New[models.Suggestion](cfg.Cache.Ranking.Capacity, cfg.Cache.Ranking.TTL)),
		resolver.WithMaxCandidates(cfg.Ranker.MaxCandidates),
		resolver.WithMetrics(a.metrics),
	)
	return a, nil
}

func (a *app) Close() {
	if a.rdb != nil {
		_ = a.rdb.Close()
	}
}

func withTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
