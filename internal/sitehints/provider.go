// Package sitehints discovers goal-relevant paths on a site from its
// robots.txt, sitemaps or, failing those, its navigation links.
package sitehints

import (
	"context"
	"log"
	"net/http"
	"net/url"
	"sort"
	"time"

	"github.com/AcceptableTrouble/button-buddy/config"
	"github.com/AcceptableTrouble/button-buddy/internal/cache"
	"github.com/AcceptableTrouble/button-buddy/internal/helpers"
	"github.com/AcceptableTrouble/button-buddy/internal/metrics"
	"github.com/AcceptableTrouble/button-buddy/models"
)

// ErrInvalidOrigin is returned before any network work for a malformed origin.
var ErrInvalidOrigin = helpers.ErrInvalidOrigin

// Response is the ranked hint list plus how it was obtained.
type Response struct {
	Hints []models.SiteHint   `json:"hints"`
	Meta  models.SiteHintMeta `json:"meta"`
}

func (r Response) clone() Response {
	r.Hints = append([]models.SiteHint(nil), r.Hints...)
	return r
}

// Provider produces site hints. It is safe for concurrent use.
type Provider struct {
	cfg     config.SiteHintsConfig
	fetch   *fetcher
	local   *cache.TTLCache[Response]
	shared  *cache.RedisStore[Response]
	logger  *log.Logger
	metrics *metrics.Metrics
}

// Option customizes a Provider.
type Option func(*Provider)

func WithHTTPClient(c *http.Client) Option {
	return func(p *Provider) {
		if c != nil {
			p.fetch.client = c
		}
	}
}

func WithCache(c *cache.TTLCache[Response]) Option {
	return func(p *Provider) {
		if c != nil {
			p.local = c
		}
	}
}

// WithSharedStore mirrors entries into Redis.
func WithSharedStore(s *cache.RedisStore[Response]) Option {
	return func(p *Provider) { p.shared = s }
}

func WithLogger(l *log.Logger) Option {
	return func(p *Provider) {
		if l != nil {
			p.logger = l
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Provider) { p.metrics = m }
}

// New builds a provider. Without WithCache a 500 entry, 30 minute cache is used.
func New(cfg config.SiteHintsConfig, opts ...Option) *Provider {
	p := &Provider{
		cfg:    cfg,
		fetch:  &fetcher{client: &http.Client{}, userAgent: cfg.UserAgent},
		logger: log.New(log.Writer(), "[HINTS] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.local == nil {
		p.local = cache.New[Response](500, 30*time.Minute)
	}
	if p.fetch.userAgent == "" {
		p.fetch.userAgent = "button-buddy/1.0"
	}
	return p
}

// Hints returns up to MaxHints scored paths on origin for goal. Only a bad
// origin is reported as an error; network trouble shows up in Meta.Source.
func (p *Provider) Hints(ctx context.Context, origin, goal string) (Response, error) {
	base, err := helpers.CanonicalOrigin(origin)
	if err != nil {
		return Response{}, ErrInvalidOrigin
	}
	ttl := int64(p.local.TTL() / time.Second)

	if !p.cfg.Enabled || !p.cfg.CrawlPolicy.Permits(base.Host) {
		p.metrics.SiteHints(string(models.HintSourceDisabled))
		return Response{Hints: []models.SiteHint{}, Meta: models.SiteHintMeta{Source: models.HintSourceDisabled, TTLSeconds: ttl}}, nil
	}

	key := cache.SiteHintKey(base.String(), goal)
	if res, ok := p.lookup(ctx, key); ok {
		res.Meta.Cached = true
		p.metrics.SiteHints(string(res.Meta.Source))
		return res, nil
	}

	start := time.Now()
	urls, source := p.discover(ctx, base)
	res := Response{
		Hints: rank(base, urls, newGoalTerms(goal), p.cfg.MaxHints),
		Meta: models.SiteHintMeta{
			Source:     source,
			FetchedMs:  time.Since(start).Milliseconds(),
			TTLSeconds: ttl,
		},
	}
	if source != models.HintSourceError {
		p.store(ctx, key, res)
	}
	p.metrics.SiteHints(string(source))
	return res.clone(), nil
}

func (p *Provider) lookup(ctx context.Context, key string) (Response, bool) {
	if res, ok := p.local.Get(key); ok {
		return res.clone(), true
	}
	if p.shared == nil {
		return Response{}, false
	}
	res, ok := p.shared.Get(ctx, key)
	if !ok {
		return Response{}, false
	}
	if res.Hints == nil {
		res.Hints = []models.SiteHint{}
	}
	p.local.Put(key, res.clone())
	return res, true
}

func (p *Provider) store(ctx context.Context, key string, res Response) {
	p.local.Put(key, res.clone())
	if p.shared != nil {
		p.shared.Put(ctx, key, res)
	}
}

// discover gathers candidate page URLs. Every fetch fails soft; the source is
// error only when no request reached the server at all.
func (p *Provider) discover(ctx context.Context, base *url.URL) ([]string, models.HintSource) {
	reached := false
	note := func(what string, res fetchResult, err error) bool {
		reached = reached || res.reached
		if err != nil {
			p.logger.Printf("%s %s: %v", what, base, err)
			return false
		}
		return true
	}

	robots := robotsInfo{}
	res, err := p.fetch.get(ctx, base.String()+"/robots.txt", p.cfg.RobotsTimeout)
	if note("robots", res, err) {
		robots = parseRobots(res.body)
	}

	sitemaps := robots.sitemaps
	if len(sitemaps) == 0 {
		sitemaps = []string{base.String() + "/sitemap.xml"}
	}
	if pages := p.readSitemaps(ctx, sitemaps, note); len(pages) > 0 {
		return pages, models.HintSourceSitemap
	}

	if p.cfg.CrawlPolicy.RespectRobots && robots.blocksRoot {
		p.logger.Printf("robots.txt blocks crawling %s", base)
		return nil, models.HintSourceNone
	}
	res, err = p.fetch.get(ctx, base.String()+"/", p.cfg.CrawlTimeout)
	if note("crawl", res, err) {
		links, err := navLinks(res.body, base, p.cfg.MaxLinks)
		if err != nil {
			p.logger.Printf("parse homepage %s: %v", base, err)
		}
		if len(links) > 0 {
			return links, models.HintSourceCrawl
		}
	}
	if !reached {
		return nil, models.HintSourceError
	}
	return nil, models.HintSourceNone
}

// readSitemaps parses up to MaxSitemaps documents, following an index one
// level down, and stops once MaxURLs pages are collected.
func (p *Provider) readSitemaps(ctx context.Context, locs []string, note func(string, fetchResult, error) bool) []string {
	var pages []string
	read := func(loc string) []string {
		res, err := p.fetch.get(ctx, loc, p.cfg.SitemapTimeout)
		if !note("sitemap", res, err) {
			return nil
		}
		found, children, err := parseSitemap(res.body)
		if err != nil {
			p.logger.Printf("parse sitemap %s: %v", loc, err)
			return nil
		}
		pages = appendCapped(pages, found, p.cfg.MaxURLs)
		return children
	}

	for i, loc := range locs {
		if i >= p.cfg.MaxSitemaps || len(pages) >= p.cfg.MaxURLs {
			break
		}
		children := read(loc)
		for j, child := range children {
			if j >= p.cfg.MaxSitemaps || len(pages) >= p.cfg.MaxURLs {
				break
			}
			// nested indexes are not followed
			read(child)
		}
	}
	return pages
}

func appendCapped(dst, src []string, max int) []string {
	for _, s := range src {
		if len(dst) >= max {
			break
		}
		dst = append(dst, s)
	}
	return dst
}

// rank turns raw URLs into scored, de-duplicated same-origin stems.
func rank(base *url.URL, urls []string, g goalTerms, max int) []models.SiteHint {
	seen := make(map[string]struct{}, len(urls))
	hints := make([]models.SiteHint, 0, len(urls))
	for _, raw := range urls {
		u, err := url.Parse(raw)
		if err != nil || !helpers.SameOrigin(base, u) {
			continue
		}
		stem := helpers.PathStem(u.Path)
		if stem == "/" {
			continue
		}
		if _, dup := seen[stem]; dup {
			continue
		}
		seen[stem] = struct{}{}
		if score := scorePath(stem, g); score > 0 {
			hints = append(hints, models.SiteHint{Path: stem, Label: labelFor(stem), Score: score})
		}
	}
	sort.SliceStable(hints, func(i, j int) bool { return hints[i].Score > hints[j].Score })
	if max > 0 && len(hints) > max {
		hints = hints[:max]
	}
	return hints
}
