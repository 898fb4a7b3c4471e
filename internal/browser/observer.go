// Package browser drives a headless Chrome to snapshot interactable elements
// from a live page and to confirm they are still attached later on.
package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/chromedp/chromedp"

	"github.com/AcceptableTrouble/button-buddy/config"
	"github.com/AcceptableTrouble/button-buddy/models"
)

const (
	defaultUserAgent = "ButtonBuddy/1.0 (+https://github.com/AcceptableTrouble/button-buddy)"
	// MaxCandidates bounds how many elements one snapshot returns.
	MaxCandidates = 500
	maxTextLen    = 200
)

// ErrInvalidURL is returned for blank or non-http page URLs.
var ErrInvalidURL = errors.New("invalid url")

// Observer opens pages in a fresh browser per call.
type Observer struct {
	cfg       config.BrowserConfig
	userAgent string
	logger    *log.Logger
}

type Option func(*Observer)

func WithUserAgent(ua string) Option {
	return func(o *Observer) {
		if ua != "" {
			o.userAgent = ua
		}
	}
}

func WithLogger(l *log.Logger) Option {
	return func(o *Observer) {
		if l != nil {
			o.logger = l
		}
	}
}

func New(cfg config.BrowserConfig, opts ...Option) *Observer {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	o := &Observer{
		cfg:       cfg,
		userAgent: defaultUserAgent,
		logger:    log.New(log.Writer(), "[BROWSER] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Page is an open tab with its candidate snapshot. It implements
// reconcile.LivePage. Close must be called to release the browser.
type Page struct {
	URL        string
	Title      string
	Candidates []models.Candidate

	ctx    context.Context
	paths  map[string]string
	cancel func()
}

// Open navigates to url, waits for the body and snapshots candidates.
func (o *Observer) Open(ctx context.Context, url string) (*Page, error) {
	url = strings.TrimSpace(url)
	if url == "" || !(strings.HasPrefix(url, "http://") || strings.HasPrefix(url, "https://")) {
		return nil, ErrInvalidURL
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", o.cfg.Headless),
		chromedp.UserAgent(o.userAgent),
	)
	if o.cfg.ExecPath != "" {
		opts = append(opts, chromedp.ExecPath(o.cfg.ExecPath))
	}
	if os.Geteuid() == 0 {
		// Chrome refuses to start as root with the sandbox on.
		opts = append(opts, chromedp.NoSandbox)
	}
	// The allocator outlives ctx so the page stays usable for live checks.
	actx, cancelAlloc := chromedp.NewExecAllocator(context.WithoutCancel(ctx), opts...)
	bctx, cancelBrowser := chromedp.NewContext(actx)
	page := &Page{URL: url, ctx: bctx}
	page.cancel = func() {
		cancelBrowser()
		cancelAlloc()
	}

	runCtx, cancelRun := context.WithTimeout(bctx, o.cfg.Timeout)
	defer cancelRun()
	stop := context.AfterFunc(ctx, cancelRun)
	defer stop()

	t0 := time.Now()
	var raw []models.Candidate
	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Title(&page.Title),
		chromedp.Evaluate(snapshotScript, &raw),
	)
	if err != nil {
		page.Close()
		return nil, fmt.Errorf("observe %s: %w", url, err)
	}
	page.Candidates, page.paths = normalizeSnapshot(raw, MaxCandidates)
	o.logger.Printf("observed %s: %d candidates in %s", url, len(page.Candidates), time.Since(t0).Round(time.Millisecond))
	return page, nil
}

// Resolves reports whether the element captured as id is still attached.
func (p *Page) Resolves(ctx context.Context, id string) bool {
	path, ok := p.paths[id]
	if !ok || p.ctx == nil {
		return false
	}
	rctx, cancel := context.WithCancel(p.ctx)
	defer cancel()
	if d, ok := ctx.Deadline(); ok {
		rctx, cancel = context.WithDeadline(rctx, d)
		defer cancel()
	}
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	var found bool
	if err := chromedp.Run(rctx, chromedp.Evaluate(resolveScript(path), &found)); err != nil {
		return false
	}
	return found
}

// Close shuts the tab and the browser process.
func (p *Page) Close() {
	if p.cancel != nil {
		p.cancel()
		p.cancel = nil
	}
}

// normalizeSnapshot trims text, drops rows without an id or path, keeps the
// first row per id and caps the list.
func normalizeSnapshot(raw []models.Candidate, limit int) ([]models.Candidate, map[string]string) {
	out := make([]models.Candidate, 0, len(raw))
	paths := make(map[string]string, len(raw))
	for _, c := range raw {
		if len(out) >= limit {
			break
		}
		c.ID = strings.TrimSpace(c.ID)
		c.DOMPath = strings.TrimSpace(c.DOMPath)
		if c.ID == "" || c.DOMPath == "" {
			continue
		}
		if _, dup := paths[c.ID]; dup {
			continue
		}
		c.Text = models.Truncate(collapse(c.Text), maxTextLen)
		c.AccessibleName = models.Truncate(collapse(c.AccessibleName), maxTextLen)
		c.AncestorText = models.Truncate(collapse(c.AncestorText), maxTextLen)
		c.Tag = strings.ToLower(c.Tag)
		paths[c.ID] = c.DOMPath
		out = append(out, c)
	}
	return out, paths
}

func collapse(s string) string { return strings.Join(strings.Fields(s), " ") }

func resolveScript(path string) string {
	quoted, _ := json.Marshal(path)
	return fmt.Sprintf(`(() => { try { const el = document.querySelector(%s); return !!(el && el.isConnected); } catch (e) { return false; } })()`, quoted)
}

const snapshotScript = `(() => {
  const sel = 'a[href],button,input,select,textarea,summary,[role=button],[role=link],[role=menuitem],[role=tab],[role=checkbox],[role=switch],[onclick]';
  const pathOf = (el) => {
    const parts = [];
    for (let n = el; n && n.nodeType === 1 && n !== document.documentElement; n = n.parentElement) {
      let i = 1;
      for (let s = n.previousElementSibling; s; s = s.previousElementSibling) {
        if (s.tagName === n.tagName) i++;
      }
      parts.unshift(n.tagName.toLowerCase() + ':nth-of-type(' + i + ')');
    }
    return 'html > ' + parts.join(' > ');
  };
  const labelsOf = (el) => el.labels ? Array.from(el.labels).map(l => l.innerText || '') : [];
  const ancestorOf = (el) => {
    const box = el.closest('form,nav,section,header,footer,aside,main,[role=dialog]');
    if (!box) return '';
    const h = box.querySelector('h1,h2,h3,h4,legend,[aria-label]');
    return h ? (h.innerText || h.getAttribute('aria-label') || '') : (box.getAttribute('aria-label') || '');
  };
  const out = [];
  document.querySelectorAll(sel).forEach((el, i) => {
    const r = el.getBoundingClientRect();
    const st = getComputedStyle(el);
    const visible = r.width > 0 && r.height > 0 && st.visibility !== 'hidden' && st.display !== 'none';
    out.push({
      id: 'bb-' + i,
      tag: el.tagName.toLowerCase(),
      role: el.getAttribute('role') || '',
      type: el.getAttribute('type') || '',
      text: (el.innerText || el.value || '').slice(0, 400),
      accessibleName: el.getAttribute('aria-label') || el.getAttribute('title') || el.getAttribute('alt') || '',
      ariaLabel: el.getAttribute('aria-label') || '',
      labels: labelsOf(el),
      ancestorText: ancestorOf(el).slice(0, 400),
      domPath: pathOf(el),
      rect: {x: r.x, y: r.y, w: r.width, h: r.height},
      visible: visible,
      clickable: !el.disabled && st.pointerEvents !== 'none',
      disabled: !!el.disabled || el.getAttribute('aria-disabled') === 'true',
      locale: document.documentElement.lang || ''
    });
  });
  return out;
})()`
