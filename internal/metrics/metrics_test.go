package metrics

import (
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountersRecord(t *testing.T) {
	m := New()
	m.RankVerdict("llm")
	m.RankVerdict("llm")
	m.RankCache(true)
	m.RankCache(false)
	m.Resolve("accepted")
	m.SiteHints("sitemap")
	m.OracleLatency(1500 * time.Millisecond)

	body := scrape(t, m)
	assert.Contains(t, body, `buddy_rank_total{provenance="llm"} 2`)
	assert.Contains(t, body, `buddy_rank_cache_total{result="hit"} 1`)
	assert.Contains(t, body, `buddy_rank_cache_total{result="miss"} 1`)
	assert.Contains(t, body, `buddy_resolve_total{outcome="accepted"} 1`)
	assert.Contains(t, body, `buddy_sitehints_total{source="sitemap"} 1`)
	assert.Contains(t, body, `buddy_oracle_latency_seconds_count 1`)
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RankVerdict("local")
		m.RankCache(true)
		m.Resolve("no_match")
		m.SiteHints("none")
		m.OracleLatency(time.Second)
	})
}

func TestHandlerExposesBuddyMetrics(t *testing.T) {
	m := New()
	m.Resolve("alternate")

	body := scrape(t, m)
	assert.Contains(t, body, `buddy_resolve_total{outcome="alternate"} 1`)
	assert.Contains(t, body, "buddy_oracle_latency_seconds_bucket")
	assert.Contains(t, body, "go_goroutines")
}

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	return string(body)
}
