package config

import (
	"fmt"
	"net/url"
	"sort"
	"strings"
)

// CrawlPolicyConfig configures which origins site-hint discovery may touch.
// Entries match the host itself and any of its subdomains.
type CrawlPolicyConfig struct {
	RespectRobots bool     `mapstructure:"respect_robots" json:"respect_robots"`
	Allow         []string `mapstructure:"allow" json:"allow"`
	Disallow      []string `mapstructure:"disallow" json:"disallow"`
}

// Normalize cleans entries and removes duplicates.
func (c CrawlPolicyConfig) Normalize() CrawlPolicyConfig {
	norm := c
	norm.Allow = sanitizeDomainList(norm.Allow)
	norm.Disallow = sanitizeDomainList(norm.Disallow)
	return norm
}

// Validate ensures configured policy entries do not conflict.
func (c CrawlPolicyConfig) Validate() error {
	norm := c.Normalize()
	allow := make(map[string]struct{}, len(norm.Allow))
	for _, host := range norm.Allow {
		allow[host] = struct{}{}
	}
	for _, host := range norm.Disallow {
		if _, ok := allow[host]; ok {
			return fmt.Errorf("crawl policy conflict: host %q present in both allow and disallow lists", host)
		}
	}
	return nil
}

// Permits reports whether host may be fetched. Disallow wins; a non-empty
// allow list restricts discovery to the listed hosts.
func (c CrawlPolicyConfig) Permits(host string) bool {
	host = normalizeHost(host)
	if host == "" {
		return false
	}
	for _, d := range c.Disallow {
		if hostMatches(host, normalizeHost(d)) {
			return false
		}
	}
	if len(c.Allow) == 0 {
		return true
	}
	for _, a := range c.Allow {
		if hostMatches(host, normalizeHost(a)) {
			return true
		}
	}
	return false
}

func hostMatches(host, rule string) bool {
	if rule == "" {
		return false
	}
	return host == rule || strings.HasSuffix(host, "."+rule)
}

func sanitizeDomainList(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	for _, raw := range values {
		if host := normalizeHost(raw); host != "" {
			seen[host] = struct{}{}
		}
	}
	if len(seen) == 0 {
		return nil
	}
	out := make([]string, 0, len(seen))
	for host := range seen {
		out = append(out, host)
	}
	sort.Strings(out)
	return out
}

func normalizeHost(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return ""
	}
	if strings.HasPrefix(value, "http://") || strings.HasPrefix(value, "https://") {
		if u, err := url.Parse(value); err == nil && u.Host != "" {
			value = u.Hostname()
		}
	} else if h, _, ok := strings.Cut(value, ":"); ok {
		value = h
	}
	return strings.TrimPrefix(value, "www.")
}
