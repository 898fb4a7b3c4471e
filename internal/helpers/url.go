package helpers

import (
	"errors"
	"net"
	"net/url"
	"path"
	"strings"
)

// ErrInvalidOrigin marks an origin that is not an absolute http(s) URL.
var ErrInvalidOrigin = errors.New("invalid origin")

// CanonicalOrigin parses raw and returns scheme://host[:port] with the scheme
// and host lowercased and default ports removed. Paths, queries and fragments
// are discarded. Only http and https are accepted.
func CanonicalOrigin(raw string) (*url.URL, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrInvalidOrigin
	}
	parsed, err := url.Parse(raw)
	if err != nil {
		return nil, ErrInvalidOrigin
	}
	scheme := strings.ToLower(parsed.Scheme)
	if scheme != "http" && scheme != "https" {
		return nil, ErrInvalidOrigin
	}
	host := strings.ToLower(parsed.Hostname())
	if host == "" {
		return nil, ErrInvalidOrigin
	}
	port := parsed.Port()
	if (scheme == "http" && port == "80") || (scheme == "https" && port == "443") {
		port = ""
	}
	if port != "" {
		host = net.JoinHostPort(host, port)
	} else if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	return &url.URL{Scheme: scheme, Host: host}, nil
}

// SameOrigin reports whether u resolves to origin's scheme and host.
func SameOrigin(origin, u *url.URL) bool {
	if origin == nil || u == nil {
		return false
	}
	other, err := CanonicalOrigin(u.Scheme + "://" + u.Host)
	if err != nil {
		return false
	}
	return other.String() == origin.String()
}

// PathStem returns the cleaned, lowercased path of u without a trailing slash.
// The root path yields "/".
func PathStem(p string) string {
	p = strings.ToLower(strings.TrimSpace(p))
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	p = path.Clean(p)
	if p == "." {
		return "/"
	}
	return p
}

// PathSegments splits a stem into its non-empty segments.
func PathSegments(stem string) []string {
	parts := strings.Split(strings.Trim(stem, "/"), "/")
	out := parts[:0]
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
