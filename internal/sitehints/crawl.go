package sitehints

import (
	"bytes"
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"

	"github.com/AcceptableTrouble/button-buddy/internal/helpers"
)

// navLinks returns hrefs of anchors nested in nav, header, footer or any
// role="navigation" element, resolved against base, in document order.
// Links leaving base's origin (including mailto: and javascript:) are skipped
// and do not count toward limit.
func navLinks(body []byte, base *url.URL, limit int) ([]string, error) {
	doc, err := html.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	var out []string
	var walk func(n *html.Node, inNav bool)
	walk = func(n *html.Node, inNav bool) {
		if len(out) >= limit {
			return
		}
		if n.Type == html.ElementNode {
			switch n.DataAtom {
			case atom.Script, atom.Style, atom.Noscript, atom.Template:
				return
			case atom.Nav, atom.Header, atom.Footer:
				inNav = true
			}
			if strings.EqualFold(attr(n, "role"), "navigation") {
				inNav = true
			}
			if inNav && n.DataAtom == atom.A {
				if href := strings.TrimSpace(attr(n, "href")); href != "" {
					if ref, err := url.Parse(href); err == nil {
						if abs := base.ResolveReference(ref); helpers.SameOrigin(base, abs) {
							out = append(out, abs.String())
						}
					}
				}
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c, inNav)
		}
	}
	walk(doc, false)
	return out, nil
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
