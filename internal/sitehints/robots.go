package sitehints

import (
	"bufio"
	"bytes"
	"strings"
)

type robotsInfo struct {
	sitemaps []string
	// blocksRoot is set when the wildcard group disallows "/".
	blocksRoot bool
}

func parseRobots(body []byte) robotsInfo {
	var (
		info        robotsInfo
		inWildcard  bool
		lastWasRule bool
	)
	sc := bufio.NewScanner(bytes.NewReader(body))
	for sc.Scan() {
		line := sc.Text()
		if i := strings.IndexByte(line, '#'); i >= 0 {
			line = line[:i]
		}
		key, val, ok := strings.Cut(line, ":")
		if !ok {
			continue
		}
		key = strings.ToLower(strings.TrimSpace(key))
		val = strings.TrimSpace(val)

		switch key {
		case "sitemap":
			if val != "" {
				info.sitemaps = append(info.sitemaps, val)
			}
		case "user-agent":
			// consecutive user-agent lines share one group
			if lastWasRule {
				inWildcard = false
			}
			if val == "*" {
				inWildcard = true
			}
			lastWasRule = false
		case "disallow", "allow":
			lastWasRule = true
			if inWildcard && key == "disallow" && val == "/" {
				info.blocksRoot = true
			}
		}
	}
	return info
}
