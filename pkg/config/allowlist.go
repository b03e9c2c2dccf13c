package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gobwas/glob"
)

// OriginAllowlist decides which origins the browser may navigate to.
// Patterns are globs matched against "scheme://host[:port]" and against
// the bare host, so both "https://*.example.com" and "localhost:*" work.
// An empty allowlist allows everything.
type OriginAllowlist struct {
	patterns []glob.Glob
	raw      []string
}

// NewOriginAllowlist compiles patterns.
func NewOriginAllowlist(patterns []string) (*OriginAllowlist, error) {
	a := &OriginAllowlist{}
	for _, p := range patterns {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		g, err := glob.Compile(strings.ToLower(p))
		if err != nil {
			return nil, fmt.Errorf("invalid origin pattern '%s': %w", p, err)
		}
		a.patterns = append(a.patterns, g)
		a.raw = append(a.raw, p)
	}
	return a, nil
}

// Patterns returns the configured patterns.
func (a *OriginAllowlist) Patterns() []string {
	return append([]string(nil), a.raw...)
}

// Allowed reports whether rawURL may be opened. rawURL must be absolute.
func (a *OriginAllowlist) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	scheme := strings.ToLower(u.Scheme)
	switch scheme {
	case "about", "data":
		return true
	case "":
		return false
	}
	if len(a.patterns) == 0 {
		return true
	}

	host := strings.ToLower(u.Host)
	origin := scheme + "://" + host
	for _, g := range a.patterns {
		if g.Match(origin) || g.Match(host) {
			return true
		}
	}
	return false
}

// Origin returns "scheme://host[:port]" for rawURL.
func Origin(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" {
		return rawURL
	}
	if u.Host == "" {
		return u.Scheme + ":"
	}
	return strings.ToLower(u.Scheme) + "://" + strings.ToLower(u.Host)
}
