package app

import (
	"net/url"
	"strings"
)

// originAllowlist decides which browser origins may call the API.
// Config lists bare hosts the way the map embeds are deployed: exact
// hosts ("jadegdziechce.pl"), subdomain wildcards ("*.jadegdziechce.pl")
// and any-port hosts for local frontend dev ("localhost:*"). Patterns
// are classified once at startup.
type originAllowlist struct {
	exact       map[string]struct{}
	dotSuffixes []string
	anyPort     []string
}

func newOriginAllowlist(patterns []string) *originAllowlist {
	a := &originAllowlist{exact: make(map[string]struct{}, len(patterns))}
	for _, p := range patterns {
		switch {
		case strings.HasPrefix(p, "*."):
			a.dotSuffixes = append(a.dotSuffixes, p[1:])
		case strings.HasSuffix(p, ":*"):
			a.anyPort = append(a.anyPort, strings.TrimSuffix(p, ":*"))
		default:
			a.exact[p] = struct{}{}
		}
	}
	return a
}

// Allow checks an Origin header value against the allowlist. The
// scheme is ignored; only host[:port] decides.
func (a *originAllowlist) Allow(origin string) bool {
	host := origin
	if u, err := url.Parse(origin); err == nil && u.Host != "" {
		host = u.Host
	}

	if _, ok := a.exact[host]; ok {
		return true
	}
	for _, suffix := range a.dotSuffixes {
		if strings.HasSuffix(host, suffix) {
			return true
		}
	}
	for _, bare := range a.anyPort {
		if strings.HasPrefix(host, bare+":") {
			return true
		}
	}
	return false
}
