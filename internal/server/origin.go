package server

import (
	"net/url"
	"strings"
)

// OriginPolicy is the browser origin allowlist. Preview deployments match on a host suffix,
// optionally narrowed to hosts containing Marker.
type OriginPolicy struct {
	Allowed       []string
	PreviewSuffix string
	PreviewMarker string
}

// OriginAllowed reports whether a request from origin may proceed. Requests without an
// Origin header are not browser cross-origin calls and are allowed.
func OriginAllowed(origin string, p OriginPolicy) bool {
	origin = strings.TrimRight(strings.TrimSpace(origin), "/")
	if origin == "" {
		return true
	}
	for _, a := range p.Allowed {
		a = strings.TrimRight(strings.TrimSpace(a), "/")
		if a == "*" || strings.EqualFold(a, origin) {
			return true
		}
	}
	if p.PreviewSuffix == "" {
		return false
	}
	u, err := url.Parse(origin)
	if err != nil || u.Scheme != "https" {
		return false
	}
	host := strings.ToLower(u.Hostname())
	suffix := "." + strings.TrimPrefix(strings.ToLower(p.PreviewSuffix), ".")
	if !strings.HasSuffix(host, suffix) {
		return false
	}
	return p.PreviewMarker == "" || strings.Contains(strings.TrimSuffix(host, suffix), strings.ToLower(p.PreviewMarker))
}
