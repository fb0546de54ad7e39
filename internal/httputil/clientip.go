// Package httputil holds small helpers shared by the HTTP handlers and
// middleware.
package httputil

import (
	"net"
	"net/http"
	"strings"
)

// ClientIP returns the address a request came from, for request logs.
// With trustProxy set, the leftmost X-Forwarded-For entry and then X-Real-IP
// are used when they hold a parseable IP. Only set trustProxy behind a
// reverse proxy that overwrites those headers.
func ClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		first, _, _ := strings.Cut(r.Header.Get("X-Forwarded-For"), ",")
		if ip := parseIP(first); ip != "" {
			return ip
		}
		if ip := parseIP(r.Header.Get("X-Real-IP")); ip != "" {
			return ip
		}
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseIP accepts a bare IP or host:port and returns the canonical IP, or ""
// when s is not an address.
func parseIP(s string) string {
	s = strings.TrimSpace(s)
	if host, _, err := net.SplitHostPort(s); err == nil {
		s = host
	}
	ip := net.ParseIP(s)
	if ip == nil {
		return ""
	}
	return ip.String()
}
