// TarkovTracker - Game Progress Sync and Tarkov Data Edge Service
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/tarkovtracker

package edgecache

import (
	"net"
	"net/http"
	"net/url"
	"strings"
)

// DefaultHost names the cache namespace when no request host is known.
const DefaultHost = "tarkovtracker.org"

// HostResolver picks the host component of cache lookup URLs.
type HostResolver struct {
	appHost     string
	defaultHost string
	forwarded   map[string]struct{}
}

// NewHostResolver builds a resolver from the configured application URL.
// A loopback application host is ignored so that local deployments fall
// through to the request Host. X-Forwarded-Host is honored only for hosts
// listed in forwardedHosts.
func NewHostResolver(appURL, defaultHost string, forwardedHosts []string) HostResolver {
	if defaultHost == "" {
		defaultHost = DefaultHost
	}
	r := HostResolver{defaultHost: defaultHost}
	for _, h := range forwardedHosts {
		if h = normalizeHost(h); h != "" {
			if r.forwarded == nil {
				r.forwarded = make(map[string]struct{}, len(forwardedHosts))
			}
			r.forwarded[h] = struct{}{}
		}
	}
	if appURL == "" {
		return r
	}
	if u, err := url.Parse(appURL); err == nil && u.Host != "" && !IsLoopbackHost(u.Host) {
		r.appHost = u.Host
	}
	return r
}

// Host returns, in order of preference: the first X-Forwarded-Host entry
// when it is an allowed forwarded host, the non-loopback app host, the
// request Host, then the default host.
func (h HostResolver) Host(r *http.Request) string {
	if r != nil {
		if fwd := firstHeaderValue(r.Header.Get("X-Forwarded-Host")); fwd != "" && h.allowsForwarded(fwd) {
			return fwd
		}
	}
	if h.appHost != "" {
		return h.appHost
	}
	if r != nil && r.Host != "" {
		return r.Host
	}
	return h.defaultHost
}

func (h HostResolver) allowsForwarded(host string) bool {
	_, ok := h.forwarded[normalizeHost(host)]
	return ok
}

func normalizeHost(host string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	return strings.Trim(host, "[]")
}

// Proto returns the first X-Forwarded-Proto entry, or https.
func Proto(r *http.Request) string {
	if r != nil {
		if p := strings.ToLower(firstHeaderValue(r.Header.Get("X-Forwarded-Proto"))); p == "http" || p == "https" {
			return p
		}
	}
	return "https"
}

// LookupKey builds the synthetic URL an entry is stored under.
func (h HostResolver) LookupKey(r *http.Request, prefix, key string) string {
	prefix = strings.Trim(prefix, "/")
	key = strings.TrimLeft(key, "/")

	var b strings.Builder
	b.WriteString(Proto(r))
	b.WriteString("://")
	b.WriteString(h.Host(r))
	b.WriteByte('/')
	if prefix != "" {
		b.WriteString(prefix)
		b.WriteByte('/')
	}
	b.WriteString(key)
	return b.String()
}

// IsLoopbackHost reports whether host (optionally with port) is localhost,
// in 127.0.0.0/8 or ::1.
func IsLoopbackHost(host string) bool {
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.Trim(host, "[]")
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func firstHeaderValue(v string) string {
	if i := strings.IndexByte(v, ','); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}
