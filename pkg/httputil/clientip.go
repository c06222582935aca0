package httputil

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"strings"
)

type clientIPKey struct{}

// TrustedProxies is the set of peers whose X-Forwarded-For header is
// believed. A nil or empty set trusts nobody and every request resolves to
// its RemoteAddr.
type TrustedProxies struct {
	nets []*net.IPNet
}

// ParseTrustedProxies parses CIDRs or bare IPs, e.g. "10.0.0.0/8" or
// "192.0.2.1"
func ParseTrustedProxies(entries []string) (*TrustedProxies, error) {
	p := &TrustedProxies{}
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" {
			continue
		}
		if !strings.Contains(entry, "/") {
			ip := net.ParseIP(entry)
			if ip == nil {
				return nil, fmt.Errorf("invalid trusted proxy %q", entry)
			}
			bits := 32
			if ip.To4() == nil {
				bits = 128
			}
			entry = fmt.Sprintf("%s/%d", ip.String(), bits)
		}
		_, ipNet, err := net.ParseCIDR(entry)
		if err != nil {
			return nil, fmt.Errorf("invalid trusted proxy %q: %w", entry, err)
		}
		p.nets = append(p.nets, ipNet)
	}
	return p, nil
}

// Trusts reports whether ip belongs to a trusted proxy
func (p *TrustedProxies) Trusts(ip string) bool {
	if p == nil {
		return false
	}
	parsed := net.ParseIP(ip)
	if parsed == nil {
		return false
	}
	for _, n := range p.nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}

// Resolve returns the address of the client that sent r. X-Forwarded-For is
// only consulted when the direct peer is trusted, and is then walked from
// the right, skipping trusted hops, so a client cannot choose its own
// address by prepending entries.
func (p *TrustedProxies) Resolve(r *http.Request) string {
	peer := remoteHost(r)
	if !p.Trusts(peer) {
		return peer
	}

	var hops []string
	for _, value := range r.Header.Values("X-Forwarded-For") {
		for _, hop := range strings.Split(value, ",") {
			if hop = strings.TrimSpace(hop); hop != "" {
				hops = append(hops, hop)
			}
		}
	}
	for i := len(hops) - 1; i >= 0; i-- {
		if net.ParseIP(hops[i]) == nil {
			// garbage in the chain; stop at the last address we can vouch for
			return peer
		}
		if !p.Trusts(hops[i]) {
			return hops[i]
		}
		peer = hops[i]
	}
	return peer
}

// ClientIPMiddleware resolves the client address once per request so logs,
// audit events and the login throttle agree on it
func ClientIPMiddleware(proxies *TrustedProxies) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey{}, proxies.Resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the address resolved by ClientIPMiddleware, or the
// RemoteAddr host when the middleware did not run. Headers set by the
// client are never read here.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
