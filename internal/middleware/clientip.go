package middleware

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"strings"
)

type clientIPKey struct{}

// ProxyTrust lists the reverse proxies whose forwarding headers are
// believed. A nil or empty ProxyTrust believes nobody.
type ProxyTrust struct {
	nets []*net.IPNet
}

// NewProxyTrust accepts IPs and CIDRs. Invalid entries are logged and
// skipped; config validation rejects them first.
func NewProxyTrust(entries []string) *ProxyTrust {
	trust := &ProxyTrust{}
	for _, entry := range entries {
		network, err := ParseProxyEntry(entry)
		if err != nil {
			slog.Warn("ignoring trusted proxy", "entry", entry, "error", err)
			continue
		}
		trust.nets = append(trust.nets, network)
	}
	return trust
}

// ParseProxyEntry turns "10.0.0.1" or "10.0.0.0/8" into a network.
func ParseProxyEntry(entry string) (*net.IPNet, error) {
	entry = strings.TrimSpace(entry)
	if !strings.Contains(entry, "/") {
		ip := net.ParseIP(entry)
		if ip == nil {
			return nil, &net.ParseError{Type: "IP address", Text: entry}
		}
		bits := 8 * net.IPv6len
		if ip4 := ip.To4(); ip4 != nil {
			ip, bits = ip4, 8*net.IPv4len
		}
		return &net.IPNet{IP: ip, Mask: net.CIDRMask(bits, bits)}, nil
	}
	_, network, err := net.ParseCIDR(entry)
	return network, err
}

func (p *ProxyTrust) trusts(raw string) bool {
	if p == nil {
		return false
	}
	ip := net.ParseIP(strings.TrimSpace(raw))
	if ip == nil {
		return false
	}
	for _, network := range p.nets {
		if network.Contains(ip) {
			return true
		}
	}
	return false
}

// resolve walks X-Forwarded-For from the nearest hop and returns the first
// address that is not a trusted proxy. Headers from untrusted peers are
// ignored.
func (p *ProxyTrust) resolve(r *http.Request) string {
	peer := remoteHost(r)
	if !p.trusts(peer) {
		return peer
	}

	if forwarded := r.Header.Get("X-Forwarded-For"); forwarded != "" {
		hops := strings.Split(forwarded, ",")
		for i := len(hops) - 1; i >= 0; i-- {
			hop := strings.TrimSpace(hops[i])
			if hop == "" {
				continue
			}
			if !p.trusts(hop) {
				return hop
			}
			peer = hop
		}
		return peer
	}

	if realIP := strings.TrimSpace(r.Header.Get("X-Real-IP")); realIP != "" {
		return realIP
	}
	return peer
}

// RealIP resolves the caller address once per request for the rate
// limiter, the request log and audit entries.
func RealIP(trust *ProxyTrust) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := context.WithValue(r.Context(), clientIPKey{}, trust.resolve(r))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ClientIP returns the address resolved by RealIP, or the TCP peer when the
// request did not pass through it.
func ClientIP(r *http.Request) string {
	if ip, ok := r.Context().Value(clientIPKey{}).(string); ok && ip != "" {
		return ip
	}
	return remoteHost(r)
}

func remoteHost(r *http.Request) string {
	addr := strings.TrimSpace(r.RemoteAddr)
	if addr == "" {
		return "unknown"
	}
	if host, _, err := net.SplitHostPort(addr); err == nil && host != "" {
		return host
	}
	return addr
}
