package helpers

import (
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"sync/atomic"
)

var trustedProxies atomic.Pointer[[]netip.Prefix]

// ParseTrustedProxies acepta IPs sueltas o CIDRs.
func ParseTrustedProxies(list []string) ([]netip.Prefix, error) {
	out := make([]netip.Prefix, 0, len(list))
	for _, s := range list {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if strings.Contains(s, "/") {
			p, err := netip.ParsePrefix(s)
			if err != nil {
				return nil, fmt.Errorf("trusted proxy %q: %w", s, err)
			}
			out = append(out, p.Masked())
			continue
		}
		a, err := netip.ParseAddr(s)
		if err != nil {
			return nil, fmt.Errorf("trusted proxy %q: %w", s, err)
		}
		a = a.Unmap()
		out = append(out, netip.PrefixFrom(a, a.BitLen()))
	}
	return out, nil
}

// SetTrustedProxies define desde qué peers se aceptan X-Forwarded-For y
// X-Real-IP. Vacío: los headers se ignoran.
func SetTrustedProxies(p []netip.Prefix) {
	cp := append([]netip.Prefix(nil), p...)
	trustedProxies.Store(&cp)
}

func isTrusted(a netip.Addr) bool {
	ps := trustedProxies.Load()
	if ps == nil || !a.IsValid() {
		return false
	}
	a = a.Unmap()
	for _, p := range *ps {
		if p.Contains(a) {
			return true
		}
	}
	return false
}

func parseIP(s string) netip.Addr {
	a, err := netip.ParseAddr(strings.TrimSpace(s))
	if err != nil {
		return netip.Addr{}
	}
	return a.Unmap()
}

// ClientIP extrae la IP del cliente. Los headers de proxy solo cuentan si el
// peer directo es un proxy confiable; X-Forwarded-For se recorre de derecha a
// izquierda saltando proxies confiables.
func ClientIP(r *http.Request) string {
	peer := r.RemoteAddr
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		peer = host
	}
	if !isTrusted(parseIP(peer)) {
		return peer
	}

	var hops []string
	for _, v := range r.Header.Values("X-Forwarded-For") {
		hops = append(hops, strings.Split(v, ",")...)
	}
	if len(hops) > 0 {
		for i := len(hops) - 1; i >= 0; i-- {
			a := parseIP(hops[i])
			if !a.IsValid() {
				return peer
			}
			if !isTrusted(a) || i == 0 {
				return a.String()
			}
		}
	}
	if a := parseIP(r.Header.Get("X-Real-IP")); a.IsValid() {
		return a.String()
	}
	return peer
}

// BearerToken devuelve el token de "Authorization: Bearer <token>" o "".
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(h) < 7 || !strings.EqualFold(h[:7], "bearer ") {
		return ""
	}
	return strings.TrimSpace(h[7:])
}
