// Package middleware provides HTTP middleware shared by the signalling
// server.
package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

type contextKey string

const realIPKey contextKey = "real_ip"

// RealIP resolves the client's address from forwarding headers and stores it
// in the request context. Priority: CF-Connecting-IP, X-Real-IP, the first
// X-Forwarded-For element, then the socket peer address. The result is used
// only for logging.
func RealIP(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := context.WithValue(r.Context(), realIPKey, resolveIP(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RealIPFromContext retrieves the resolved address, or "" when the middleware
// did not run.
func RealIPFromContext(ctx context.Context) string {
	ip, _ := ctx.Value(realIPKey).(string)
	return ip
}

func resolveIP(r *http.Request) string {
	if ip := parseIPHeader(r.Header.Get("CF-Connecting-IP")); ip != "" {
		return ip
	}
	if ip := parseIPHeader(r.Header.Get("X-Real-IP")); ip != "" {
		return ip
	}
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := parseIPHeader(first); ip != "" {
			return ip
		}
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// parseIPHeader returns the trimmed value when it is a valid IP, else "".
func parseIPHeader(value string) string {
	value = strings.TrimSpace(value)
	if value == "" || net.ParseIP(value) == nil {
		return ""
	}
	return value
}
