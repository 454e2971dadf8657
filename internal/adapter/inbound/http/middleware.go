package http

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"net/url"

	"github.com/google/uuid"

	"github.com/trackify-app/trackify/internal/ctxkey"
)

// requestIDContextKey is the type for the request ID context key.
type requestIDContextKey struct{}

// RequestIDKey is the context key for the request ID.
var RequestIDKey = requestIDContextKey{}

// LoggerKey is the context key for the enriched logger.
// Uses shared key type from ctxkey package to allow cross-package access without import cycles.
var LoggerKey = ctxkey.LoggerKey{}

// RequestIDMiddleware extracts or generates a request ID and enriches the logger.
// The request ID is stored in context using RequestIDKey.
// An enriched logger with request_id field is stored using LoggerKey.
func RequestIDMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			requestID := r.Header.Get("X-Request-ID")
			if requestID == "" {
				requestID = uuid.New().String()
			}

			enrichedLogger := logger.With("request_id", requestID)

			ctx := context.WithValue(r.Context(), RequestIDKey, requestID)
			ctx = ctxkey.WithLogger(ctx, enrichedLogger)

			// Set response header for correlation
			w.Header().Set("X-Request-ID", requestID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequestIDFromContext returns the request ID, or "" outside a request.
func RequestIDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(RequestIDKey).(string)
	return id
}

// LoggerFromContext retrieves the enriched logger from context.
// Returns slog.Default() if no logger is in context.
func LoggerFromContext(ctx context.Context) *slog.Logger {
	return ctxkey.Logger(ctx)
}

// DNSRebindingProtection rejects requests whose Host, or Origin when
// present, is not one of allowedOrigins. A rebound name reaches the
// loopback listener with its own Host, so Origin alone is not checked.
func DNSRebindingProtection(allowedOrigins []string) func(http.Handler) http.Handler {
	origins := make(map[string]struct{}, len(allowedOrigins))
	hosts := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = struct{}{}
		if u, err := url.Parse(origin); err == nil && u.Host != "" {
			hosts[u.Host] = struct{}{}
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if _, ok := hosts[r.Host]; !ok {
				http.Error(w, "Forbidden: host not allowed", http.StatusForbidden)
				return
			}
			if origin := r.Header.Get("Origin"); origin != "" {
				if _, ok := origins[origin]; !ok {
					http.Error(w, "Forbidden: origin not allowed", http.StatusForbidden)
					return
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}

// selfOrigins are the origins a browser on this machine uses to reach addr.
// Wildcard and loopback binds answer to every loopback name.
func selfOrigins(addr string) []string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return []string{"http://" + addr}
	}
	switch host {
	case "", "0.0.0.0", "::", "127.0.0.1", "::1", "localhost":
		return []string{
			"http://" + net.JoinHostPort("127.0.0.1", port),
			"http://" + net.JoinHostPort("localhost", port),
			"http://" + net.JoinHostPort("::1", port),
		}
	}
	return []string{"http://" + addr}
}

// LocalhostOnly rejects requests from non-loopback peers. Remote access
// goes through an SSH tunnel.
func LocalhostOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if isLocalhost(r) {
			next.ServeHTTP(w, r)
			return
		}
		http.Error(w, "trackify requires localhost access. Use: ssh -L 5173:localhost:5173 yourhost", http.StatusForbidden)
	})
}

func isLocalhost(r *http.Request) bool {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// SecurityHeaders sets Content Security Policy and related headers.
// mapOrigin is the only origin allowed to be framed (the map widget).
func SecurityHeaders(mapOrigin string) func(http.Handler) http.Handler {
	frameSrc := "'none'"
	if mapOrigin != "" {
		frameSrc = mapOrigin
	}
	csp := "default-src 'self'; style-src 'self' 'unsafe-inline'; img-src 'self' data:; " +
		"frame-src " + frameSrc + "; frame-ancestors 'none'; form-action 'self'"

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy", csp)
			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
			w.Header().Set("Cache-Control", "no-store")

			next.ServeHTTP(w, r)
		})
	}
}
