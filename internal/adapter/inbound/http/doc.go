// Package http provides the localhost web surface of the trackify agent.
//
// The surface exposes the navigable views of the tracking client as
// server-rendered HTML. Every GET is resolved by the RouteGate first; the
// gate decides between rendering, redirecting to an area login, not-found,
// or an unavailable page when the backend cannot be reached.
//
// # Usage
//
//	ui, err := http.NewUIHandler(http.UIDeps{...}, logger)
//	server := http.NewServer(ui,
//	    http.WithAddr("127.0.0.1:5173"),
//	    http.WithRegistry(reg),
//	    http.WithLogger(logger),
//	)
//	err = server.Start(ctx)
//
// # Endpoints
//
//	GET  /                      - Self view: live location of the signed-in user
//	GET  /login                 - Login form (?mode=signup for the signup form)
//	POST /login                 - Ordinary login
//	POST /signup                - Account creation
//	GET  /admin/login           - Administrator login form
//	POST /admin/login           - Administrator login
//	POST /logout                - Logout, redirects to the login of the given area
//	GET  /admin/dashboard       - User directory (?page=n)
//	GET  /admin/view/{userId}   - User inspector (?map=1 opens the map overlay)
//	GET  /health                - JSON health report
//	GET  /metrics               - Prometheus metrics
//
// # Middleware Chain
//
// Requests pass through middleware in this order:
//
//  1. MetricsMiddleware - Records duration and status
//  2. RequestIDMiddleware - Extracts or generates X-Request-ID and enriches the logger
//  3. LocalhostOnly - Rejects non-loopback peers
//  4. DNSRebindingProtection - Host and Origin must name this server
//  5. SecurityHeaders - CSP and related headers
//
// The surface holds a live backend session, so it only ever binds to a
// loopback address by default.
package http
