// cmd/api/middleware.go
// This file contains HTTP middleware used to wrap the router.
// Middleware functions intercept every request before it reaches a handler.
package main

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/clms-project/clms/internal/data"
)

// recoverPanic catches any runtime panic that occurs in a downstream handler.
// Without this, a panic would cause the goroutine to terminate and the client's
// connection to be dropped silently. With this middleware the client receives a
// clean 500 Internal Server Error instead.
func (app *applicationDependencies) recoverPanic(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if err := recover(); err != nil {
				// Tell the HTTP server to close the connection after this response.
				w.Header().Set("Connection", "close")
				app.serverErrorResponse(w, r, fmt.Errorf("%s", err))
			}
		}()
		next.ServeHTTP(w, r)
	})
}

// rateClient holds a per-IP rate limiter and the time it was last seen.
// lastSeen lets us evict old entries so the map does not grow forever.
type rateClient struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// rateLimit implements per-IP token-bucket rate limiting using the
// golang.org/x/time/rate package. Each unique IP gets its own limiter seeded
// from the limiter config flags. A background goroutine cleans up entries
// that have not been seen in 3 minutes.
func (app *applicationDependencies) rateLimit(next http.Handler) http.Handler {
	var (
		mu      sync.Mutex
		clients = make(map[string]*rateClient)
	)

	// Cleanup goroutine: remove stale IP entries every minute.
	go func() {
		for {
			time.Sleep(time.Minute)
			mu.Lock()
			for ip, c := range clients {
				if time.Since(c.lastSeen) > 3*time.Minute {
					delete(clients, ip)
				}
			}
			mu.Unlock()
		}
	}()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !app.config.limiter.enabled {
			next.ServeHTTP(w, r)
			return
		}

		// Extract just the IP from the RemoteAddr (strips the port).
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			app.serverErrorResponse(w, r, err)
			return
		}

		mu.Lock()
		if _, found := clients[ip]; !found {
			clients[ip] = &rateClient{
				limiter: rate.NewLimiter(rate.Limit(app.config.limiter.rps), app.config.limiter.burst),
			}
		}
		clients[ip].lastSeen = time.Now()

		// Allow() consumes one token; returns false if the bucket is empty.
		if !clients[ip].limiter.Allow() {
			mu.Unlock()
			app.rateLimitExceededResponse(w, r)
			return
		}
		mu.Unlock()

		next.ServeHTTP(w, r)
	})
}

// authenticate resolves the session cookie, if any, to a principal and
// stores it in the request context. Requests without a cookie, or with an
// expired or unknown token, proceed as anonymous; the require* middlewares
// below decide whether that is acceptable for a given route.
func (app *applicationDependencies) authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		cookie, err := r.Cookie(sessionCookieName)
		if err != nil {
			next.ServeHTTP(w, app.contextSetPrincipal(r, principal{}))
			return
		}

		session, err := app.models.Sessions.Get(cookie.Value)
		if err != nil {
			switch {
			case errors.Is(err, data.ErrRecordNotFound):
				next.ServeHTTP(w, app.contextSetPrincipal(r, principal{}))
			default:
				app.serverErrorResponse(w, r, err)
			}
			return
		}

		p := principal{Type: session.PrincipalType, ID: session.PrincipalID}
		next.ServeHTTP(w, app.contextSetPrincipal(r, p))
	})
}

// requireAdmin guards a route group: only an authenticated admin principal
// may pass. Anonymous callers get 401, authenticated clients get 403.
func (app *applicationDependencies) requireAdmin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := app.contextGetPrincipal(r)
		switch {
		case p.IsAnonymous():
			app.authenticationRequiredResponse(w, r)
		case !p.IsAdmin():
			app.notPermittedResponse(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	}
}

// requireClient guards a route group: only an authenticated client principal
// may pass. Anonymous callers get 401, admins get 403.
func (app *applicationDependencies) requireClient(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		p := app.contextGetPrincipal(r)
		switch {
		case p.IsAnonymous():
			app.authenticationRequiredResponse(w, r)
		case !p.IsClient():
			app.notPermittedResponse(w, r)
		default:
			next.ServeHTTP(w, r)
		}
	}
}
