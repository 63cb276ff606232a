// cmd/api/context.go
// The authenticated principal is carried through the request context rather
// than any form of global state, so every handler receives it explicitly.
package main

import (
	"context"
	"net/http"

	"github.com/clms-project/clms/internal/data"
)

// contextKey is a private type for request-context keys, so no other package
// can collide with ours.
type contextKey string

const principalContextKey = contextKey("principal")

// principal identifies who is making the request: an admin or a client,
// tagged by type. The zero value means unauthenticated.
type principal struct {
	Type string // data.PrincipalAdmin or data.PrincipalClient
	ID   int64
}

// IsAnonymous reports whether no session was presented.
func (p principal) IsAnonymous() bool {
	return p.Type == ""
}

// IsAdmin reports whether the caller authenticated as staff.
func (p principal) IsAdmin() bool {
	return p.Type == data.PrincipalAdmin
}

// IsClient reports whether the caller authenticated as a library client.
func (p principal) IsClient() bool {
	return p.Type == data.PrincipalClient
}

// contextSetPrincipal returns a copy of the request with the principal
// stored in its context.
func (app *applicationDependencies) contextSetPrincipal(r *http.Request, p principal) *http.Request {
	ctx := context.WithValue(r.Context(), principalContextKey, p)
	return r.WithContext(ctx)
}

// contextGetPrincipal retrieves the principal from the request context.
// The authenticate middleware always stores one, so a missing value is a
// programming error and panics.
func (app *applicationDependencies) contextGetPrincipal(r *http.Request) principal {
	p, ok := r.Context().Value(principalContextKey).(principal)
	if !ok {
		panic("missing principal in request context")
	}
	return p
}
