package httputil

import (
	"context"
	"net/http"
)

// Context key type to avoid collisions
type contextKey string

const (
	ownerKey contextKey = "owner"
)

// WithOwner adds the authenticated owner to the request context
func WithOwner(r *http.Request, owner string) *http.Request {
	ctx := context.WithValue(r.Context(), ownerKey, owner)
	return r.WithContext(ctx)
}

// GetOwner retrieves the owner from the request context. Nil means the
// request is anonymous: either no verifier is configured or the route is
// open, and rows are read and written in the shared scope.
func GetOwner(r *http.Request) *string {
	owner, ok := r.Context().Value(ownerKey).(string)
	if !ok {
		return nil
	}
	return &owner
}
