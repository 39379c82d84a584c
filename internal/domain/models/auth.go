package models

import "github.com/golang-jwt/jwt/v5"

// AccessClaims is the JWT claims shape the API accepts. Only the registered
// claims matter for authorization: the subject becomes the owner scope for
// every row the request reads or writes.
type AccessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email,omitempty"`
}

// Owner returns the owner scope for the authenticated principal.
func (c *AccessClaims) Owner() string {
	return c.Subject
}
