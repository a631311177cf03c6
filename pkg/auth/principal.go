// Package auth resolves the caller of a request into a Principal.
package auth

import (
	"context"
	"errors"
	"slices"
)

var (
	ErrMissingToken = errors.New("missing credentials")
	ErrInvalidToken = errors.New("invalid credentials")
)

// Principal is the authenticated caller. Email is the directory identity.
type Principal struct {
	Email   string
	Subject string
	Roles   []string
}

// HasRole reports whether the identity provider granted role to the principal.
func (p Principal) HasRole(role string) bool {
	return slices.Contains(p.Roles, role)
}

// PrincipalResolver turns a raw credential into a Principal.
type PrincipalResolver interface {
	Resolve(ctx context.Context, token string) (Principal, error)
}
