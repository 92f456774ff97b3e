// Package authz resolves a request's principal (user or application) and
// answers the authorization predicates that gate calendar mutations. The
// god bit and application identity bypass the predicates; debug mode can
// synthesize a test principal.
package authz

import (
	"context"

	"github.com/google/uuid"
)

// Principal is the resolved identity of one request. Exactly one of
// User / Application is set.
type Principal struct {
	UserID   uuid.UUID
	UserName string
	God      bool

	Application string // non-empty iff the request is application-authenticated
}

// IsApplication reports whether the request was HMAC app-authenticated.
func (p *Principal) IsApplication() bool { return p.Application != "" }

type principalKey struct{}

// WithPrincipal stores the resolved principal in the request context.
func WithPrincipal(ctx context.Context, p *Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFromContext extracts the principal, if any, from the context.
func PrincipalFromContext(ctx context.Context) (*Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*Principal)
	return p, ok && p != nil
}

// OwnerName returns the audit-log owner string for the principal: the
// user name, or the application name for app-authenticated requests.
func (p *Principal) OwnerName() string {
	if p.IsApplication() {
		return p.Application
	}
	return p.UserName
}
