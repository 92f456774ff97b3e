package authz

import (
	"bytes"
	"context"
	"io"
	"net/http"

	"github.com/oncall/oncall/internal/core"
	identityDomain "github.com/oncall/oncall/internal/identity/domain"
)

// Resolver turns raw HTTP credentials into a Principal. Exactly one of
// session-cookie or hmac-header authentication succeeds per request; in
// debug mode a synthetic god principal is issued instead.
type Resolver struct {
	sessions SessionStore
	apps     *AppAuthenticator
	users    identityDomain.UserRepository

	debug       bool
	requireAuth bool
}

// NewResolver wires the credential sources.
func NewResolver(sessions SessionStore, apps *AppAuthenticator, users identityDomain.UserRepository, debug, requireAuth bool) *Resolver {
	return &Resolver{sessions: sessions, apps: apps, users: users, debug: debug, requireAuth: requireAuth}
}

// SessionCookieName is the cookie carrying the session id.
const SessionCookieName = "oncall-auth"

// CSRFHeader is the double-submit header checked against the session.
const CSRFHeader = "X-CSRF-TOKEN"

// Resolve authenticates the request and returns its Principal. A nil
// principal with nil error means anonymous access (allowed only when
// require_auth is off).
func (r *Resolver) Resolve(ctx context.Context, req *http.Request) (*Principal, error) {
	if r.debug {
		return &Principal{UserName: "test_user", God: true}, nil
	}

	if header := req.Header.Get("Authorization"); header != "" {
		app, err := r.verifyApp(ctx, req, header)
		if err != nil {
			return nil, core.Unauthorized("application authentication failed")
		}
		return &Principal{Application: app}, nil
	}

	if cookie, err := req.Cookie(SessionCookieName); err == nil {
		principal, err := r.verifySession(ctx, cookie.Value, req)
		if err != nil {
			return nil, err
		}
		return principal, nil
	}

	if r.requireAuth {
		return nil, core.Unauthorized("authentication required")
	}
	return nil, nil
}

func (r *Resolver) verifyApp(ctx context.Context, req *http.Request, header string) (string, error) {
	// The body has to be re-readable by the handler after signing.
	var body []byte
	if req.Body != nil {
		var err error
		body, err = io.ReadAll(req.Body)
		if err != nil {
			return "", err
		}
		req.Body = io.NopCloser(bytes.NewReader(body))
	}
	pathWithQuery := req.URL.EscapedPath()
	if req.URL.RawQuery != "" {
		pathWithQuery += "?" + req.URL.RawQuery
	}
	return r.apps.Verify(ctx, header, req.Method, pathWithQuery, body)
}

func (r *Resolver) verifySession(ctx context.Context, sessionID string, req *http.Request) (*Principal, error) {
	session, err := r.sessions.Find(ctx, sessionID)
	if err != nil {
		return nil, core.Unauthorized("session expired or unknown")
	}
	if mutating(req.Method) && !VerifyCSRF(session, req.Header.Get(CSRFHeader)) {
		return nil, core.Unauthorized("invalid csrf token")
	}
	name, err := identityDomain.NewUserName(session.UserName)
	if err != nil {
		return nil, core.Unauthorized("session user invalid")
	}
	user, err := r.users.FindByName(ctx, name)
	if err != nil || user == nil {
		return nil, core.Unauthorized("session user unknown")
	}
	return &Principal{UserID: user.ID(), UserName: user.Name().String(), God: user.God()}, nil
}

func mutating(method string) bool {
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return true
	}
	return false
}
