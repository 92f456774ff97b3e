package authz

import (
	"context"
	"crypto/hmac"
	"crypto/sha512"
	"crypto/subtle"
	"encoding/base64"
	"fmt"
	"net/url"
	"strings"
	"time"
)

// ApplicationRepository resolves an application name to its shared API key.
type ApplicationRepository interface {
	FindKey(ctx context.Context, name string) (string, error)
}

// hmacWindows are the accepted signing-window sizes, in seconds. For each
// size both the current and the previous window are tried, four candidate
// windows total, to tolerate clock skew across the window boundary.
var hmacWindows = []int64{5, 30}

// AppAuthenticator verifies `Authorization: hmac <app>:<digest>` headers.
type AppAuthenticator struct {
	apps ApplicationRepository
	now  func() time.Time
}

// NewAppAuthenticator builds an authenticator over the application table.
func NewAppAuthenticator(apps ApplicationRepository) *AppAuthenticator {
	return &AppAuthenticator{apps: apps, now: time.Now}
}

// ParseHeader splits an Authorization header of the form
// "hmac <app>:<base64url-digest>". The second return is the digest.
func ParseHeader(header string) (app, digest string, ok bool) {
	const prefix = "hmac "
	if !strings.HasPrefix(header, prefix) {
		return "", "", false
	}
	rest := header[len(prefix):]
	idx := strings.IndexByte(rest, ':')
	if idx <= 0 || idx == len(rest)-1 {
		return "", "", false
	}
	return rest[:idx], rest[idx+1:], true
}

// Verify checks the client digest against all candidate windows for both
// the URL-encoded and raw forms of the path, using constant-time
// comparison. It returns the authenticated application name.
func (a *AppAuthenticator) Verify(ctx context.Context, header, method, pathWithQuery string, body []byte) (string, error) {
	app, clientDigest, ok := ParseHeader(header)
	if !ok {
		return "", fmt.Errorf("malformed hmac authorization header")
	}
	key, err := a.apps.FindKey(ctx, app)
	if err != nil {
		return "", err
	}

	paths := candidatePaths(pathWithQuery)
	epoch := a.now().Unix()
	client := []byte(clientDigest)
	for _, windowSize := range hmacWindows {
		window := epoch / windowSize
		for _, w := range []int64{window, window - 1} {
			for _, p := range paths {
				expected := sign(key, w, method, p, body)
				if subtle.ConstantTimeCompare(client, []byte(expected)) == 1 {
					return app, nil
				}
			}
		}
	}
	return "", fmt.Errorf("hmac digest mismatch for application %s", app)
}

// candidatePaths returns the path both as received and in its alternate
// encoding, for legacy clients that sign the unescaped form.
func candidatePaths(pathWithQuery string) []string {
	unescaped, err := url.PathUnescape(pathWithQuery)
	if err != nil || unescaped == pathWithQuery {
		return []string{pathWithQuery}
	}
	return []string{pathWithQuery, unescaped}
}

func sign(key string, window int64, method, pathWithQuery string, body []byte) string {
	mac := hmac.New(sha512.New, []byte(key))
	fmt.Fprintf(mac, "%d %s %s %s", window, method, pathWithQuery, body)
	return base64.URLEncoding.EncodeToString(mac.Sum(nil))
}

// Sign computes the digest a client would send for the given request; used
// by tests and by outbound calls to HMAC-protected collaborators.
func Sign(key string, at time.Time, windowSize int64, method, pathWithQuery string, body []byte) string {
	return sign(key, at.Unix()/windowSize, method, pathWithQuery, body)
}
