// Package sso holds the contract with the external SSO identity
// provider: an OAuth2 code exchange followed by a userinfo lookup. The
// provider itself is an out-of-scope collaborator; only this boundary
// lives in the core.
package sso

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"

	"github.com/oncall/oncall/internal/core"
)

// Config carries the IdP endpoints and client credentials.
type Config struct {
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserinfoURL  string
	RedirectURL  string
}

// Client exchanges authorization codes for asserted usernames.
type Client struct {
	oauth       *oauth2.Config
	userinfoURL string
}

// NewClient builds the SSO client.
func NewClient(cfg Config) *Client {
	return &Client{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Endpoint: oauth2.Endpoint{
				AuthURL:  cfg.AuthURL,
				TokenURL: cfg.TokenURL,
			},
		},
		userinfoURL: cfg.UserinfoURL,
	}
}

// AuthCodeURL returns the IdP redirect for the login flow.
func (c *Client) AuthCodeURL(state string) string {
	return c.oauth.AuthCodeURL(state)
}

// ResolveUser exchanges the code and reads the username the IdP asserts.
func (c *Client) ResolveUser(ctx context.Context, code string) (string, error) {
	token, err := c.oauth.Exchange(ctx, code)
	if err != nil {
		return "", core.Upstream(err, "sso token exchange failed")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.userinfoURL, nil)
	if err != nil {
		return "", core.Internal(err, "building userinfo request")
	}
	resp, err := c.oauth.Client(ctx, token).Do(req)
	if err != nil {
		return "", core.Upstream(err, "sso userinfo lookup failed")
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", core.Upstream(fmt.Errorf("userinfo returned %d", resp.StatusCode), "sso userinfo lookup failed")
	}

	var info struct {
		Username          string `json:"username"`
		PreferredUsername string `json:"preferred_username"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return "", core.Upstream(err, "decoding userinfo response")
	}
	if info.Username != "" {
		return info.Username, nil
	}
	if info.PreferredUsername != "" {
		return info.PreferredUsername, nil
	}
	return "", core.Upstream(nil, "userinfo response carried no username")
}
