package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/jonathan/hr-portal/internal/types"
)

// TokenResponse is the answer of the password grant.
type TokenResponse struct {
	AccessToken  string          `json:"access_token"`
	TokenType    string          `json:"token_type"`
	ExpiresIn    int             `json:"expires_in"`
	RefreshToken string          `json:"refresh_token"`
	User         *types.AuthUser `json:"user,omitempty"`
	UserID       string          `json:"user_id,omitempty"`
}

// ResolvedUserID returns user.id, falling back to user_id.
func (t *TokenResponse) ResolvedUserID() string {
	if t.User != nil && t.User.ID != "" {
		return t.User.ID
	}
	return t.UserID
}

type passwordGrant struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// PasswordGrant exchanges an email and password for a session. The email is
// trimmed; the password is sent exactly as given.
func (c *Client) PasswordGrant(ctx context.Context, email, password string) (*TokenResponse, error) {
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   passwordGrant{Email: strings.TrimSpace(email), Password: password},
	})
	if err != nil {
		return nil, err
	}

	var token TokenResponse
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to decode token response: %w", err)
	}
	return &token, nil
}

// GetUser returns the user owning accessToken.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*types.AuthUser, error) {
	if accessToken == "" {
		return nil, fmt.Errorf("access token is required")
	}
	data, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/user",
		bearer: accessToken,
	})
	if err != nil {
		return nil, err
	}

	var user types.AuthUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	if user.ID == "" {
		return nil, fmt.Errorf("backend returned a user without id")
	}
	return &user, nil
}
