package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/jonathan/hr-portal/internal/types"
)

// DefaultPerPage is the page size used when scanning the user list.
const DefaultPerPage = 1000

// UserAttributes are the fields accepted by the admin create and update calls.
type UserAttributes struct {
	Email        string         `json:"email,omitempty"`
	Password     string         `json:"password,omitempty"`
	EmailConfirm bool           `json:"email_confirm,omitempty"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
}

type userList struct {
	Users []types.AuthUser `json:"users"`
}

// ListUsers returns one page of auth users. Pages start at 1.
// Requires the service role key.
func (c *Client) ListUsers(ctx context.Context, page, perPage int) ([]types.AuthUser, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	data, err := c.do(ctx, request{
		method: http.MethodGet,
		path:   "/auth/v1/admin/users",
		query: url.Values{
			"page":     {strconv.Itoa(page)},
			"per_page": {strconv.Itoa(perPage)},
		},
	})
	if err != nil {
		return nil, err
	}

	var list userList
	if err := json.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("failed to decode user list: %w", err)
	}
	return list.Users, nil
}

// FindUserByEmail scans every page of the user list for an exact,
// case-insensitive email match. It returns nil, nil when no user matches.
// The cost is proportional to the total number of users.
func (c *Client) FindUserByEmail(ctx context.Context, email string) (*types.AuthUser, error) {
	return c.findUserByEmail(ctx, email, DefaultPerPage)
}

func (c *Client) findUserByEmail(ctx context.Context, email string, perPage int) (*types.AuthUser, error) {
	want := strings.TrimSpace(email)
	if want == "" {
		return nil, fmt.Errorf("email is required")
	}

	for page := 1; ; page++ {
		users, err := c.ListUsers(ctx, page, perPage)
		if err != nil {
			return nil, fmt.Errorf("failed to list users (page %d): %w", page, err)
		}
		for i := range users {
			if strings.EqualFold(strings.TrimSpace(users[i].Email), want) {
				return &users[i], nil
			}
		}
		if len(users) < perPage {
			return nil, nil
		}
	}
}

// CreateUser creates an auth user.
func (c *Client) CreateUser(ctx context.Context, attrs UserAttributes) (*types.AuthUser, error) {
	data, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/admin/users",
		body:   attrs,
	})
	if err != nil {
		return nil, err
	}
	return decodeUser(data)
}

// UpdateUser changes the attributes of the auth user with id.
func (c *Client) UpdateUser(ctx context.Context, id string, attrs UserAttributes) (*types.AuthUser, error) {
	if id == "" {
		return nil, fmt.Errorf("user id is required")
	}
	data, err := c.do(ctx, request{
		method: http.MethodPut,
		path:   "/auth/v1/admin/users/" + url.PathEscape(id),
		body:   attrs,
	})
	if err != nil {
		return nil, err
	}
	return decodeUser(data)
}

func decodeUser(data []byte) (*types.AuthUser, error) {
	var user types.AuthUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to decode user: %w", err)
	}
	return &user, nil
}
