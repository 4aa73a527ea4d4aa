package guard

import (
	"context"
	"fmt"
	"net/url"

	"github.com/jonathan/hr-portal/internal/backend"
	"github.com/jonathan/hr-portal/internal/types"
)

// ProfileRoles reads roles from the profiles table.
type ProfileRoles struct {
	Client *backend.Client
}

// FetchRole implements RoleFetcher.
func (p ProfileRoles) FetchRole(ctx context.Context, userID string) (string, bool, error) {
	profiles, err := backend.Fetch[types.Profile](ctx, p.Client, "profiles", url.Values{
		"id":     {backend.Eq(userID)},
		"select": {"role"},
		"limit":  {"1"},
	})
	if err != nil {
		return "", false, fmt.Errorf("failed to load profile role: %w", err)
	}
	if len(profiles) == 0 {
		return "", false, nil
	}
	return profiles[0].Role, true, nil
}
