package postgrest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sakif/gameshelf/internal/model"
)

const profilesTable = "/rest/v1/profiles"

// GetProfileByUsername returns the profile, or (nil, nil) when none matches.
func (c *Client) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	q := selectColumns("*").eq("username", username).limit(1)

	var rows []model.Profile
	if err := c.do(ctx, request{method: http.MethodGet, path: profilesTable, query: q.values()}, &rows); err != nil {
		return nil, fmt.Errorf("postgrest: getting profile %q: %w", username, err)
	}
	if len(rows) == 0 {
		return nil, nil
	}
	return &rows[0], nil
}

// UpdateProfile patches the profile with the given id.
func (c *Client) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) error {
	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	return c.mutateByID(ctx, http.MethodPatch, profilesTable, "profile", id, cols)
}
