package postgrest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/model"
)

const libraryTable = "/rest/v1/library_items"

// librarySelect embeds the game summary through the game_id foreign key.
const librarySelect = "*,games(title,cover_url,release_date,steam_app_id)"

// ListLibrary returns the user's items, most recently updated first.
func (c *Client) ListLibrary(ctx context.Context, userID string) ([]model.LibraryItem, error) {
	q := selectColumns(librarySelect).eq("user_id", userID).order("updated_at", true)

	items := []model.LibraryItem{}
	if err := c.do(ctx, request{method: http.MethodGet, path: libraryTable, query: q.values()}, &items); err != nil {
		return nil, fmt.Errorf("postgrest: listing library for user %s: %w", userID, err)
	}
	return items, nil
}

// InsertLibraryItem inserts one row. A duplicate (user_id, game_id) fails with
// a BackendError carrying code 23505.
func (c *Client) InsertLibraryItem(ctx context.Context, item model.NewLibraryItem) error {
	var rows []json.RawMessage
	err := c.do(ctx, request{
		method: http.MethodPost,
		path:   libraryTable,
		body:   item,
		header: returnRepresentation(),
	}, &rows)
	if err != nil {
		return fmt.Errorf("postgrest: inserting library item: %w", err)
	}
	return nil
}

// UpdateLibraryItem patches one row by id.
func (c *Client) UpdateLibraryItem(ctx context.Context, id string, patch model.LibraryPatch) error {
	return c.mutateByID(ctx, http.MethodPatch, libraryTable, "library item", id, patch.Columns())
}

// DeleteLibraryItem deletes one row by id.
func (c *Client) DeleteLibraryItem(ctx context.Context, id string) error {
	return c.mutateByID(ctx, http.MethodDelete, libraryTable, "library item", id, nil)
}

// mutateByID runs a PATCH or DELETE filtered by id=eq. Row-level security
// hides rows the user may not touch, so zero affected rows reads as not found.
func (c *Client) mutateByID(ctx context.Context, method, table, resource, id string, body map[string]any) error {
	req := request{
		method: method,
		path:   table,
		query:  query{}.eq("id", id).values(),
		header: returnRepresentation(),
	}
	if body != nil {
		req.body = body
	}

	var rows []json.RawMessage
	if err := c.do(ctx, req, &rows); err != nil {
		return fmt.Errorf("postgrest: %s %s %s: %w", method, resource, id, err)
	}
	if len(rows) == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}
