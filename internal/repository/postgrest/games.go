package postgrest

import (
	"context"
	"fmt"
	"net/http"

	"github.com/sakif/gameshelf/internal/model"
)

const gamesTable = "/rest/v1/games"

// SearchGames matches titles with ilike, ordered by title.
func (c *Client) SearchGames(ctx context.Context, q string, limit int) ([]model.SearchResult, error) {
	params := selectColumns("id,title,cover_url,release_date").
		ilike("title", containsPattern(q)).
		order("title", false).
		limit(limit)

	results := []model.SearchResult{}
	if err := c.do(ctx, request{method: http.MethodGet, path: gamesTable, query: params.values()}, &results); err != nil {
		return nil, fmt.Errorf("postgrest: searching games for %q: %w", q, err)
	}
	return results, nil
}
