package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/model"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// SearchGames matches titles containing query, ignoring ASCII case.
func (db *DB) SearchGames(ctx context.Context, query string, limit int) ([]model.SearchResult, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, title, cover_url, release_date
		 FROM games
		 WHERE title LIKE ? ESCAPE '\'
		 ORDER BY title COLLATE NOCASE
		 LIMIT ?`,
		"%"+likeEscaper.Replace(query)+"%", limit,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: searching games for %q: %w", query, err)
	}
	defer rows.Close()

	results := []model.SearchResult{}
	for rows.Next() {
		var r model.SearchResult
		if err := rows.Scan(&r.ID, &r.Title, &r.CoverURL, &r.ReleaseDate); err != nil {
			return nil, fmt.Errorf("sqlite: scanning game: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating games: %w", err)
	}
	return results, nil
}

// AddGame inserts a catalog entry, assigning an id when g.ID is empty.
// The catalog is maintained out of band (seed-games), never by users.
func (db *DB) AddGame(ctx context.Context, g *model.Game) error {
	if strings.TrimSpace(g.Title) == "" {
		return apperror.ValidationFailed("title", "title is required")
	}
	if g.ID == "" {
		g.ID = xid.New().String()
	}

	var release any
	if g.ReleaseDate != nil && !g.ReleaseDate.IsZero() {
		release = g.ReleaseDate.String()
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO games (id, title, cover_url, release_date, steam_app_id) VALUES (?, ?, ?, ?, ?)`,
		g.ID, g.Title, g.CoverURL, release, g.SteamAppID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.UniqueViolation("games_steam_app_id_key")
		}
		return fmt.Errorf("sqlite: inserting game %q: %w", g.Title, err)
	}
	return nil
}
