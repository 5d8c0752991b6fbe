package sqlite

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/xid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/model"
)

const libraryColumns = `
	li.id, li.user_id, li.game_id, li.status, li.platform,
	li.playtime_minutes, li.rating, li.review, li.started_at, li.finished_at, li.updated_at,
	g.title, g.cover_url, g.release_date, g.steam_app_id`

// ListLibrary returns the user's items joined with their game, newest update first.
// Libraries are publicly readable, so no session is required.
func (db *DB) ListLibrary(ctx context.Context, userID string) ([]model.LibraryItem, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+libraryColumns+`
		 FROM library_items li
		 JOIN games g ON g.id = li.game_id
		 WHERE li.user_id = ?
		 ORDER BY li.updated_at DESC, li.rowid DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing library for user %s: %w", userID, err)
	}
	defer rows.Close()

	items := []model.LibraryItem{}
	for rows.Next() {
		var it model.LibraryItem
		if err := rows.Scan(
			&it.ID, &it.UserID, &it.GameID, &it.Status, &it.Platform,
			&it.PlaytimeMinutes, &it.Rating, &it.Review, &it.StartedAt, &it.FinishedAt, &it.UpdatedAt,
			&it.Game.Title, &it.Game.CoverURL, &it.Game.ReleaseDate, &it.Game.SteamAppID,
		); err != nil {
			return nil, fmt.Errorf("sqlite: scanning library item: %w", err)
		}
		items = append(items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating library rows: %w", err)
	}
	return items, nil
}

// InsertLibraryItem adds a game to the signed-in user's library.
func (db *DB) InsertLibraryItem(ctx context.Context, item model.NewLibraryItem) error {
	uid, err := db.currentUserID()
	if err != nil {
		return err
	}
	if uid != item.UserID {
		return rowLevelSecurity("library_items")
	}

	_, err = db.conn.ExecContext(ctx,
		`INSERT INTO library_items (id, user_id, game_id, status, platform, playtime_minutes, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		xid.New().String(),
		item.UserID,
		item.GameID,
		string(item.Status),
		string(item.Platform),
		item.PlaytimeMinutes,
		time.Now().UTC(),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.UniqueViolation("library_items_user_id_game_id_key")
		}
		if isForeignKeyViolation(err) {
			return &apperror.BackendError{
				Status:  409,
				Code:    "23503",
				Message: `insert or update on table "library_items" violates foreign key constraint "library_items_game_id_fkey"`,
			}
		}
		return fmt.Errorf("sqlite: inserting library item: %w", err)
	}
	return nil
}

// UpdateLibraryItem applies patch to one of the signed-in user's items and
// bumps updated_at.
func (db *DB) UpdateLibraryItem(ctx context.Context, id string, patch model.LibraryPatch) error {
	uid, err := db.currentUserID()
	if err != nil {
		return err
	}

	cols := patch.Columns()
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+3)
	for _, name := range names {
		sets = append(sets, name+" = ?")
		args = append(args, cols[name])
	}
	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC(), id, uid)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE library_items SET `+strings.Join(sets, ", ")+` WHERE id = ? AND user_id = ?`,
		args...,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating library item %s: %w", id, err)
	}
	return expectOneRow(res, "library item", id)
}

// DeleteLibraryItem removes one of the signed-in user's items.
func (db *DB) DeleteLibraryItem(ctx context.Context, id string) error {
	uid, err := db.currentUserID()
	if err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM library_items WHERE id = ? AND user_id = ?`, id, uid,
	)
	if err != nil {
		return fmt.Errorf("sqlite: deleting library item %s: %w", id, err)
	}
	return expectOneRow(res, "library item", id)
}

type rowsAffected interface {
	RowsAffected() (int64, error)
}

func expectOneRow(res rowsAffected, resource, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return apperror.NotFound(resource, id)
	}
	return nil
}

func isForeignKeyViolation(err error) bool {
	var se *sqlite.Error
	if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "FOREIGN KEY constraint failed")
}
