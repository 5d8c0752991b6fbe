package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sakif/gameshelf/internal/apperror"
	"github.com/sakif/gameshelf/internal/model"
)

// GetProfileByUsername returns the profile, or (nil, nil) when none has that username.
func (db *DB) GetProfileByUsername(ctx context.Context, username string) (*model.Profile, error) {
	var p model.Profile
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, username, email, avatar_url, bio, steam_id, created_at
		 FROM profiles WHERE username = ?`,
		username,
	).Scan(&p.ID, &p.Username, &p.Email, &p.AvatarURL, &p.Bio, &p.SteamID, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: getting profile %q: %w", username, err)
	}
	return &p, nil
}

// UpdateProfile applies patch to the signed-in user's own profile.
func (db *DB) UpdateProfile(ctx context.Context, id string, patch model.ProfilePatch) error {
	uid, err := db.currentUserID()
	if err != nil {
		return err
	}
	if uid != id {
		return rowLevelSecurity("profiles")
	}

	cols := patch.Columns()
	if len(cols) == 0 {
		return nil
	}
	names := make([]string, 0, len(cols))
	for name := range cols {
		names = append(names, name)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names))
	args := make([]any, 0, len(names)+1)
	for _, name := range names {
		sets = append(sets, name+" = ?")
		args = append(args, cols[name])
	}
	args = append(args, id)

	res, err := db.conn.ExecContext(ctx,
		`UPDATE profiles SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.UniqueViolation("profiles_username_key")
		}
		return fmt.Errorf("sqlite: updating profile %s: %w", id, err)
	}
	return expectOneRow(res, "profile", id)
}
