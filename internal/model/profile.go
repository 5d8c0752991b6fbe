package model

import (
	"regexp"
	"time"
)

// Profile is the public record of a user, looked up by its unique username.
type Profile struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	AvatarURL *string   `json:"avatar_url"`
	Bio       *string   `json:"bio"`
	SteamID   *string   `json:"steam_id"`
	CreatedAt time.Time `json:"created_at"`
}

var (
	steamIDPattern  = regexp.MustCompile(`^[0-9]{17}$`)
	usernamePattern = regexp.MustCompile(`^[A-Za-z0-9_.-]{3,30}$`)
)

// ValidUsername reports whether name is 3 to 30 characters of letters,
// digits, underscore, dot or hyphen.
func ValidUsername(name string) bool {
	return usernamePattern.MatchString(name)
}

// ValidSteamID reports whether id is a SteamID64: exactly 17 ASCII digits.
func ValidSteamID(id string) bool {
	return steamIDPattern.MatchString(id)
}

// ProfilePatch is a partial update of a profile. A nil field is left untouched;
// a pointer to "" clears the column.
type ProfilePatch struct {
	Username  *string `json:"username,omitempty"`
	AvatarURL *string `json:"avatar_url,omitempty"`
	Bio       *string `json:"bio,omitempty"`
	SteamID   *string `json:"steam_id,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p ProfilePatch) Empty() bool {
	return p.Username == nil && p.AvatarURL == nil && p.Bio == nil && p.SteamID == nil
}

// Columns returns the patch as column → value, with cleared columns mapped to nil.
func (p ProfilePatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.Username != nil {
		cols["username"] = *p.Username
	}
	setNullable(cols, "avatar_url", p.AvatarURL)
	setNullable(cols, "bio", p.Bio)
	setNullable(cols, "steam_id", p.SteamID)
	return cols
}

func setNullable(cols map[string]any, name string, v *string) {
	if v == nil {
		return
	}
	if *v == "" {
		cols[name] = nil
		return
	}
	cols[name] = *v
}

// Apply merges the patch into the profile.
func (p *Profile) Apply(patch ProfilePatch) {
	if patch.Username != nil {
		p.Username = *patch.Username
	}
	p.AvatarURL = mergeNullable(p.AvatarURL, patch.AvatarURL)
	p.Bio = mergeNullable(p.Bio, patch.Bio)
	p.SteamID = mergeNullable(p.SteamID, patch.SteamID)
}

func mergeNullable(cur, v *string) *string {
	if v == nil {
		return cur
	}
	if *v == "" {
		return nil
	}
	s := *v
	return &s
}
