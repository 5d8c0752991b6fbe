package model

import (
	"fmt"
	"time"
)

// Status is where a game sits in the user's backlog.
type Status string

const (
	StatusBacklog   Status = "BACKLOG"
	StatusPlaying   Status = "PLAYING"
	StatusCompleted Status = "COMPLETED"
	StatusDropped   Status = "DROPPED"
	StatusWishlist  Status = "WISHLIST"
)

// Platform is the platform a library entry is played on.
type Platform string

const (
	PlatformPC     Platform = "PC"
	PlatformPS5    Platform = "PS5"
	PlatformPS4    Platform = "PS4"
	PlatformXbox   Platform = "XBOX"
	PlatformSwitch Platform = "SWITCH"
	PlatformMobile Platform = "MOBILE"
	PlatformOther  Platform = "OTHER"
)

// Option is a selectable value with its display label. Color is only set for statuses.
type Option[T ~string] struct {
	Value T      `json:"value"`
	Label string `json:"label"`
	Color string `json:"color,omitempty"`
}

// StatusOptions lists the statuses in display order.
var StatusOptions = []Option[Status]{
	{Value: StatusPlaying, Label: "Jogando", Color: "#22c55e"},
	{Value: StatusCompleted, Label: "Zerado", Color: "#3b82f6"},
	{Value: StatusBacklog, Label: "Na Fila", Color: "#f59e0b"},
	{Value: StatusDropped, Label: "Abandonado", Color: "#ef4444"},
	{Value: StatusWishlist, Label: "Lista de Desejos", Color: "#8b5cf6"},
}

// PlatformOptions lists the platforms in display order.
var PlatformOptions = []Option[Platform]{
	{Value: PlatformPC, Label: "PC"},
	{Value: PlatformPS5, Label: "PlayStation 5"},
	{Value: PlatformPS4, Label: "PlayStation 4"},
	{Value: PlatformXbox, Label: "Xbox"},
	{Value: PlatformSwitch, Label: "Nintendo Switch"},
	{Value: PlatformMobile, Label: "Mobile"},
	{Value: PlatformOther, Label: "Outro"},
}

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	for _, o := range StatusOptions {
		if o.Value == s {
			return true
		}
	}
	return false
}

// Label returns the display label, or the raw value for unknown statuses.
func (s Status) Label() string {
	for _, o := range StatusOptions {
		if o.Value == s {
			return o.Label
		}
	}
	return string(s)
}

// Valid reports whether p is one of the known platforms.
func (p Platform) Valid() bool {
	for _, o := range PlatformOptions {
		if o.Value == p {
			return true
		}
	}
	return false
}

// Label returns the display label, or the raw value for unknown platforms.
func (p Platform) Label() string {
	for _, o := range PlatformOptions {
		if o.Value == p {
			return o.Label
		}
	}
	return string(p)
}

// MaxRating is the top of the rating scale. Zero means "not rated".
const MaxRating = 10

// LibraryItem is one (user, game) association with tracking metadata.
// (UserID, GameID) is unique in the backend.
type LibraryItem struct {
	ID              string      `json:"id"`
	UserID          string      `json:"user_id"`
	GameID          string      `json:"game_id"`
	Status          Status      `json:"status"`
	Platform        Platform    `json:"platform"`
	PlaytimeMinutes *int        `json:"playtime_minutes"`
	Rating          *int        `json:"rating"`
	Review          *string     `json:"review"`
	StartedAt       *Date       `json:"started_at"`
	FinishedAt      *Date       `json:"finished_at"`
	UpdatedAt       time.Time   `json:"updated_at"`
	Game            GameSummary `json:"games"`
}

// Rated reports whether the item carries a rating.
func (it LibraryItem) Rated() bool {
	return it.Rating != nil && *it.Rating > 0
}

// NewLibraryItem is the row inserted by add-to-library.
type NewLibraryItem struct {
	UserID          string   `json:"user_id"`
	GameID          string   `json:"game_id"`
	Status          Status   `json:"status"`
	Platform        Platform `json:"platform"`
	PlaytimeMinutes int      `json:"playtime_minutes"`
}

// LibraryPatch is a partial update of a library item.
//
// A nil field is left untouched. A pointer to a zero value clears a nullable
// column (Rating, Review, StartedAt, FinishedAt). PlaytimeMinutes is not
// nullable from the app: a pointer to 0 stores zero.
type LibraryPatch struct {
	Status          *Status   `json:"status,omitempty"`
	Platform        *Platform `json:"platform,omitempty"`
	PlaytimeMinutes *int      `json:"playtime_minutes,omitempty"`
	Rating          *int      `json:"rating,omitempty"`
	Review          *string   `json:"review,omitempty"`
	StartedAt       *Date     `json:"started_at,omitempty"`
	FinishedAt      *Date     `json:"finished_at,omitempty"`
}

// Empty reports whether the patch changes nothing.
func (p LibraryPatch) Empty() bool {
	return p.Status == nil && p.Platform == nil && p.PlaytimeMinutes == nil &&
		p.Rating == nil && p.Review == nil && p.StartedAt == nil && p.FinishedAt == nil
}

// Validate checks enum membership and numeric ranges.
func (p LibraryPatch) Validate() error {
	if p.Status != nil && !p.Status.Valid() {
		return fmt.Errorf("unknown status %q", *p.Status)
	}
	if p.Platform != nil && !p.Platform.Valid() {
		return fmt.Errorf("unknown platform %q", *p.Platform)
	}
	if p.PlaytimeMinutes != nil && *p.PlaytimeMinutes < 0 {
		return fmt.Errorf("playtime must not be negative")
	}
	if p.Rating != nil && (*p.Rating < 0 || *p.Rating > MaxRating) {
		return fmt.Errorf("rating must be between 0 and %d", MaxRating)
	}
	return nil
}

// Columns returns the patch as column → value, with cleared columns mapped to nil.
// Both backends build their UPDATE from this.
func (p LibraryPatch) Columns() map[string]any {
	cols := make(map[string]any)
	if p.Status != nil {
		cols["status"] = string(*p.Status)
	}
	if p.Platform != nil {
		cols["platform"] = string(*p.Platform)
	}
	if p.PlaytimeMinutes != nil {
		cols["playtime_minutes"] = *p.PlaytimeMinutes
	}
	if p.Rating != nil {
		if *p.Rating == 0 {
			cols["rating"] = nil
		} else {
			cols["rating"] = *p.Rating
		}
	}
	if p.Review != nil {
		if *p.Review == "" {
			cols["review"] = nil
		} else {
			cols["review"] = *p.Review
		}
	}
	if p.StartedAt != nil {
		cols["started_at"] = dateColumn(*p.StartedAt)
	}
	if p.FinishedAt != nil {
		cols["finished_at"] = dateColumn(*p.FinishedAt)
	}
	return cols
}

func dateColumn(d Date) any {
	if d.IsZero() {
		return nil
	}
	return d.String()
}

// Apply merges the patch into the item the same way the backend applies it.
func (it *LibraryItem) Apply(p LibraryPatch) {
	if p.Status != nil {
		it.Status = *p.Status
	}
	if p.Platform != nil {
		it.Platform = *p.Platform
	}
	if p.PlaytimeMinutes != nil {
		v := *p.PlaytimeMinutes
		it.PlaytimeMinutes = &v
	}
	if p.Rating != nil {
		if *p.Rating == 0 {
			it.Rating = nil
		} else {
			v := *p.Rating
			it.Rating = &v
		}
	}
	if p.Review != nil {
		if *p.Review == "" {
			it.Review = nil
		} else {
			v := *p.Review
			it.Review = &v
		}
	}
	if p.StartedAt != nil {
		it.StartedAt = optionalDate(*p.StartedAt)
	}
	if p.FinishedAt != nil {
		it.FinishedAt = optionalDate(*p.FinishedAt)
	}
}

func optionalDate(d Date) *Date {
	if d.IsZero() {
		return nil
	}
	return &d
}
