package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestParseDate(t *testing.T) {
	tests := []struct {
		in      string
		want    Date
		wantErr bool
	}{
		{in: "2023-05-12", want: NewDate(2023, time.May, 12)},
		{in: "2023-05-12T22:15:00+00:00", want: NewDate(2023, time.May, 12)},
		{in: "2023-05-12T22:15:00.123456Z", want: NewDate(2023, time.May, 12)},
		{in: "12/05/2023", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDate(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got.Time), "got %s", got)
		})
	}
}

func TestDateJSON(t *testing.T) {
	var item struct {
		Released *Date `json:"release_date"`
		Started  *Date `json:"started_at"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"release_date":"2017-03-03","started_at":null}`), &item))
	require.NotNil(t, item.Released)
	assert.Equal(t, "2017-03-03", item.Released.String())
	assert.Nil(t, item.Started)

	out, err := json.Marshal(item.Released)
	require.NoError(t, err)
	assert.JSONEq(t, `"2017-03-03"`, string(out))
}

func TestLibraryPatch_ApplyAndColumns(t *testing.T) {
	started := NewDate(2024, time.January, 2)
	item := LibraryItem{
		ID:       "item-1",
		Status:   StatusBacklog,
		Platform: PlatformPC,
		Rating:   intPtr(7),
		Review:   strPtr("ok"),
	}
	status := StatusPlaying
	patch := LibraryPatch{
		Status:          &status,
		PlaytimeMinutes: intPtr(0),
		Rating:          intPtr(0),
		Review:          strPtr(""),
		StartedAt:       &started,
	}

	item.Apply(patch)

	assert.Equal(t, StatusPlaying, item.Status)
	assert.Equal(t, PlatformPC, item.Platform, "untouched field must survive")
	require.NotNil(t, item.PlaytimeMinutes)
	assert.Equal(t, 0, *item.PlaytimeMinutes)
	assert.Nil(t, item.Rating)
	assert.Nil(t, item.Review)
	require.NotNil(t, item.StartedAt)
	assert.Equal(t, "2024-01-02", item.StartedAt.String())

	cols := patch.Columns()
	assert.Equal(t, map[string]any{
		"status":           "PLAYING",
		"playtime_minutes": 0,
		"rating":           nil,
		"review":           nil,
		"started_at":       "2024-01-02",
	}, cols)
}

func TestLibraryPatch_Validate(t *testing.T) {
	bad := Status("FINISHED")
	badPlatform := Platform("DREAMCAST")
	tests := []struct {
		name    string
		patch   LibraryPatch
		wantErr bool
	}{
		{name: "empty", patch: LibraryPatch{}},
		{name: "rating in range", patch: LibraryPatch{Rating: intPtr(10)}},
		{name: "rating above max", patch: LibraryPatch{Rating: intPtr(11)}, wantErr: true},
		{name: "negative playtime", patch: LibraryPatch{PlaytimeMinutes: intPtr(-1)}, wantErr: true},
		{name: "unknown status", patch: LibraryPatch{Status: &bad}, wantErr: true},
		{name: "unknown platform", patch: LibraryPatch{Platform: &badPlatform}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.patch.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidSteamID(t *testing.T) {
	assert.True(t, ValidSteamID("76561197960287930"))
	assert.False(t, ValidSteamID("123"))
	assert.False(t, ValidSteamID("7656119796028793a"))
	assert.False(t, ValidSteamID("765611979602879301"))
	assert.False(t, ValidSteamID("７6561197960287930"), "full-width digits are not ASCII")
}

func TestValidUsername(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"mario", true},
		{"mario_bros.64-x", true},
		{"ab", false},
		{"abcdefghijklmnopqrstuvwxyz12345", false},
		{"has space", false},
		{"ação", false},
		{"", false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ValidUsername(tt.name), tt.name)
	}
}

func TestProfilePatch_Apply(t *testing.T) {
	p := Profile{Username: "ana", SteamID: strPtr("76561197960287930"), Bio: strPtr("hi")}
	p.Apply(ProfilePatch{SteamID: strPtr("")})
	assert.Nil(t, p.SteamID)
	assert.Equal(t, "hi", *p.Bio)

	assert.Equal(t, map[string]any{"steam_id": nil}, ProfilePatch{SteamID: strPtr("")}.Columns())
}

func TestStatusLabels(t *testing.T) {
	assert.Equal(t, "Zerado", StatusCompleted.Label())
	assert.Equal(t, "Nintendo Switch", PlatformSwitch.Label())
	assert.True(t, StatusWishlist.Valid())
	assert.False(t, Status("planned").Valid())
}
