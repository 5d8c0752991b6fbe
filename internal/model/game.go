package model

// GameSummary is the slice of a game embedded in each library item.
type GameSummary struct {
	Title       string  `json:"title"`
	CoverURL    *string `json:"cover_url"`
	ReleaseDate *Date   `json:"release_date"`
	SteamAppID  *int64  `json:"steam_app_id"`
}

// SearchResult is one hit of a title search.
type SearchResult struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	CoverURL    *string `json:"cover_url"`
	ReleaseDate *Date   `json:"release_date"`
}

// Game is a catalog entry. Only the embedded backend writes games; the managed
// backend's catalog is maintained outside this app.
type Game struct {
	ID          string  `json:"id"`
	Title       string  `json:"title"`
	CoverURL    *string `json:"cover_url"`
	ReleaseDate *Date   `json:"release_date"`
	SteamAppID  *int64  `json:"steam_app_id"`
}
