package model

// Stats aggregates a library. It is derived, never stored.
type Stats struct {
	Total         int     `json:"total"`
	Playing       int     `json:"playing"`
	Completed     int     `json:"completed"`
	Backlog       int     `json:"backlog"`
	Dropped       int     `json:"dropped"`
	Wishlist      int     `json:"wishlist"`
	TotalPlaytime int     `json:"totalPlaytime"`
	AverageRating float64 `json:"averageRating"`
	RatedCount    int     `json:"ratedCount"`
}

// ComputeStats aggregates items. AverageRating is 0 when nothing is rated.
func ComputeStats(items []LibraryItem) Stats {
	st := Stats{Total: len(items)}
	ratingSum := 0
	for _, it := range items {
		switch it.Status {
		case StatusPlaying:
			st.Playing++
		case StatusCompleted:
			st.Completed++
		case StatusBacklog:
			st.Backlog++
		case StatusDropped:
			st.Dropped++
		case StatusWishlist:
			st.Wishlist++
		}
		if it.PlaytimeMinutes != nil {
			st.TotalPlaytime += *it.PlaytimeMinutes
		}
		if it.Rated() {
			ratingSum += *it.Rating
			st.RatedCount++
		}
	}
	if st.RatedCount > 0 {
		st.AverageRating = float64(ratingSum) / float64(st.RatedCount)
	}
	return st
}
