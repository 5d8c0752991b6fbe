package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func intPtr(v int) *int { return &v }

func TestComputeStats(t *testing.T) {
	tests := []struct {
		name  string
		items []LibraryItem
		want  Stats
	}{
		{
			name:  "empty library",
			items: nil,
			want:  Stats{},
		},
		{
			name: "no rated items keeps average at zero",
			items: []LibraryItem{
				{Status: StatusPlaying, PlaytimeMinutes: intPtr(30)},
				{Status: StatusBacklog},
			},
			want: Stats{Total: 2, Playing: 1, Backlog: 1, TotalPlaytime: 30},
		},
		{
			name: "rating of zero is treated as unrated",
			items: []LibraryItem{
				{Status: StatusCompleted, Rating: intPtr(0)},
				{Status: StatusCompleted, Rating: intPtr(8)},
			},
			want: Stats{Total: 2, Completed: 2, AverageRating: 8, RatedCount: 1},
		},
		{
			name: "mixed statuses",
			items: []LibraryItem{
				{Status: StatusPlaying, PlaytimeMinutes: intPtr(120), Rating: intPtr(9)},
				{Status: StatusCompleted, PlaytimeMinutes: intPtr(600), Rating: intPtr(6)},
				{Status: StatusDropped, PlaytimeMinutes: intPtr(15)},
				{Status: StatusWishlist},
				{Status: StatusBacklog, Rating: intPtr(4)},
			},
			want: Stats{
				Total: 5, Playing: 1, Completed: 1, Backlog: 1, Dropped: 1, Wishlist: 1,
				TotalPlaytime: 735, AverageRating: 19.0 / 3.0, RatedCount: 3,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ComputeStats(tt.items)
			assert.Equal(t, tt.want.Total, len(tt.items))
			assert.InDelta(t, tt.want.AverageRating, got.AverageRating, 1e-9)
			got.AverageRating = tt.want.AverageRating
			assert.Equal(t, tt.want, got)
		})
	}
}
