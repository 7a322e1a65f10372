package queue

import (
	"testing"

	"github.com/sharetube/jukebox/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestToDomainKeepsUpvotesConsistent(t *testing.T) {
	tests := []struct {
		name      string
		stored    Item
		upvotedBy []string
	}{
		{
			name:      "corrupted voters",
			stored:    Item{Id: "a", Upvotes: 3, UpvotedBy: `["u1",`},
			upvotedBy: []string{},
		},
		{
			name:      "missing voters",
			stored:    Item{Id: "a", Upvotes: 2},
			upvotedBy: []string{},
		},
		{
			name:      "stale counter",
			stored:    Item{Id: "a", Upvotes: 5, UpvotedBy: `["u1","u2","u1"]`},
			upvotedBy: []string{"u1", "u2"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := tt.stored.ToDomain()
			assert.Equal(t, tt.upvotedBy, item.UpvotedBy)
			assert.Equal(t, len(tt.upvotedBy), item.Upvotes)
		})
	}
}

func TestNewItemRoundTripsVoters(t *testing.T) {
	item := domain.Item{
		Id:        "a",
		Room:      "room-1",
		Upvotes:   2,
		UpvotedBy: []string{"u1", "u2"},
		Media:     domain.Media{ExternalId: "vid-a"},
	}

	assert.Equal(t, item, NewItem(item).ToDomain())
}
