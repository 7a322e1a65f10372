package queue

import (
	"encoding/json"
	"log/slog"

	"github.com/sharetube/jukebox/internal/domain"
)

// Item is the hash stored under item:<id>. Voters are kept as a JSON array.
type Item struct {
	Id          string `redis:"id"`
	Author      string `redis:"author"`
	AuthorId    string `redis:"authorId"`
	Room        string `redis:"room"`
	IsPlayed    bool   `redis:"isPlayed"`
	Upvotes     int    `redis:"upvotes"`
	UpvotedBy   string `redis:"upvotedBy"`
	VideoId     string `redis:"videoId"`
	Image       string `redis:"image"`
	Title       string `redis:"title"`
	Description string `redis:"description"`
	SongAuthor  string `redis:"songAuthor"`
}

func NewItem(item domain.Item) Item {
	upvotedBy, _ := json.Marshal(item.Clone().UpvotedBy)

	return Item{
		Id:          item.Id,
		Author:      item.Author,
		AuthorId:    item.AuthorId,
		Room:        item.Room,
		IsPlayed:    item.IsPlayed,
		Upvotes:     item.Upvotes,
		UpvotedBy:   string(upvotedBy),
		VideoId:     item.Media.ExternalId,
		Image:       item.Media.Image,
		Title:       item.Media.Title,
		Description: item.Media.Description,
		SongAuthor:  item.Media.SourceAuthor,
	}
}

// ToDomain restores the item. Upvotes always match the decoded voters, an
// undecodable voter list counts as empty.
func (i Item) ToDomain() domain.Item {
	var upvotedBy []string
	if i.UpvotedBy != "" {
		if err := json.Unmarshal([]byte(i.UpvotedBy), &upvotedBy); err != nil {
			slog.Warn("dropping undecodable voters", "item_id", i.Id, "error", err)
			upvotedBy = nil
		}
	}

	item := domain.Item{
		Id:        i.Id,
		Author:    i.Author,
		AuthorId:  i.AuthorId,
		Room:      i.Room,
		IsPlayed:  i.IsPlayed,
		Upvotes:   i.Upvotes,
		UpvotedBy: upvotedBy,
		Media: domain.Media{
			ExternalId:   i.VideoId,
			Image:        i.Image,
			Title:        i.Title,
			Description:  i.Description,
			SourceAuthor: i.SongAuthor,
		},
	}
	item.Normalize()

	return item
}
