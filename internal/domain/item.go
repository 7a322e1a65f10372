package domain

import "slices"

type Media struct {
	ExternalId   string `json:"videoId"`
	Image        string `json:"image"`
	Title        string `json:"title"`
	Description  string `json:"description"`
	SourceAuthor string `json:"author"`
}

// Item is a queued media entry. UpvotedBy is a set: Upvotes always equals its length.
type Item struct {
	Id        string   `json:"id"`
	Author    string   `json:"author"`
	AuthorId  string   `json:"authorId"`
	Room      string   `json:"room"`
	IsPlayed  bool     `json:"isPlayed"`
	Upvotes   int      `json:"upvotes"`
	UpvotedBy []string `json:"upvotedBy"`
	Media     Media    `json:"data"`
}

func (i Item) IsUpvotedBy(userId string) bool {
	return slices.Contains(i.UpvotedBy, userId)
}

// ToggleVote adds userId to the voters if absent, removes it otherwise.
// It returns true when the vote was added.
func (i *Item) ToggleVote(userId string) bool {
	i.Normalize()

	if i.IsUpvotedBy(userId) {
		i.UpvotedBy = slices.DeleteFunc(i.UpvotedBy, func(id string) bool {
			return id == userId
		})
		i.Upvotes = len(i.UpvotedBy)
		return false
	}

	i.UpvotedBy = append(i.UpvotedBy, userId)
	i.Upvotes = len(i.UpvotedBy)
	return true
}

// Normalize drops duplicate and empty voters and recomputes Upvotes.
func (i *Item) Normalize() {
	voters := make([]string, 0, len(i.UpvotedBy))
	for _, id := range i.UpvotedBy {
		if id == "" || slices.Contains(voters, id) {
			continue
		}

		voters = append(voters, id)
	}

	i.UpvotedBy = voters
	i.Upvotes = len(voters)
}

func (i Item) Clone() Item {
	i.UpvotedBy = slices.Clone(i.UpvotedBy)
	if i.UpvotedBy == nil {
		i.UpvotedBy = []string{}
	}

	return i
}
