package reconciler

import "github.com/sharetube/jukebox/internal/domain"

type Row struct {
	Item      domain.Item
	IsPlaying bool
	// CanVote is false for the playing item.
	CanVote   bool
	LikedByMe bool
	IsMine    bool
}

func (r *Reconciler) row(item domain.Item, playing bool) Row {
	return Row{
		Item:      item,
		IsPlaying: playing,
		CanVote:   !playing,
		LikedByMe: item.IsUpvotedBy(r.userId),
		IsMine:    item.AuthorId == r.userId,
	}
}

// AuthorLabel is "You" for items added by the current user.
func (row Row) AuthorLabel() string {
	if row.IsMine {
		return "You"
	}

	return row.Item.Author
}
