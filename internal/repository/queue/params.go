package queue

type SetItemParams struct {
	Item   Item
	RoomId string
	// EventId, when set, is marked as applied in the same transaction.
	EventId string
}

type RemoveItemParams struct {
	ItemId string
	RoomId string
}

type UpdateItemVotesParams struct {
	ItemId    string
	Upvotes   int
	UpvotedBy []string
}

type UpdateItemIsPlayedParams struct {
	ItemId   string
	IsPlayed bool
}
