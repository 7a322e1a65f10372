package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/repository/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T, exp time.Duration) (*repo, *miniredis.Miniredis) {
	t.Helper()

	s := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: s.Addr()})
	t.Cleanup(func() { rc.Close() })

	return NewRepo(rc, exp), s
}

func testItem(id, videoId string) domain.Item {
	return domain.Item{
		Id:        id,
		Author:    "alice",
		AuthorId:  "alice-id",
		Room:      "room-1",
		UpvotedBy: []string{},
		Media: domain.Media{
			ExternalId:   videoId,
			Image:        "https://i.ytimg.com/vi/" + videoId + "/hqdefault.jpg",
			Title:        "title " + videoId,
			Description:  "description",
			SourceAuthor: "channel",
		},
	}
}

func TestSetItemWritesHashAndQueue(t *testing.T) {
	r, s := newTestRepo(t, time.Hour)
	ctx := context.Background()

	item := testItem("a", "vid-a")
	require.NoError(t, r.SetItem(ctx, &queue.SetItemParams{Item: queue.NewItem(item), RoomId: "room-1"}))

	assert.Equal(t, "vid-a", s.HGet("item:a", "videoId"))
	assert.Equal(t, "[]", s.HGet("item:a", "upvotedBy"))
	assert.Equal(t, "0", s.HGet("item:a", "isPlayed"))
	list, err := s.List("room:room-1:queue")
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, list)
	assert.Equal(t, time.Hour, s.TTL("item:a"))

	stored, err := r.GetItem(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, item, stored.ToDomain())
}

func TestSetItemMarksEventApplied(t *testing.T) {
	r, s := newTestRepo(t, time.Hour)
	ctx := context.Background()

	applied, err := r.IsEventApplied(ctx, "evt-1")
	require.NoError(t, err)
	assert.False(t, applied)

	require.NoError(t, r.SetItem(ctx, &queue.SetItemParams{
		Item:    queue.NewItem(testItem("a", "vid-a")),
		RoomId:  "room-1",
		EventId: "evt-1",
	}))

	applied, err = r.IsEventApplied(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, applied)
	assert.Equal(t, time.Hour, s.TTL("applied:evt-1"))

	// the marker outlives the item
	require.NoError(t, r.RemoveItem(ctx, &queue.RemoveItemParams{ItemId: "a", RoomId: "room-1"}))
	applied, err = r.IsEventApplied(ctx, "evt-1")
	require.NoError(t, err)
	assert.True(t, applied)

	applied, err = r.IsEventApplied(ctx, "")
	require.NoError(t, err)
	assert.False(t, applied)
}

func TestGetItemsKeepsQueueOrderAndSkipsOrphans(t *testing.T) {
	r, _ := newTestRepo(t, 0)
	ctx := context.Background()

	for _, id := range []string{"c", "a", "b"} {
		require.NoError(t, r.SetItem(ctx, &queue.SetItemParams{Item: queue.NewItem(testItem(id, "vid-"+id)), RoomId: "room-1"}))
	}

	ids, err := r.GetItemIds(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"c", "a", "b"}, ids)

	items, err := r.GetItems(ctx, append(ids, "missing"))
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "c", items[0].Id)
	assert.Equal(t, "a", items[1].Id)
	assert.Equal(t, "b", items[2].Id)

	length, err := r.GetQueueLength(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 3, length)
}

func TestUpdateItemVotesAndIsPlayed(t *testing.T) {
	r, _ := newTestRepo(t, 0)
	ctx := context.Background()

	require.NoError(t, r.SetItem(ctx, &queue.SetItemParams{Item: queue.NewItem(testItem("a", "vid-a")), RoomId: "room-1"}))
	require.NoError(t, r.UpdateItemVotes(ctx, &queue.UpdateItemVotesParams{
		ItemId:    "a",
		Upvotes:   2,
		UpvotedBy: []string{"u1", "u2"},
	}))
	require.NoError(t, r.UpdateItemIsPlayed(ctx, &queue.UpdateItemIsPlayedParams{ItemId: "a", IsPlayed: true}))

	item, err := r.GetItem(ctx, "a")
	require.NoError(t, err)
	d := item.ToDomain()
	assert.Equal(t, 2, d.Upvotes)
	assert.Equal(t, []string{"u1", "u2"}, d.UpvotedBy)
	assert.True(t, d.IsPlayed)
}

func TestGetItemNotFound(t *testing.T) {
	r, _ := newTestRepo(t, 0)

	_, err := r.GetItem(context.Background(), "nope")
	assert.ErrorIs(t, err, queue.ErrItemNotFound)
}

func TestRemoveItemAndQueue(t *testing.T) {
	r, s := newTestRepo(t, 0)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, r.SetItem(ctx, &queue.SetItemParams{Item: queue.NewItem(testItem(id, "vid-"+id)), RoomId: "room-1"}))
	}

	require.NoError(t, r.RemoveItem(ctx, &queue.RemoveItemParams{ItemId: "a", RoomId: "room-1"}))
	assert.False(t, s.Exists("item:a"))
	ids, err := r.GetItemIds(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"b", "c"}, ids)

	n, err := r.RemoveQueue(ctx, "room-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)
	assert.False(t, s.Exists("item:b"))
	assert.False(t, s.Exists("item:c"))
	assert.False(t, s.Exists("room:room-1:queue"))

	ids, err = r.GetItemIds(ctx, "room-1")
	require.NoError(t, err)
	assert.Empty(t, ids)
}
