package reconciler

import (
	"encoding/json"
	"testing"

	"github.com/sharetube/jukebox/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakePlayer struct {
	stops   int
	playing bool
}

func (p *fakePlayer) Stop() {
	p.stops++
	p.playing = false
}

func (p *fakePlayer) Toggle() bool {
	p.playing = !p.playing
	return p.playing
}

type emitted struct {
	msgType string
	payload any
}

type fakeEmitter struct {
	sent []emitted
}

func (e *fakeEmitter) Emit(msgType string, payload any) error {
	e.sent = append(e.sent, emitted{msgType: msgType, payload: payload})
	return nil
}

func newTestReconciler(userId string) (*Reconciler, *fakePlayer, *fakeEmitter) {
	p := &fakePlayer{}
	e := &fakeEmitter{}
	return New(userId, "owner", p, e), p, e
}

func item(id string, upvotes int) domain.Item {
	voters := make([]string, 0, upvotes)
	for i := 0; i < upvotes; i++ {
		voters = append(voters, id+"-voter-"+string(rune('a'+i)))
	}

	return domain.Item{
		Id:        id,
		Room:      "owner",
		Upvotes:   upvotes,
		UpvotedBy: voters,
		Media:     domain.Media{ExternalId: "vid-" + id},
	}
}

func renderIds(r *Reconciler) []string {
	var ids []string
	for _, row := range r.Render() {
		ids = append(ids, row.Item.Id)
	}
	return ids
}

func TestRenderOrdersByVotesThenId(t *testing.T) {
	r, _, _ := newTestReconciler("owner")
	r.ranked = map[string]domain.Item{
		"A": item("A", 3),
		"B": item("B", 3),
		"C": item("C", 5),
	}

	for i := 0; i < 5; i++ {
		assert.Equal(t, []string{"C", "A", "B"}, renderIds(r))
	}
}

func TestSyncDedupesAndPicksPlayedItem(t *testing.T) {
	r, _, _ := newTestReconciler("owner")

	played := item("b", 0)
	played.IsPlayed = true
	dup := item("a", 7)
	r.Sync([]domain.Item{item("a", 1), played, dup, item("c", 2)})

	playing, ok := r.Playing()
	require.True(t, ok)
	assert.Equal(t, "b", playing.Id)
	assert.Equal(t, []string{"b", "c", "a"}, renderIds(r))
	assert.Equal(t, 1, r.ranked["a"].Upvotes)
}

func TestSyncDefaultsToFirstItem(t *testing.T) {
	r, _, _ := newTestReconciler("owner")

	r.Sync([]domain.Item{item("x", 0), item("y", 4)})

	playing, ok := r.Playing()
	require.True(t, ok)
	assert.Equal(t, "x", playing.Id)
	assert.Equal(t, []string{"x", "y"}, renderIds(r))
}

func TestNewItemOnEmptyQueueBecomesPlaying(t *testing.T) {
	r, p, _ := newTestReconciler("guest")

	r.Sync(nil)
	r.NewItem(item("first", 0))

	playing, ok := r.Playing()
	require.True(t, ok)
	assert.Equal(t, "first", playing.Id)
	assert.Empty(t, r.Ranked())
	assert.Equal(t, 1, p.stops)
	assert.False(t, r.Ready())
}

func TestNewItemIgnoresDuplicatesAndPlayedItems(t *testing.T) {
	r, _, _ := newTestReconciler("guest")
	r.Sync([]domain.Item{item("a", 0)})

	r.NewItem(item("b", 0))
	r.NewItem(item("b", 9))
	r.NewItem(item("a", 9))
	played := item("c", 0)
	played.IsPlayed = true
	r.NewItem(played)

	assert.Equal(t, []string{"a", "b"}, renderIds(r))
	assert.Equal(t, 0, r.ranked["b"].Upvotes)
}

func TestItemPlayingIsIdempotent(t *testing.T) {
	once, _, _ := newTestReconciler("owner")
	twice, _, _ := newTestReconciler("owner")
	for _, r := range []*Reconciler{once, twice} {
		r.Sync([]domain.Item{item("a", 0), item("b", 1), item("c", 2)})
	}

	next := item("c", 2)
	next.IsPlayed = true
	once.ItemPlaying(next)
	twice.ItemPlaying(next)
	twice.ItemPlaying(next)

	assert.Equal(t, once.Render(), twice.Render())
	assert.Equal(t, once.Ready(), twice.Ready())
	assert.Equal(t, []string{"c", "b"}, renderIds(once))
}

func TestItemPlayingResetsPlayer(t *testing.T) {
	r, p, _ := newTestReconciler("owner")
	r.Sync([]domain.Item{item("a", 0), item("b", 0)})
	r.MarkReady()
	require.True(t, r.Ready())
	stops := p.stops

	r.ItemPlaying(item("b", 0))

	assert.Equal(t, stops+1, p.stops)
	assert.False(t, r.Ready())
}

func TestAgreeingResyncKeepsPlayback(t *testing.T) {
	r, p, _ := newTestReconciler("owner")
	current := item("a", 0)
	current.IsPlayed = true
	r.Sync([]domain.Item{current, item("b", 0)})
	r.MarkReady()
	stops := p.stops

	r.Sync([]domain.Item{current, item("b", 1), item("c", 0)})

	assert.Equal(t, stops, p.stops)
	assert.True(t, r.Ready())
	assert.Equal(t, []string{"a", "b", "c"}, renderIds(r))
}

func TestVoteToggledReplacesItemWherever(t *testing.T) {
	r, _, _ := newTestReconciler("owner")
	r.Sync([]domain.Item{item("a", 0), item("b", 0), item("c", 1)})

	r.VoteToggled(item("b", 2))
	r.VoteToggled(item("a", 5))
	r.VoteToggled(item("unknown", 1))

	playing, _ := r.Playing()
	assert.Equal(t, 5, playing.Upvotes)
	assert.Equal(t, []string{"a", "b", "c"}, renderIds(r))
}

func TestQueueClearedDropsState(t *testing.T) {
	r, _, _ := newTestReconciler("owner")
	r.Sync([]domain.Item{item("a", 0), item("b", 0)})

	r.QueueCleared()

	_, ok := r.Playing()
	assert.False(t, ok)
	assert.Empty(t, r.Render())
}

func TestHandleDecodesBroadcasts(t *testing.T) {
	r, _, _ := newTestReconciler("owner")

	raw, err := json.Marshal([]domain.Item{item("a", 0)})
	require.NoError(t, err)
	require.NoError(t, r.Handle(domain.OutSyncFirstQueue, raw))

	raw, err = json.Marshal(item("b", 1))
	require.NoError(t, err)
	require.NoError(t, r.Handle(domain.OutNewSong, raw))

	require.NoError(t, r.Handle(domain.OutJoinedRoom, json.RawMessage(`{"roomId":"owner"}`)))
	assert.Error(t, r.Handle(domain.OutNewSong, json.RawMessage(`[`)))
	assert.Equal(t, []string{"a", "b"}, renderIds(r))

	require.NoError(t, r.Handle(domain.OutClearQueue, json.RawMessage(`null`)))
	assert.Empty(t, r.Render())
}

func TestControlsAreOwnerOnly(t *testing.T) {
	r, _, e := newTestReconciler("guest")
	r.Sync([]domain.Item{item("a", 0), item("b", 0)})
	r.MarkReady()

	assert.ErrorIs(t, r.TogglePlay(), ErrNotOwner)
	assert.ErrorIs(t, r.PlayNext(), ErrNotOwner)
	assert.Empty(t, e.sent)
}

func TestTogglePlayAnnouncesFirstStart(t *testing.T) {
	r, p, e := newTestReconciler("owner")
	r.Sync([]domain.Item{item("a", 0)})

	require.NoError(t, r.TogglePlay())
	assert.Empty(t, e.sent)

	r.MarkReady()
	require.NoError(t, r.TogglePlay())
	require.NoError(t, r.TogglePlay())

	require.Len(t, e.sent, 1)
	assert.Equal(t, domain.InPlaySong, e.sent[0].msgType)
	assert.Equal(t, PlaySongPayload{RoomId: "owner", SongId: "a", UserId: "owner"}, e.sent[0].payload)
	assert.False(t, p.playing)
}

func TestPlayNextEmitsAdvanceToBestRanked(t *testing.T) {
	r, _, e := newTestReconciler("owner")
	r.Sync([]domain.Item{item("a", 0), item("b", 1), item("c", 3)})

	require.NoError(t, r.PlayNext())

	require.Len(t, e.sent, 1)
	assert.Equal(t, domain.InPlayNext, e.sent[0].msgType)
	assert.Equal(t, PlayNextPayload{OldSongId: "a", NewSongId: "c", RoomId: "owner", UserId: "owner"}, e.sent[0].payload)
}

func TestPlayNextOnLastItemClearsQueue(t *testing.T) {
	r, _, e := newTestReconciler("owner")
	r.Sync([]domain.Item{item("a", 0)})

	require.NoError(t, r.PlayNext())

	require.Len(t, e.sent, 1)
	assert.Equal(t, domain.InClearQueue, e.sent[0].msgType)
	assert.Equal(t, ClearQueuePayload{RoomId: "owner"}, e.sent[0].payload)
}

func TestToggleVoteOnlyForRankedItems(t *testing.T) {
	r, _, e := newTestReconciler("guest")
	r.Sync([]domain.Item{item("a", 0), item("b", 0)})

	assert.ErrorIs(t, r.ToggleVote("a"), ErrUnknownItem)
	require.NoError(t, r.ToggleVote("b"))

	require.Len(t, e.sent, 1)
	assert.Equal(t, ToggleLikePayload{SongId: "b", UserId: "guest", RoomId: "owner"}, e.sent[0].payload)
}

func TestRenderFlagsRowsForCurrentUser(t *testing.T) {
	r, _, _ := newTestReconciler("guest")
	mine := item("b", 0)
	mine.AuthorId = "guest"
	mine.Author = "Guest"
	liked := item("c", 0)
	liked.UpvotedBy = []string{"guest"}
	liked.Upvotes = 1
	r.Sync([]domain.Item{item("a", 0), mine, liked})

	rows := r.Render()
	require.Len(t, rows, 3)
	assert.True(t, rows[0].IsPlaying)
	assert.False(t, rows[0].CanVote)
	assert.True(t, rows[1].LikedByMe)
	assert.True(t, rows[2].IsMine)
	assert.Equal(t, "You", rows[2].AuthorLabel())
}
