package gateway

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/metrics"
	"github.com/sharetube/jukebox/internal/repository/connection/inmemory"
	"github.com/sharetube/jukebox/internal/repository/queue"
	queueredis "github.com/sharetube/jukebox/internal/repository/queue/redis"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeLog struct {
	mu     sync.Mutex
	events []domain.Event
	err    error
}

func (l *fakeLog) Append(_ context.Context, evt domain.Event) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return "", l.err
	}
	l.events = append(l.events, evt)
	return evt.Id, nil
}

type fakeConn struct {
	id       string
	mu       sync.Mutex
	messages []*domain.Message
	failing  bool
	closed   bool
}

func (c *fakeConn) Id() string { return c.id }

func (c *fakeConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failing {
		return errors.New("broken pipe")
	}
	c.messages = append(c.messages, v.(*domain.Message))
	return nil
}

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

type fakeCatalog struct{}

func (fakeCatalog) Get(_ context.Context, videoId string) (domain.Media, error) {
	return domain.Media{
		ExternalId:   videoId,
		Title:        "looked up " + videoId,
		SourceAuthor: "channel",
	}, nil
}

type testEnv struct {
	s        *service
	log      *fakeLog
	seedRepo interface {
		SetItem(context.Context, *queue.SetItemParams) error
	}
}

func newTestEnv(t *testing.T, cfg *Config, catalog iCatalog) *testEnv {
	t.Helper()

	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	repo := queueredis.NewRepo(rc, time.Hour)
	log := &fakeLog{}
	s := NewService(repo, log, inmemory.NewRepo(), catalog, metrics.New(), cfg)

	return &testEnv{s: s, log: log, seedRepo: repo}
}

func (e *testEnv) seed(t *testing.T, roomId string, ids ...string) {
	t.Helper()

	for _, id := range ids {
		require.NoError(t, e.seedRepo.SetItem(context.Background(), &queue.SetItemParams{
			Item: queue.NewItem(domain.Item{
				Id:        id,
				Room:      roomId,
				UpvotedBy: []string{},
				Media:     domain.Media{ExternalId: "vid-" + id, Title: id},
			}),
			RoomId: roomId,
		}))
	}
}

func defaultConfig() *Config {
	return &Config{MembersLimit: 3, PlaylistLimit: 5}
}

func TestJoinRoomReturnsSnapshot(t *testing.T) {
	e := newTestEnv(t, defaultConfig(), nil)
	e.seed(t, "owner", "c", "a", "b")
	ctx := context.Background()

	conn := &fakeConn{id: "s1"}
	resp, err := e.s.JoinRoom(ctx, &JoinRoomParams{Conn: conn, UserId: "owner", RoomId: "owner"})
	require.NoError(t, err)
	assert.True(t, resp.IsAdmin)
	require.Len(t, resp.Items, 3)
	assert.Equal(t, "c", resp.Items[0].Id)
	assert.Equal(t, "a", resp.Items[1].Id)
	assert.Equal(t, "b", resp.Items[2].Id)

	require.Len(t, conn.messages, 1)
	assert.Equal(t, domain.OutSyncFirstQueue, conn.messages[0].Type)
	assert.Equal(t, resp.Items, conn.messages[0].Payload)

	resp, err = e.s.JoinRoom(ctx, &JoinRoomParams{Conn: &fakeConn{id: "s2"}, UserId: "guest", RoomId: "owner"})
	require.NoError(t, err)
	assert.False(t, resp.IsAdmin)
}

func TestJoinRoomValidation(t *testing.T) {
	e := newTestEnv(t, defaultConfig(), nil)

	_, err := e.s.JoinRoom(context.Background(), &JoinRoomParams{Conn: &fakeConn{id: "s1"}, RoomId: "owner"})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.s.JoinRoom(context.Background(), &JoinRoomParams{Conn: &fakeConn{id: "s1"}, UserId: "u1"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestJoinRoomRespectsMembersLimit(t *testing.T) {
	e := newTestEnv(t, &Config{MembersLimit: 1, PlaylistLimit: 5}, nil)
	ctx := context.Background()

	_, err := e.s.JoinRoom(ctx, &JoinRoomParams{Conn: &fakeConn{id: "s1"}, UserId: "u1", RoomId: "owner"})
	require.NoError(t, err)
	_, err = e.s.JoinRoom(ctx, &JoinRoomParams{Conn: &fakeConn{id: "s2"}, UserId: "u2", RoomId: "owner"})
	assert.ErrorIs(t, err, ErrRoomFull)

	e.s.LeaveRoom(ctx, "s1")
	_, err = e.s.JoinRoom(ctx, &JoinRoomParams{Conn: &fakeConn{id: "s2"}, UserId: "u2", RoomId: "owner"})
	assert.NoError(t, err)
}

func TestAddItemAppendsNormalizedEvent(t *testing.T) {
	e := newTestEnv(t, defaultConfig(), nil)

	err := e.s.AddItem(context.Background(), &AddItemParams{
		SessionId: "s1",
		UserId:    "u1",
		RoomId:    "owner",
		Item: domain.Item{
			Id:        "x",
			Author:    "Alice",
			Room:      "elsewhere",
			IsPlayed:  true,
			Upvotes:   9,
			UpvotedBy: []string{"u9"},
			Media:     domain.Media{ExternalId: "vid-x", Title: "x"},
		},
	})
	require.NoError(t, err)

	require.Len(t, e.log.events, 1)
	evt := e.log.events[0]
	assert.Equal(t, "owner", evt.RoomId)
	assert.Equal(t, "s1", evt.Origin)
	item := evt.Payload.(domain.AddItem).Item
	assert.Equal(t, "x", item.Id)
	assert.Equal(t, "Alice", item.Author)
	assert.Equal(t, "u1", item.AuthorId)
	assert.Equal(t, "owner", item.Room)
	assert.False(t, item.IsPlayed)
	assert.Zero(t, item.Upvotes)
	assert.Equal(t, []string{}, item.UpvotedBy)
}

func TestAddItemRejectsDuplicateMedia(t *testing.T) {
	e := newTestEnv(t, defaultConfig(), nil)
	e.seed(t, "owner", "a")

	err := e.s.AddItem(context.Background(), &AddItemParams{
		SessionId: "s1",
		UserId:    "u1",
		RoomId:    "owner",
		Item:      domain.Item{Id: "b", Media: domain.Media{ExternalId: "vid-a"}},
	})
	assert.ErrorIs(t, err, ErrItemAlreadyQueued)
	assert.Empty(t, e.log.events)
}

func TestAddItemRespectsQueueLimit(t *testing.T) {
	e := newTestEnv(t, &Config{MembersLimit: 3, PlaylistLimit: 2}, nil)
	e.seed(t, "owner", "a", "b")

	err := e.s.AddItem(context.Background(), &AddItemParams{
		SessionId: "s1",
		UserId:    "u1",
		RoomId:    "owner",
		Item:      domain.Item{Id: "c", Media: domain.Media{ExternalId: "vid-c"}},
	})
	assert.ErrorIs(t, err, ErrQueueLimitReached)
	assert.Empty(t, e.log.events)
}

func TestAddItemRequiresVideoId(t *testing.T) {
	e := newTestEnv(t, defaultConfig(), nil)

	err := e.s.AddItem(context.Background(), &AddItemParams{SessionId: "s1", UserId: "u1", RoomId: "owner"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestAddItemLooksUpMissingMedia(t *testing.T) {
	e := newTestEnv(t, defaultConfig(), fakeCatalog{})

	require.NoError(t, e.s.AddItem(context.Background(), &AddItemParams{
		SessionId: "s1",
		UserId:    "u1",
		RoomId:    "owner",
		Item:      domain.Item{Media: domain.Media{ExternalId: "vid-z"}},
	}))

	item := e.log.events[0].Payload.(domain.AddItem).Item
	assert.NotEmpty(t, item.Id)
	assert.Equal(t, "looked up vid-z", item.Media.Title)
	assert.Equal(t, "vid-z", item.Media.ExternalId)
}

func TestPlayItemIsOwnerOnly(t *testing.T) {
	e := newTestEnv(t, defaultConfig(), nil)
	ctx := context.Background()

	err := e.s.PlayItem(ctx, &PlayItemParams{SessionId: "s2", UserId: "guest", RoomId: "owner", ItemId: "a"})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Empty(t, e.log.events)

	require.NoError(t, e.s.PlayItem(ctx, &PlayItemParams{SessionId: "s1", UserId: "owner", RoomId: "owner", ItemId: "a"}))
	require.Len(t, e.log.events, 1)
	assert.Equal(t, domain.PlayItem{ItemId: "a", UserId: "owner"}, e.log.events[0].Payload)
}

func TestUnconditionalActionsAreAppended(t *testing.T) {
	e := newTestEnv(t, defaultConfig(), nil)
	ctx := context.Background()

	require.NoError(t, e.s.ToggleVote(ctx, &ToggleVoteParams{SessionId: "s2", UserId: "guest", RoomId: "owner", ItemId: "a"}))
	require.NoError(t, e.s.Advance(ctx, &AdvanceParams{SessionId: "s2", UserId: "guest", RoomId: "owner", OldItemId: "a", NewItemId: "b"}))
	require.NoError(t, e.s.ClearQueue(ctx, &ClearQueueParams{SessionId: "s2", RoomId: "owner"}))

	require.Len(t, e.log.events, 3)
	assert.Equal(t, domain.ToggleVote{ItemId: "a", UserId: "guest"}, e.log.events[0].Payload)
	assert.Equal(t, domain.Advance{OldItemId: "a", NewItemId: "b", UserId: "guest"}, e.log.events[1].Payload)
	assert.Equal(t, domain.ClearQueue{}, e.log.events[2].Payload)
	for _, evt := range e.log.events {
		assert.Equal(t, "owner", evt.RoomId)
	}
}

func TestAppendFailureIsReturned(t *testing.T) {
	e := newTestEnv(t, defaultConfig(), nil)
	e.log.err = errors.New("log down")

	err := e.s.ClearQueue(context.Background(), &ClearQueueParams{SessionId: "s1", RoomId: "owner"})
	assert.ErrorContains(t, err, "log down")
}

func TestBroadcastDropsFailingConns(t *testing.T) {
	e := newTestEnv(t, defaultConfig(), nil)
	ctx := context.Background()

	healthy := &fakeConn{id: "s1"}
	broken := &fakeConn{id: "s2"}
	other := &fakeConn{id: "s3"}
	for _, p := range []*JoinRoomParams{
		{Conn: healthy, UserId: "owner", RoomId: "owner"},
		{Conn: broken, UserId: "guest", RoomId: "owner"},
		{Conn: other, UserId: "guest", RoomId: "another"},
	} {
		_, err := e.s.JoinRoom(ctx, p)
		require.NoError(t, err)
	}
	broken.failing = true

	msg := &domain.Message{Type: domain.OutClearQueue}
	e.s.Broadcast(ctx, "owner", msg)

	require.Len(t, healthy.messages, 2)
	assert.Equal(t, domain.OutSyncFirstQueue, healthy.messages[0].Type)
	assert.Equal(t, msg, healthy.messages[1])
	assert.Len(t, other.messages, 1)
	assert.True(t, broken.closed)
	assert.Equal(t, 1, e.s.connRepo.CountRoomConns("owner"))

	require.NoError(t, e.s.SendTo(ctx, "s3", domain.NewErrorMessage("nope")))
	require.Len(t, other.messages, 2)
	assert.Equal(t, domain.OutError, other.messages[1].Type)
	assert.Error(t, e.s.SendTo(ctx, "s2", msg))
}

func TestJoinRoomFailsWhenSnapshotCannotBeWritten(t *testing.T) {
	e := newTestEnv(t, defaultConfig(), nil)
	ctx := context.Background()

	_, err := e.s.JoinRoom(ctx, &JoinRoomParams{Conn: &fakeConn{id: "s1", failing: true}, UserId: "u1", RoomId: "owner"})
	assert.Error(t, err)
	assert.Zero(t, e.s.connRepo.CountRoomConns("owner"))
}

type hookedQueueRepo struct {
	iQueueRepo
	onGetItemIds func()
}

func (r *hookedQueueRepo) GetItemIds(ctx context.Context, roomId string) ([]string, error) {
	if r.onGetItemIds != nil {
		r.onGetItemIds()
	}

	return r.iQueueRepo.GetItemIds(ctx, roomId)
}

func TestBroadcastDuringJoinArrivesAfterSnapshot(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { rc.Close() })

	repo := &hookedQueueRepo{iQueueRepo: queueredis.NewRepo(rc, time.Hour)}
	s := NewService(repo, &fakeLog{}, inmemory.NewRepo(), nil, metrics.New(), defaultConfig())
	ctx := context.Background()

	msg := &domain.Message{Type: domain.OutNewSong, Payload: domain.Item{Id: "x"}}
	broadcasted := make(chan struct{})
	var once sync.Once
	repo.onGetItemIds = func() {
		once.Do(func() {
			go func() {
				s.Broadcast(ctx, "owner", msg)
				close(broadcasted)
			}()
			// the connection is already registered, let the broadcast race the snapshot
			time.Sleep(20 * time.Millisecond)
		})
	}

	conn := &fakeConn{id: "s1"}
	_, err := s.JoinRoom(ctx, &JoinRoomParams{Conn: conn, UserId: "guest", RoomId: "owner"})
	require.NoError(t, err)
	<-broadcasted

	conn.mu.Lock()
	defer conn.mu.Unlock()
	require.Len(t, conn.messages, 2)
	assert.Equal(t, domain.OutSyncFirstQueue, conn.messages[0].Type)
	assert.Equal(t, msg, conn.messages[1])
}
