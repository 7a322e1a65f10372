// Package reconciler keeps a client's local view of a room consistent with the
// broadcasts it receives. It is not safe for concurrent use.
package reconciler

import (
	"cmp"
	"encoding/json"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"
	"github.com/sharetube/jukebox/internal/domain"
	"golang.org/x/exp/maps"
)

var (
	ErrNotOwner    = errors.New("only the room owner can control playback")
	ErrUnknownItem = errors.New("item is not in the queue")
)

// Player is the local media player.
type Player interface {
	// Stop resets the player, a new media load follows.
	Stop()
	// Toggle pauses or resumes and reports whether it is playing now.
	Toggle() bool
}

type Emitter interface {
	Emit(msgType string, payload any) error
}

type Reconciler struct {
	userId  string
	roomId  string
	player  Player
	emitter Emitter

	ranked  map[string]domain.Item
	playing *domain.Item
	ready   bool
}

func New(userId, roomId string, player Player, emitter Emitter) *Reconciler {
	return &Reconciler{
		userId:  userId,
		roomId:  roomId,
		player:  player,
		emitter: emitter,
		ranked:  make(map[string]domain.Item),
	}
}

func (r *Reconciler) IsOwner() bool {
	return domain.IsRoomOwner(r.userId, r.roomId)
}

func (r *Reconciler) Playing() (domain.Item, bool) {
	if r.playing == nil {
		return domain.Item{}, false
	}

	return *r.playing, true
}

func (r *Reconciler) Ready() bool {
	return r.ready
}

// Ranked returns the queue without the playing item, by upvotes desc then id asc.
func (r *Reconciler) Ranked() []domain.Item {
	items := maps.Values(r.ranked)
	slices.SortFunc(items, func(a, b domain.Item) int {
		if c := cmp.Compare(b.Upvotes, a.Upvotes); c != 0 {
			return c
		}
		return cmp.Compare(a.Id, b.Id)
	})

	return items
}

// Render returns the presentation order: the playing item first, then the ranked queue.
func (r *Reconciler) Render() []Row {
	ranked := r.Ranked()
	rows := make([]Row, 0, len(ranked)+1)
	if r.playing != nil {
		rows = append(rows, r.row(*r.playing, true))
	}
	for _, item := range ranked {
		rows = append(rows, r.row(item, false))
	}

	return rows
}

// Handle applies one broadcast. Unknown message types are ignored.
func (r *Reconciler) Handle(msgType string, payload json.RawMessage) error {
	switch msgType {
	case domain.OutSyncFirstQueue, domain.OutSyncQueue:
		var items []domain.Item
		if err := decode(payload, &items); err != nil {
			return err
		}
		r.Sync(items)
	case domain.OutNewSong:
		var item domain.Item
		if err := decode(payload, &item); err != nil {
			return err
		}
		r.NewItem(item)
	case domain.OutPlaySong:
		var item domain.Item
		if err := decode(payload, &item); err != nil {
			return err
		}
		r.ItemPlaying(item)
	case domain.OutToggleLike:
		var item domain.Item
		if err := decode(payload, &item); err != nil {
			return err
		}
		r.VoteToggled(item)
	case domain.OutClearQueue:
		r.QueueCleared()
	}

	return nil
}

func decode(payload json.RawMessage, v any) error {
	if err := json.Unmarshal(payload, v); err != nil {
		return fmt.Errorf("failed to decode payload: %w", err)
	}

	return nil
}

// Sync rebuilds the local state from a full queue. The first played item, or
// the first item when none is played, becomes the playing one.
func (r *Reconciler) Sync(items []domain.Item) {
	seen := make(map[string]struct{}, len(items))
	unique := make([]domain.Item, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item.Id]; ok {
			continue
		}
		seen[item.Id] = struct{}{}
		unique = append(unique, item)
	}

	var playing *domain.Item
	for i := range unique {
		if unique[i].IsPlayed {
			playing = &unique[i]
			break
		}
	}
	if playing == nil && len(unique) > 0 {
		playing = &unique[0]
	}

	r.ranked = make(map[string]domain.Item, len(unique))
	for _, item := range unique {
		if playing != nil && item.Id == playing.Id {
			continue
		}
		r.ranked[item.Id] = item
	}

	r.setPlaying(playing)
}

func (r *Reconciler) NewItem(item domain.Item) {
	if r.playing == nil {
		r.setPlaying(&item)
		return
	}

	if item.Id == r.playing.Id || item.IsPlayed {
		return
	}
	if _, ok := r.ranked[item.Id]; ok {
		return
	}

	r.ranked[item.Id] = item
}

func (r *Reconciler) ItemPlaying(item domain.Item) {
	delete(r.ranked, item.Id)
	r.setPlaying(&item)
}

func (r *Reconciler) VoteToggled(item domain.Item) {
	if r.playing != nil && r.playing.Id == item.Id {
		r.playing = &item
		return
	}

	if _, ok := r.ranked[item.Id]; ok {
		r.ranked[item.Id] = item
	}
}

func (r *Reconciler) QueueCleared() {
	r.ranked = make(map[string]domain.Item)
	r.setPlaying(nil)
}

// setPlaying resets the player only when the playing item changes.
func (r *Reconciler) setPlaying(item *domain.Item) {
	same := r.playing != nil && item != nil && r.playing.Id == item.Id
	if !same {
		if r.player != nil && (r.playing != nil || item != nil) {
			r.player.Stop()
		}
		r.ready = false
	}

	if item == nil {
		r.playing = nil
		return
	}

	playing := *item
	r.playing = &playing
}

// MarkReady is called once the player loaded the playing media.
func (r *Reconciler) MarkReady() {
	if r.playing != nil && r.player != nil {
		r.ready = true
	}
}

type AddSongPayload struct {
	Id     string       `json:"id"`
	Author string       `json:"author"`
	Media  domain.Media `json:"data"`
}

type ToggleLikePayload struct {
	SongId string `json:"songId"`
	UserId string `json:"userId"`
	RoomId string `json:"roomId"`
}

type PlaySongPayload struct {
	RoomId string `json:"roomId"`
	SongId string `json:"songId"`
	UserId string `json:"userId"`
}

type PlayNextPayload struct {
	OldSongId string `json:"oldSongId"`
	NewSongId string `json:"newSongId"`
	RoomId    string `json:"roomId"`
	UserId    string `json:"userId"`
}

type ClearQueuePayload struct {
	RoomId string `json:"roomId"`
}

// AddItem asks the room to queue media under a new id and returns that id.
func (r *Reconciler) AddItem(author string, media domain.Media) (string, error) {
	id := uuid.NewString()
	if err := r.emitter.Emit(domain.InAddSong, AddSongPayload{
		Id:     id,
		Author: author,
		Media:  media,
	}); err != nil {
		return "", err
	}

	return id, nil
}

// ToggleVote votes for a queued item. The playing item cannot be voted on.
func (r *Reconciler) ToggleVote(itemId string) error {
	if _, ok := r.ranked[itemId]; !ok {
		return fmt.Errorf("%s: %w", itemId, ErrUnknownItem)
	}

	return r.emitter.Emit(domain.InToggleLike, ToggleLikePayload{
		SongId: itemId,
		UserId: r.userId,
		RoomId: r.roomId,
	})
}

// TogglePlay pauses or resumes the playing item. The first start of an item
// is announced to the room. It does nothing until the player is ready.
func (r *Reconciler) TogglePlay() error {
	if !r.IsOwner() {
		return ErrNotOwner
	}
	if r.player == nil || !r.ready || r.playing == nil {
		return nil
	}

	if !r.playing.IsPlayed {
		if err := r.emitter.Emit(domain.InPlaySong, PlaySongPayload{
			RoomId: r.roomId,
			SongId: r.playing.Id,
			UserId: r.userId,
		}); err != nil {
			return err
		}
		r.playing.IsPlayed = true
	}

	r.player.Toggle()

	return nil
}

// PlayNext moves to the best ranked item, or clears the queue when nothing is left.
func (r *Reconciler) PlayNext() error {
	if !r.IsOwner() {
		return ErrNotOwner
	}

	ranked := r.Ranked()
	if len(ranked) == 0 {
		return r.emitter.Emit(domain.InClearQueue, ClearQueuePayload{RoomId: r.roomId})
	}

	var oldId string
	if r.playing != nil {
		oldId = r.playing.Id
	}

	return r.emitter.Emit(domain.InPlayNext, PlayNextPayload{
		OldSongId: oldId,
		NewSongId: ranked[0].Id,
		RoomId:    r.roomId,
		UserId:    r.userId,
	})
}
