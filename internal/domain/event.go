package domain

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var ErrUnknownEventType = errors.New("unknown event type")

type EventType string

const (
	EventAddItem    EventType = "add-item"
	EventToggleVote EventType = "toggle-vote"
	EventPlayItem   EventType = "play-item"
	EventAdvance    EventType = "advance"
	EventClearQueue EventType = "clear-queue"
)

// Payload is the closed set of event variants. Only the types in this file implement it.
type Payload interface {
	Type() EventType
	accept(ctx context.Context, v EventVisitor, evt Event) error
}

// EventVisitor must handle every event variant.
type EventVisitor interface {
	VisitAddItem(ctx context.Context, evt Event, p AddItem) error
	VisitToggleVote(ctx context.Context, evt Event, p ToggleVote) error
	VisitPlayItem(ctx context.Context, evt Event, p PlayItem) error
	VisitAdvance(ctx context.Context, evt Event, p Advance) error
	VisitClearQueue(ctx context.Context, evt Event, p ClearQueue) error
}

type AddItem struct {
	Item Item `json:"song"`
}

func (AddItem) Type() EventType { return EventAddItem }

func (p AddItem) accept(ctx context.Context, v EventVisitor, evt Event) error {
	return v.VisitAddItem(ctx, evt, p)
}

type ToggleVote struct {
	ItemId string `json:"songId"`
	UserId string `json:"userId"`
}

func (ToggleVote) Type() EventType { return EventToggleVote }

func (p ToggleVote) accept(ctx context.Context, v EventVisitor, evt Event) error {
	return v.VisitToggleVote(ctx, evt, p)
}

type PlayItem struct {
	ItemId string `json:"songId"`
	UserId string `json:"userId"`
}

func (PlayItem) Type() EventType { return EventPlayItem }

func (p PlayItem) accept(ctx context.Context, v EventVisitor, evt Event) error {
	return v.VisitPlayItem(ctx, evt, p)
}

type Advance struct {
	OldItemId string `json:"oldSongId"`
	NewItemId string `json:"newSongId"`
	UserId    string `json:"userId"`
}

func (Advance) Type() EventType { return EventAdvance }

func (p Advance) accept(ctx context.Context, v EventVisitor, evt Event) error {
	return v.VisitAdvance(ctx, evt, p)
}

type ClearQueue struct{}

func (ClearQueue) Type() EventType { return EventClearQueue }

func (p ClearQueue) accept(ctx context.Context, v EventVisitor, evt Event) error {
	return v.VisitClearQueue(ctx, evt, p)
}

// Event is an immutable entry of the event log.
type Event struct {
	Id        string
	RoomId    string
	Origin    string
	CreatedAt int64
	Payload   Payload
}

func NewEvent(roomId, origin string, payload Payload) Event {
	return Event{
		Id:        uuid.NewString(),
		RoomId:    roomId,
		Origin:    origin,
		CreatedAt: time.Now().UnixMilli(),
		Payload:   payload,
	}
}

func (e Event) Type() EventType {
	if e.Payload == nil {
		return ""
	}

	return e.Payload.Type()
}

func (e Event) Dispatch(ctx context.Context, v EventVisitor) error {
	if e.Payload == nil {
		return fmt.Errorf("event %s: %w", e.Id, ErrUnknownEventType)
	}

	return e.Payload.accept(ctx, v, e)
}

type eventJSON struct {
	Id        string          `json:"id"`
	Type      EventType       `json:"type"`
	RoomId    string          `json:"roomId"`
	Origin    string          `json:"origin,omitempty"`
	CreatedAt int64           `json:"createdAt"`
	Payload   json.RawMessage `json:"payload"`
}

func (e Event) MarshalJSON() ([]byte, error) {
	if e.Payload == nil {
		return nil, ErrUnknownEventType
	}

	payload, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payload: %w", err)
	}

	return json.Marshal(eventJSON{
		Id:        e.Id,
		Type:      e.Payload.Type(),
		RoomId:    e.RoomId,
		Origin:    e.Origin,
		CreatedAt: e.CreatedAt,
		Payload:   payload,
	})
}

func (e *Event) UnmarshalJSON(data []byte) error {
	var raw eventJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var payload Payload
	switch raw.Type {
	case EventAddItem:
		var p AddItem
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", raw.Type, err)
		}
		payload = p
	case EventToggleVote:
		var p ToggleVote
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", raw.Type, err)
		}
		payload = p
	case EventPlayItem:
		var p PlayItem
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", raw.Type, err)
		}
		payload = p
	case EventAdvance:
		var p Advance
		if err := json.Unmarshal(raw.Payload, &p); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", raw.Type, err)
		}
		payload = p
	case EventClearQueue:
		payload = ClearQueue{}
	default:
		return fmt.Errorf("%q: %w", raw.Type, ErrUnknownEventType)
	}

	*e = Event{
		Id:        raw.Id,
		RoomId:    raw.RoomId,
		Origin:    raw.Origin,
		CreatedAt: raw.CreatedAt,
		Payload:   payload,
	}

	return nil
}
