package gateway

import (
	"context"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/sharetube/jukebox/internal/domain"
)

type AddItemParams struct {
	SessionId string
	UserId    string
	RoomId    string
	Item      domain.Item
}

// AddItem checks the room queue before appending. The check is repeated when the
// event is applied, two concurrent adds of the same media can both pass here.
func (s service) AddItem(ctx context.Context, params *AddItemParams) error {
	item := params.Item.Clone()
	if err := validation.ValidateStructWithContext(ctx, &item.Media,
		validation.Field(&item.Media.ExternalId, VideoIdRule...),
	); err != nil {
		return s.reject(fmt.Errorf("%w: %w", ErrValidation, err))
	}

	if err := validation.ValidateWithContext(ctx, item.Id, ItemIdRule...); err != nil {
		return s.reject(fmt.Errorf("%w: id: %w", ErrValidation, err))
	}

	length, err := s.queueRepo.GetQueueLength(ctx, params.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get queue length: %w", err)
	}

	if s.playlistLimit > 0 && length >= s.playlistLimit {
		return s.reject(ErrQueueLimitReached)
	}

	queued, err := s.getQueue(ctx, params.RoomId)
	if err != nil {
		return err
	}

	for _, q := range queued {
		if q.Media.ExternalId == item.Media.ExternalId || (item.Id != "" && q.Id == item.Id) {
			return s.reject(ErrItemAlreadyQueued)
		}
	}

	if item.Id == "" {
		item.Id = uuid.NewString()
	}
	if item.AuthorId == "" {
		item.AuthorId = params.UserId
	}
	if item.Author == "" {
		item.Author = params.UserId
	}
	item.Room = params.RoomId
	item.IsPlayed = false
	item.Upvotes = 0
	item.UpvotedBy = []string{}

	if item.Media.Title == "" && s.catalog != nil {
		media, err := s.catalog.Get(ctx, item.Media.ExternalId)
		if err != nil {
			slog.WarnContext(ctx, "failed to look up media", "video_id", item.Media.ExternalId, "error", err)
		} else {
			media.ExternalId = item.Media.ExternalId
			item.Media = media
		}
	}

	return s.appendEvent(ctx, params.RoomId, params.SessionId, domain.AddItem{Item: item})
}

type ToggleVoteParams struct {
	SessionId string
	UserId    string
	RoomId    string
	ItemId    string
}

func (s service) ToggleVote(ctx context.Context, params *ToggleVoteParams) error {
	if params.ItemId == "" {
		return s.reject(fmt.Errorf("song id is required: %w", ErrValidation))
	}

	return s.appendEvent(ctx, params.RoomId, params.SessionId, domain.ToggleVote{
		ItemId: params.ItemId,
		UserId: params.UserId,
	})
}

type PlayItemParams struct {
	SessionId string
	UserId    string
	RoomId    string
	ItemId    string
}

func (s service) PlayItem(ctx context.Context, params *PlayItemParams) error {
	if !domain.IsRoomOwner(params.UserId, params.RoomId) {
		return s.reject(ErrPermissionDenied)
	}

	if params.ItemId == "" {
		return s.reject(fmt.Errorf("song id is required: %w", ErrValidation))
	}

	return s.appendEvent(ctx, params.RoomId, params.SessionId, domain.PlayItem{
		ItemId: params.ItemId,
		UserId: params.UserId,
	})
}

type AdvanceParams struct {
	SessionId string
	UserId    string
	RoomId    string
	OldItemId string
	NewItemId string
}

func (s service) Advance(ctx context.Context, params *AdvanceParams) error {
	return s.appendEvent(ctx, params.RoomId, params.SessionId, domain.Advance{
		OldItemId: params.OldItemId,
		NewItemId: params.NewItemId,
		UserId:    params.UserId,
	})
}

type ClearQueueParams struct {
	SessionId string
	RoomId    string
}

func (s service) ClearQueue(ctx context.Context, params *ClearQueueParams) error {
	return s.appendEvent(ctx, params.RoomId, params.SessionId, domain.ClearQueue{})
}
