package materializer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/repository/queue"
)

func (s service) VisitAddItem(ctx context.Context, evt domain.Event, p domain.AddItem) error {
	item := p.Item.Clone()
	if item.Id == "" {
		return fmt.Errorf("add-item without item id: %w", errSkipped)
	}
	item.Room = evt.RoomId
	item.Normalize()

	ids, err := s.queueRepo.GetItemIds(ctx, evt.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get item ids: %w", err)
	}

	queued, err := s.queueRepo.GetItems(ctx, ids)
	if err != nil {
		return fmt.Errorf("failed to get items: %w", err)
	}

	applied, err := s.queueRepo.IsEventApplied(ctx, evt.Id)
	if err != nil {
		return fmt.Errorf("failed to check applied event: %w", err)
	}

	for _, q := range queued {
		existing := q.ToDomain()
		if existing.Id == item.Id {
			// replayed event, the write already happened
			s.broadcaster.Broadcast(ctx, evt.RoomId, &domain.Message{
				Type:    domain.OutNewSong,
				Payload: existing,
			})
			return nil
		}
	}

	if applied {
		// the item was added once and has left the queue since
		return fmt.Errorf("add-item %s already applied: %w", evt.Id, errSkipped)
	}

	for _, q := range queued {
		existing := q.ToDomain()
		if existing.Media.ExternalId == item.Media.ExternalId {
			if evt.Origin != "" {
				if err := s.broadcaster.SendTo(ctx, evt.Origin, domain.NewErrorMessage(domain.MsgItemAlreadyQueued)); err != nil {
					slog.DebugContext(ctx, "failed to notify origin", "session_id", evt.Origin, "error", err)
				}
			}
			return fmt.Errorf("media %s already queued as %s: %w", item.Media.ExternalId, existing.Id, errSkipped)
		}
	}

	if err := s.queueRepo.SetItem(ctx, &queue.SetItemParams{
		Item:    queue.NewItem(item),
		RoomId:  evt.RoomId,
		EventId: evt.Id,
	}); err != nil {
		return fmt.Errorf("failed to set item: %w", err)
	}

	s.broadcaster.Broadcast(ctx, evt.RoomId, &domain.Message{
		Type:    domain.OutNewSong,
		Payload: item,
	})

	return nil
}

func (s service) VisitToggleVote(ctx context.Context, evt domain.Event, p domain.ToggleVote) error {
	if p.UserId == "" {
		return fmt.Errorf("toggle-vote without user id: %w", errSkipped)
	}

	item, err := s.getRoomItem(ctx, evt.RoomId, p.ItemId)
	if err != nil {
		return err
	}

	item.ToggleVote(p.UserId)
	if err := s.queueRepo.UpdateItemVotes(ctx, &queue.UpdateItemVotesParams{
		ItemId:    item.Id,
		Upvotes:   item.Upvotes,
		UpvotedBy: item.UpvotedBy,
	}); err != nil {
		return fmt.Errorf("failed to update votes: %w", err)
	}

	s.broadcaster.Broadcast(ctx, evt.RoomId, &domain.Message{
		Type:    domain.OutToggleLike,
		Payload: item,
	})

	return nil
}

func (s service) VisitPlayItem(ctx context.Context, evt domain.Event, p domain.PlayItem) error {
	if !domain.IsRoomOwner(p.UserId, evt.RoomId) {
		return fmt.Errorf("play-item by %q: %w", p.UserId, errSkipped)
	}

	item, err := s.getRoomItem(ctx, evt.RoomId, p.ItemId)
	if err != nil {
		return err
	}

	if item.IsPlayed {
		return fmt.Errorf("item %s already played: %w", item.Id, errSkipped)
	}

	if err := s.queueRepo.UpdateItemIsPlayed(ctx, &queue.UpdateItemIsPlayedParams{
		ItemId:   item.Id,
		IsPlayed: true,
	}); err != nil {
		return fmt.Errorf("failed to update is played: %w", err)
	}
	item.IsPlayed = true

	s.broadcaster.Broadcast(ctx, evt.RoomId, &domain.Message{
		Type:    domain.OutPlaySong,
		Payload: item,
	})

	return nil
}

func (s service) VisitAdvance(ctx context.Context, evt domain.Event, p domain.Advance) error {
	ids, err := s.queueRepo.GetItemIds(ctx, evt.RoomId)
	if err != nil {
		return fmt.Errorf("failed to get item ids: %w", err)
	}

	// the old hash goes even when the queue no longer references it
	if p.OldItemId != "" && p.OldItemId != p.NewItemId {
		if err := s.queueRepo.RemoveItem(ctx, &queue.RemoveItemParams{
			ItemId: p.OldItemId,
			RoomId: evt.RoomId,
		}); err != nil {
			return fmt.Errorf("failed to remove item: %w", err)
		}
		ids = slices.DeleteFunc(ids, func(id string) bool { return id == p.OldItemId })
	}

	if p.NewItemId != "" && slices.Contains(ids, p.NewItemId) {
		item, err := s.getRoomItem(ctx, evt.RoomId, p.NewItemId)
		if err != nil {
			return err
		}

		if !item.IsPlayed {
			if err := s.queueRepo.UpdateItemIsPlayed(ctx, &queue.UpdateItemIsPlayedParams{
				ItemId:   item.Id,
				IsPlayed: true,
			}); err != nil {
				return fmt.Errorf("failed to update is played: %w", err)
			}
			item.IsPlayed = true
		}

		s.broadcaster.Broadcast(ctx, evt.RoomId, &domain.Message{
			Type:    domain.OutPlaySong,
			Payload: item,
		})
	}

	items, err := s.getQueue(ctx, ids)
	if err != nil {
		return err
	}

	s.broadcaster.Broadcast(ctx, evt.RoomId, &domain.Message{
		Type:    domain.OutSyncQueue,
		Payload: items,
	})

	return nil
}

func (s service) VisitClearQueue(ctx context.Context, evt domain.Event, _ domain.ClearQueue) error {
	removed, err := s.queueRepo.RemoveQueue(ctx, evt.RoomId)
	if err != nil {
		return fmt.Errorf("failed to remove queue: %w", err)
	}
	slog.DebugContext(ctx, "queue cleared", "removed", removed)

	s.broadcaster.Broadcast(ctx, evt.RoomId, &domain.Message{
		Type:    domain.OutClearQueue,
		Payload: nil,
	})

	return nil
}

// getRoomItem returns errSkipped when the item is gone or belongs to another room.
func (s service) getRoomItem(ctx context.Context, roomId, itemId string) (domain.Item, error) {
	stored, err := s.queueRepo.GetItem(ctx, itemId)
	if err != nil {
		if errors.Is(err, queue.ErrItemNotFound) {
			return domain.Item{}, fmt.Errorf("item %s: %w", itemId, errSkipped)
		}

		return domain.Item{}, fmt.Errorf("failed to get item: %w", err)
	}

	item := stored.ToDomain()
	if item.Room != roomId {
		return domain.Item{}, fmt.Errorf("item %s belongs to room %s: %w", itemId, item.Room, errSkipped)
	}

	return item, nil
}

func (s service) getQueue(ctx context.Context, ids []string) ([]domain.Item, error) {
	stored, err := s.queueRepo.GetItems(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}

	items := make([]domain.Item, 0, len(stored))
	for _, item := range stored {
		items = append(items, item.ToDomain())
	}

	return items, nil
}
