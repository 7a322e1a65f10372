package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/sharetube/jukebox/internal/domain"
)

func (s service) appendEvent(ctx context.Context, roomId, sessionId string, payload domain.Payload) error {
	evt := domain.NewEvent(roomId, sessionId, payload)
	recordId, err := s.eventLog.Append(ctx, evt)
	if err != nil {
		return fmt.Errorf("failed to append %s: %w", evt.Type(), err)
	}

	s.metrics.EventAppended(string(evt.Type()))
	slog.DebugContext(ctx, "event appended", "event_id", evt.Id, "record_id", recordId)
	return nil
}

func (s service) getQueue(ctx context.Context, roomId string) ([]domain.Item, error) {
	ids, err := s.queueRepo.GetItemIds(ctx, roomId)
	if err != nil {
		return nil, fmt.Errorf("failed to get item ids: %w", err)
	}

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

func (s service) reject(err error) error {
	var reason string
	switch {
	case errors.Is(err, ErrValidation):
		reason = "validation"
	case errors.Is(err, ErrPermissionDenied):
		reason = "permission"
	case errors.Is(err, ErrItemAlreadyQueued):
		reason = "conflict"
	case errors.Is(err, ErrQueueLimitReached):
		reason = "queue_limit"
	case errors.Is(err, ErrRoomFull):
		reason = "room_full"
	default:
		return err
	}

	s.metrics.ActionRejected(reason)
	return err
}
