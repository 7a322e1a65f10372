package redis

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jukebox/internal/repository/queue"
)

func (r repo) getItemKey(itemId string) string {
	return "item:" + itemId
}

func (r repo) getQueueKey(roomId string) string {
	return "room:" + roomId + ":queue"
}

func (r repo) getAppliedKey(eventId string) string {
	return "applied:" + eventId
}

func (r repo) SetItem(ctx context.Context, params *queue.SetItemParams) error {
	pipe := r.rc.TxPipeline()

	itemKey := r.getItemKey(params.Item.Id)
	r.hSetStruct(ctx, pipe, itemKey, params.Item)

	queueKey := r.getQueueKey(params.RoomId)
	pipe.RPush(ctx, queueKey, params.Item.Id)
	r.expire(ctx, pipe, itemKey, queueKey)

	if params.EventId != "" {
		pipe.SetNX(ctx, r.getAppliedKey(params.EventId), 1, r.expireDuration)
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to set item: %w", err)
	}

	return nil
}

// IsEventApplied reports whether SetItem already ran for eventId.
func (r repo) IsEventApplied(ctx context.Context, eventId string) (bool, error) {
	if eventId == "" {
		return false, nil
	}

	n, err := r.rc.Exists(ctx, r.getAppliedKey(eventId)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check applied event: %w", err)
	}

	return n > 0, nil
}

func (r repo) GetItem(ctx context.Context, itemId string) (queue.Item, error) {
	var item queue.Item
	if err := r.rc.HGetAll(ctx, r.getItemKey(itemId)).Scan(&item); err != nil {
		return queue.Item{}, fmt.Errorf("failed to get item: %w", err)
	}

	if item.Id == "" {
		return queue.Item{}, queue.ErrItemNotFound
	}

	return item, nil
}

// GetItems resolves all hashes in one round trip. Ids without a hash are skipped,
// the order of the remaining items follows itemIds.
func (r repo) GetItems(ctx context.Context, itemIds []string) ([]queue.Item, error) {
	if len(itemIds) == 0 {
		return []queue.Item{}, nil
	}

	pipe := r.rc.Pipeline()
	cmds := make([]*redis.MapStringStringCmd, 0, len(itemIds))
	for _, itemId := range itemIds {
		cmds = append(cmds, pipe.HGetAll(ctx, r.getItemKey(itemId)))
	}

	if err := r.executePipe(ctx, pipe); err != nil {
		return nil, fmt.Errorf("failed to get items: %w", err)
	}

	items := make([]queue.Item, 0, len(cmds))
	for _, cmd := range cmds {
		var item queue.Item
		if err := cmd.Scan(&item); err != nil {
			return nil, fmt.Errorf("failed to scan item: %w", err)
		}

		if item.Id == "" {
			continue
		}

		items = append(items, item)
	}

	return items, nil
}

func (r repo) GetItemIds(ctx context.Context, roomId string) ([]string, error) {
	itemIds, err := r.rc.LRange(ctx, r.getQueueKey(roomId), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get item ids: %w", err)
	}

	return itemIds, nil
}

func (r repo) GetQueueLength(ctx context.Context, roomId string) (int, error) {
	length, err := r.rc.LLen(ctx, r.getQueueKey(roomId)).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get queue length: %w", err)
	}

	return int(length), nil
}

func (r repo) UpdateItemVotes(ctx context.Context, params *queue.UpdateItemVotesParams) error {
	upvotedBy, err := json.Marshal(params.UpvotedBy)
	if err != nil {
		return fmt.Errorf("failed to marshal voters: %w", err)
	}

	itemKey := r.getItemKey(params.ItemId)
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, itemKey,
		"upvotes", params.Upvotes,
		"upvotedBy", string(upvotedBy),
	)
	r.expire(ctx, pipe, itemKey)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to update item votes: %w", err)
	}

	return nil
}

func (r repo) UpdateItemIsPlayed(ctx context.Context, params *queue.UpdateItemIsPlayedParams) error {
	itemKey := r.getItemKey(params.ItemId)
	pipe := r.rc.TxPipeline()
	pipe.HSet(ctx, itemKey, "isPlayed", params.IsPlayed)
	r.expire(ctx, pipe, itemKey)

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to update item is played: %w", err)
	}

	return nil
}

// RemoveItem drops the item from the room queue and deletes its hash.
func (r repo) RemoveItem(ctx context.Context, params *queue.RemoveItemParams) error {
	pipe := r.rc.TxPipeline()
	pipe.LRem(ctx, r.getQueueKey(params.RoomId), 0, params.ItemId)
	pipe.Del(ctx, r.getItemKey(params.ItemId))

	if err := r.executePipe(ctx, pipe); err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}

	return nil
}

// RemoveQueue deletes every item hash referenced by the room queue and then the queue
// itself. It returns the number of referenced items.
func (r repo) RemoveQueue(ctx context.Context, roomId string) (int, error) {
	queueKey := r.getQueueKey(roomId)
	itemIds, err := r.rc.LRange(ctx, queueKey, 0, -1).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to get item ids: %w", err)
	}

	pipe := r.rc.TxPipeline()
	for _, itemId := range itemIds {
		pipe.Del(ctx, r.getItemKey(itemId))
	}
	pipe.Del(ctx, queueKey)

	if err := r.executePipe(ctx, pipe); err != nil {
		return 0, fmt.Errorf("failed to remove queue: %w", err)
	}

	return len(itemIds), nil
}
