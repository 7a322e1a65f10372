package controller

import (
	"context"
	"fmt"

	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/service/gateway"
	"github.com/sharetube/jukebox/pkg/wsconn"
)

type EmptyInput struct{}

func (c controller) handleAlive(_ context.Context, _ *wsconn.Conn, _ EmptyInput) error {
	return nil
}

type JoinRoomInput struct {
	UserId string `json:"userId" validate:"required"`
	RoomId string `json:"roomId" validate:"required"`
}

func (c controller) handleJoinRoom(ctx context.Context, conn *wsconn.Conn, input JoinRoomInput) error {
	if err := c.validatePayload(input); err != nil {
		return err
	}

	s := c.getSessionFromCtx(ctx)
	if s.joined() {
		return fmt.Errorf("already joined room %s: %w", s.roomId, gateway.ErrValidation)
	}

	joinRoomResp, err := c.gatewayService.JoinRoom(ctx, &gateway.JoinRoomParams{
		Conn:   conn,
		UserId: input.UserId,
		RoomId: input.RoomId,
	})
	if err != nil {
		return fmt.Errorf("failed to join room: %w", err)
	}

	s.connId = conn.Id()
	s.userId = input.UserId
	s.roomId = input.RoomId

	if err := conn.WriteJSON(&domain.Message{
		Type: domain.OutJoinedRoom,
		Payload: domain.JoinedRoomPayload{
			RoomId:  input.RoomId,
			IsAdmin: joinRoomResp.IsAdmin,
		},
	}); err != nil {
		return fmt.Errorf("failed to write joined room: %w", err)
	}

	return nil
}

func (c controller) handleGetQueue(ctx context.Context, conn *wsconn.Conn, _ EmptyInput) error {
	s, err := c.getJoinedSession(ctx, "", "")
	if err != nil {
		return err
	}

	items, err := c.gatewayService.GetQueue(ctx, s.roomId)
	if err != nil {
		return fmt.Errorf("failed to get queue: %w", err)
	}

	return conn.WriteJSON(&domain.Message{
		Type:    domain.OutSyncQueue,
		Payload: items,
	})
}

func (c controller) handleAddSong(ctx context.Context, conn *wsconn.Conn, input domain.Item) error {
	s, err := c.getJoinedSession(ctx, "", "")
	if err != nil {
		return err
	}

	if err := c.gatewayService.AddItem(ctx, &gateway.AddItemParams{
		SessionId: conn.Id(),
		UserId:    s.userId,
		RoomId:    s.roomId,
		Item:      input,
	}); err != nil {
		return fmt.Errorf("failed to add song: %w", err)
	}

	return nil
}

type ToggleLikeInput struct {
	SongId string `json:"songId" validate:"required"`
	UserId string `json:"userId"`
	RoomId string `json:"roomId"`
}

func (c controller) handleToggleLike(ctx context.Context, conn *wsconn.Conn, input ToggleLikeInput) error {
	if err := c.validatePayload(input); err != nil {
		return err
	}

	s, err := c.getJoinedSession(ctx, input.RoomId, input.UserId)
	if err != nil {
		return err
	}

	if err := c.gatewayService.ToggleVote(ctx, &gateway.ToggleVoteParams{
		SessionId: conn.Id(),
		UserId:    s.userId,
		RoomId:    s.roomId,
		ItemId:    input.SongId,
	}); err != nil {
		return fmt.Errorf("failed to toggle like: %w", err)
	}

	return nil
}

type PlaySongInput struct {
	RoomId string `json:"roomId"`
	SongId string `json:"songId" validate:"required"`
	UserId string `json:"userId"`
}

func (c controller) handlePlaySong(ctx context.Context, conn *wsconn.Conn, input PlaySongInput) error {
	if err := c.validatePayload(input); err != nil {
		return err
	}

	s, err := c.getJoinedSession(ctx, input.RoomId, input.UserId)
	if err != nil {
		return err
	}

	if err := c.gatewayService.PlayItem(ctx, &gateway.PlayItemParams{
		SessionId: conn.Id(),
		UserId:    s.userId,
		RoomId:    s.roomId,
		ItemId:    input.SongId,
	}); err != nil {
		return fmt.Errorf("failed to play song: %w", err)
	}

	return nil
}

type PlayNextInput struct {
	OldSongId string `json:"oldSongId"`
	NewSongId string `json:"newSongId"`
	RoomId    string `json:"roomId"`
	UserId    string `json:"userId"`
}

func (c controller) handlePlayNext(ctx context.Context, conn *wsconn.Conn, input PlayNextInput) error {
	s, err := c.getJoinedSession(ctx, input.RoomId, input.UserId)
	if err != nil {
		return err
	}

	if err := c.gatewayService.Advance(ctx, &gateway.AdvanceParams{
		SessionId: conn.Id(),
		UserId:    s.userId,
		RoomId:    s.roomId,
		OldItemId: input.OldSongId,
		NewItemId: input.NewSongId,
	}); err != nil {
		return fmt.Errorf("failed to play next: %w", err)
	}

	return nil
}

type ClearQueueInput struct {
	RoomId string `json:"roomId"`
}

func (c controller) handleClearQueue(ctx context.Context, conn *wsconn.Conn, input ClearQueueInput) error {
	s, err := c.getJoinedSession(ctx, input.RoomId, "")
	if err != nil {
		return err
	}

	if err := c.gatewayService.ClearQueue(ctx, &gateway.ClearQueueParams{
		SessionId: conn.Id(),
		RoomId:    s.roomId,
	}); err != nil {
		return fmt.Errorf("failed to clear queue: %w", err)
	}

	return nil
}
