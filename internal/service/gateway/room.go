package gateway

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/repository/connection"
)

type JoinRoomParams struct {
	Conn   connection.Conn
	UserId string
	RoomId string
}

type JoinRoomResponse struct {
	Items   []domain.Item
	IsAdmin bool
}

// JoinRoom registers the connection, reads the snapshot and queues it as
// sync-first-queue while holding the room lock, so every broadcast of the room
// reaches the connection after its snapshot. Broadcasts already reflected in the
// snapshot are resolved by client side dedupe.
func (s service) JoinRoom(ctx context.Context, params *JoinRoomParams) (JoinRoomResponse, error) {
	if err := validation.ValidateStructWithContext(ctx, params,
		validation.Field(&params.UserId, UserIdRule...),
		validation.Field(&params.RoomId, RoomIdRule...),
	); err != nil {
		return JoinRoomResponse{}, s.reject(fmt.Errorf("%w: %w", ErrValidation, err))
	}

	unlock := s.rooms.lock(params.RoomId)
	defer unlock()

	if err := s.connRepo.Add(params.Conn, params.RoomId, s.membersLimit); err != nil {
		if errors.Is(err, connection.ErrRoomFull) {
			return JoinRoomResponse{}, s.reject(ErrRoomFull)
		}

		return JoinRoomResponse{}, fmt.Errorf("failed to add conn: %w", err)
	}
	s.metrics.ConnectionOpened()

	items, err := s.getQueue(ctx, params.RoomId)
	if err != nil {
		s.LeaveRoom(ctx, params.Conn.Id())
		return JoinRoomResponse{}, err
	}

	if err := params.Conn.WriteJSON(&domain.Message{
		Type:    domain.OutSyncFirstQueue,
		Payload: items,
	}); err != nil {
		s.LeaveRoom(ctx, params.Conn.Id())
		return JoinRoomResponse{}, fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.InfoContext(ctx, "joined room", "conn_id", params.Conn.Id(), "user_id", params.UserId, "room_id", params.RoomId)
	return JoinRoomResponse{
		Items:   items,
		IsAdmin: domain.IsRoomOwner(params.UserId, params.RoomId),
	}, nil
}

// LeaveRoom is safe to call for connections that never joined or were already dropped.
func (s service) LeaveRoom(ctx context.Context, connId string) {
	roomId, err := s.connRepo.Remove(connId)
	if err != nil {
		if !errors.Is(err, connection.ErrNotFound) {
			slog.WarnContext(ctx, "failed to remove conn", "conn_id", connId, "error", err)
		}
		return
	}

	s.metrics.ConnectionClosed()
	slog.InfoContext(ctx, "left room", "conn_id", connId, "room_id", roomId)
}

func (s service) GetQueue(ctx context.Context, roomId string) ([]domain.Item, error) {
	return s.getQueue(ctx, roomId)
}
