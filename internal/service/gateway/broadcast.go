package gateway

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/repository/connection"
)

// Broadcast queues msg on every connection of the room. A connection that cannot
// accept it, closed or too far behind, is dropped from the room and closed.
func (s service) Broadcast(ctx context.Context, roomId string, msg *domain.Message) {
	unlock := s.rooms.lock(roomId)
	conns := s.connRepo.GetRoomConns(roomId)
	var failed []connection.Conn
	for _, conn := range conns {
		if err := conn.WriteJSON(msg); err != nil {
			slog.InfoContext(ctx, "dropping conn after failed write", "conn_id", conn.Id(), "error", err)
			failed = append(failed, conn)
		}
	}
	unlock()

	for _, conn := range failed {
		s.LeaveRoom(ctx, conn.Id())
		conn.Close()
	}

	slog.DebugContext(ctx, "broadcasted", "type", msg.Type, "room_id", roomId, "conns", len(conns))
}

// SendTo writes msg to a single session, if it is still connected.
func (s service) SendTo(ctx context.Context, sessionId string, msg *domain.Message) error {
	conn, err := s.connRepo.GetConn(sessionId)
	if err != nil {
		return fmt.Errorf("failed to get conn: %w", err)
	}

	if err := conn.WriteJSON(msg); err != nil {
		s.LeaveRoom(ctx, sessionId)
		conn.Close()
		return fmt.Errorf("failed to write message: %w", err)
	}

	return nil
}
