package inmemory

import (
	"log/slog"
	"sync"

	"github.com/sharetube/jukebox/internal/repository/connection"
	"golang.org/x/exp/maps"
)

type entry struct {
	conn   connection.Conn
	roomId string
}

// repo maps rooms to their joined connections.
type repo struct {
	rooms map[string]map[string]connection.Conn
	conns map[string]entry
	mu    sync.RWMutex
}

func NewRepo() *repo {
	return &repo{
		rooms: make(map[string]map[string]connection.Conn),
		conns: make(map[string]entry),
	}
}

// Add joins conn to the room unless the room already holds limit connections.
// A limit of zero or less means no limit.
func (r *repo) Add(conn connection.Conn, roomId string, limit int) error {
	funcName := "connection.inmemory.Add"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "conn_id", conn.Id(), "room_id", roomId)
	if _, ok := r.conns[conn.Id()]; ok {
		slog.Info(funcName, "error", connection.ErrAlreadyExists)
		return connection.ErrAlreadyExists
	}

	if limit > 0 && len(r.rooms[roomId]) >= limit {
		slog.Info(funcName, "error", connection.ErrRoomFull)
		return connection.ErrRoomFull
	}

	room, ok := r.rooms[roomId]
	if !ok {
		room = make(map[string]connection.Conn)
		r.rooms[roomId] = room
	}
	room[conn.Id()] = conn
	r.conns[conn.Id()] = entry{conn: conn, roomId: roomId}

	return nil
}

// Remove unregisters the connection and returns the room it was joined to.
func (r *repo) Remove(connId string) (string, error) {
	funcName := "connection.inmemory.Remove"
	r.mu.Lock()
	defer r.mu.Unlock()

	slog.Debug(funcName, "conn_id", connId)
	e, ok := r.conns[connId]
	if !ok {
		return "", connection.ErrNotFound
	}

	delete(r.conns, connId)
	room := r.rooms[e.roomId]
	delete(room, connId)
	if len(room) == 0 {
		delete(r.rooms, e.roomId)
	}

	return e.roomId, nil
}

func (r *repo) GetConn(connId string) (connection.Conn, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.conns[connId]
	if !ok {
		return nil, connection.ErrNotFound
	}

	return e.conn, nil
}

// GetRoomConns returns a snapshot, callers may write to it without holding the lock.
func (r *repo) GetRoomConns(roomId string) []connection.Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return maps.Values(r.rooms[roomId])
}

func (r *repo) CountRoomConns(roomId string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.rooms[roomId])
}
