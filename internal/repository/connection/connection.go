package connection

import "errors"

var (
	ErrAlreadyExists = errors.New("connection already exists")
	ErrNotFound      = errors.New("connection not found")
	ErrRoomFull      = errors.New("room is full")
)

type Conn interface {
	Id() string
	WriteJSON(v any) error
	Close() error
}
