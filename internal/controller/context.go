package controller

import (
	"context"
	"fmt"

	"github.com/sharetube/jukebox/internal/service/gateway"
)

type contextKey int

const (
	sessionCtxKey contextKey = iota
)

// session is owned by the goroutine reading the connection.
type session struct {
	connId string
	userId string
	roomId string
}

func (s *session) joined() bool {
	return s.roomId != ""
}

func (c controller) getSessionFromCtx(ctx context.Context) *session {
	s, ok := ctx.Value(sessionCtxKey).(*session)
	if !ok {
		return &session{}
	}

	return s
}

// getJoinedSession returns the session of a joined connection. Room and user ids
// sent in a payload are optional but must match the session.
func (c controller) getJoinedSession(ctx context.Context, roomId, userId string) (*session, error) {
	s := c.getSessionFromCtx(ctx)
	if !s.joined() {
		return nil, gateway.ErrNotJoined
	}

	if roomId != "" && roomId != s.roomId {
		return nil, fmt.Errorf("room id does not match the joined room: %w", gateway.ErrValidation)
	}

	if userId != "" && userId != s.userId {
		return nil, fmt.Errorf("user id does not match the joined user: %w", gateway.ErrValidation)
	}

	return s, nil
}
