package controller

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/service/gateway"
	"github.com/sharetube/jukebox/pkg/validator"
	"github.com/sharetube/jukebox/pkg/wsconn"
	"github.com/sharetube/jukebox/pkg/wsrouter"
)

func (c controller) generateTimeBasedId() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}

	return id.String()
}

func (c controller) validatePayload(payload any) error {
	if err := c.validate.Validate(payload); err != nil {
		return fmt.Errorf("%w: %w", gateway.ErrValidation, err)
	}

	return nil
}

func (c controller) errorMessage(err error) string {
	var verrs validator.ValidationErrors
	switch {
	case errors.As(err, &verrs):
		return verrs.Error()
	case errors.Is(err, gateway.ErrNotJoined):
		return "join a room first"
	case errors.Is(err, gateway.ErrValidation):
		return err.Error()
	case errors.Is(err, gateway.ErrPermissionDenied):
		return "only the room owner can do that"
	case errors.Is(err, gateway.ErrItemAlreadyQueued):
		return domain.MsgItemAlreadyQueued
	case errors.Is(err, gateway.ErrQueueLimitReached):
		return "queue limit reached"
	case errors.Is(err, gateway.ErrRoomFull):
		return "room is full"
	case errors.Is(err, wsrouter.ErrUnknownMessageType):
		return "unknown message type"
	case errors.Is(err, wsrouter.ErrInvalidPayload):
		return "invalid payload"
	default:
		return "internal error"
	}
}

// handleWSError answers the failed message to its sender only.
func (c controller) handleWSError(ctx context.Context, conn *wsconn.Conn, err error) {
	message := c.errorMessage(err)
	if message == "internal error" {
		c.logger.ErrorContext(ctx, "failed to handle websocket message", "error", err)
	} else {
		c.logger.InfoContext(ctx, "websocket message rejected", "error", err)
	}

	if err := conn.WriteJSON(domain.NewErrorMessage(message)); err != nil {
		c.logger.WarnContext(ctx, "failed to write error", "error", err)
	}
}
