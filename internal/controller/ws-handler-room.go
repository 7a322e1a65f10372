package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/sharetube/jukebox/pkg/ctxlogger"
	"github.com/sharetube/jukebox/pkg/wsconn"
)

func (c controller) serveRoom(w http.ResponseWriter, r *http.Request) {
	ws, err := c.upgrader.Upgrade(w, r, nil)
	if err != nil {
		c.logger.WarnContext(r.Context(), "failed to upgrade to websocket", "error", err)
		return
	}

	conn := wsconn.New(ws)
	defer conn.Close()

	ctx := context.WithValue(r.Context(), sessionCtxKey, &session{})
	ctx = ctxlogger.AppendCtx(ctx, slog.String("conn_id", conn.Id()))
	defer c.gatewayService.LeaveRoom(ctx, conn.Id())

	c.logger.InfoContext(ctx, "websocket connected")
	if err := c.wsmux.ServeConn(ctx, conn); err != nil {
		c.logger.InfoContext(ctx, "websocket disconnected", "reason", err)
	}
}
