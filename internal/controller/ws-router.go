package controller

import (
	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/pkg/wsrouter"
)

func (c controller) getWSRouter() *wsrouter.WSRouter {
	mux := wsrouter.New()
	mux.Use(c.wsRequestIdWSMw(), c.loggerWSMw())
	mux.OnError(c.handleWSError)

	wsrouter.Handle(mux, domain.InAlive, c.handleAlive)
	wsrouter.Handle(mux, domain.InJoinRoom, c.handleJoinRoom)
	wsrouter.Handle(mux, domain.InGetQueue, c.handleGetQueue)

	// queue
	wsrouter.Handle(mux, domain.InAddSong, c.handleAddSong)
	wsrouter.Handle(mux, domain.InToggleLike, c.handleToggleLike)
	wsrouter.Handle(mux, domain.InClearRoom, c.handleClearQueue)
	wsrouter.Handle(mux, domain.InClearQueue, c.handleClearQueue)

	// player
	wsrouter.Handle(mux, domain.InPlaySong, c.handlePlaySong)
	wsrouter.Handle(mux, domain.InPlayNext, c.handlePlayNext)

	return mux
}
