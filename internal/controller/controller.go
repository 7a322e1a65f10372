package controller

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/service/gateway"
	"github.com/sharetube/jukebox/pkg/validator"
	"github.com/sharetube/jukebox/pkg/wsrouter"
	"github.com/sharetube/jukebox/pkg/ytcatalog"
)

type iGatewayService interface {
	JoinRoom(context.Context, *gateway.JoinRoomParams) (gateway.JoinRoomResponse, error)
	LeaveRoom(ctx context.Context, connId string)
	GetQueue(ctx context.Context, roomId string) ([]domain.Item, error)
	AddItem(context.Context, *gateway.AddItemParams) error
	ToggleVote(context.Context, *gateway.ToggleVoteParams) error
	PlayItem(context.Context, *gateway.PlayItemParams) error
	Advance(context.Context, *gateway.AdvanceParams) error
	ClearQueue(context.Context, *gateway.ClearQueueParams) error
}

type iCatalog interface {
	Search(ctx context.Context, term string) ([]ytcatalog.Candidate, error)
}

type controller struct {
	gatewayService iGatewayService
	catalog        iCatalog
	metricsHandler http.Handler
	upgrader       websocket.Upgrader
	validate       *validator.Validator
	logger         *slog.Logger
	wsmux          *wsrouter.WSRouter
}

func NewController(gatewayService iGatewayService, catalog iCatalog, metricsHandler http.Handler, logger *slog.Logger) *controller {
	c := controller{
		gatewayService: gatewayService,
		catalog:        catalog,
		metricsHandler: metricsHandler,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		validate: validator.NewValidator(),
		logger:   logger,
	}
	c.wsmux = c.getWSRouter()

	return &c
}
