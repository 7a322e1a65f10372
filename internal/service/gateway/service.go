package gateway

import (
	"context"
	"errors"

	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/repository/connection"
	"github.com/sharetube/jukebox/internal/repository/queue"
)

var (
	ErrValidation        = errors.New("validation error")
	ErrPermissionDenied  = errors.New("permission denied")
	ErrItemAlreadyQueued = errors.New("item already queued")
	ErrQueueLimitReached = errors.New("queue limit reached")
	ErrRoomFull          = errors.New("room is full")
	ErrNotJoined         = errors.New("not joined")
)

type iQueueRepo interface {
	GetItemIds(context.Context, string) ([]string, error)
	GetItems(context.Context, []string) ([]queue.Item, error)
	GetQueueLength(context.Context, string) (int, error)
}

type iEventLog interface {
	Append(context.Context, domain.Event) (string, error)
}

type iConnRepo interface {
	Add(conn connection.Conn, roomId string, limit int) error
	Remove(string) (string, error)
	GetConn(string) (connection.Conn, error)
	GetRoomConns(string) []connection.Conn
	CountRoomConns(string) int
}

type iCatalog interface {
	Get(ctx context.Context, videoId string) (domain.Media, error)
}

type iMetrics interface {
	EventAppended(eventType string)
	ActionRejected(reason string)
	ConnectionOpened()
	ConnectionClosed()
}

type Config struct {
	MembersLimit  int
	PlaylistLimit int
}

type service struct {
	queueRepo     iQueueRepo
	eventLog      iEventLog
	connRepo      iConnRepo
	catalog       iCatalog
	metrics       iMetrics
	rooms         *roomLocks
	membersLimit  int
	playlistLimit int
}

// NewService creates the room gateway. catalog may be nil, items are then queued with the media the client sent.
func NewService(queueRepo iQueueRepo, eventLog iEventLog, connRepo iConnRepo, catalog iCatalog, metrics iMetrics, cfg *Config) *service {
	return &service{
		queueRepo:     queueRepo,
		eventLog:      eventLog,
		connRepo:      connRepo,
		catalog:       catalog,
		metrics:       metrics,
		rooms:         &roomLocks{},
		membersLimit:  cfg.MembersLimit,
		playlistLimit: cfg.PlaylistLimit,
	}
}
