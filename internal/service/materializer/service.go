package materializer

import (
	"context"
	"errors"
	"hash/fnv"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/eventlog"
	"github.com/sharetube/jukebox/internal/metrics"
	"github.com/sharetube/jukebox/internal/repository/queue"
	"github.com/sharetube/jukebox/pkg/ctxlogger"
)

// errSkipped marks an event that was handled without changing the projection.
var errSkipped = errors.New("event skipped")

type iQueueRepo interface {
	SetItem(context.Context, *queue.SetItemParams) error
	IsEventApplied(context.Context, string) (bool, error)
	GetItem(context.Context, string) (queue.Item, error)
	GetItems(context.Context, []string) ([]queue.Item, error)
	GetItemIds(context.Context, string) ([]string, error)
	UpdateItemVotes(context.Context, *queue.UpdateItemVotesParams) error
	UpdateItemIsPlayed(context.Context, *queue.UpdateItemIsPlayedParams) error
	RemoveItem(context.Context, *queue.RemoveItemParams) error
	RemoveQueue(context.Context, string) (int, error)
}

type iBroadcaster interface {
	Broadcast(ctx context.Context, roomId string, msg *domain.Message)
	SendTo(ctx context.Context, sessionId string, msg *domain.Message) error
}

type iMetrics interface {
	EventApplied(eventType, result string, d time.Duration)
}

type iEventLog interface {
	Consume(ctx context.Context, handler eventlog.HandlerFunc) error
}

type Config struct {
	Lanes      int
	LaneBuffer int
	// MaxRetries bounds the attempts made on transient store errors.
	MaxRetries uint64
}

type service struct {
	queueRepo   iQueueRepo
	broadcaster iBroadcaster
	metrics     iMetrics
	lanes       int
	laneBuffer  int
	maxRetries  uint64
}

func NewService(queueRepo iQueueRepo, broadcaster iBroadcaster, metrics iMetrics, cfg *Config) *service {
	s := service{
		queueRepo:   queueRepo,
		broadcaster: broadcaster,
		metrics:     metrics,
		lanes:       cfg.Lanes,
		laneBuffer:  cfg.LaneBuffer,
		maxRetries:  cfg.MaxRetries,
	}
	if s.lanes < 1 {
		s.lanes = 1
	}
	if s.laneBuffer < 1 {
		s.laneBuffer = 64
	}
	if s.maxRetries == 0 {
		s.maxRetries = 5
	}

	return &s
}

// laneOf pins every room to one lane so events of a room are applied by a single writer in log order.
func (s service) laneOf(roomId string) int {
	h := fnv.New32a()
	h.Write([]byte(roomId))
	return int(h.Sum32() % uint32(s.lanes))
}

// Run consumes the log until ctx is canceled or the log fails.
func (s service) Run(ctx context.Context, log iEventLog) error {
	lanes := make([]chan eventlog.Delivery, s.lanes)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan eventlog.Delivery, s.laneBuffer)
		wg.Add(1)
		go func(deliveries <-chan eventlog.Delivery) {
			defer wg.Done()
			for d := range deliveries {
				s.handle(ctx, d)
			}
		}(lanes[i])
	}

	slog.InfoContext(ctx, "materializer started", "lanes", s.lanes)
	err := log.Consume(ctx, func(ctx context.Context, d eventlog.Delivery) {
		select {
		case lanes[s.laneOf(d.Event.RoomId)] <- d:
		case <-ctx.Done():
		}
	})

	for _, lane := range lanes {
		close(lane)
	}
	wg.Wait()
	slog.InfoContext(ctx, "materializer stopped")

	return err
}

func (s service) handle(ctx context.Context, d eventlog.Delivery) {
	// left unacknowledged, redelivered after restart
	if ctx.Err() != nil {
		return
	}

	ctx = ctxlogger.AppendCtx(ctx, slog.String("event_id", d.Event.Id))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("event_type", string(d.Event.Type())))
	ctx = ctxlogger.AppendCtx(ctx, slog.String("room_id", d.Event.RoomId))

	start := time.Now()
	result, err := s.apply(ctx, d.Event)
	if err != nil && ctx.Err() != nil {
		return
	}
	s.metrics.EventApplied(string(d.Event.Type()), result, time.Since(start))

	if err != nil {
		slog.ErrorContext(ctx, "dropping event", "record_id", d.RecordId, "error", err)
	} else {
		slog.InfoContext(ctx, "event handled",
			"record_id", d.RecordId,
			"result", result,
			"processing_time_us", time.Since(start).Microseconds(),
		)
	}

	if err := d.Ack(ctx); err != nil {
		slog.WarnContext(ctx, "failed to ack event", "record_id", d.RecordId, "error", err)
	}
}

// Apply applies one event to the projection and broadcasts the result.
// Skipped events are not an error.
func (s service) Apply(ctx context.Context, evt domain.Event) error {
	_, err := s.apply(ctx, evt)
	return err
}

func (s service) apply(ctx context.Context, evt domain.Event) (string, error) {
	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = 50 * time.Millisecond
	eb.MaxInterval = 2 * time.Second
	b := backoff.WithContext(backoff.WithMaxRetries(eb, s.maxRetries), ctx)

	err := backoff.RetryNotify(func() error {
		err := evt.Dispatch(ctx, s)
		if err == nil || isTransient(err) {
			return err
		}

		return backoff.Permanent(err)
	}, b, func(err error, d time.Duration) {
		slog.WarnContext(ctx, "retrying event", "error", err, "backoff", d)
	})

	switch {
	case err == nil:
		return metrics.ResultApplied, nil
	case errors.Is(err, errSkipped):
		slog.DebugContext(ctx, "event skipped", "reason", err)
		return metrics.ResultSkipped, nil
	default:
		return metrics.ResultFailed, err
	}
}

func isTransient(err error) bool {
	return !errors.Is(err, errSkipped) &&
		!errors.Is(err, domain.ErrUnknownEventType) &&
		!errors.Is(err, context.Canceled)
}
