package redisstream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/eventlog"
)

const (
	eventField  = "event"
	typeField   = "type"
	roomIdField = "room_id"
)

type Config struct {
	Stream   string
	Group    string
	Consumer string
	// MaxLen caps the stream length approximately. Zero keeps every entry.
	MaxLen    int64
	BatchSize int64
	Block     time.Duration
}

type log struct {
	rc  *redis.Client
	cfg Config
}

// New creates the consumer group (and the stream) if they do not exist yet.
func New(ctx context.Context, rc *redis.Client, cfg *Config) (*log, error) {
	c := *cfg
	if c.Stream == "" {
		c.Stream = eventlog.DefaultStream
	}
	if c.Group == "" {
		c.Group = eventlog.DefaultGroup
	}
	if c.Consumer == "" {
		c.Consumer = "materializer"
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.Block <= 0 {
		c.Block = time.Second
	}

	if err := rc.XGroupCreateMkStream(ctx, c.Stream, c.Group, "0").Err(); err != nil {
		if !strings.HasPrefix(err.Error(), "BUSYGROUP") {
			return nil, fmt.Errorf("failed to create consumer group: %w", err)
		}
	}

	return &log{
		rc:  rc,
		cfg: c,
	}, nil
}

func (l *log) Append(ctx context.Context, evt domain.Event) (string, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	args := &redis.XAddArgs{
		Stream: l.cfg.Stream,
		Values: map[string]any{
			typeField:   string(evt.Type()),
			roomIdField: evt.RoomId,
			eventField:  string(data),
		},
	}
	if l.cfg.MaxLen > 0 {
		args.MaxLen = l.cfg.MaxLen
		args.Approx = true
	}

	id, err := l.rc.XAdd(ctx, args).Result()
	if err != nil {
		return "", fmt.Errorf("failed to append event: %w", err)
	}

	return id, nil
}

// Consume first replays entries that were delivered to this consumer but never
// acknowledged, then reads new entries.
func (l *log) Consume(ctx context.Context, handler eventlog.HandlerFunc) error {
	lastId := "0"
	for {
		if ctx.Err() != nil {
			return nil
		}

		args := &redis.XReadGroupArgs{
			Group:    l.cfg.Group,
			Consumer: l.cfg.Consumer,
			Streams:  []string{l.cfg.Stream, lastId},
			Count:    l.cfg.BatchSize,
		}
		if lastId == ">" {
			args.Block = l.cfg.Block
		}

		streams, err := l.rc.XReadGroup(ctx, args).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				lastId = ">"
				continue
			}
			if ctx.Err() != nil {
				return nil
			}

			return fmt.Errorf("failed to read stream %s: %w", l.cfg.Stream, err)
		}

		var messages []redis.XMessage
		for _, stream := range streams {
			messages = append(messages, stream.Messages...)
		}

		if lastId != ">" {
			if len(messages) == 0 {
				slog.DebugContext(ctx, "pending entries replayed, reading new entries", "stream", l.cfg.Stream)
				lastId = ">"
				continue
			}
			lastId = messages[len(messages)-1].ID
		}

		for _, msg := range messages {
			l.deliver(ctx, msg, handler)
		}
	}
}

func (l *log) deliver(ctx context.Context, msg redis.XMessage, handler eventlog.HandlerFunc) {
	ack := func(ctx context.Context) error {
		if err := l.rc.XAck(ctx, l.cfg.Stream, l.cfg.Group, msg.ID).Err(); err != nil {
			return fmt.Errorf("failed to ack %s: %w", msg.ID, err)
		}

		return nil
	}

	raw, _ := msg.Values[eventField].(string)
	var evt domain.Event
	if err := json.Unmarshal([]byte(raw), &evt); err != nil {
		slog.WarnContext(ctx, "dropping undecodable entry", "entry_id", msg.ID, "error", err)
		if err := ack(ctx); err != nil {
			slog.WarnContext(ctx, "failed to ack undecodable entry", "entry_id", msg.ID, "error", err)
		}
		return
	}

	handler(ctx, eventlog.NewDelivery(msg.ID, evt, ack))
}

func (l *log) Close() error {
	return nil
}
