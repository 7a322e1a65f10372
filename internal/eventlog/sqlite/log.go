package sqlite

import (
	"context"
	"database/sql"
	_ "embed"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/sharetube/jukebox/internal/domain"
	"github.com/sharetube/jukebox/internal/eventlog"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schema string

type Config struct {
	Path         string
	Group        string
	BatchSize    int
	PollInterval time.Duration
}

type log struct {
	db  *sql.DB
	cfg Config
}

// Open opens (or creates) the database file and applies the schema.
func Open(ctx context.Context, cfg *Config) (*log, error) {
	c := *cfg
	if c.Group == "" {
		c.Group = eventlog.DefaultGroup
	}
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.PollInterval <= 0 {
		c.PollInterval = 100 * time.Millisecond
	}

	db, err := sql.Open("sqlite", c.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}
	// pragmas below are per connection
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA busy_timeout = 5000",
	} {
		if _, err := db.ExecContext(ctx, pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to apply %q: %w", pragma, err)
		}
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	return &log{
		db:  db,
		cfg: c,
	}, nil
}

func (l *log) Append(ctx context.Context, evt domain.Event) (string, error) {
	data, err := json.Marshal(evt)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event: %w", err)
	}

	res, err := l.db.ExecContext(ctx,
		`INSERT INTO events (id, room_id, type, payload, created_at) VALUES (?, ?, ?, ?, ?)`,
		evt.Id, evt.RoomId, string(evt.Type()), string(data), evt.CreatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to append event: %w", err)
	}

	seq, err := res.LastInsertId()
	if err != nil {
		return "", fmt.Errorf("failed to read event sequence: %w", err)
	}

	return strconv.FormatInt(seq, 10), nil
}

type row struct {
	seq     int64
	payload string
}

// Consume polls rows not yet acknowledged by the group. Rows handed out but
// not acknowledged are delivered again on the next Consume call.
func (l *log) Consume(ctx context.Context, handler eventlog.HandlerFunc) error {
	var cursor int64
	for {
		if ctx.Err() != nil {
			return nil
		}

		rows, err := l.fetch(ctx, cursor)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}

			return err
		}

		if len(rows) == 0 {
			select {
			case <-ctx.Done():
				return nil
			case <-time.After(l.cfg.PollInterval):
			}
			continue
		}

		for _, r := range rows {
			cursor = r.seq
			l.deliver(ctx, r, handler)
		}
	}
}

func (l *log) fetch(ctx context.Context, cursor int64) ([]row, error) {
	rows, err := l.db.QueryContext(ctx, `
		SELECT e.seq, e.payload FROM events e
		WHERE e.seq > ?
		AND NOT EXISTS (SELECT 1 FROM acks a WHERE a.group_name = ? AND a.seq = e.seq)
		ORDER BY e.seq
		LIMIT ?`,
		cursor, l.cfg.Group, l.cfg.BatchSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}
	defer rows.Close()

	var res []row
	for rows.Next() {
		var r row
		if err := rows.Scan(&r.seq, &r.payload); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		res = append(res, r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read events: %w", err)
	}

	return res, nil
}

func (l *log) deliver(ctx context.Context, r row, handler eventlog.HandlerFunc) {
	ack := func(ctx context.Context) error {
		if _, err := l.db.ExecContext(ctx,
			`INSERT OR IGNORE INTO acks (group_name, seq, acked_at) VALUES (?, ?, ?)`,
			l.cfg.Group, r.seq, time.Now().UnixMilli(),
		); err != nil {
			return fmt.Errorf("failed to ack %d: %w", r.seq, err)
		}

		return nil
	}

	var evt domain.Event
	if err := json.Unmarshal([]byte(r.payload), &evt); err != nil {
		slog.WarnContext(ctx, "dropping undecodable row", "seq", r.seq, "error", err)
		if err := ack(ctx); err != nil {
			slog.WarnContext(ctx, "failed to ack undecodable row", "seq", r.seq, "error", err)
		}
		return
	}

	handler(ctx, eventlog.NewDelivery(strconv.FormatInt(r.seq, 10), evt, ack))
}

func (l *log) Close() error {
	return l.db.Close()
}
