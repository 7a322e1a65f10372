// Package client is a room participant: one websocket session feeding a reconciler.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jukebox/internal/client/reconciler"
	"github.com/sharetube/jukebox/internal/domain"
)

var ErrDisconnected = errors.New("not connected")

type Config struct {
	URL    string
	UserId string
	RoomId string
	// ReconnectInterval is the delay between connection attempts.
	ReconnectInterval time.Duration
}

type message struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload"`
}

type command struct {
	fn     func(*reconciler.Reconciler) error
	result chan error
}

// Session owns the reconciler. Broadcasts and commands are applied from the
// goroutine running Run only.
type Session struct {
	cfg      Config
	dialer   *websocket.Dialer
	rec      *reconciler.Reconciler
	conn     *websocket.Conn
	commands chan command
	onChange func([]reconciler.Row)
	onError  func(string)
}

func NewSession(cfg *Config, player reconciler.Player) *Session {
	s := &Session{
		cfg:      *cfg,
		dialer:   websocket.DefaultDialer,
		commands: make(chan command),
		onChange: func([]reconciler.Row) {},
		onError:  func(string) {},
	}
	if s.cfg.ReconnectInterval <= 0 {
		s.cfg.ReconnectInterval = time.Second
	}
	s.rec = reconciler.New(cfg.UserId, cfg.RoomId, player, s)

	return s
}

// OnChange registers a callback receiving the rendered queue after every change.
// It must be set before Run.
func (s *Session) OnChange(fn func([]reconciler.Row)) {
	s.onChange = fn
}

// OnError registers a callback for error messages addressed to this session.
func (s *Session) OnError(fn func(string)) {
	s.onError = fn
}

// Emit implements reconciler.Emitter.
func (s *Session) Emit(msgType string, payload any) error {
	if s.conn == nil {
		return ErrDisconnected
	}

	if err := s.conn.WriteJSON(map[string]any{
		"type":    msgType,
		"payload": payload,
	}); err != nil {
		return fmt.Errorf("failed to send %s: %w", msgType, err)
	}

	return nil
}

// Do runs fn on the session goroutine and waits for its result.
func (s *Session) Do(ctx context.Context, fn func(*reconciler.Reconciler) error) error {
	cmd := command{fn: fn, result: make(chan error, 1)}
	select {
	case s.commands <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-cmd.result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run keeps the session connected until ctx is canceled.
func (s *Session) Run(ctx context.Context) error {
	t := time.NewTicker(s.cfg.ReconnectInterval)
	defer t.Stop()

	reconnect := false
	for {
		if err := s.serve(ctx, reconnect); err != nil {
			slog.WarnContext(ctx, "session disconnected", "error", err)
		}
		reconnect = true

		select {
		case <-t.C:
		case <-ctx.Done():
			return nil
		}
	}
}

func (s *Session) serve(ctx context.Context, reconnect bool) error {
	conn, _, err := s.dialer.DialContext(ctx, s.cfg.URL, nil)
	if err != nil {
		return fmt.Errorf("failed to dial: %w", err)
	}
	s.conn = conn
	defer func() {
		s.conn = nil
		conn.Close()
	}()

	if err := s.Emit(domain.InJoinRoom, map[string]string{
		"userId": s.cfg.UserId,
		"roomId": s.cfg.RoomId,
	}); err != nil {
		return err
	}
	// broadcasts missed while disconnected are covered by a full resync
	if reconnect {
		if err := s.Emit(domain.InGetQueue, nil); err != nil {
			return err
		}
	}

	incoming := make(chan message)
	readErr := make(chan error, 1)
	go func() {
		for {
			var msg message
			if err := conn.ReadJSON(&msg); err != nil {
				readErr <- err
				return
			}

			select {
			case incoming <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-readErr:
			return fmt.Errorf("failed to read: %w", err)
		case msg := <-incoming:
			s.handle(ctx, msg)
		case cmd := <-s.commands:
			err := cmd.fn(s.rec)
			cmd.result <- err
			s.onChange(s.rec.Render())
		}
	}
}

func (s *Session) handle(ctx context.Context, msg message) {
	if msg.Type == domain.OutError {
		var payload domain.ErrorPayload
		if err := json.Unmarshal(msg.Payload, &payload); err == nil {
			s.onError(payload.Message)
		}
		return
	}

	if err := s.rec.Handle(msg.Type, msg.Payload); err != nil {
		slog.WarnContext(ctx, "dropping message", "type", msg.Type, "error", err)
		return
	}

	s.onChange(s.rec.Render())
}
