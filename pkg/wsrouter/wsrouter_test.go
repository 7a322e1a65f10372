package wsrouter

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sharetube/jukebox/pkg/wsconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type greetInput struct {
	Name string `json:"name"`
}

type reply struct {
	Type    string `json:"type"`
	Payload string `json:"payload"`
}

func newTestServer(t *testing.T, r *WSRouter) *websocket.Conn {
	t.Helper()

	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		ws, err := upgrader.Upgrade(w, req, nil)
		if err != nil {
			return
		}
		conn := wsconn.New(ws)
		defer conn.Close()

		_ = r.ServeConn(context.Background(), conn)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.NoError(t, client.SetReadDeadline(time.Now().Add(5*time.Second)))

	return client
}

func TestRouterDecodesPayloadAndRunsMiddlewares(t *testing.T) {
	r := New()

	var (
		mu    sync.Mutex
		order []string
	)
	record := func(s string) {
		mu.Lock()
		defer mu.Unlock()
		order = append(order, s)
	}
	r.Use(
		func(next HandlerFunc[any]) HandlerFunc[any] {
			return func(ctx context.Context, conn *wsconn.Conn, payload any) error {
				record("outer:" + GetMessageTypeFromCtx(ctx))
				return next(ctx, conn, payload)
			}
		},
		func(next HandlerFunc[any]) HandlerFunc[any] {
			return func(ctx context.Context, conn *wsconn.Conn, payload any) error {
				record("inner")
				return next(ctx, conn, payload)
			}
		},
	)
	r.OnError(func(_ context.Context, conn *wsconn.Conn, err error) {
		_ = conn.WriteJSON(reply{Type: "error", Payload: err.Error()})
	})

	Handle(r, "greet", func(_ context.Context, conn *wsconn.Conn, input greetInput) error {
		if input.Name == "" {
			return errors.New("name is required")
		}
		return conn.WriteJSON(reply{Type: "greeted", Payload: "hello " + input.Name})
	})

	client := newTestServer(t, r)

	require.NoError(t, client.WriteJSON(map[string]any{"type": "greet", "payload": map[string]string{"name": "bob"}}))
	var got reply
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, reply{Type: "greeted", Payload: "hello bob"}, got)
	mu.Lock()
	assert.Equal(t, []string{"outer:greet", "inner"}, order)
	mu.Unlock()

	require.NoError(t, client.WriteJSON(map[string]any{"type": "greet"}))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, reply{Type: "error", Payload: "name is required"}, got)

	require.NoError(t, client.WriteJSON(map[string]any{"type": "greet", "payload": "not an object"}))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "error", got.Type)
	assert.Contains(t, got.Payload, ErrInvalidPayload.Error())

	require.NoError(t, client.WriteJSON(map[string]any{"type": "dance"}))
	require.NoError(t, client.ReadJSON(&got))
	assert.Equal(t, "error", got.Type)
	assert.Contains(t, got.Payload, ErrUnknownMessageType.Error())
}

func TestGetMessageTypeFromEmptyCtx(t *testing.T) {
	assert.Empty(t, GetMessageTypeFromCtx(context.Background()))
}
