package wsconn

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	defaultWriteTimeout = 10 * time.Second
	defaultSendBuffer   = 256
)

var (
	ErrClosed     = errors.New("connection closed")
	ErrBufferFull = errors.New("send buffer full")
)

type Options struct {
	WriteTimeout time.Duration
	SendBuffer   int
}

// Conn is a websocket connection safe for concurrent writers. Writes are queued
// and sent in order by one goroutine, a slow peer never blocks the caller.
// Reads must still come from a single goroutine.
type Conn struct {
	id           string
	ws           *websocket.Conn
	send         chan any
	done         chan struct{}
	writeTimeout time.Duration
	closeOnce    sync.Once
	closeErr     error
}

func New(ws *websocket.Conn) *Conn {
	return NewWithOptions(ws, Options{})
}

func NewWithOptions(ws *websocket.Conn, opts Options) *Conn {
	if opts.WriteTimeout <= 0 {
		opts.WriteTimeout = defaultWriteTimeout
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}

	c := &Conn{
		id:           uuid.NewString(),
		ws:           ws,
		send:         make(chan any, opts.SendBuffer),
		done:         make(chan struct{}),
		writeTimeout: opts.WriteTimeout,
	}
	go c.writeLoop()

	return c
}

func (c *Conn) Id() string {
	return c.id
}

func (c *Conn) ReadJSON(v any) error {
	return c.ws.ReadJSON(v)
}

// WriteJSON queues v. It fails without blocking when the connection is closed
// or the peer has fallen a full buffer behind.
func (c *Conn) WriteJSON(v any) error {
	select {
	case <-c.done:
		return ErrClosed
	default:
	}

	select {
	case c.send <- v:
		return nil
	case <-c.done:
		return ErrClosed
	default:
		return ErrBufferFull
	}
}

func (c *Conn) writeLoop() {
	for {
		select {
		case v := <-c.send:
			if err := c.ws.SetWriteDeadline(time.Now().Add(c.writeTimeout)); err != nil {
				c.Close()
				return
			}
			if err := c.ws.WriteJSON(v); err != nil {
				c.Close()
				return
			}
		case <-c.done:
			return
		}
	}
}

func (c *Conn) Close() error {
	c.closeOnce.Do(func() {
		close(c.done)
		c.closeErr = c.ws.Close()
	})

	return c.closeErr
}
