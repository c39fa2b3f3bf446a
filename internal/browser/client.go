package browser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/gorilla/websocket"
)

// ErrConnectionClosed is returned for calls made after the devtools
// connection has gone away.
var ErrConnectionClosed = errors.New("devtools connection closed")

// message is the DevTools protocol wire frame, used for commands,
// responses, and events alike.
type message struct {
	ID        int64           `json:"id,omitempty"`
	Method    string          `json:"method,omitempty"`
	Params    json.RawMessage `json:"params,omitempty"`
	SessionID string          `json:"sessionId,omitempty"`
	Result    json.RawMessage `json:"result,omitempty"`
	Error     *protocolError  `json:"error,omitempty"`
}

type protocolError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func (e *protocolError) Error() string {
	return fmt.Sprintf("devtools error %d: %s", e.Code, e.Message)
}

// eventWaiter is a subscription for a protocol event. One-shot waiters are
// removed after the first delivery; stream waiters persist until
// unsubscribed and drop events when their buffer is full.
type eventWaiter struct {
	sessionID string
	method    string
	stream    bool
	ch        chan json.RawMessage
}

// client speaks the DevTools protocol over a single websocket connection.
// Writes are serialized; the read loop dispatches responses to pending
// calls and events to registered waiters.
type client struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	seq     atomic.Int64

	mu      sync.Mutex
	pending map[int64]chan *message
	waiters []*eventWaiter
	closed  bool
	readErr error
}

func newClient(conn *websocket.Conn) *client {
	c := &client{
		conn:    conn,
		pending: make(map[int64]chan *message),
	}
	go c.readLoop()
	return c
}

func (c *client) readLoop() {
	for {
		var msg message
		if err := c.conn.ReadJSON(&msg); err != nil {
			c.shutdown(err)
			return
		}

		if msg.ID != 0 {
			c.mu.Lock()
			ch, ok := c.pending[msg.ID]
			delete(c.pending, msg.ID)
			c.mu.Unlock()
			if ok {
				ch <- &msg
			}
			continue
		}

		if msg.Method != "" {
			c.dispatchEvent(&msg)
		}
	}
}

func (c *client) dispatchEvent(msg *message) {
	c.mu.Lock()
	defer c.mu.Unlock()

	kept := c.waiters[:0]
	for _, w := range c.waiters {
		if w.method != msg.Method || w.sessionID != msg.SessionID {
			kept = append(kept, w)
			continue
		}
		if w.stream {
			select {
			case w.ch <- msg.Params:
			default:
			}
			kept = append(kept, w)
			continue
		}
		w.ch <- msg.Params
	}
	c.waiters = kept
}

func (c *client) shutdown(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	c.readErr = err
	for id, ch := range c.pending {
		delete(c.pending, id)
		close(ch)
	}
	for _, w := range c.waiters {
		close(w.ch)
	}
	c.waiters = nil
}

// call sends a protocol command and waits for its response. sessionID is
// empty for browser-level commands.
func (c *client) call(ctx context.Context, sessionID, method string, params any) (json.RawMessage, error) {
	var raw json.RawMessage
	if params != nil {
		data, err := json.Marshal(params)
		if err != nil {
			return nil, fmt.Errorf("marshal %s params: %w", method, err)
		}
		raw = data
	}

	id := c.seq.Add(1)
	ch := make(chan *message, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", method, ErrConnectionClosed)
	}
	c.pending[id] = ch
	c.mu.Unlock()

	msg := message{ID: id, Method: method, Params: raw, SessionID: sessionID}
	c.writeMu.Lock()
	err := c.conn.WriteJSON(&msg)
	c.writeMu.Unlock()
	if err != nil {
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, fmt.Errorf("send %s: %w", method, err)
	}

	select {
	case resp, ok := <-ch:
		if !ok {
			return nil, fmt.Errorf("%s: %w", method, ErrConnectionClosed)
		}
		if resp.Error != nil {
			return nil, fmt.Errorf("%s: %w", method, resp.Error)
		}
		return resp.Result, nil
	case <-ctx.Done():
		c.mu.Lock()
		delete(c.pending, id)
		c.mu.Unlock()
		return nil, ctx.Err()
	}
}

// subscribe registers a one-shot waiter for an event. Register before
// issuing the command that triggers the event to avoid a race.
func (c *client) subscribe(sessionID, method string) *eventWaiter {
	return c.register(&eventWaiter{sessionID: sessionID, method: method, ch: make(chan json.RawMessage, 1)})
}

// subscribeStream registers a persistent waiter that receives every
// matching event until unsubscribed.
func (c *client) subscribeStream(sessionID, method string) *eventWaiter {
	return c.register(&eventWaiter{sessionID: sessionID, method: method, stream: true, ch: make(chan json.RawMessage, 16)})
}

func (c *client) register(w *eventWaiter) *eventWaiter {
	c.mu.Lock()
	if c.closed {
		close(w.ch)
	} else {
		c.waiters = append(c.waiters, w)
	}
	c.mu.Unlock()
	return w
}

// unsubscribe removes a waiter that is no longer needed.
func (c *client) unsubscribe(w *eventWaiter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, existing := range c.waiters {
		if existing == w {
			c.waiters = append(c.waiters[:i], c.waiters[i+1:]...)
			return
		}
	}
}

// wait blocks until the subscribed event fires or the context ends.
func (c *client) wait(ctx context.Context, w *eventWaiter) (json.RawMessage, error) {
	select {
	case params, ok := <-w.ch:
		if !ok {
			return nil, ErrConnectionClosed
		}
		return params, nil
	case <-ctx.Done():
		c.unsubscribe(w)
		return nil, ctx.Err()
	}
}

func (c *client) close() error {
	c.shutdown(ErrConnectionClosed)
	return c.conn.Close()
}
