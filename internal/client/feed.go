package client

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/realtime"
)

// FeedBuffer is the per-topic event buffer. A topic that overflows gets a
// RESYNC once it drains.
const FeedBuffer = 64

var ErrFeedClosed = errors.New("realtime feed closed")

// Feed is one realtime WebSocket connection multiplexing several topics.
type Feed struct {
	conn *websocket.Conn

	writeMu sync.Mutex
	mu      sync.Mutex
	topics  map[string]*topic
	acks    map[string]chan error
	done    chan struct{}
	err     error
}

type topic struct {
	ch     chan realtime.Event
	resync bool
}

// Realtime dials the feed, passing the token as a query parameter.
func (c *Client) Realtime(ctx context.Context) (*Feed, error) {
	u, err := url.Parse(strings.TrimRight(c.BaseURL, "/") + "/api/realtime")
	if err != nil {
		return nil, err
	}
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	default:
		u.Scheme = "ws"
	}
	q := u.Query()
	q.Set("token", c.Token)
	u.RawQuery = q.Encode()

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, err
	}
	f := &Feed{
		conn:   conn,
		topics: make(map[string]*topic),
		acks:   make(map[string]chan error),
		done:   make(chan struct{}),
	}
	go f.readLoop()
	return f, nil
}

// Subscribe registers a topic and waits for the server to accept it. The
// returned channel closes when the feed closes.
func (f *Feed) Subscribe(ctx context.Context, name, table, filter string) (<-chan realtime.Event, error) {
	ack := make(chan error, 1)
	t := &topic{ch: make(chan realtime.Event, FeedBuffer)}
	f.mu.Lock()
	if f.err != nil {
		f.mu.Unlock()
		return nil, f.err
	}
	if _, exists := f.topics[name]; exists {
		f.mu.Unlock()
		return nil, fmt.Errorf("topic %q already subscribed", name)
	}
	f.topics[name] = t
	f.acks[name] = ack
	f.mu.Unlock()

	err := f.write(realtime.ClientFrame{Type: realtime.FrameSubscribe, Topic: name, Table: table, Filter: filter})
	if err == nil {
		select {
		case err = <-ack:
		case <-ctx.Done():
			err = ctx.Err()
		case <-f.done:
			err = ErrFeedClosed
		}
	}
	if err != nil {
		f.mu.Lock()
		delete(f.acks, name)
		if f.topics[name] == t {
			delete(f.topics, name)
			close(t.ch)
		}
		f.mu.Unlock()
		return nil, err
	}
	return t.ch, nil
}

func (f *Feed) write(frame realtime.ClientFrame) error {
	f.writeMu.Lock()
	defer f.writeMu.Unlock()
	_ = f.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return f.conn.WriteJSON(frame)
}

func (f *Feed) readLoop() {
	var err error
	defer func() { f.shutdown(err) }()
	for {
		var frame realtime.ServerFrame
		if err = f.conn.ReadJSON(&frame); err != nil {
			return
		}
		switch frame.Type {
		case realtime.FrameSubscribed, realtime.FrameError:
			f.ack(frame)
		case realtime.FrameEvent:
			if frame.Event != nil {
				f.deliver(frame.Topic, *frame.Event)
			}
		}
	}
}

func (f *Feed) ack(frame realtime.ServerFrame) {
	f.mu.Lock()
	defer f.mu.Unlock()
	ch, ok := f.acks[frame.Topic]
	if !ok {
		return
	}
	delete(f.acks, frame.Topic)
	if frame.Type == realtime.FrameError {
		ch <- errors.New(frame.Message)
		return
	}
	ch <- nil
}

func (f *Feed) deliver(name string, ev realtime.Event) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.topics[name]
	if !ok {
		return
	}
	if t.resync {
		select {
		case t.ch <- realtime.Event{Table: ev.Table, Type: realtime.EventResync, CommitTimestamp: ev.CommitTimestamp}:
			t.resync = false
		default:
		}
		return
	}
	select {
	case t.ch <- ev:
	default:
		t.resync = true
	}
}

func (f *Feed) shutdown(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return
	}
	f.err = ErrFeedClosed
	if err != nil && !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		f.err = fmt.Errorf("%w: %v", ErrFeedClosed, err)
	}
	for name, t := range f.topics {
		close(t.ch)
		delete(f.topics, name)
	}
	close(f.done)
}

// Err reports why the feed closed, or nil while it is open.
func (f *Feed) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.err
}

func (f *Feed) Close() error {
	f.writeMu.Lock()
	_ = f.conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(time.Second))
	f.writeMu.Unlock()
	return f.conn.Close()
}
