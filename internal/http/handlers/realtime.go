package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/notify"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/realtime"
)

const (
	wsWriteWait  = 10 * time.Second
	wsPongWait   = 60 * time.Second
	wsPingPeriod = wsPongWait * 9 / 10
	wsMaxMessage = 4096
)

var errSubscriptionDenied = errors.New("subscription not allowed")

// @Summary Realtime change feed
// @Description WebSocket. Send {"type":"subscribe","topic":"t1","table":"support_tickets","filter":"customer_id=eq.<id>"} to receive row changes. The token may be passed as a query parameter.
// @Tags realtime
// @Param token query string false "Bearer token"
// @Success 101
// @Router /api/realtime [get]
func (h *Handler) Realtime(c *gin.Context) {
	conn, err := h.Upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.Logger.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}
	who := actor(c)
	s := &wsSession{
		h:      h,
		actor:  who,
		conn:   conn,
		send:   make(chan realtime.ServerFrame, realtime.SubscriptionBuffer),
		done:   make(chan struct{}),
		closed: make(chan struct{}),
		subs:   make(map[string]*realtime.Subscription),
		logger: h.Logger.With().Str("user_id", who.ID).Logger(),
	}
	s.wg.Add(1)
	go s.writePump()
	s.readLoop(c.Request.Context())
	s.teardown()
}

type wsSession struct {
	h      *Handler
	actor  models.Profile
	conn   *websocket.Conn
	send   chan realtime.ServerFrame
	done   chan struct{}
	closed chan struct{} // writer exited
	subs   map[string]*realtime.Subscription // owned by readLoop
	wg     sync.WaitGroup
	logger zerolog.Logger
}

func (s *wsSession) readLoop(ctx context.Context) {
	s.conn.SetReadLimit(wsMaxMessage)
	_ = s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	s.conn.SetPongHandler(func(string) error {
		return s.conn.SetReadDeadline(time.Now().Add(wsPongWait))
	})
	for {
		_, data, err := s.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.logger.Debug().Err(err).Msg("websocket closed")
			}
			return
		}
		var f realtime.ClientFrame
		if err := json.Unmarshal(data, &f); err != nil {
			s.push(realtime.ServerFrame{Type: realtime.FrameError, Message: "malformed frame"})
			continue
		}
		switch f.Type {
		case realtime.FrameSubscribe:
			s.subscribe(ctx, f)
		case realtime.FrameUnsubscribe:
			if sub, ok := s.subs[f.Topic]; ok {
				sub.Close()
				delete(s.subs, f.Topic)
			}
		case realtime.FramePing:
			s.push(realtime.ServerFrame{Type: realtime.FramePong, Topic: f.Topic})
		default:
			s.push(realtime.ServerFrame{Type: realtime.FrameError, Topic: f.Topic, Message: fmt.Sprintf("unknown frame type %q", f.Type)})
		}
	}
}

func (s *wsSession) subscribe(ctx context.Context, f realtime.ClientFrame) {
	if f.Topic == "" || f.Table == "" {
		s.push(realtime.ServerFrame{Type: realtime.FrameError, Topic: f.Topic, Message: "topic and table are required"})
		return
	}
	filter, err := realtime.ParseFilter(f.Filter)
	if err != nil {
		s.push(realtime.ServerFrame{Type: realtime.FrameError, Topic: f.Topic, Message: err.Error()})
		return
	}
	if err := s.h.authorizeSubscription(ctx, s.actor, f.Table, filter); err != nil {
		s.push(realtime.ServerFrame{Type: realtime.FrameError, Topic: f.Topic, Message: err.Error()})
		return
	}
	if old, ok := s.subs[f.Topic]; ok {
		old.Close()
	}
	sub, err := s.h.Hub.Subscribe(f.Table, filter.String())
	if err != nil {
		s.push(realtime.ServerFrame{Type: realtime.FrameError, Topic: f.Topic, Message: err.Error()})
		return
	}
	s.subs[f.Topic] = sub
	s.wg.Add(1)
	go s.forward(f.Topic, sub)
	s.push(realtime.ServerFrame{Type: realtime.FrameSubscribed, Topic: f.Topic})
}

func (s *wsSession) forward(topic string, sub *realtime.Subscription) {
	defer s.wg.Done()
	for ev := range sub.C() {
		if !s.push(realtime.ServerFrame{Type: realtime.FrameEvent, Topic: topic, Event: &ev}) {
			return
		}
	}
}

// push queues a frame for the writer. It reports false once the session is done.
func (s *wsSession) push(f realtime.ServerFrame) bool {
	select {
	case s.send <- f:
		return true
	case <-s.done:
		return false
	case <-s.closed:
		return false
	}
}

func (s *wsSession) writePump() {
	defer s.wg.Done()
	defer close(s.closed)
	ticker := time.NewTicker(wsPingPeriod)
	defer ticker.Stop()
	for {
		select {
		case f := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteJSON(f); err != nil {
				s.conn.Close()
				return
			}
		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				s.conn.Close()
				return
			}
		case <-s.done:
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), time.Now().Add(wsWriteWait))
			return
		}
	}
}

// teardown drops every subscription the session holds.
func (s *wsSession) teardown() {
	close(s.done)
	for topic, sub := range s.subs {
		sub.Close()
		delete(s.subs, topic)
	}
	s.wg.Wait()
	s.conn.Close()
}

// authorizeSubscription lets admins watch anything. Everyone else needs a
// filter bound to their own id or to a ticket they may view.
// ownerColumns lists, per table, the columns that name the user a row
// belongs to.
var ownerColumns = map[string][]string{
	"support_tickets":        {"customer_id", "assigned_technician_id"},
	"ticket_messages":        {"sender_id"},
	"customer_subscriptions": {"user_id"},
	"payments":               {"customer_id"},
	"invoices":               {"customer_id"},
	"notifications":          {"user_id"},
	notify.PushTable:         {"user_id"},
	"profiles":               {"id"},
}

func (h *Handler) authorizeSubscription(ctx context.Context, who models.Profile, table string, f realtime.Filter) error {
	if who.IsAdmin() {
		return nil
	}
	if f.Column == "" {
		return fmt.Errorf("%w: a filter is required", errSubscriptionDenied)
	}
	if slices.Contains(ownerColumns[table], f.Column) && f.Value == who.ID {
		return nil
	}
	// Chat rows and the ticket itself follow the ticket view guard.
	viewable := table == "ticket_messages" && f.Column == "ticket_id" ||
		table == "support_tickets" && f.Column == "id"
	if viewable {
		if _, err := h.Service.GetTicket(ctx, who, f.Value); err == nil {
			return nil
		}
	}
	return fmt.Errorf("%w: %s on %s", errSubscriptionDenied, f.String(), table)
}
