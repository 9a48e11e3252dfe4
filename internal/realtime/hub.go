package realtime

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"
)

// SubscriptionBuffer is the per-subscription event buffer. A subscriber that
// falls this far behind has events dropped and receives a RESYNC instead.
const SubscriptionBuffer = 64

type Subscription struct {
	ID     uint64
	Table  string
	Filter Filter

	ch     chan Event
	resync atomic.Bool
	hub    *Hub
	once   sync.Once
}

// C delivers matching events. It is closed by Close.
func (s *Subscription) C() <-chan Event { return s.ch }

func (s *Subscription) Close() {
	s.once.Do(func() { s.hub.remove(s) })
}

type Hub struct {
	mu     sync.RWMutex
	tables map[string]map[uint64]*Subscription
	nextID atomic.Uint64
	logger zerolog.Logger
}

func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		tables: make(map[string]map[uint64]*Subscription),
		logger: logger,
	}
}

func (h *Hub) Subscribe(table, filter string) (*Subscription, error) {
	f, err := ParseFilter(filter)
	if err != nil {
		return nil, err
	}
	sub := &Subscription{
		ID:     h.nextID.Add(1),
		Table:  table,
		Filter: f,
		ch:     make(chan Event, SubscriptionBuffer),
		hub:    h,
	}
	h.mu.Lock()
	if h.tables[table] == nil {
		h.tables[table] = make(map[uint64]*Subscription)
	}
	h.tables[table][sub.ID] = sub
	h.mu.Unlock()
	return sub, nil
}

func (h *Hub) remove(s *Subscription) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs, ok := h.tables[s.Table]; ok {
		delete(subs, s.ID)
		if len(subs) == 0 {
			delete(h.tables, s.Table)
		}
	}
	close(s.ch)
}

// Publish delivers e to every matching subscription without blocking. When a
// subscriber's buffer is full the event is dropped and the subscriber is sent
// a RESYNC as soon as it has room again.
func (h *Hub) Publish(e Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, sub := range h.tables[e.Table] {
		if !sub.Filter.Matches(e) {
			continue
		}
		if sub.resync.Load() {
			select {
			case sub.ch <- Event{Table: e.Table, Type: EventResync, CommitTimestamp: e.CommitTimestamp}:
				sub.resync.Store(false)
			default:
			}
			continue
		}
		select {
		case sub.ch <- e:
		default:
			sub.resync.Store(true)
			h.logger.Warn().Str("table", e.Table).Uint64("subscription", sub.ID).Msg("subscriber behind, dropping event")
		}
	}
}

// ResyncAll tells every subscriber to reload, for when events may have been
// lost upstream. Subscribers with a full buffer get the RESYNC with their next
// matching event.
func (h *Hub) ResyncAll() {
	h.mu.RLock()
	defer h.mu.RUnlock()
	now := time.Now().UTC()
	for table, subs := range h.tables {
		for _, sub := range subs {
			select {
			case sub.ch <- Event{Table: table, Type: EventResync, CommitTimestamp: now}:
			default:
				sub.resync.Store(true)
			}
		}
	}
}

// Count returns the number of live subscriptions.
func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	n := 0
	for _, subs := range h.tables {
		n += len(subs)
	}
	return n
}
