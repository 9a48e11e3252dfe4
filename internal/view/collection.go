// Package view keeps a local, keyed copy of server rows current by applying
// change events incrementally, with a periodic reload as a safety net.
package view

import (
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/realtime"
)

// ErrPartialRow is returned for change events that carry key columns only.
var ErrPartialRow = errors.New("event carries a partial row")

// Collection holds rows keyed by id. Applying the same event twice leaves
// the collection unchanged.
type Collection[T any] struct {
	mu    sync.RWMutex
	items map[string]T
	key   func(T) string
	less  func(a, b T) bool
	keep  func(T) bool
}

// NewCollection creates a collection ordered by less. keep, when non-nil,
// evicts rows that stop matching (e.g. a ticket leaving a technician's queue).
func NewCollection[T any](key func(T) string, less func(a, b T) bool, keep func(T) bool) *Collection[T] {
	return &Collection[T]{items: make(map[string]T), key: key, less: less, keep: keep}
}

func (c *Collection[T]) Replace(items []T) {
	next := make(map[string]T, len(items))
	for _, it := range items {
		if c.keep != nil && !c.keep(it) {
			continue
		}
		next[c.key(it)] = it
	}
	c.mu.Lock()
	c.items = next
	c.mu.Unlock()
}

func (c *Collection[T]) Upsert(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.keep != nil && !c.keep(item) {
		delete(c.items, c.key(item))
		return
	}
	c.items[c.key(item)] = item
}

// Apply patches the collection from a change event.
func (c *Collection[T]) Apply(ev realtime.Event) error {
	switch ev.Type {
	case realtime.EventDelete:
		id, err := ev.ID()
		if err != nil {
			return err
		}
		c.mu.Lock()
		delete(c.items, id)
		c.mu.Unlock()
		return nil
	case realtime.EventInsert, realtime.EventUpdate:
		if ev.Partial {
			return ErrPartialRow
		}
		var item T
		if err := json.Unmarshal(ev.Record, &item); err != nil {
			return err
		}
		c.Upsert(item)
		return nil
	}
	return nil
}

func (c *Collection[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.items[id]
	return v, ok
}

func (c *Collection[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Collection[T]) Items() []T {
	c.mu.RLock()
	out := make([]T, 0, len(c.items))
	for _, it := range c.items {
		out = append(out, it)
	}
	c.mu.RUnlock()
	if c.less != nil {
		sort.SliceStable(out, func(i, j int) bool { return c.less(out[i], out[j]) })
	}
	return out
}

// MergeMessages adds incoming messages that are not already present and
// returns the result ordered by creation time.
func MergeMessages(existing []models.TicketMessage, incoming ...models.TicketMessage) []models.TicketMessage {
	seen := make(map[string]struct{}, len(existing)+len(incoming))
	out := make([]models.TicketMessage, 0, len(existing)+len(incoming))
	for _, m := range existing {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	for _, m := range incoming {
		if _, ok := seen[m.ID]; ok {
			continue
		}
		seen[m.ID] = struct{}{}
		out = append(out, m)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func NewMessageCollection() *Collection[models.TicketMessage] {
	return NewCollection(
		func(m models.TicketMessage) string { return m.ID },
		func(a, b models.TicketMessage) bool {
			if a.CreatedAt.Equal(b.CreatedAt) {
				return a.ID < b.ID
			}
			return a.CreatedAt.Before(b.CreatedAt)
		},
		nil,
	)
}

func NewTicketCollection(keep func(models.Ticket) bool) *Collection[models.Ticket] {
	return NewCollection(
		func(t models.Ticket) string { return t.ID },
		func(a, b models.Ticket) bool { return a.CreatedAt.After(b.CreatedAt) },
		keep,
	)
}

// Polling fallbacks per dashboard.
const (
	CustomerPollInterval     = 5 * time.Second
	TechnicianPollInterval   = 10 * time.Second
	AdminPollInterval        = 10 * time.Second
	TicketDetailPollInterval = 5 * time.Second
)
