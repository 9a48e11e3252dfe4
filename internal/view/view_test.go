package view

import (
	"context"
	"encoding/json"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/realtime"
)

func messageEvent(t *testing.T, typ string, m models.TicketMessage) realtime.Event {
	t.Helper()
	b, err := json.Marshal(m)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	ev := realtime.Event{Table: "ticket_messages", Type: typ}
	if typ == realtime.EventDelete {
		ev.OldRecord = b
	} else {
		ev.Record = b
	}
	return ev
}

func TestMessageEventAppliedTwiceIsNotDuplicated(t *testing.T) {
	c := NewMessageCollection()
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	c.Replace([]models.TicketMessage{{ID: "m1", Message: "hi", CreatedAt: base}})

	ev := messageEvent(t, realtime.EventInsert, models.TicketMessage{ID: "m2", Message: "hello", CreatedAt: base.Add(time.Minute)})
	if err := c.Apply(ev); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if err := c.Apply(ev); err != nil {
		t.Fatalf("apply again: %v", err)
	}
	items := c.Items()
	if len(items) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(items))
	}
	if items[0].ID != "m1" || items[1].ID != "m2" {
		t.Fatalf("unexpected order %v", items)
	}

	if err := c.Apply(messageEvent(t, realtime.EventDelete, models.TicketMessage{ID: "m1"})); err != nil {
		t.Fatalf("apply delete: %v", err)
	}
	if c.Len() != 1 {
		t.Fatalf("expected delete to remove m1")
	}
}

func TestMergeMessagesDedupesAndSorts(t *testing.T) {
	base := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	existing := []models.TicketMessage{{ID: "b", CreatedAt: base.Add(time.Minute)}, {ID: "a", CreatedAt: base}}
	merged := MergeMessages(existing, models.TicketMessage{ID: "b", CreatedAt: base.Add(time.Minute)}, models.TicketMessage{ID: "c", CreatedAt: base.Add(2 * time.Minute)})
	merged = MergeMessages(merged, models.TicketMessage{ID: "c", CreatedAt: base.Add(2 * time.Minute)})
	if len(merged) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(merged))
	}
	if merged[0].ID != "a" || merged[2].ID != "c" {
		t.Fatalf("unexpected order %+v", merged)
	}
}

func TestTicketCollectionEvictsWhenKeepFails(t *testing.T) {
	c := NewTicketCollection(func(t models.Ticket) bool { return t.Status != models.StatusResolved })
	c.Replace([]models.Ticket{{ID: "t1", Status: models.StatusInProgress}, {ID: "t2", Status: models.StatusResolved}})
	if c.Len() != 1 {
		t.Fatalf("expected resolved ticket filtered on load")
	}
	b, _ := json.Marshal(models.Ticket{ID: "t1", Status: models.StatusResolved})
	if err := c.Apply(realtime.Event{Table: "support_tickets", Type: realtime.EventUpdate, Record: b}); err != nil {
		t.Fatalf("apply: %v", err)
	}
	if _, ok := c.Get("t1"); ok {
		t.Fatalf("expected t1 evicted after resolution")
	}
}

func TestSyncPatchesAndReloads(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	msgs := NewMessageCollection()
	var loads atomic.Int32
	changed := make(chan struct{}, 16)
	s := &Sync{
		Load: func(ctx context.Context) error {
			loads.Add(1)
			msgs.Replace(nil)
			return nil
		},
		Patchers: map[string]Patcher{"ticket_messages": msgs},
		Interval: time.Hour,
		OnChange: func() { changed <- struct{}{} },
		Logger:   zerolog.Nop(),
	}

	events := make(chan realtime.Event, 4)
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx, events) }()

	<-changed
	events <- messageEvent(t, realtime.EventInsert, models.TicketMessage{ID: "m1"})
	<-changed
	if msgs.Len() != 1 || loads.Load() != 1 {
		t.Fatalf("expected incremental patch without reload, len=%d loads=%d", msgs.Len(), loads.Load())
	}

	events <- realtime.Event{Table: "ticket_messages", Type: realtime.EventResync}
	<-changed
	if loads.Load() != 2 {
		t.Fatalf("expected reload on resync, loads=%d", loads.Load())
	}

	events <- realtime.Event{Table: "ticket_messages", Type: realtime.EventInsert, Record: json.RawMessage(`not json`)}
	<-changed
	if loads.Load() != 3 {
		t.Fatalf("expected reload after bad patch, loads=%d", loads.Load())
	}

	events <- realtime.Event{Table: "ticket_messages", Type: realtime.EventUpdate, Partial: true, Record: json.RawMessage(`{"id":"m9","ticket_id":"t1"}`)}
	<-changed
	if loads.Load() != 4 || msgs.Len() != 0 {
		t.Fatalf("expected partial row to reload instead of patching, loads=%d len=%d", loads.Load(), msgs.Len())
	}

	close(events)
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestSyncPollsWithoutEvents(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	var loads atomic.Int32
	s := &Sync{
		Load:     func(ctx context.Context) error { loads.Add(1); return nil },
		Interval: 5 * time.Millisecond,
		Logger:   zerolog.Nop(),
	}
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	deadline := time.After(2 * time.Second)
	for loads.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected polling reloads, got %d", loads.Load())
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("run: %v", err)
	}
}

func TestCollectionRefusesPartialRows(t *testing.T) {
	msgs := NewMessageCollection()
	ev := realtime.Event{Table: "ticket_messages", Type: realtime.EventInsert, Partial: true, Record: json.RawMessage(`{"id":"m1"}`)}
	if err := msgs.Apply(ev); !errors.Is(err, ErrPartialRow) {
		t.Fatalf("expected ErrPartialRow, got %v", err)
	}
	if msgs.Len() != 0 {
		t.Fatalf("partial row must not be stored")
	}
}
