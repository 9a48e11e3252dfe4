package notify

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	kafka "github.com/segmentio/kafka-go"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/realtime"
)

type fakeBackend struct {
	name  string
	fails int
	calls int
	sent  []Notification
}

func (f *fakeBackend) Name() string { return f.name }

func (f *fakeBackend) RequestPermission(ctx context.Context, userID string) (bool, error) {
	if f.fails > 0 {
		return false, errors.New("unavailable")
	}
	return true, nil
}

func (f *fakeBackend) Schedule(ctx context.Context, n Notification) error {
	f.calls++
	if f.calls <= f.fails {
		return errors.New("unavailable")
	}
	f.sent = append(f.sent, n)
	return nil
}

func TestDispatcherRetriesPrimary(t *testing.T) {
	primary := &fakeBackend{name: "native", fails: 2}
	fallback := &fakeBackend{name: "browser"}
	d := &Dispatcher{Primary: primary, Fallback: fallback, Retries: 3, Logger: zerolog.Nop()}
	d.Notify(context.Background(), Notification{UserID: "u1", Kind: "payment"})
	if primary.calls != 3 || len(primary.sent) != 1 {
		t.Fatalf("expected success on third attempt, calls=%d", primary.calls)
	}
	if len(fallback.sent) != 0 {
		t.Fatalf("fallback should not be used")
	}
	if primary.sent[0].Sound != "payment" {
		t.Fatalf("expected payment sound, got %q", primary.sent[0].Sound)
	}
}

func TestDispatcherFallsBackAfterRetries(t *testing.T) {
	primary := &fakeBackend{name: "native", fails: 10}
	fallback := &fakeBackend{name: "browser"}
	d := &Dispatcher{Primary: primary, Fallback: fallback, Retries: 3, Logger: zerolog.Nop()}
	d.Notify(context.Background(), Notification{UserID: "u1"})
	if primary.calls != 3 {
		t.Fatalf("expected 3 attempts, got %d", primary.calls)
	}
	if len(fallback.sent) != 1 {
		t.Fatalf("expected fallback delivery")
	}
	if !d.RequestPermission(context.Background(), "u1") {
		t.Fatalf("expected fallback permission")
	}
}

func TestDispatcherNeverFailsWithoutBackends(t *testing.T) {
	d := &Dispatcher{Logger: zerolog.Nop()}
	d.Notify(context.Background(), Notification{UserID: "u1"})
	if d.Backend() != "none" {
		t.Fatalf("unexpected backend %s", d.Backend())
	}
}

func TestBrowserPublishesToUserFilter(t *testing.T) {
	hub := realtime.NewHub(zerolog.Nop())
	mine, _ := hub.Subscribe(PushTable, "user_id=eq.u1")
	theirs, _ := hub.Subscribe(PushTable, "user_id=eq.u2")
	b := Browser{Hub: hub}
	if err := b.Schedule(context.Background(), Notification{ID: "n1", UserID: "u1", Title: "Paid"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(mine.C()) != 1 || len(theirs.C()) != 0 {
		t.Fatalf("expected delivery only to u1")
	}
	ev := <-mine.C()
	var n Notification
	if err := json.Unmarshal(ev.Record, &n); err != nil || n.Title != "Paid" {
		t.Fatalf("unexpected payload %s", ev.Record)
	}
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (w *fakeWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestNativeWritesKeyedCommand(t *testing.T) {
	w := &fakeWriter{}
	n := &Native{Writer: w}
	if err := n.Schedule(context.Background(), Notification{UserID: "u9", Title: "Hi"}); err != nil {
		t.Fatalf("schedule: %v", err)
	}
	if len(w.msgs) != 1 || string(w.msgs[0].Key) != "u9" {
		t.Fatalf("unexpected messages %+v", w.msgs)
	}
	var cmd pushCommand
	if err := json.Unmarshal(w.msgs[0].Value, &cmd); err != nil || cmd.Type != "schedule" || cmd.Notification.Title != "Hi" {
		t.Fatalf("unexpected command %s", w.msgs[0].Value)
	}
	w.err = errors.New("broker down")
	if ok, err := n.RequestPermission(context.Background(), "u9"); ok || err == nil {
		t.Fatalf("expected permission request failure")
	}
}

func TestEventConsumerDispatch(t *testing.T) {
	var actions []Action
	var received []Notification
	c := &EventConsumer{
		Listeners: Listeners{
			OnActionPerformed: func(a Action) { actions = append(actions, a) },
			OnReceived:        func(n Notification) { received = append(received, n) },
		},
		Logger: zerolog.Nop(),
	}
	c.dispatch(kafka.Message{Value: []byte(`{"type":"action_performed","action":{"notification_id":"n1","action_id":"open"}}`)})
	c.dispatch(kafka.Message{Value: []byte(`{"type":"received","notification":{"id":"n2"}}`)})
	c.dispatch(kafka.Message{Value: []byte(`garbage`)})
	if len(actions) != 1 || actions[0].ActionID != "open" {
		t.Fatalf("unexpected actions %+v", actions)
	}
	if len(received) != 1 || received[0].ID != "n2" {
		t.Fatalf("unexpected received %+v", received)
	}
}

func TestDetectWithoutBrokers(t *testing.T) {
	if err := Detect(context.Background(), nil); err == nil {
		t.Fatalf("expected error without brokers")
	}
}

type slowBackend struct {
	delay time.Duration
	calls atomic.Int32
}

func (b *slowBackend) Name() string { return "native" }

func (b *slowBackend) RequestPermission(ctx context.Context, userID string) (bool, error) {
	return false, errors.New("unavailable")
}

func (b *slowBackend) Schedule(ctx context.Context, n Notification) error {
	b.calls.Add(1)
	time.Sleep(b.delay)
	return errors.New("broker down")
}

type recordingBackend struct {
	mu   sync.Mutex
	sent []Notification
}

func (b *recordingBackend) Name() string { return "browser" }

func (b *recordingBackend) RequestPermission(ctx context.Context, userID string) (bool, error) {
	return true, nil
}

func (b *recordingBackend) Schedule(ctx context.Context, n Notification) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.sent = append(b.sent, n)
	return nil
}

func (b *recordingBackend) count() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.sent)
}

func TestStartedDispatcherDoesNotBlockCaller(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	primary := &slowBackend{delay: 50 * time.Millisecond}
	fallback := &recordingBackend{}
	d := &Dispatcher{Primary: primary, Fallback: fallback, Retries: 3, Backoff: 100 * time.Millisecond, Logger: zerolog.Nop()}
	d.Start(ctx)

	start := time.Now()
	for i := 0; i < 5; i++ {
		d.Notify(ctx, Notification{UserID: "admin", Kind: "payment_submitted"})
	}
	if took := time.Since(start); took > 20*time.Millisecond {
		t.Fatalf("notify blocked the caller for %v", took)
	}

	deadline := time.After(5 * time.Second)
	for fallback.count() < 5 {
		select {
		case <-deadline:
			t.Fatalf("expected queued notifications to fall back, got %d", fallback.count())
		case <-time.After(10 * time.Millisecond):
		}
	}
	if got := primary.calls.Load(); got != 15 {
		t.Fatalf("expected 3 attempts per notification, got %d", got)
	}
}

func TestFullQueueFallsBackInline(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	block := make(chan struct{})
	defer close(block)
	primary := &blockingBackend{release: block, started: make(chan struct{})}
	fallback := &recordingBackend{}
	d := &Dispatcher{Primary: primary, Fallback: fallback, Workers: 1, QueueSize: 1, Logger: zerolog.Nop()}
	d.Start(ctx)

	d.Notify(ctx, Notification{UserID: "u1"})
	<-primary.started
	d.Notify(ctx, Notification{UserID: "u2"})
	d.Notify(ctx, Notification{UserID: "u3"})
	if fallback.count() != 1 || fallback.sent[0].UserID != "u3" {
		t.Fatalf("expected overflow to go straight to the fallback, got %+v", fallback.sent)
	}
}

type blockingBackend struct {
	release <-chan struct{}
	started chan struct{}
	once    sync.Once
}

func (b *blockingBackend) Name() string { return "native" }

func (b *blockingBackend) RequestPermission(ctx context.Context, userID string) (bool, error) {
	return true, nil
}

func (b *blockingBackend) Schedule(ctx context.Context, n Notification) error {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
	case <-ctx.Done():
	}
	return nil
}
