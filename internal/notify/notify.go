// Package notify delivers best-effort user notifications through a backend
// picked at startup: native push when a push gateway is reachable, otherwise
// the browser's live session.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Notification struct {
	ID       string `json:"id"`
	UserID   string `json:"user_id"`
	Title    string `json:"title"`
	Body     string `json:"body"`
	Kind     string `json:"kind"`
	TicketID string `json:"ticket_id,omitempty"`
	// Sound names the cue served by /api/sounds/:cue.
	Sound string `json:"sound,omitempty"`
}

type Action struct {
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	ActionID       string `json:"action_id"`
}

type NotificationBackend interface {
	Name() string
	RequestPermission(ctx context.Context, userID string) (bool, error)
	Schedule(ctx context.Context, n Notification) error
}

// Listeners are invoked for device-side events reported by a native backend.
type Listeners struct {
	OnActionPerformed func(Action)
	OnReceived        func(Notification)
}

// SoundFor maps a notification kind to its audio cue.
func SoundFor(kind string) string {
	switch kind {
	case "message":
		return "message"
	case "payment", "payment_confirmed", "payment_submitted", "estimate":
		return "payment"
	case "assignment", "status", "completed":
		return "status"
	default:
		return "alert"
	}
}

// Dispatcher wraps a primary backend with retries and a fallback. Notify never
// returns an error; failures are logged. Once Start has run, Notify only
// queues and a worker pool does the delivery under its own context, so
// retries against a slow backend stay off the caller's path. Timeout bounds
// one queued delivery including its retries.
type Dispatcher struct {
	Primary  NotificationBackend
	Fallback NotificationBackend
	Retries  int
	Backoff  time.Duration
	Logger   zerolog.Logger

	Workers   int
	QueueSize int
	Timeout   time.Duration

	mu    sync.RWMutex
	queue chan Notification
}

// Start launches the delivery workers. They stop when ctx ends; anything still
// queued then is dropped.
func (d *Dispatcher) Start(ctx context.Context) {
	workers, size, timeout := d.Workers, d.QueueSize, d.Timeout
	if workers <= 0 {
		workers = 4
	}
	if size <= 0 {
		size = 256
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	q := make(chan Notification, size)
	d.mu.Lock()
	d.queue = q
	d.mu.Unlock()
	for i := 0; i < workers; i++ {
		go func() {
			for {
				select {
				case <-ctx.Done():
					return
				case n := <-q:
					dctx, cancel := context.WithTimeout(ctx, timeout)
					d.deliver(dctx, n)
					cancel()
				}
			}
		}()
	}
}

func (d *Dispatcher) Backend() string {
	if d.Primary == nil {
		return "none"
	}
	return d.Primary.Name()
}

func (d *Dispatcher) Notify(ctx context.Context, n Notification) {
	if n.Sound == "" {
		n.Sound = SoundFor(n.Kind)
	}
	d.mu.RLock()
	q := d.queue
	d.mu.RUnlock()
	if q == nil {
		d.deliver(ctx, n)
		return
	}
	select {
	case q <- n:
	default:
		d.Logger.Warn().Str("user_id", n.UserID).Msg("notification queue full")
		d.fallback(ctx, n)
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n Notification) {
	if d.Primary != nil && d.try(ctx, d.Primary, n) {
		return
	}
	d.fallback(ctx, n)
}

func (d *Dispatcher) fallback(ctx context.Context, n Notification) {
	if d.Fallback == nil || d.Fallback == d.Primary {
		return
	}
	if err := d.Fallback.Schedule(ctx, n); err != nil {
		d.Logger.Warn().Err(err).Str("backend", d.Fallback.Name()).Str("user_id", n.UserID).Msg("notification dropped")
	}
}

func (d *Dispatcher) try(ctx context.Context, b NotificationBackend, n Notification) bool {
	attempts := d.Retries
	if attempts <= 0 {
		attempts = 1
	}
	for attempt := 1; attempt <= attempts; attempt++ {
		err := b.Schedule(ctx, n)
		if err == nil {
			return true
		}
		d.Logger.Warn().Err(err).Str("backend", b.Name()).Int("attempt", attempt).Msg("notification attempt failed")
		if attempt < attempts {
			select {
			case <-time.After(d.Backoff):
			case <-ctx.Done():
				return false
			}
		}
	}
	return false
}

// RequestPermission asks the primary backend, falling back on error.
func (d *Dispatcher) RequestPermission(ctx context.Context, userID string) bool {
	if d.Primary != nil {
		ok, err := d.Primary.RequestPermission(ctx, userID)
		if err == nil {
			return ok
		}
		d.Logger.Warn().Err(err).Str("backend", d.Primary.Name()).Msg("permission request failed")
	}
	if d.Fallback != nil {
		ok, err := d.Fallback.RequestPermission(ctx, userID)
		return err == nil && ok
	}
	return false
}
