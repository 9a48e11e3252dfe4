package realtime

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

// Listener turns PostgreSQL NOTIFY payloads written by the table_changes
// trigger into hub events. After a reconnect every subscriber is told to
// resync, since notifications sent while disconnected are lost.
type Listener struct {
	Pool    *pgxpool.Pool
	Channel string
	Hub     *Hub
	Logger  zerolog.Logger

	// MinBackoff and MaxBackoff bound the reconnect delay. Default 1s and 30s.
	MinBackoff time.Duration
	MaxBackoff time.Duration

	listenFn func(ctx context.Context, listening func()) error
}

// Run blocks until ctx is cancelled, reconnecting on connection loss.
func (l *Listener) Run(ctx context.Context) error {
	minBackoff, maxBackoff := l.MinBackoff, l.MaxBackoff
	if minBackoff <= 0 {
		minBackoff = time.Second
	}
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}
	listen := l.listenFn
	if listen == nil {
		listen = l.listen
	}
	backoff := minBackoff
	connected := false
	for {
		err := listen(ctx, func() {
			backoff = minBackoff
			if connected {
				l.Hub.ResyncAll()
			}
			connected = true
		})
		if ctx.Err() != nil {
			return nil
		}
		l.Logger.Warn().Err(err).Dur("retry_in", backoff).Msg("change feed disconnected")
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return nil
		}
		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (l *Listener) listen(ctx context.Context, listening func()) error {
	conn, err := l.Pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{l.Channel}.Sanitize()); err != nil {
		return err
	}
	l.Logger.Info().Str("channel", l.Channel).Msg("change feed listening")
	listening()

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		ev, err := DecodeNotification([]byte(n.Payload))
		if err != nil {
			l.Logger.Warn().Err(err).Msg("bad change feed payload")
			continue
		}
		l.Hub.Publish(ev)
	}
}

func DecodeNotification(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, err
	}
	if ev.CommitTimestamp.IsZero() {
		ev.CommitTimestamp = time.Now().UTC()
	}
	return ev, nil
}
