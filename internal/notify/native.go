package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	kafka "github.com/segmentio/kafka-go"
)

type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Native publishes push requests to the gateway's Kafka topic. Messages are
// keyed by user id so one user's pushes stay ordered.
type Native struct {
	Writer MessageWriter
}

func NewNative(brokers []string, topic string) *Native {
	return &Native{Writer: &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafka.Hash{},
		RequiredAcks: kafka.RequireOne,
		// One message per call; the dispatcher owns retries.
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		MaxAttempts:  1,
	}}
}

func (n *Native) Name() string { return "native" }

type pushCommand struct {
	Type         string        `json:"type"`
	UserID       string        `json:"user_id"`
	Notification *Notification `json:"notification,omitempty"`
}

func (n *Native) RequestPermission(ctx context.Context, userID string) (bool, error) {
	if err := n.write(ctx, pushCommand{Type: "request_permission", UserID: userID}); err != nil {
		return false, err
	}
	return true, nil
}

func (n *Native) Schedule(ctx context.Context, notification Notification) error {
	return n.write(ctx, pushCommand{Type: "schedule", UserID: notification.UserID, Notification: &notification})
}

func (n *Native) write(ctx context.Context, cmd pushCommand) error {
	b, err := json.Marshal(cmd)
	if err != nil {
		return err
	}
	return n.Writer.WriteMessages(ctx, kafka.Message{Key: []byte(cmd.UserID), Value: b})
}

func (n *Native) Close() error {
	return n.Writer.Close()
}

// Detect reports whether any broker accepts a connection.
func Detect(ctx context.Context, brokers []string) error {
	if len(brokers) == 0 {
		return errors.New("no push brokers configured")
	}
	var errs []error
	for _, b := range brokers {
		conn, err := kafka.DialContext(ctx, "tcp", b)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", b, err))
			continue
		}
		_ = conn.Close()
		return nil
	}
	return errors.Join(errs...)
}

type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// EventConsumer reads device events reported by the push gateway and invokes
// the registered listeners.
type EventConsumer struct {
	Reader    MessageReader
	Listeners Listeners
	Logger    zerolog.Logger
}

func NewEventConsumer(brokers []string, topic string, listeners Listeners, logger zerolog.Logger) *EventConsumer {
	return &EventConsumer{
		Reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:        brokers,
			Topic:          topic,
			GroupID:        "techsupport-pro-push-events",
			MinBytes:       1,
			MaxBytes:       1 << 20,
			CommitInterval: 0,
			StartOffset:    kafka.LastOffset,
		}),
		Listeners: listeners,
		Logger:    logger,
	}
}

type deviceEvent struct {
	Type         string       `json:"type"`
	Action       Action       `json:"action"`
	Notification Notification `json:"notification"`
}

func (c *EventConsumer) Run(ctx context.Context) error {
	for {
		m, err := c.Reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("fetch: %w", err)
		}
		c.dispatch(m)
		if err := c.Reader.CommitMessages(ctx, m); err != nil {
			c.Logger.Warn().Err(err).Msg("push event commit failed")
		}
	}
}

func (c *EventConsumer) dispatch(m kafka.Message) {
	var ev deviceEvent
	if err := json.Unmarshal(m.Value, &ev); err != nil {
		c.Logger.Warn().Err(err).Msg("bad push event")
		return
	}
	switch ev.Type {
	case "action_performed":
		if c.Listeners.OnActionPerformed != nil {
			c.Listeners.OnActionPerformed(ev.Action)
		}
	case "received":
		if c.Listeners.OnReceived != nil {
			c.Listeners.OnReceived(ev.Notification)
		}
	default:
		c.Logger.Debug().Str("type", ev.Type).Msg("ignoring push event")
	}
}

func (c *EventConsumer) Close() error {
	return c.Reader.Close()
}
