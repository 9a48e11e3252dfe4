package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/client"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/notify"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/realtime"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/view"
)

func runWatch(ctx context.Context, args []string, out io.Writer, logger zerolog.Logger) error {
	flags := pflag.NewFlagSet("watch", pflag.ContinueOnError)
	api := flags.String("api", envOr("TECHCTL_API", "http://localhost:8080"), "API base URL")
	token := flags.String("token", os.Getenv("TECHCTL_TOKEN"), "bearer token (default TECHCTL_TOKEN)")
	ticketID := flags.String("ticket", "", "follow one ticket's chat instead of the ticket list")
	interval := flags.Duration("interval", 0, "polling fallback (default depends on role)")
	if err := flags.Parse(args); err != nil {
		return err
	}
	if *token == "" {
		return errors.New("watch: --token or TECHCTL_TOKEN is required")
	}

	c := &client.Client{BaseURL: *api, Token: *token}
	me, err := c.Me(ctx)
	if err != nil {
		return fmt.Errorf("watch: load profile: %w", err)
	}
	feed, err := c.Realtime(ctx)
	if err != nil {
		return fmt.Errorf("watch: connect realtime: %w", err)
	}
	defer feed.Close()

	push, err := feed.Subscribe(ctx, "push", notify.PushTable, "user_id=eq."+me.ID)
	if err != nil {
		return fmt.Errorf("watch: subscribe push: %w", err)
	}

	w := &lockedWriter{w: out}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		printPushes(gctx, w, push)
		return nil
	})
	g.Go(func() error {
		if *ticketID != "" {
			return watchTicket(gctx, c, feed, *ticketID, *interval, w, logger)
		}
		return watchTickets(gctx, c, feed, me, *interval, w, logger)
	})
	err = g.Wait()
	if err == nil && ctx.Err() == nil {
		err = feed.Err()
	}
	return err
}

// queueFor returns the realtime filter, the local eviction rule and the
// default poll interval for a role's ticket list.
func queueFor(me models.Profile) (string, func(models.Ticket) bool, time.Duration) {
	switch me.Role {
	case models.RoleTechnician:
		return "assigned_technician_id=eq." + me.ID, func(t models.Ticket) bool {
			return t.AssignedTo(me.ID) && t.Status != models.StatusResolved && t.Status != models.StatusClosed
		}, view.TechnicianPollInterval
	case models.RoleAdmin:
		return "", nil, view.AdminPollInterval
	default:
		return "customer_id=eq." + me.ID, func(t models.Ticket) bool {
			return t.CustomerID == me.ID
		}, view.CustomerPollInterval
	}
}

func watchTickets(ctx context.Context, c *client.Client, feed *client.Feed, me models.Profile, interval time.Duration, w io.Writer, logger zerolog.Logger) error {
	filter, keep, poll := queueFor(me)
	if interval <= 0 {
		interval = poll
	}
	tickets := view.NewTicketCollection(keep)
	events, err := feed.Subscribe(ctx, "tickets", "support_tickets", filter)
	if err != nil {
		return fmt.Errorf("watch: subscribe tickets: %w", err)
	}
	s := &view.Sync{
		Load: func(ctx context.Context) error {
			items, err := c.Tickets(ctx)
			if err != nil {
				return err
			}
			tickets.Replace(items)
			return nil
		},
		Patchers: map[string]view.Patcher{"support_tickets": tickets},
		Interval: interval,
		OnChange: func() { printTickets(w, tickets.Items()) },
		Logger:   logger,
	}
	return s.Run(ctx, events)
}

func watchTicket(ctx context.Context, c *client.Client, feed *client.Feed, id string, interval time.Duration, w io.Writer, logger zerolog.Logger) error {
	if interval <= 0 {
		interval = view.TicketDetailPollInterval
	}
	ticket := view.NewTicketCollection(nil)
	messages := view.NewMessageCollection()

	msgEvents, err := feed.Subscribe(ctx, "messages", "ticket_messages", "ticket_id=eq."+id)
	if err != nil {
		return fmt.Errorf("watch: subscribe messages: %w", err)
	}
	ticketEvents, err := feed.Subscribe(ctx, "ticket", "support_tickets", "id=eq."+id)
	if err != nil {
		return fmt.Errorf("watch: subscribe ticket: %w", err)
	}

	s := &view.Sync{
		Load: func(ctx context.Context) error {
			g, gctx := errgroup.WithContext(ctx)
			var (
				t    models.Ticket
				msgs []models.TicketMessage
			)
			g.Go(func() (err error) {
				t, err = c.Ticket(gctx, id)
				return err
			})
			g.Go(func() (err error) {
				msgs, err = c.Messages(gctx, id)
				return err
			})
			if err := g.Wait(); err != nil {
				return err
			}
			ticket.Replace([]models.Ticket{t})
			messages.Replace(msgs)
			return nil
		},
		Patchers: map[string]view.Patcher{
			"support_tickets": ticket,
			"ticket_messages": messages,
		},
		Interval: interval,
		OnChange: func() { printChat(w, ticket.Items(), messages.Items()) },
		Logger:   logger,
	}
	return s.Run(ctx, ticketEvents, msgEvents)
}

func printTickets(w io.Writer, items []models.Ticket) {
	fmt.Fprintf(w, "-- %s  %d ticket(s)\n", time.Now().Format(time.Kitchen), len(items))
	for _, t := range items {
		mark := ""
		if t.WorkAuthorized {
			mark = " [authorized]"
		}
		fmt.Fprintf(w, "%-16s %-8s %s  %s%s\n", t.Status, t.Priority, t.ID, t.Title, mark)
	}
}

func printChat(w io.Writer, tickets []models.Ticket, msgs []models.TicketMessage) {
	if len(tickets) == 1 {
		t := tickets[0]
		fmt.Fprintf(w, "-- %s  %s (%s)\n", t.Title, t.Status, t.ID)
	}
	for _, m := range msgs {
		sender := "system"
		if m.SenderID != nil {
			sender = *m.SenderID
		}
		line := m.Message
		if m.MediaURL != nil {
			line = fmt.Sprintf("%s [%s %s]", line, m.MessageType, *m.MediaURL)
		}
		fmt.Fprintf(w, "%s  %-12s %s\n", m.CreatedAt.Local().Format(time.Kitchen), sender, line)
	}
}

func printPushes(ctx context.Context, w io.Writer, events <-chan realtime.Event) {
	for {
		var ev realtime.Event
		select {
		case <-ctx.Done():
			return
		case e, ok := <-events:
			if !ok {
				return
			}
			ev = e
		}
		if ev.Type != realtime.EventPush {
			continue
		}
		var n notify.Notification
		if err := json.Unmarshal(ev.Record, &n); err != nil {
			continue
		}
		fmt.Fprintf(w, "** %s: %s\n", n.Title, n.Body)
	}
}

// lockedWriter serializes output from the push printer and the view.
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
