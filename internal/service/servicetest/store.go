package servicetest

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/db"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

// Store is an in-memory implementation of service.Store. The *Err fields
// inject failures into the matching calls.
type Store struct {
	mu            sync.Mutex
	Profiles      map[string]models.Profile
	Tickets       map[string]models.Ticket
	Messages      []models.TicketMessage
	Plans         map[string]models.SubscriptionPlan
	Subscriptions map[string]models.CustomerSubscription
	Payments      []models.Payment
	Invoices      []models.Invoice
	Notifications []models.Notification
	Preferences   map[string]models.CustomerPreferences
	Confirmations map[string]models.PaymentConfirmation

	InvoiceSeq       int
	InvoiceNumberErr error
	InvoiceErr       error
	PaymentErr       error
	DeleteErr        error
	DeleteCalls      int
	PingErr          error
}

func NewStore() *Store {
	return &Store{
		Profiles:      map[string]models.Profile{},
		Tickets:       map[string]models.Ticket{},
		Plans:         map[string]models.SubscriptionPlan{},
		Subscriptions: map[string]models.CustomerSubscription{},
		Preferences:   map[string]models.CustomerPreferences{},
		Confirmations: map[string]models.PaymentConfirmation{},
	}
}

func (m *Store) Ping(ctx context.Context) error {
	return m.PingErr
}

func (m *Store) GetProfile(ctx context.Context, id string) (models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Profiles[id]
	if !ok {
		return p, db.ErrNotFound
	}
	return p, nil
}

func (m *Store) ListProfiles(ctx context.Context, role string) ([]models.Profile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Profile
	for _, p := range m.Profiles {
		if role == "" || p.Role == role {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) UpdateProfile(ctx context.Context, p models.Profile) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Profiles[p.ID]; !ok {
		return db.ErrNotFound
	}
	m.Profiles[p.ID] = p
	return nil
}

func (m *Store) DeleteUser(ctx context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.DeleteCalls++
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	delete(m.Profiles, id)
	return nil
}

func (m *Store) CreateTicket(ctx context.Context, t models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Tickets[t.ID] = t
	return nil
}

func (m *Store) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	t, ok := m.Tickets[id]
	if !ok {
		return t, db.ErrNotFound
	}
	return t, nil
}

func (m *Store) UpdateTicket(ctx context.Context, t models.Ticket) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Tickets[t.ID]; !ok {
		return db.ErrNotFound
	}
	m.Tickets[t.ID] = t
	return nil
}

func (m *Store) ListTickets(ctx context.Context, f db.TicketFilter) ([]models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Ticket
	for _, t := range m.Tickets {
		if f.CustomerID != "" && t.CustomerID != f.CustomerID {
			continue
		}
		if f.TechnicianID != "" && !t.AssignedTo(f.TechnicianID) {
			continue
		}
		if len(f.Statuses) > 0 && !contains(f.Statuses, t.Status) {
			continue
		}
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Store) AwaitingConfirmation(ctx context.Context) ([]models.Ticket, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Ticket
	for _, t := range m.Tickets {
		if (t.PaymentMade && !t.PaymentConfirmed) || (t.FinalPaymentMade && !t.FinalPaymentConfirmed) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (m *Store) TechnicianLoads(ctx context.Context) (map[string]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int{}
	for _, t := range m.Tickets {
		if t.AssignedTechnicianID != nil && (t.Status == models.StatusInProgress || t.Status == models.StatusAwaitingPayment) {
			out[*t.AssignedTechnicianID]++
		}
	}
	return out, nil
}

func (m *Store) CountResolved(ctx context.Context, technicianID string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, t := range m.Tickets {
		if t.AssignedTo(technicianID) && (t.Status == models.StatusResolved || t.Status == models.StatusClosed) {
			n++
		}
	}
	return n, nil
}

func (m *Store) InsertMessage(ctx context.Context, msg models.TicketMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Messages = append(m.Messages, msg)
	return nil
}

func (m *Store) ListMessages(ctx context.Context, ticketID string) ([]models.TicketMessage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.TicketMessage
	for _, msg := range m.Messages {
		if msg.TicketID == ticketID {
			out = append(out, msg)
		}
	}
	return out, nil
}

func (m *Store) MarkMessagesRead(ctx context.Context, ticketID, readerID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i, msg := range m.Messages {
		if msg.TicketID != ticketID || msg.IsRead || (msg.SenderID != nil && *msg.SenderID == readerID) {
			continue
		}
		m.Messages[i].IsRead = true
		n++
	}
	return n, nil
}

func (m *Store) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.SubscriptionPlan
	for _, p := range m.Plans {
		out = append(out, p)
	}
	return out, nil
}

func (m *Store) GetPlan(ctx context.Context, id string) (models.SubscriptionPlan, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Plans[id]
	if !ok {
		return p, db.ErrNotFound
	}
	return p, nil
}

func (m *Store) CreateSubscription(ctx context.Context, sub models.CustomerSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subscriptions[sub.ID] = sub
	return nil
}

func (m *Store) GetSubscription(ctx context.Context, id string) (models.CustomerSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	sub, ok := m.Subscriptions[id]
	if !ok {
		return sub, db.ErrNotFound
	}
	return sub, nil
}

func (m *Store) UpdateSubscription(ctx context.Context, sub models.CustomerSubscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Subscriptions[sub.ID] = sub
	return nil
}

func (m *Store) ListSubscriptions(ctx context.Context, userID, status string) ([]models.CustomerSubscription, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.CustomerSubscription
	for _, sub := range m.Subscriptions {
		if (userID == "" || sub.UserID == userID) && (status == "" || sub.Status == status) {
			out = append(out, sub)
		}
	}
	return out, nil
}

func (m *Store) HasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, sub := range m.Subscriptions {
		if sub.UserID == userID && sub.Status == models.SubscriptionActive && sub.PaymentConfirmed {
			return true, nil
		}
	}
	return false, nil
}

func (m *Store) InsertPayment(ctx context.Context, p models.Payment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PaymentErr != nil {
		return m.PaymentErr
	}
	m.Payments = append(m.Payments, p)
	return nil
}

func (m *Store) ListPayments(ctx context.Context, customerID string) ([]models.Payment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Payment
	for _, p := range m.Payments {
		if p.CustomerID == customerID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (m *Store) NextInvoiceNumber(ctx context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InvoiceNumberErr != nil {
		return "", m.InvoiceNumberErr
	}
	m.InvoiceSeq++
	return fmt.Sprintf("INV-2026-%06d", m.InvoiceSeq), nil
}

func (m *Store) InsertInvoice(ctx context.Context, inv models.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.InvoiceErr != nil {
		return m.InvoiceErr
	}
	m.Invoices = append(m.Invoices, inv)
	return nil
}

func (m *Store) ListInvoices(ctx context.Context, customerID string) ([]models.Invoice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Invoice
	for _, inv := range m.Invoices {
		if inv.CustomerID == customerID {
			out = append(out, inv)
		}
	}
	return out, nil
}

func (m *Store) GetConfirmation(ctx context.Context, id string) (models.PaymentConfirmation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.Confirmations[id]
	if !ok {
		return c, db.ErrNotFound
	}
	c.Steps = append([]string(nil), c.Steps...)
	return c, nil
}

func (m *Store) ClaimConfirmation(ctx context.Context, c models.PaymentConfirmation, staleBefore time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.Confirmations[c.ID]
	if c.Attempt <= 1 {
		if ok {
			return false, nil
		}
	} else {
		if !ok || cur.Attempt != c.Attempt-1 {
			return false, nil
		}
		if cur.Status == models.ConfirmationRunning && !cur.ClaimedAt.Before(staleBefore) {
			return false, nil
		}
	}
	c.Steps = append([]string(nil), c.Steps...)
	m.Confirmations[c.ID] = c
	return true, nil
}

func (m *Store) SaveConfirmation(ctx context.Context, c models.PaymentConfirmation) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if cur, ok := m.Confirmations[c.ID]; !ok || cur.Attempt != c.Attempt {
		return nil
	}
	c.Steps = append([]string(nil), c.Steps...)
	m.Confirmations[c.ID] = c
	return nil
}

func (m *Store) InsertNotification(ctx context.Context, n models.Notification) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Notifications = append(m.Notifications, n)
	return nil
}

func (m *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.Notifications {
		if n.UserID == userID && (!unreadOnly || !n.IsRead) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (m *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, n := range m.Notifications {
		if n.ID == id && n.UserID == userID {
			m.Notifications[i].IsRead = true
			return nil
		}
	}
	return db.ErrNotFound
}

func (m *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for i := range m.Notifications {
		if m.Notifications[i].UserID == userID && !m.Notifications[i].IsRead {
			m.Notifications[i].IsRead = true
			n++
		}
	}
	return n, nil
}

func (m *Store) GetPreferences(ctx context.Context, customerID string) (models.CustomerPreferences, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Preferences[customerID]
	if !ok {
		return p, db.ErrNotFound
	}
	return p, nil
}

func (m *Store) UpsertPreferences(ctx context.Context, p models.CustomerPreferences) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Preferences[p.CustomerID] = p
	return nil
}

// NotificationsFor returns the stored notifications of one user.
func (m *Store) NotificationsFor(userID string) []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.Notification
	for _, n := range m.Notifications {
		if n.UserID == userID {
			out = append(out, n)
		}
	}
	return out
}

func contains(list []string, v string) bool {
	for _, s := range list {
		if s == v {
			return true
		}
	}
	return false
}
