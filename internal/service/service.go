package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/db"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/notify"
)

// Store is the persistence surface the services need. *db.Store implements it.
type Store interface {
	GetProfile(ctx context.Context, id string) (models.Profile, error)
	ListProfiles(ctx context.Context, role string) ([]models.Profile, error)
	UpdateProfile(ctx context.Context, p models.Profile) error
	DeleteUser(ctx context.Context, id string) error

	CreateTicket(ctx context.Context, t models.Ticket) error
	GetTicket(ctx context.Context, id string) (models.Ticket, error)
	UpdateTicket(ctx context.Context, t models.Ticket) error
	ListTickets(ctx context.Context, f db.TicketFilter) ([]models.Ticket, error)
	AwaitingConfirmation(ctx context.Context) ([]models.Ticket, error)
	TechnicianLoads(ctx context.Context) (map[string]int, error)
	CountResolved(ctx context.Context, technicianID string) (int, error)

	InsertMessage(ctx context.Context, m models.TicketMessage) error
	ListMessages(ctx context.Context, ticketID string) ([]models.TicketMessage, error)
	MarkMessagesRead(ctx context.Context, ticketID, readerID string) (int64, error)

	ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error)
	GetPlan(ctx context.Context, id string) (models.SubscriptionPlan, error)
	CreateSubscription(ctx context.Context, sub models.CustomerSubscription) error
	GetSubscription(ctx context.Context, id string) (models.CustomerSubscription, error)
	UpdateSubscription(ctx context.Context, sub models.CustomerSubscription) error
	ListSubscriptions(ctx context.Context, userID, status string) ([]models.CustomerSubscription, error)
	HasActiveSubscription(ctx context.Context, userID string) (bool, error)

	InsertPayment(ctx context.Context, p models.Payment) error
	ListPayments(ctx context.Context, customerID string) ([]models.Payment, error)
	NextInvoiceNumber(ctx context.Context) (string, error)
	InsertInvoice(ctx context.Context, inv models.Invoice) error
	ListInvoices(ctx context.Context, customerID string) ([]models.Invoice, error)
	GetConfirmation(ctx context.Context, id string) (models.PaymentConfirmation, error)
	ClaimConfirmation(ctx context.Context, c models.PaymentConfirmation, staleBefore time.Time) (bool, error)
	SaveConfirmation(ctx context.Context, c models.PaymentConfirmation) error

	InsertNotification(ctx context.Context, n models.Notification) error
	ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error)
	MarkNotificationRead(ctx context.Context, userID, id string) error
	MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error)
	GetPreferences(ctx context.Context, customerID string) (models.CustomerPreferences, error)
	UpsertPreferences(ctx context.Context, p models.CustomerPreferences) error
}

var _ Store = (*db.Store)(nil)

type Notifier interface {
	Notify(ctx context.Context, n notify.Notification)
}

type Service struct {
	Store    Store
	Notifier Notifier
	Logger   zerolog.Logger
	TaxRate  float64
	Now      func() time.Time
	NewID    func() string
	Validate *validator.Validate
}

func New(store Store, notifier Notifier, logger zerolog.Logger, taxRate float64) *Service {
	return &Service{
		Store:    store,
		Notifier: notifier,
		Logger:   logger,
		TaxRate:  taxRate,
		Now:      func() time.Time { return time.Now().UTC() },
		NewID:    uuid.NewString,
		Validate: validator.New(),
	}
}

func (s *Service) check(in any) error {
	if err := s.Validate.Struct(in); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	return nil
}

// notifyUser stores a notification row and pushes it. Both halves are
// best-effort; failures are logged.
func (s *Service) notifyUser(ctx context.Context, userID, kind, title, body string, ticketID *string) {
	if err := s.deliver(ctx, userID, kind, title, body, ticketID); err != nil {
		s.Logger.Warn().Err(err).Str("user_id", userID).Str("kind", kind).Msg("notification insert failed")
	}
}

// deliver is notifyUser that reports a failed insert. The push itself never fails.
func (s *Service) deliver(ctx context.Context, userID, kind, title, body string, ticketID *string) error {
	if userID == "" {
		return nil
	}
	n := models.Notification{
		ID:        s.NewID(),
		UserID:    userID,
		Title:     title,
		Body:      body,
		Kind:      kind,
		TicketID:  ticketID,
		CreatedAt: s.Now(),
	}
	err := s.Store.InsertNotification(ctx, n)
	if s.Notifier != nil {
		push := notify.Notification{ID: n.ID, UserID: userID, Title: title, Body: body, Kind: kind}
		if ticketID != nil {
			push.TicketID = *ticketID
		}
		s.Notifier.Notify(ctx, push)
	}
	return err
}

func (s *Service) notifyAdmins(ctx context.Context, kind, title, body string, ticketID *string) {
	admins, err := s.Store.ListProfiles(ctx, models.RoleAdmin)
	if err != nil {
		s.Logger.Warn().Err(err).Msg("list admins for notification failed")
		return
	}
	for _, a := range admins {
		s.notifyUser(ctx, a.ID, kind, title, body, ticketID)
	}
}

// systemMessage appends a system chat line to the ticket.
func (s *Service) systemMessage(ctx context.Context, ticketID, text string) error {
	return s.Store.InsertMessage(ctx, models.TicketMessage{
		ID:          s.NewID(),
		TicketID:    ticketID,
		Message:     text,
		MessageType: models.MessageSystem,
		CreatedAt:   s.Now(),
	})
}

func (s *Service) loadTicket(ctx context.Context, id string) (models.Ticket, error) {
	t, err := s.Store.GetTicket(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return t, fmt.Errorf("ticket %s: %w", id, ErrNotFound)
		}
		return t, err
	}
	return t, nil
}
