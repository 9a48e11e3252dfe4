package service

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/db"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

type CustomerDashboard struct {
	Tickets       []models.Ticket               `json:"tickets"`
	Subscriptions []models.CustomerSubscription `json:"subscriptions"`
	Payments      []models.Payment              `json:"payments"`
	Invoices      []models.Invoice              `json:"invoices"`
	Unread        []models.Notification         `json:"unread_notifications"`
	Subscribed    bool                          `json:"subscribed"`
}

type TechnicianDashboard struct {
	Active    []models.Ticket       `json:"active_tickets"`
	Completed int                   `json:"completed_count"`
	Unread    []models.Notification `json:"unread_notifications"`
}

type AdminDashboard struct {
	Tickets            []models.Ticket               `json:"tickets"`
	Pending            PendingPayments               `json:"pending_payments"`
	PendingTechnicians []models.Profile              `json:"pending_technicians"`
	Subscriptions      []models.CustomerSubscription `json:"subscriptions"`
	Users              []models.Profile              `json:"users"`
}

// CustomerDashboard runs its queries concurrently and fails as a whole if
// any of them fails.
func (s *Service) CustomerDashboard(ctx context.Context, customer models.Profile) (CustomerDashboard, error) {
	var d CustomerDashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Tickets, err = s.Store.ListTickets(ctx, db.TicketFilter{CustomerID: customer.ID, Limit: 200})
		return err
	})
	g.Go(func() (err error) {
		d.Subscriptions, err = s.Store.ListSubscriptions(ctx, customer.ID, "")
		return err
	})
	g.Go(func() (err error) {
		d.Payments, err = s.Store.ListPayments(ctx, customer.ID)
		return err
	})
	g.Go(func() (err error) {
		d.Invoices, err = s.Store.ListInvoices(ctx, customer.ID)
		return err
	})
	g.Go(func() (err error) {
		d.Unread, err = s.Store.ListNotifications(ctx, customer.ID, true)
		return err
	})
	g.Go(func() (err error) {
		d.Subscribed, err = s.Store.HasActiveSubscription(ctx, customer.ID)
		return err
	})
	if err := g.Wait(); err != nil {
		return CustomerDashboard{}, err
	}
	return d, nil
}

func (s *Service) TechnicianDashboard(ctx context.Context, tech models.Profile) (TechnicianDashboard, error) {
	var d TechnicianDashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Active, err = s.Store.ListTickets(ctx, db.TicketFilter{
			TechnicianID: tech.ID,
			Statuses:     []string{models.StatusInProgress, models.StatusAwaitingPayment},
			Limit:        200,
		})
		return err
	})
	g.Go(func() (err error) {
		d.Completed, err = s.Store.CountResolved(ctx, tech.ID)
		return err
	})
	g.Go(func() (err error) {
		d.Unread, err = s.Store.ListNotifications(ctx, tech.ID, true)
		return err
	})
	if err := g.Wait(); err != nil {
		return TechnicianDashboard{}, err
	}
	return d, nil
}

func (s *Service) AdminDashboard(ctx context.Context, admin models.Profile) (AdminDashboard, error) {
	if !admin.IsAdmin() {
		return AdminDashboard{}, ErrForbidden
	}
	var d AdminDashboard
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.Tickets, err = s.Store.ListTickets(ctx, db.TicketFilter{Limit: 200})
		return err
	})
	g.Go(func() (err error) {
		d.Pending, err = s.PendingPayments(ctx, admin)
		return err
	})
	g.Go(func() error {
		techs, err := s.Store.ListProfiles(ctx, models.RoleTechnician)
		if err != nil {
			return err
		}
		d.PendingTechnicians = filterProfiles(techs, func(p models.Profile) bool {
			return p.TechnicianStatus == nil || *p.TechnicianStatus == models.TechnicianPending
		})
		return nil
	})
	g.Go(func() (err error) {
		d.Subscriptions, err = s.Store.ListSubscriptions(ctx, "", "")
		return err
	})
	g.Go(func() (err error) {
		d.Users, err = s.Store.ListProfiles(ctx, "")
		return err
	})
	if err := g.Wait(); err != nil {
		return AdminDashboard{}, err
	}
	return d, nil
}
