package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/db"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/vin"
)

var priorityRank = map[string]int{"low": 0, "medium": 1, "high": 2, "urgent": 3}

func (s *Service) CreateTicket(ctx context.Context, customer models.Profile, in NewTicketInput) (models.Ticket, error) {
	if customer.Role != models.RoleCustomer {
		return models.Ticket{}, ErrForbidden
	}
	if err := s.check(in); err != nil {
		return models.Ticket{}, err
	}
	if in.VIN != "" {
		if msg := vin.Validate(in.VIN); msg != "" {
			return models.Ticket{}, fmt.Errorf("%w: %s", ErrInvalidInput, msg)
		}
		in.VIN = vin.Normalize(in.VIN)
	}
	t := NewTicket(s.NewID(), customer.ID, in, s.Now())
	if customer.VIPTier != nil && priorityRank[t.Priority] < priorityRank["high"] {
		t.Priority = "high"
	}
	if err := s.Store.CreateTicket(ctx, t); err != nil {
		return models.Ticket{}, err
	}
	s.notifyAdmins(ctx, "ticket_created", "New support ticket", t.Title, &t.ID)
	return t, nil
}

// GetTicket applies the view guard; a technician whose job is finished gets ErrForbidden.
func (s *Service) GetTicket(ctx context.Context, actor models.Profile, id string) (models.Ticket, error) {
	t, err := s.loadTicket(ctx, id)
	if err != nil {
		return t, err
	}
	if !CanView(t, actor) {
		return models.Ticket{}, ErrForbidden
	}
	return t, nil
}

// ListTickets scopes the listing to the actor: customers see their own,
// technicians their active assignments, admins everything.
func (s *Service) ListTickets(ctx context.Context, actor models.Profile, statuses []string) ([]models.Ticket, error) {
	f := db.TicketFilter{Statuses: statuses, Limit: 200}
	switch actor.Role {
	case models.RoleCustomer:
		f.CustomerID = actor.ID
	case models.RoleTechnician:
		f.TechnicianID = actor.ID
		if len(f.Statuses) == 0 {
			f.Statuses = []string{models.StatusInProgress, models.StatusAwaitingPayment}
		}
	case models.RoleAdmin:
	default:
		return nil, ErrForbidden
	}
	tickets, err := s.Store.ListTickets(ctx, f)
	if err != nil {
		return nil, err
	}
	if actor.Role != models.RoleTechnician {
		return tickets, nil
	}
	out := tickets[:0]
	for _, t := range tickets {
		if CanView(t, actor) {
			out = append(out, t)
		}
	}
	return out, nil
}

func (s *Service) AssignTicket(ctx context.Context, admin models.Profile, ticketID, technicianID string) (models.Ticket, error) {
	if !admin.IsAdmin() {
		return models.Ticket{}, ErrForbidden
	}
	tech, err := s.Store.GetProfile(ctx, technicianID)
	if err != nil {
		return models.Ticket{}, fmt.Errorf("technician %s: %w", technicianID, err)
	}
	if !eligibleTechnician(tech) {
		return models.Ticket{}, fmt.Errorf("%w: technician is not approved and active", ErrInvalidInput)
	}
	t, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return t, err
	}
	subscribed := false
	if t.Status == models.StatusOpen {
		subscribed, err = s.Store.HasActiveSubscription(ctx, t.CustomerID)
		if err != nil {
			return t, err
		}
	}
	reopened := t.Status == models.StatusResolved || t.Status == models.StatusClosed
	next, err := Assign(t, technicianID, subscribed, s.Now())
	if err != nil {
		return t, err
	}
	if err := s.Store.UpdateTicket(ctx, next); err != nil {
		return t, err
	}

	text := fmt.Sprintf("Technician %s has been assigned to this ticket.", displayName(tech))
	if reopened {
		text = fmt.Sprintf("Ticket reopened and assigned to %s.", displayName(tech))
	}
	if err := s.systemMessage(ctx, next.ID, text); err != nil {
		s.Logger.Warn().Err(err).Str("ticket_id", next.ID).Msg("assignment message failed")
	}
	s.notifyUser(ctx, technicianID, "assignment", "New ticket assigned", next.Title, &next.ID)
	s.notifyUser(ctx, next.CustomerID, "assignment", "Technician assigned", text, &next.ID)
	return next, nil
}

func (s *Service) EstimateTicket(ctx context.Context, tech models.Profile, ticketID string, in EstimateInput) (models.Ticket, error) {
	if err := s.check(in); err != nil {
		return models.Ticket{}, err
	}
	t, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return t, err
	}
	next, err := SubmitEstimate(t, tech.ID, in, s.Now())
	if err != nil {
		return t, err
	}
	if err := s.Store.UpdateTicket(ctx, next); err != nil {
		return t, err
	}
	body := fmt.Sprintf("Estimated cost %.2f. Amount due now: %.2f.", next.EstimatedCost, AmountDue(next, models.PaymentInitial))
	s.notifyUser(ctx, next.CustomerID, "estimate", "Cost estimate ready", body, &next.ID)
	return next, nil
}

// PayTicket records the customer's transfer for a payment stage and alerts admins.
func (s *Service) PayTicket(ctx context.Context, customer models.Profile, ticketID, stage string, in PaymentInput) (models.Ticket, error) {
	if err := s.check(in); err != nil {
		return models.Ticket{}, err
	}
	t, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return t, err
	}
	next, err := RecordPayment(t, customer.ID, stage, in, s.Now())
	if err != nil {
		return t, err
	}
	if err := s.Store.UpdateTicket(ctx, next); err != nil {
		return t, err
	}
	body := fmt.Sprintf("%s payment of %.2f submitted for %q (ref %s).", stage, in.Amount, next.Title, in.Reference)
	s.notifyAdmins(ctx, "payment_submitted", "Payment awaiting confirmation", body, &next.ID)
	return next, nil
}

// CompleteTicket resolves the job. When the final-payment guard rejects the
// action the technician is told why and the ticket is left untouched.
func (s *Service) CompleteTicket(ctx context.Context, tech models.Profile, ticketID string) (models.Ticket, error) {
	t, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return t, err
	}
	next, err := Complete(t, tech.ID, s.Now())
	if errors.Is(err, ErrFinalPaymentRequired) {
		s.notifyUser(ctx, tech.ID, "alert", "Final payment required",
			"The customer's final payment must be confirmed before this on-site job can be completed.", &t.ID)
		return t, err
	}
	if err != nil {
		return t, err
	}
	if err := s.Store.UpdateTicket(ctx, next); err != nil {
		return t, err
	}
	if err := s.systemMessage(ctx, next.ID, "Ticket marked as resolved by the technician."); err != nil {
		s.Logger.Warn().Err(err).Str("ticket_id", next.ID).Msg("completion message failed")
	}
	s.notifyUser(ctx, next.CustomerID, "completed", "Ticket resolved", next.Title, &next.ID)
	return next, nil
}

func (s *Service) CloseTicket(ctx context.Context, actor models.Profile, ticketID string) (models.Ticket, error) {
	t, err := s.loadTicket(ctx, ticketID)
	if err != nil {
		return t, err
	}
	next, err := Close(t, actor, s.Now())
	if err != nil {
		return t, err
	}
	if err := s.Store.UpdateTicket(ctx, next); err != nil {
		return t, err
	}
	if actor.ID != next.CustomerID {
		s.notifyUser(ctx, next.CustomerID, "status", "Ticket closed", next.Title, &next.ID)
	}
	return next, nil
}

func displayName(p models.Profile) string {
	if p.FullName != "" {
		return p.FullName
	}
	return p.Email
}
