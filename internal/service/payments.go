package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/billing"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

// Confirmation steps, in execution order. Failing one of the first two fails
// the confirmation; later steps only add warnings.
const (
	StepFlags         = "flags"
	StepPayment       = "payment"
	StepInvoiceNumber = "invoice_number"
	StepInvoice       = "invoice"
	StepMessage       = "message"
	StepNotify        = "notify"
)

// ConfirmationLease is how long a running confirmation holds its claim before
// another admin may take it over.
const ConfirmationLease = 2 * time.Minute

// confirmTarget describes what a confirmation run acts on. confirmed mirrors
// the target's own flag: a stored run whose flags step is done while the flag
// is unset belongs to an earlier payment cycle.
type confirmTarget struct {
	kind       string
	id         string
	customerID string
	reference  string
	amount     float64
	confirmed  bool
	ticket     *models.Ticket
	sub        *models.CustomerSubscription
	plan       *models.SubscriptionPlan
	apply      func(ctx context.Context) error
}

func (tg confirmTarget) steps() []string {
	if tg.ticket != nil {
		return []string{StepFlags, StepPayment, StepInvoiceNumber, StepInvoice, StepMessage, StepNotify}
	}
	return []string{StepFlags, StepPayment, StepInvoiceNumber, StepInvoice, StepNotify}
}

func (tg confirmTarget) pending(c models.PaymentConfirmation) bool {
	for _, step := range tg.steps() {
		if !c.Done(step) {
			return true
		}
	}
	return false
}

func (s *Service) ConfirmInitialPayment(ctx context.Context, admin models.Profile, ticketID string) (models.PaymentConfirmation, error) {
	if !admin.IsAdmin() {
		return models.PaymentConfirmation{}, ErrForbidden
	}
	return s.runConfirmation(ctx, admin, models.PaymentInitial, ticketID, func(ctx context.Context) (confirmTarget, error) {
		t, err := s.loadTicket(ctx, ticketID)
		if err != nil {
			return confirmTarget{}, err
		}
		return confirmTarget{
			customerID: t.CustomerID,
			reference:  t.PaymentReference,
			amount:     t.PaymentAmount,
			confirmed:  t.PaymentConfirmed,
			ticket:     &t,
			apply: func(ctx context.Context) error {
				next, err := ConfirmInitial(t, s.Now())
				if err != nil {
					return err
				}
				return s.Store.UpdateTicket(ctx, next)
			},
		}, nil
	})
}

func (s *Service) ConfirmFinalPayment(ctx context.Context, admin models.Profile, ticketID string) (models.PaymentConfirmation, error) {
	if !admin.IsAdmin() {
		return models.PaymentConfirmation{}, ErrForbidden
	}
	return s.runConfirmation(ctx, admin, models.PaymentFinal, ticketID, func(ctx context.Context) (confirmTarget, error) {
		t, err := s.loadTicket(ctx, ticketID)
		if err != nil {
			return confirmTarget{}, err
		}
		return confirmTarget{
			customerID: t.CustomerID,
			reference:  t.FinalPaymentReference,
			amount:     t.FinalPaymentAmount,
			confirmed:  t.FinalPaymentConfirmed,
			ticket:     &t,
			apply: func(ctx context.Context) error {
				next, err := ConfirmFinal(t, s.Now())
				if err != nil {
					return err
				}
				return s.Store.UpdateTicket(ctx, next)
			},
		}, nil
	})
}

func (s *Service) ConfirmSubscriptionPayment(ctx context.Context, admin models.Profile, subID string) (models.PaymentConfirmation, error) {
	if !admin.IsAdmin() {
		return models.PaymentConfirmation{}, ErrForbidden
	}
	return s.runConfirmation(ctx, admin, models.PaymentSubscription, subID, func(ctx context.Context) (confirmTarget, error) {
		sub, err := s.Store.GetSubscription(ctx, subID)
		if err != nil {
			return confirmTarget{}, fmt.Errorf("subscription %s: %w", subID, err)
		}
		plan, err := s.Store.GetPlan(ctx, sub.SubscriptionPlanID)
		if err != nil {
			return confirmTarget{}, fmt.Errorf("plan %s: %w", sub.SubscriptionPlanID, err)
		}
		return confirmTarget{
			customerID: sub.UserID,
			reference:  sub.PaymentReference,
			amount:     plan.Price,
			confirmed:  sub.PaymentConfirmed,
			sub:        &sub,
			plan:       &plan,
			apply: func(ctx context.Context) error {
				if sub.Status == models.SubscriptionActive && sub.PaymentConfirmed {
					return nil
				}
				if sub.Status != models.SubscriptionPendingPayment {
					return fmt.Errorf("%w: subscription is %s", ErrInvalidTransition, sub.Status)
				}
				now := s.Now()
				sub.Status = models.SubscriptionActive
				sub.PaymentConfirmed = true
				sub.StartedAt = &now
				return s.Store.UpdateSubscription(ctx, sub)
			},
		}, nil
	})
}

// runConfirmation reads the stored run before loading the target, so a run
// that finished in between is seen together with the target state it left.
func (s *Service) runConfirmation(ctx context.Context, admin models.Profile, kind, id string, load func(ctx context.Context) (confirmTarget, error)) (models.PaymentConfirmation, error) {
	key := kind + ":" + id
	stored, err := s.Store.GetConfirmation(ctx, key)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return stored, err
	}
	found := err == nil
	tg, err := load(ctx)
	if err != nil {
		return models.PaymentConfirmation{}, err
	}
	tg.kind, tg.id = kind, id
	c := stored
	switch {
	case !found, c.Reference != tg.reference, c.Done(StepFlags) && !tg.confirmed:
		c = s.freshConfirmation(key, tg)
	case c.Status == models.ConfirmationCompleted:
		return c, nil
	case c.Status == models.ConfirmationWarnings && !tg.pending(c):
		return c, nil
	}
	c.Attempt = stored.Attempt + 1
	c.ClaimedAt = s.Now()
	c.Status = models.ConfirmationRunning
	c.Warnings = nil
	c.LastError = ""
	c.FinishedAt = nil
	claimed, err := s.Store.ClaimConfirmation(ctx, c, c.ClaimedAt.Add(-ConfirmationLease))
	if err != nil {
		return c, err
	}
	if !claimed {
		return stored, fmt.Errorf("%w: %s", ErrInProgress, key)
	}

	log := s.Logger.With().Str("confirmation", key).Str("admin_id", admin.ID).Logger()
	fail := func(step string, err error) (models.PaymentConfirmation, error) {
		now := s.Now()
		c.Status = models.ConfirmationFailed
		c.LastError = step + ": " + err.Error()
		c.FinishedAt = &now
		if serr := s.Store.SaveConfirmation(ctx, c); serr != nil {
			log.Error().Err(serr).Msg("save failed confirmation")
		}
		log.Error().Err(err).Str("step", step).Msg("payment confirmation failed")
		return c, fmt.Errorf("confirm %s payment: %s: %w", tg.kind, step, err)
	}
	warn := func(step string, err error) {
		c.Warnings = append(c.Warnings, step+": "+err.Error())
		log.Warn().Err(err).Str("step", step).Msg("payment confirmation step failed")
	}
	done := func(step string) {
		c.Steps = append(c.Steps, step)
		if err := s.Store.SaveConfirmation(ctx, c); err != nil {
			log.Warn().Err(err).Str("step", step).Msg("save confirmation progress")
		}
	}

	if !c.Done(StepFlags) {
		if err := tg.apply(ctx); err != nil {
			return fail(StepFlags, err)
		}
		done(StepFlags)
	}

	if !c.Done(StepPayment) {
		p := models.Payment{
			ID:          s.NewID(),
			CustomerID:  tg.customerID,
			Kind:        tg.kind,
			Amount:      tg.amount,
			Reference:   tg.reference,
			ConfirmedBy: admin.ID,
			CreatedAt:   s.Now(),
		}
		if tg.ticket != nil {
			p.TicketID = &tg.ticket.ID
		}
		if tg.sub != nil {
			p.SubscriptionID = &tg.sub.ID
		}
		if err := s.Store.InsertPayment(ctx, p); err != nil {
			return fail(StepPayment, err)
		}
		c.PaymentID = &p.ID
		done(StepPayment)
	}

	if !c.Done(StepInvoiceNumber) {
		number, err := s.Store.NextInvoiceNumber(ctx)
		if err != nil || number == "" {
			if err == nil {
				err = errors.New("empty invoice number")
			}
			warn(StepInvoiceNumber, err)
			number = billing.FallbackInvoiceNumber(s.Now())
		}
		c.InvoiceNumber = &number
		done(StepInvoiceNumber)
	}

	if !c.Done(StepInvoice) {
		inv := s.buildInvoice(tg, c)
		if err := s.Store.InsertInvoice(ctx, inv); err != nil {
			warn(StepInvoice, err)
		} else {
			c.InvoiceID = &inv.ID
			done(StepInvoice)
		}
	}

	if tg.ticket != nil && !c.Done(StepMessage) {
		if err := s.systemMessage(ctx, tg.ticket.ID, confirmationText(tg, c)); err != nil {
			warn(StepMessage, err)
		} else {
			done(StepMessage)
		}
	}

	if !c.Done(StepNotify) {
		var ticketID *string
		if tg.ticket != nil {
			ticketID = &tg.ticket.ID
		}
		if err := s.deliver(ctx, tg.customerID, "payment_confirmed", "Payment confirmed", confirmationText(tg, c), ticketID); err != nil {
			warn(StepNotify, err)
		} else {
			done(StepNotify)
		}
	}

	now := s.Now()
	c.FinishedAt = &now
	c.Status = models.ConfirmationCompleted
	if len(c.Warnings) > 0 {
		c.Status = models.ConfirmationWarnings
	}
	if err := s.Store.SaveConfirmation(ctx, c); err != nil {
		log.Warn().Err(err).Msg("save finished confirmation")
	}
	log.Info().Str("status", c.Status).Strs("steps", c.Steps).Msg("payment confirmation finished")
	return c, nil
}

func (s *Service) freshConfirmation(key string, tg confirmTarget) models.PaymentConfirmation {
	return models.PaymentConfirmation{
		ID:        key,
		Kind:      tg.kind,
		TargetID:  tg.id,
		Reference: tg.reference,
		StartedAt: s.Now(),
	}
}

func (s *Service) buildInvoice(tg confirmTarget, c models.PaymentConfirmation) models.Invoice {
	totals := billing.ComputeTotals(tg.amount, s.TaxRate)
	inv := models.Invoice{
		ID:         s.NewID(),
		CustomerID: tg.customerID,
		Subtotal:   totals.Subtotal,
		Tax:        totals.Tax,
		Total:      totals.Total,
		CreatedAt:  s.Now(),
	}
	if c.InvoiceNumber != nil {
		inv.InvoiceNumber = *c.InvoiceNumber
	}
	if c.PaymentID != nil {
		inv.PaymentID = *c.PaymentID
	}
	switch {
	case tg.ticket != nil:
		inv.TicketID = &tg.ticket.ID
		inv.Description = billing.ServiceDescription(*tg.ticket, tg.kind)
		inv.VehicleInfo = billing.VehicleInfo(*tg.ticket)
	case tg.sub != nil:
		inv.SubscriptionID = &tg.sub.ID
		inv.Description = "Subscription: " + tg.plan.Name
		inv.VehicleInfo = fmt.Sprintf("%d vehicle(s) covered", tg.sub.VehicleCount)
	}
	return inv
}

func confirmationText(tg confirmTarget, c models.PaymentConfirmation) string {
	number := ""
	if c.InvoiceNumber != nil {
		number = " Invoice " + *c.InvoiceNumber + "."
	}
	switch tg.kind {
	case models.PaymentInitial:
		return fmt.Sprintf("Payment of %.2f confirmed. Work is authorized.%s", tg.amount, number)
	case models.PaymentFinal:
		return fmt.Sprintf("Final payment of %.2f confirmed. The job can now be completed.%s", tg.amount, number)
	default:
		return fmt.Sprintf("Subscription payment of %.2f confirmed. Your %s plan is active.%s", tg.amount, tg.plan.Name, number)
	}
}
