package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/billing"
	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

// Ticket lifecycle:
//
//	open -> in_progress            (admin assigns a technician)
//	in_progress -> awaiting_payment (technician submits an estimate)
//	awaiting_payment -> in_progress (admin confirms the initial payment)
//	in_progress -> resolved         (technician completes the job)
//	any -> closed                   (admin or owning customer)
//	resolved|closed -> in_progress  (reassignment reopens)
//
// Functions here are pure: they take a ticket value and return the updated
// value or an error, leaving persistence to the caller.

type NewTicketInput struct {
	Title        string `json:"title" validate:"required,max=200"`
	Description  string `json:"description" validate:"required,max=5000"`
	Priority     string `json:"priority" validate:"omitempty,oneof=low medium high urgent"`
	Category     string `json:"category"`
	VehicleMake  string `json:"vehicle_make"`
	VehicleModel string `json:"vehicle_model"`
	VehicleYear  int    `json:"vehicle_year" validate:"omitempty,min=1900,max=2100"`
	VIN          string `json:"vin"`
}

func NewTicket(id, customerID string, in NewTicketInput, now time.Time) models.Ticket {
	priority := in.Priority
	if priority == "" {
		priority = "medium"
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		category = "general"
	}
	return models.Ticket{
		ID:           id,
		CustomerID:   customerID,
		Title:        strings.TrimSpace(in.Title),
		Description:  strings.TrimSpace(in.Description),
		Status:       models.StatusOpen,
		Priority:     priority,
		Category:     category,
		VehicleMake:  strings.TrimSpace(in.VehicleMake),
		VehicleModel: strings.TrimSpace(in.VehicleModel),
		VehicleYear:  in.VehicleYear,
		VIN:          in.VIN,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
}

// Assign sets the technician. A resolved or closed ticket is reopened: the
// resolution timestamp is cleared and work authorization revoked. On first
// assignment, subscribed customers are authorized without a payment cycle.
func Assign(t models.Ticket, technicianID string, subscribed bool, now time.Time) (models.Ticket, error) {
	if technicianID == "" {
		return t, fmt.Errorf("%w: technician is required", ErrInvalidInput)
	}
	tech := technicianID
	t.AssignedTechnicianID = &tech
	switch t.Status {
	case models.StatusResolved, models.StatusClosed:
		t.Status = models.StatusInProgress
		t.ResolvedAt = nil
		t.WorkAuthorized = false
	case models.StatusOpen:
		t.Status = models.StatusInProgress
		t.WorkAuthorized = subscribed
	case models.StatusInProgress, models.StatusAwaitingPayment:
	default:
		return t, transitionError("assign", t.Status)
	}
	t.UpdatedAt = now
	return t, nil
}

type EstimateInput struct {
	ServiceType   string  `json:"service_type" validate:"required,oneof=remote on_site"`
	EstimatedCost float64 `json:"estimated_cost" validate:"required,gt=0"`
	Notes         string  `json:"notes"`
}

func SubmitEstimate(t models.Ticket, technicianID string, in EstimateInput, now time.Time) (models.Ticket, error) {
	if !t.AssignedTo(technicianID) {
		return t, ErrForbidden
	}
	if t.Status != models.StatusInProgress {
		return t, transitionError("estimate", t.Status)
	}
	if in.ServiceType != models.ServiceRemote && in.ServiceType != models.ServiceOnSite {
		return t, fmt.Errorf("%w: unknown service type %q", ErrInvalidInput, in.ServiceType)
	}
	if billing.Cents(in.EstimatedCost) <= 0 {
		return t, fmt.Errorf("%w: estimated cost must be positive", ErrInvalidInput)
	}
	st := in.ServiceType
	t.ServiceType = &st
	t.EstimatedCost = billing.Amount(billing.Cents(in.EstimatedCost))
	t.EstimateNotes = strings.TrimSpace(in.Notes)
	t.Status = models.StatusAwaitingPayment
	t.PaymentMade = false
	t.PaymentAmount = 0
	t.PaymentReference = ""
	t.PaymentConfirmed = false
	t.FinalPaymentMade = false
	t.FinalPaymentAmount = 0
	t.FinalPaymentReference = ""
	t.FinalPaymentConfirmed = false
	t.UpdatedAt = now
	return t, nil
}

type PaymentInput struct {
	Amount    float64 `json:"amount" validate:"required,gt=0"`
	Reference string  `json:"reference" validate:"required,max=120"`
}

// AmountDue returns what the customer owes for a payment stage.
func AmountDue(t models.Ticket, stage string) float64 {
	serviceType := models.ServiceRemote
	if t.ServiceType != nil {
		serviceType = *t.ServiceType
	}
	if stage == models.PaymentFinal {
		return billing.FinalAmount(t.EstimatedCost, serviceType)
	}
	return billing.InitialAmount(t.EstimatedCost, serviceType)
}

// RecordPayment stores the customer's bank-transfer metadata. The ticket stays
// in its current status until an admin confirms.
func RecordPayment(t models.Ticket, customerID, stage string, in PaymentInput, now time.Time) (models.Ticket, error) {
	if t.CustomerID != customerID {
		return t, ErrForbidden
	}
	if !billing.SameAmount(in.Amount, AmountDue(t, stage)) {
		return t, fmt.Errorf("%w: expected %.2f", ErrAmountMismatch, AmountDue(t, stage))
	}
	ref := strings.TrimSpace(in.Reference)
	switch stage {
	case models.PaymentInitial:
		if t.Status != models.StatusAwaitingPayment {
			return t, transitionError("pay", t.Status)
		}
		if t.PaymentMade {
			return t, fmt.Errorf("%w: initial payment already submitted", ErrAlreadyDone)
		}
		t.PaymentMade = true
		t.PaymentAmount = billing.Amount(billing.Cents(in.Amount))
		t.PaymentReference = ref
	case models.PaymentFinal:
		if !t.OnSite() {
			return t, fmt.Errorf("%w: final payment only applies to on-site service", ErrInvalidInput)
		}
		if !t.PaymentConfirmed || t.Status != models.StatusInProgress {
			return t, transitionError("make the final payment on", t.Status)
		}
		if t.FinalPaymentMade {
			return t, fmt.Errorf("%w: final payment already submitted", ErrAlreadyDone)
		}
		t.FinalPaymentMade = true
		t.FinalPaymentAmount = billing.Amount(billing.Cents(in.Amount))
		t.FinalPaymentReference = ref
	default:
		return t, fmt.Errorf("%w: unknown payment stage %q", ErrInvalidInput, stage)
	}
	t.UpdatedAt = now
	return t, nil
}

// ConfirmInitial authorizes work once the admin has seen the initial transfer.
func ConfirmInitial(t models.Ticket, now time.Time) (models.Ticket, error) {
	if t.PaymentConfirmed {
		return t, nil
	}
	if !t.PaymentMade {
		return t, fmt.Errorf("%w: no initial payment submitted", ErrInvalidTransition)
	}
	if t.Status != models.StatusAwaitingPayment {
		return t, transitionError("confirm payment on", t.Status)
	}
	t.PaymentConfirmed = true
	t.WorkAuthorized = true
	t.Status = models.StatusInProgress
	t.UpdatedAt = now
	return t, nil
}

func ConfirmFinal(t models.Ticket, now time.Time) (models.Ticket, error) {
	if t.FinalPaymentConfirmed {
		return t, nil
	}
	if !t.OnSite() || !t.FinalPaymentMade {
		return t, fmt.Errorf("%w: no final payment submitted", ErrInvalidTransition)
	}
	t.FinalPaymentConfirmed = true
	t.UpdatedAt = now
	return t, nil
}

// Complete resolves the ticket. On-site jobs cannot be completed until the
// final payment is confirmed; the ticket is returned unchanged in that case.
func Complete(t models.Ticket, technicianID string, now time.Time) (models.Ticket, error) {
	if !t.AssignedTo(technicianID) {
		return t, ErrForbidden
	}
	if t.Status != models.StatusInProgress {
		return t, transitionError("complete", t.Status)
	}
	if t.OnSite() && !t.FinalPaymentConfirmed {
		return t, ErrFinalPaymentRequired
	}
	resolved := now
	t.Status = models.StatusResolved
	t.ResolvedAt = &resolved
	t.WorkAuthorized = false
	t.UpdatedAt = now
	return t, nil
}

func Close(t models.Ticket, actor models.Profile, now time.Time) (models.Ticket, error) {
	if !actor.IsAdmin() && t.CustomerID != actor.ID {
		return t, ErrForbidden
	}
	if t.Status == models.StatusClosed {
		return t, transitionError("close", t.Status)
	}
	t.Status = models.StatusClosed
	t.WorkAuthorized = false
	t.UpdatedAt = now
	return t, nil
}

// CanView is the ticket load guard. Technicians lose access once their job is
// resolved or closed.
func CanView(t models.Ticket, actor models.Profile) bool {
	switch actor.Role {
	case models.RoleAdmin:
		return true
	case models.RoleCustomer:
		return t.CustomerID == actor.ID
	case models.RoleTechnician:
		return t.AssignedTo(actor.ID) && t.Status != models.StatusResolved && t.Status != models.StatusClosed
	}
	return false
}

// CanChat gates chat and call features on work authorization.
func CanChat(t models.Ticket, actor models.Profile) bool {
	if actor.IsAdmin() {
		return true
	}
	if !CanView(t, actor) {
		return false
	}
	return t.WorkAuthorized
}
