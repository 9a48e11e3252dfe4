package models

import "time"

const (
	RoleCustomer   = "customer"
	RoleTechnician = "technician"
	RoleAdmin      = "admin"

	ProfileActive  = "active"
	ProfileBlocked = "blocked"

	TechnicianPending  = "pending"
	TechnicianApproved = "approved"
	TechnicianRejected = "rejected"
)

const (
	StatusOpen            = "open"
	StatusInProgress      = "in_progress"
	StatusAwaitingPayment = "awaiting_payment"
	StatusResolved        = "resolved"
	StatusClosed          = "closed"

	ServiceRemote = "remote"
	ServiceOnSite = "on_site"
)

const (
	MessageText   = "text"
	MessageImage  = "image"
	MessageVideo  = "video"
	MessageAudio  = "audio"
	MessageFile   = "file"
	MessageSystem = "system"
)

const (
	SubscriptionPendingPayment = "pending_payment"
	SubscriptionActive         = "active"
	SubscriptionCancelled      = "cancelled"
)

const (
	PaymentInitial      = "initial"
	PaymentFinal        = "final"
	PaymentSubscription = "subscription"
)

type Profile struct {
	ID               string    `json:"id"`
	Email            string    `json:"email"`
	FullName         string    `json:"full_name"`
	Role             string    `json:"role"`
	Status           string    `json:"status"`
	VIPTier          *string   `json:"vip_tier"`
	TechnicianStatus *string   `json:"technician_status"`
	CreatedAt        time.Time `json:"created_at"`
}

func (p Profile) IsAdmin() bool { return p.Role == RoleAdmin }

func (p Profile) Blocked() bool { return p.Status == ProfileBlocked }

type Ticket struct {
	ID                    string     `json:"id"`
	CustomerID            string     `json:"customer_id"`
	AssignedTechnicianID  *string    `json:"assigned_technician_id"`
	Title                 string     `json:"title"`
	Description           string     `json:"description"`
	Status                string     `json:"status"`
	Priority              string     `json:"priority"`
	Category              string     `json:"category"`
	VehicleMake           string     `json:"vehicle_make"`
	VehicleModel          string     `json:"vehicle_model"`
	VehicleYear           int        `json:"vehicle_year"`
	VIN                   string     `json:"vin"`
	ServiceType           *string    `json:"service_type"`
	EstimatedCost         float64    `json:"estimated_cost"`
	EstimateNotes         string     `json:"estimate_notes"`
	PaymentMade           bool       `json:"payment_made"`
	PaymentAmount         float64    `json:"payment_amount"`
	PaymentReference      string     `json:"payment_reference"`
	PaymentConfirmed      bool       `json:"payment_confirmed"`
	FinalPaymentMade      bool       `json:"final_payment_made"`
	FinalPaymentAmount    float64    `json:"final_payment_amount"`
	FinalPaymentReference string     `json:"final_payment_reference"`
	FinalPaymentConfirmed bool       `json:"final_payment_confirmed"`
	WorkAuthorized        bool       `json:"work_authorized"`
	CreatedAt             time.Time  `json:"created_at"`
	UpdatedAt             time.Time  `json:"updated_at"`
	ResolvedAt            *time.Time `json:"resolved_at"`
}

func (t Ticket) AssignedTo(technicianID string) bool {
	return t.AssignedTechnicianID != nil && *t.AssignedTechnicianID == technicianID
}

func (t Ticket) OnSite() bool {
	return t.ServiceType != nil && *t.ServiceType == ServiceOnSite
}

type TicketMessage struct {
	ID          string    `json:"id"`
	TicketID    string    `json:"ticket_id"`
	SenderID    *string   `json:"sender_id"`
	Message     string    `json:"message"`
	MessageType string    `json:"message_type"`
	MediaURL    *string   `json:"media_url"`
	IsRead      bool      `json:"is_read"`
	CreatedAt   time.Time `json:"created_at"`
}

type SubscriptionPlan struct {
	ID             string  `json:"id"`
	Name           string  `json:"name"`
	Price          float64 `json:"price"`
	VehicleLimit   int     `json:"vehicle_limit"`
	VisitsPerMonth int     `json:"visits_per_month"`
	Active         bool    `json:"active"`
}

type CustomerSubscription struct {
	ID                 string     `json:"id"`
	UserID             string     `json:"user_id"`
	SubscriptionPlanID string     `json:"subscription_plan_id"`
	Status             string     `json:"status"`
	PaymentConfirmed   bool       `json:"payment_confirmed"`
	PaymentReference   string     `json:"payment_reference"`
	VehicleCount       int        `json:"vehicle_count"`
	StartedAt          *time.Time `json:"started_at"`
	CreatedAt          time.Time  `json:"created_at"`
}

type Payment struct {
	ID             string    `json:"id"`
	TicketID       *string   `json:"ticket_id"`
	SubscriptionID *string   `json:"subscription_id"`
	CustomerID     string    `json:"customer_id"`
	Kind           string    `json:"kind"`
	Amount         float64   `json:"amount"`
	Reference      string    `json:"reference"`
	ConfirmedBy    string    `json:"confirmed_by"`
	CreatedAt      time.Time `json:"created_at"`
}

type Invoice struct {
	ID             string    `json:"id"`
	InvoiceNumber  string    `json:"invoice_number"`
	CustomerID     string    `json:"customer_id"`
	TicketID       *string   `json:"ticket_id"`
	SubscriptionID *string   `json:"subscription_id"`
	PaymentID      string    `json:"payment_id"`
	Description    string    `json:"description"`
	VehicleInfo    string    `json:"vehicle_info"`
	Subtotal       float64   `json:"subtotal"`
	Tax            float64   `json:"tax"`
	Total          float64   `json:"total"`
	CreatedAt      time.Time `json:"created_at"`
}

type Notification struct {
	ID        string    `json:"id"`
	UserID    string    `json:"user_id"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	Kind      string    `json:"kind"`
	TicketID  *string   `json:"ticket_id"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

type CustomerPreferences struct {
	CustomerID    string    `json:"customer_id"`
	BackgroundURL *string   `json:"background_url"`
	CardStyle     string    `json:"card_style"`
	FontSize      string    `json:"font_size"`
	UpdatedAt     time.Time `json:"updated_at"`
}

const (
	ConfirmationRunning   = "running"
	ConfirmationCompleted = "completed"
	ConfirmationWarnings  = "completed_with_warnings"
	ConfirmationFailed    = "failed"
)

// PaymentConfirmation is the persisted state of one confirmation saga. ID is
// the idempotency key "<kind>:<target_id>". Reference is the transfer
// reference the run confirmed. Attempt counts claims on the row; only the
// caller that read attempt N may claim attempt N+1.
type PaymentConfirmation struct {
	ID            string     `json:"id"`
	Kind          string     `json:"kind"`
	TargetID      string     `json:"target_id"`
	Status        string     `json:"status"`
	Reference     string     `json:"reference"`
	Steps         []string   `json:"steps"`
	PaymentID     *string    `json:"payment_id"`
	InvoiceID     *string    `json:"invoice_id"`
	InvoiceNumber *string    `json:"invoice_number"`
	Warnings      []string   `json:"warnings"`
	LastError     string     `json:"last_error,omitempty"`
	Attempt       int        `json:"attempt"`
	ClaimedAt     time.Time  `json:"claimed_at"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at"`
}

func (c PaymentConfirmation) Done(step string) bool {
	for _, s := range c.Steps {
		if s == step {
			return true
		}
	}
	return false
}
