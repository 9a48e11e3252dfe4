package db

import (
	"context"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

const ticketColumns = `id, customer_id, assigned_technician_id, title, description, status, priority, category,
	vehicle_make, vehicle_model, vehicle_year, vin, service_type, estimated_cost, estimate_notes,
	payment_made, payment_amount, payment_reference, payment_confirmed,
	final_payment_made, final_payment_amount, final_payment_reference, final_payment_confirmed,
	work_authorized, created_at, updated_at, resolved_at`

type TicketFilter struct {
	CustomerID   string
	TechnicianID string
	Statuses     []string
	Limit        int
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTicket(row rowScanner) (models.Ticket, error) {
	var t models.Ticket
	err := row.Scan(
		&t.ID, &t.CustomerID, &t.AssignedTechnicianID, &t.Title, &t.Description, &t.Status, &t.Priority, &t.Category,
		&t.VehicleMake, &t.VehicleModel, &t.VehicleYear, &t.VIN, &t.ServiceType, &t.EstimatedCost, &t.EstimateNotes,
		&t.PaymentMade, &t.PaymentAmount, &t.PaymentReference, &t.PaymentConfirmed,
		&t.FinalPaymentMade, &t.FinalPaymentAmount, &t.FinalPaymentReference, &t.FinalPaymentConfirmed,
		&t.WorkAuthorized, &t.CreatedAt, &t.UpdatedAt, &t.ResolvedAt,
	)
	return t, err
}

func (s *Store) CreateTicket(ctx context.Context, t models.Ticket) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO support_tickets (id, customer_id, title, description, status, priority, category,
			vehicle_make, vehicle_model, vehicle_year, vin, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13)
	`, t.ID, t.CustomerID, t.Title, t.Description, t.Status, t.Priority, t.Category,
		t.VehicleMake, t.VehicleModel, t.VehicleYear, t.VIN, t.CreatedAt, t.UpdatedAt)
	return err
}

func (s *Store) GetTicket(ctx context.Context, id string) (models.Ticket, error) {
	t, err := scanTicket(s.Pool.QueryRow(ctx, `SELECT `+ticketColumns+` FROM support_tickets WHERE id = $1`, id))
	return t, notFound(err)
}

// UpdateTicket writes every mutable lifecycle column.
func (s *Store) UpdateTicket(ctx context.Context, t models.Ticket) error {
	return mustAffect(s.Pool.Exec(ctx, `
		UPDATE support_tickets SET
			assigned_technician_id = $2, status = $3, priority = $4, service_type = $5,
			estimated_cost = $6, estimate_notes = $7,
			payment_made = $8, payment_amount = $9, payment_reference = $10, payment_confirmed = $11,
			final_payment_made = $12, final_payment_amount = $13, final_payment_reference = $14, final_payment_confirmed = $15,
			work_authorized = $16, updated_at = $17, resolved_at = $18
		WHERE id = $1
	`, t.ID, t.AssignedTechnicianID, t.Status, t.Priority, t.ServiceType,
		t.EstimatedCost, t.EstimateNotes,
		t.PaymentMade, t.PaymentAmount, t.PaymentReference, t.PaymentConfirmed,
		t.FinalPaymentMade, t.FinalPaymentAmount, t.FinalPaymentReference, t.FinalPaymentConfirmed,
		t.WorkAuthorized, t.UpdatedAt, t.ResolvedAt))
}

func (s *Store) ListTickets(ctx context.Context, f TicketFilter) ([]models.Ticket, error) {
	var w where
	if f.CustomerID != "" {
		w.add("customer_id = $%d", f.CustomerID)
	}
	if f.TechnicianID != "" {
		w.add("assigned_technician_id = $%d", f.TechnicianID)
	}
	if len(f.Statuses) > 0 {
		w.add("status = ANY($%d)", f.Statuses)
	}
	query := `SELECT ` + ticketColumns + ` FROM support_tickets` + w.String() + ` ORDER BY created_at DESC` + w.limit(f.Limit)

	rows, err := s.Pool.Query(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// AwaitingConfirmation lists tickets with a submitted but unconfirmed payment.
func (s *Store) AwaitingConfirmation(ctx context.Context) ([]models.Ticket, error) {
	rows, err := s.Pool.Query(ctx, `SELECT `+ticketColumns+` FROM support_tickets
		WHERE (payment_made AND NOT payment_confirmed)
			OR (final_payment_made AND NOT final_payment_confirmed)
		ORDER BY updated_at ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

// TechnicianLoads counts active tickets per assigned technician.
func (s *Store) TechnicianLoads(ctx context.Context) (map[string]int, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT assigned_technician_id, COUNT(*) FROM support_tickets
		WHERE assigned_technician_id IS NOT NULL AND status IN ('in_progress', 'awaiting_payment')
		GROUP BY assigned_technician_id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := map[string]int{}
	for rows.Next() {
		var (
			id    string
			count int
		)
		if err := rows.Scan(&id, &count); err != nil {
			return nil, err
		}
		out[id] = count
	}
	return out, rows.Err()
}

func (s *Store) CountResolved(ctx context.Context, technicianID string) (int, error) {
	var n int
	err := s.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM support_tickets WHERE assigned_technician_id = $1 AND status IN ('resolved', 'closed')`, technicianID).Scan(&n)
	return n, err
}
