package db

import (
	"context"
	"time"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

func (s *Store) InsertPayment(ctx context.Context, p models.Payment) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO payments (id, ticket_id, subscription_id, customer_id, kind, amount, reference, confirmed_by, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, p.ID, p.TicketID, p.SubscriptionID, p.CustomerID, p.Kind, p.Amount, p.Reference, p.ConfirmedBy, p.CreatedAt)
	return err
}

func (s *Store) ListPayments(ctx context.Context, customerID string) ([]models.Payment, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, ticket_id, subscription_id, customer_id, kind, amount, reference, COALESCE(confirmed_by::text, ''), created_at
		FROM payments WHERE customer_id = $1 ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Payment
	for rows.Next() {
		var p models.Payment
		if err := rows.Scan(&p.ID, &p.TicketID, &p.SubscriptionID, &p.CustomerID, &p.Kind, &p.Amount, &p.Reference, &p.ConfirmedBy, &p.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// NextInvoiceNumber calls the generate_invoice_number procedure.
func (s *Store) NextInvoiceNumber(ctx context.Context) (string, error) {
	var n string
	err := s.Pool.QueryRow(ctx, `SELECT generate_invoice_number()`).Scan(&n)
	return n, err
}

func (s *Store) InsertInvoice(ctx context.Context, inv models.Invoice) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO invoices (id, invoice_number, customer_id, ticket_id, subscription_id, payment_id,
			description, vehicle_info, subtotal, tax, total, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
	`, inv.ID, inv.InvoiceNumber, inv.CustomerID, inv.TicketID, inv.SubscriptionID, inv.PaymentID,
		inv.Description, inv.VehicleInfo, inv.Subtotal, inv.Tax, inv.Total, inv.CreatedAt)
	return err
}

func (s *Store) ListInvoices(ctx context.Context, customerID string) ([]models.Invoice, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, invoice_number, customer_id, ticket_id, subscription_id, payment_id,
			description, vehicle_info, subtotal, tax, total, created_at
		FROM invoices WHERE customer_id = $1 ORDER BY created_at DESC
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Invoice
	for rows.Next() {
		var inv models.Invoice
		if err := rows.Scan(&inv.ID, &inv.InvoiceNumber, &inv.CustomerID, &inv.TicketID, &inv.SubscriptionID, &inv.PaymentID,
			&inv.Description, &inv.VehicleInfo, &inv.Subtotal, &inv.Tax, &inv.Total, &inv.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, inv)
	}
	return out, rows.Err()
}

func (s *Store) GetConfirmation(ctx context.Context, id string) (models.PaymentConfirmation, error) {
	var c models.PaymentConfirmation
	err := s.Pool.QueryRow(ctx, `
		SELECT id, kind, target_id, status, reference, steps, payment_id, invoice_id, invoice_number,
			warnings, last_error, attempt, claimed_at, started_at, finished_at
		FROM payment_confirmations WHERE id = $1
	`, id).Scan(&c.ID, &c.Kind, &c.TargetID, &c.Status, &c.Reference, &c.Steps, &c.PaymentID, &c.InvoiceID, &c.InvoiceNumber,
		&c.Warnings, &c.LastError, &c.Attempt, &c.ClaimedAt, &c.StartedAt, &c.FinishedAt)
	return c, notFound(err)
}

// ClaimConfirmation stores c as the running attempt. Attempt 1 only inserts;
// later attempts only replace the row still at c.Attempt-1 that is not
// running, or whose running claim is older than staleBefore. It reports
// false when another caller holds or already took the claim.
func (s *Store) ClaimConfirmation(ctx context.Context, c models.PaymentConfirmation, staleBefore time.Time) (bool, error) {
	args := confirmationArgs(c)
	if c.Attempt <= 1 {
		tag, err := s.Pool.Exec(ctx, `
			INSERT INTO payment_confirmations (id, kind, target_id, status, reference, steps, payment_id, invoice_id,
				invoice_number, warnings, last_error, attempt, claimed_at, started_at, finished_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15)
			ON CONFLICT (id) DO NOTHING
		`, args...)
		if err != nil {
			return false, err
		}
		return tag.RowsAffected() == 1, nil
	}
	tag, err := s.Pool.Exec(ctx, `
		UPDATE payment_confirmations SET
			status = $4, reference = $5, steps = $6, payment_id = $7, invoice_id = $8,
			invoice_number = $9, warnings = $10, last_error = $11, attempt = $12,
			claimed_at = $13, started_at = $14, finished_at = $15
		WHERE id = $1 AND kind = $2 AND target_id = $3 AND attempt = $12 - 1
			AND (status <> 'running' OR claimed_at < $16)
	`, append(args, staleBefore)...)
	if err != nil {
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// SaveConfirmation records saga progress. Writes from an attempt that has
// since been superseded are dropped.
func (s *Store) SaveConfirmation(ctx context.Context, c models.PaymentConfirmation) error {
	_, err := s.Pool.Exec(ctx, `
		UPDATE payment_confirmations SET
			status = $4, reference = $5, steps = $6, payment_id = $7, invoice_id = $8,
			invoice_number = $9, warnings = $10, last_error = $11,
			claimed_at = $13, started_at = $14, finished_at = $15
		WHERE id = $1 AND kind = $2 AND target_id = $3 AND attempt = $12
	`, confirmationArgs(c)...)
	return err
}

func confirmationArgs(c models.PaymentConfirmation) []any {
	if c.Steps == nil {
		c.Steps = []string{}
	}
	if c.Warnings == nil {
		c.Warnings = []string{}
	}
	return []any{c.ID, c.Kind, c.TargetID, c.Status, c.Reference, c.Steps, c.PaymentID, c.InvoiceID,
		c.InvoiceNumber, c.Warnings, c.LastError, c.Attempt, c.ClaimedAt, c.StartedAt, c.FinishedAt}
}
