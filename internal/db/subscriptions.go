package db

import (
	"context"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

const subscriptionColumns = `id, user_id, subscription_plan_id, status, payment_confirmed, payment_reference, vehicle_count, started_at, created_at`

func scanSubscription(row rowScanner) (models.CustomerSubscription, error) {
	var sub models.CustomerSubscription
	err := row.Scan(&sub.ID, &sub.UserID, &sub.SubscriptionPlanID, &sub.Status, &sub.PaymentConfirmed,
		&sub.PaymentReference, &sub.VehicleCount, &sub.StartedAt, &sub.CreatedAt)
	return sub, err
}

func (s *Store) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	rows, err := s.Pool.Query(ctx, `SELECT id, name, price, vehicle_limit, visits_per_month, active FROM subscription_plans WHERE active ORDER BY price ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.SubscriptionPlan
	for rows.Next() {
		var p models.SubscriptionPlan
		if err := rows.Scan(&p.ID, &p.Name, &p.Price, &p.VehicleLimit, &p.VisitsPerMonth, &p.Active); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (s *Store) GetPlan(ctx context.Context, id string) (models.SubscriptionPlan, error) {
	var p models.SubscriptionPlan
	err := s.Pool.QueryRow(ctx, `SELECT id, name, price, vehicle_limit, visits_per_month, active FROM subscription_plans WHERE id = $1`, id).
		Scan(&p.ID, &p.Name, &p.Price, &p.VehicleLimit, &p.VisitsPerMonth, &p.Active)
	return p, notFound(err)
}

func (s *Store) CreateSubscription(ctx context.Context, sub models.CustomerSubscription) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO customer_subscriptions (id, user_id, subscription_plan_id, status, payment_confirmed, payment_reference, vehicle_count, started_at, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
	`, sub.ID, sub.UserID, sub.SubscriptionPlanID, sub.Status, sub.PaymentConfirmed, sub.PaymentReference, sub.VehicleCount, sub.StartedAt, sub.CreatedAt)
	return err
}

func (s *Store) GetSubscription(ctx context.Context, id string) (models.CustomerSubscription, error) {
	sub, err := scanSubscription(s.Pool.QueryRow(ctx, `SELECT `+subscriptionColumns+` FROM customer_subscriptions WHERE id = $1`, id))
	return sub, notFound(err)
}

func (s *Store) UpdateSubscription(ctx context.Context, sub models.CustomerSubscription) error {
	return mustAffect(s.Pool.Exec(ctx, `
		UPDATE customer_subscriptions SET status = $2, payment_confirmed = $3, payment_reference = $4, started_at = $5
		WHERE id = $1
	`, sub.ID, sub.Status, sub.PaymentConfirmed, sub.PaymentReference, sub.StartedAt))
}

// ListSubscriptions filters by user and status; empty values match everything.
func (s *Store) ListSubscriptions(ctx context.Context, userID, status string) ([]models.CustomerSubscription, error) {
	var w where
	if userID != "" {
		w.add("user_id = $%d", userID)
	}
	if status != "" {
		w.add("status = $%d", status)
	}
	rows, err := s.Pool.Query(ctx, `SELECT `+subscriptionColumns+` FROM customer_subscriptions`+w.String()+` ORDER BY created_at DESC`, w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.CustomerSubscription
	for rows.Next() {
		sub, err := scanSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func (s *Store) HasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	var ok bool
	err := s.Pool.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM customer_subscriptions WHERE user_id = $1 AND status = 'active' AND payment_confirmed)
	`, userID).Scan(&ok)
	return ok, err
}
