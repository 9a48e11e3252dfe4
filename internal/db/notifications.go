package db

import (
	"context"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

func (s *Store) InsertNotification(ctx context.Context, n models.Notification) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO notifications (id, user_id, title, body, kind, ticket_id, is_read, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
	`, n.ID, n.UserID, n.Title, n.Body, n.Kind, n.TicketID, n.IsRead, n.CreatedAt)
	return err
}

func (s *Store) ListNotifications(ctx context.Context, userID string, unreadOnly bool) ([]models.Notification, error) {
	var w where
	w.add("user_id = $%d", userID)
	if unreadOnly {
		w.clauses = append(w.clauses, "is_read = FALSE")
	}
	rows, err := s.Pool.Query(ctx, `
		SELECT id, user_id, title, body, kind, ticket_id, is_read, created_at
		FROM notifications`+w.String()+` ORDER BY created_at DESC`+w.limit(100), w.args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.Notification
	for rows.Next() {
		var n models.Notification
		if err := rows.Scan(&n.ID, &n.UserID, &n.Title, &n.Body, &n.Kind, &n.TicketID, &n.IsRead, &n.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *Store) MarkNotificationRead(ctx context.Context, userID, id string) error {
	return mustAffect(s.Pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1 AND user_id = $2`, id, userID))
}

func (s *Store) MarkAllNotificationsRead(ctx context.Context, userID string) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `UPDATE notifications SET is_read = TRUE WHERE user_id = $1 AND is_read = FALSE`, userID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}

func (s *Store) GetPreferences(ctx context.Context, customerID string) (models.CustomerPreferences, error) {
	var p models.CustomerPreferences
	err := s.Pool.QueryRow(ctx, `
		SELECT customer_id, background_url, card_style, font_size, updated_at
		FROM customer_preferences WHERE customer_id = $1
	`, customerID).Scan(&p.CustomerID, &p.BackgroundURL, &p.CardStyle, &p.FontSize, &p.UpdatedAt)
	return p, notFound(err)
}

func (s *Store) UpsertPreferences(ctx context.Context, p models.CustomerPreferences) error {
	_, err := s.Pool.Exec(ctx, `
		INSERT INTO customer_preferences (customer_id, background_url, card_style, font_size, updated_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (customer_id) DO UPDATE SET
			background_url = EXCLUDED.background_url,
			card_style = EXCLUDED.card_style,
			font_size = EXCLUDED.font_size,
			updated_at = EXCLUDED.updated_at
	`, p.CustomerID, p.BackgroundURL, p.CardStyle, p.FontSize, p.UpdatedAt)
	return err
}
