package db

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

// InsertMessage stores the message and bumps the ticket's updated_at so
// ticket lists resort on new activity.
func (s *Store) InsertMessage(ctx context.Context, m models.TicketMessage) error {
	return s.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `
			INSERT INTO ticket_messages (id, ticket_id, sender_id, message, message_type, media_url, is_read, created_at)
			VALUES ($1,$2,$3,$4,$5,$6,$7,$8)
		`, m.ID, m.TicketID, m.SenderID, m.Message, m.MessageType, m.MediaURL, m.IsRead, m.CreatedAt); err != nil {
			return err
		}
		return mustAffect(tx.Exec(ctx, `UPDATE support_tickets SET updated_at = $2 WHERE id = $1`, m.TicketID, m.CreatedAt))
	})
}

func (s *Store) ListMessages(ctx context.Context, ticketID string) ([]models.TicketMessage, error) {
	rows, err := s.Pool.Query(ctx, `
		SELECT id, ticket_id, sender_id, message, message_type, media_url, is_read, created_at
		FROM ticket_messages WHERE ticket_id = $1 ORDER BY created_at ASC, id ASC
	`, ticketID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.TicketMessage
	for rows.Next() {
		var m models.TicketMessage
		if err := rows.Scan(&m.ID, &m.TicketID, &m.SenderID, &m.Message, &m.MessageType, &m.MediaURL, &m.IsRead, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MarkMessagesRead flags messages on the ticket that the reader did not send.
func (s *Store) MarkMessagesRead(ctx context.Context, ticketID, readerID string) (int64, error) {
	tag, err := s.Pool.Exec(ctx, `
		UPDATE ticket_messages SET is_read = TRUE
		WHERE ticket_id = $1 AND is_read = FALSE AND (sender_id IS NULL OR sender_id <> $2)
	`, ticketID, readerID)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
