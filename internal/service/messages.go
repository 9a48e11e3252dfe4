package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

type SendMessageInput struct {
	MessageType string `json:"message_type" validate:"omitempty,oneof=text image video audio file"`
	Message     string `json:"message" validate:"max=4000"`
	MediaURL    string `json:"media_url" validate:"omitempty,url"`
}

func (s *Service) ListMessages(ctx context.Context, actor models.Profile, ticketID string) ([]models.TicketMessage, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return nil, err
	}
	return s.Store.ListMessages(ctx, ticketID)
}

// SendMessage appends a chat line. Chat is closed until work is authorized.
func (s *Service) SendMessage(ctx context.Context, actor models.Profile, ticketID string, in SendMessageInput) (models.TicketMessage, error) {
	if err := s.check(in); err != nil {
		return models.TicketMessage{}, err
	}
	t, err := s.GetTicket(ctx, actor, ticketID)
	if err != nil {
		return models.TicketMessage{}, err
	}
	if !CanChat(t, actor) {
		return models.TicketMessage{}, ErrWorkNotAuthorized
	}
	kind := in.MessageType
	if kind == "" {
		kind = models.MessageText
	}
	text := strings.TrimSpace(in.Message)
	m := models.TicketMessage{
		ID:          s.NewID(),
		TicketID:    t.ID,
		Message:     text,
		MessageType: kind,
		CreatedAt:   s.Now(),
	}
	sender := actor.ID
	m.SenderID = &sender
	if kind == models.MessageText {
		if text == "" {
			return models.TicketMessage{}, fmt.Errorf("%w: message is empty", ErrInvalidInput)
		}
	} else {
		if in.MediaURL == "" {
			return models.TicketMessage{}, fmt.Errorf("%w: %s message needs media_url", ErrInvalidInput, kind)
		}
		url := in.MediaURL
		m.MediaURL = &url
	}
	if err := s.Store.InsertMessage(ctx, m); err != nil {
		return models.TicketMessage{}, err
	}

	recipient := t.CustomerID
	if actor.ID == t.CustomerID && t.AssignedTechnicianID != nil {
		recipient = *t.AssignedTechnicianID
	}
	if recipient != actor.ID {
		preview := text
		if preview == "" {
			preview = "Sent a " + kind
		}
		s.notifyUser(ctx, recipient, "message", "New message on "+t.Title, preview, &t.ID)
	}
	return m, nil
}

func (s *Service) MarkMessagesRead(ctx context.Context, actor models.Profile, ticketID string) (int64, error) {
	if _, err := s.GetTicket(ctx, actor, ticketID); err != nil {
		return 0, err
	}
	return s.Store.MarkMessagesRead(ctx, ticketID, actor.ID)
}
