package service

import (
	"context"
	"errors"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

type PreferencesInput struct {
	BackgroundURL *string `json:"background_url" validate:"omitempty,url"`
	CardStyle     string  `json:"card_style" validate:"omitempty,oneof=default glass solid minimal"`
	FontSize      string  `json:"font_size" validate:"omitempty,oneof=small medium large"`
}

func defaultPreferences(customerID string) models.CustomerPreferences {
	return models.CustomerPreferences{CustomerID: customerID, CardStyle: "default", FontSize: "medium"}
}

func (s *Service) GetPreferences(ctx context.Context, customer models.Profile) (models.CustomerPreferences, error) {
	p, err := s.Store.GetPreferences(ctx, customer.ID)
	if errors.Is(err, ErrNotFound) {
		return defaultPreferences(customer.ID), nil
	}
	return p, err
}

// UpdatePreferences upserts by customer id; empty fields keep their value.
func (s *Service) UpdatePreferences(ctx context.Context, customer models.Profile, in PreferencesInput) (models.CustomerPreferences, error) {
	if err := s.check(in); err != nil {
		return models.CustomerPreferences{}, err
	}
	p, err := s.GetPreferences(ctx, customer)
	if err != nil {
		return p, err
	}
	if in.BackgroundURL != nil {
		p.BackgroundURL = in.BackgroundURL
		if *in.BackgroundURL == "" {
			p.BackgroundURL = nil
		}
	}
	if in.CardStyle != "" {
		p.CardStyle = in.CardStyle
	}
	if in.FontSize != "" {
		p.FontSize = in.FontSize
	}
	p.UpdatedAt = s.Now()
	if err := s.Store.UpsertPreferences(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}

func (s *Service) ListNotifications(ctx context.Context, user models.Profile, unreadOnly bool) ([]models.Notification, error) {
	return s.Store.ListNotifications(ctx, user.ID, unreadOnly)
}

func (s *Service) MarkNotificationRead(ctx context.Context, user models.Profile, id string) error {
	return s.Store.MarkNotificationRead(ctx, user.ID, id)
}

func (s *Service) MarkAllNotificationsRead(ctx context.Context, user models.Profile) (int64, error) {
	return s.Store.MarkAllNotificationsRead(ctx, user.ID)
}
