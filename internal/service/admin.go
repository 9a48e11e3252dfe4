package service

import (
	"context"
	"fmt"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

var vipTiers = map[string]bool{"silver": true, "gold": true, "platinum": true}

type PendingPayments struct {
	Tickets       []models.Ticket               `json:"tickets"`
	Subscriptions []models.CustomerSubscription `json:"subscriptions"`
}

func (s *Service) ListUsers(ctx context.Context, admin models.Profile, role string) ([]models.Profile, error) {
	if !admin.IsAdmin() {
		return nil, ErrForbidden
	}
	return s.Store.ListProfiles(ctx, role)
}

// ReviewTechnician approves or rejects a technician application.
func (s *Service) ReviewTechnician(ctx context.Context, admin models.Profile, userID string, approve bool) (models.Profile, error) {
	if !admin.IsAdmin() {
		return models.Profile{}, ErrForbidden
	}
	p, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		return p, err
	}
	if p.Role != models.RoleTechnician {
		return p, fmt.Errorf("%w: user is not a technician", ErrInvalidInput)
	}
	status := models.TechnicianRejected
	if approve {
		status = models.TechnicianApproved
	}
	p.TechnicianStatus = &status
	if err := s.Store.UpdateProfile(ctx, p); err != nil {
		return p, err
	}
	s.notifyUser(ctx, p.ID, "status", "Application "+status, "Your technician application was "+status+".", nil)
	return p, nil
}

func (s *Service) SetBlocked(ctx context.Context, admin models.Profile, userID string, blocked bool) (models.Profile, error) {
	if !admin.IsAdmin() {
		return models.Profile{}, ErrForbidden
	}
	if userID == admin.ID {
		return models.Profile{}, fmt.Errorf("%w: admins cannot block themselves", ErrInvalidInput)
	}
	p, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		return p, err
	}
	p.Status = models.ProfileActive
	if blocked {
		p.Status = models.ProfileBlocked
	}
	if err := s.Store.UpdateProfile(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}

// SetVIPTier sets or clears (empty tier) the customer's VIP tier.
func (s *Service) SetVIPTier(ctx context.Context, admin models.Profile, userID, tier string) (models.Profile, error) {
	if !admin.IsAdmin() {
		return models.Profile{}, ErrForbidden
	}
	if tier != "" && !vipTiers[tier] {
		return models.Profile{}, fmt.Errorf("%w: unknown vip tier %q", ErrInvalidInput, tier)
	}
	p, err := s.Store.GetProfile(ctx, userID)
	if err != nil {
		return p, err
	}
	p.VIPTier = nil
	if tier != "" {
		p.VIPTier = &tier
	}
	if err := s.Store.UpdateProfile(ctx, p); err != nil {
		return p, err
	}
	return p, nil
}

// DeleteUser runs the cascade procedure once. Failures are returned to the
// admin as-is and not retried.
func (s *Service) DeleteUser(ctx context.Context, admin models.Profile, userID string) error {
	if !admin.IsAdmin() {
		return ErrForbidden
	}
	if userID == admin.ID {
		return fmt.Errorf("%w: admins cannot delete themselves", ErrInvalidInput)
	}
	if err := s.Store.DeleteUser(ctx, userID); err != nil {
		return fmt.Errorf("delete user %s: %w", userID, err)
	}
	s.Logger.Info().Str("user_id", userID).Str("admin_id", admin.ID).Msg("user deleted")
	return nil
}

func (s *Service) PendingPayments(ctx context.Context, admin models.Profile) (PendingPayments, error) {
	if !admin.IsAdmin() {
		return PendingPayments{}, ErrForbidden
	}
	tickets, err := s.Store.AwaitingConfirmation(ctx)
	if err != nil {
		return PendingPayments{}, err
	}
	subs, err := s.Store.ListSubscriptions(ctx, "", models.SubscriptionPendingPayment)
	if err != nil {
		return PendingPayments{}, err
	}
	return PendingPayments{Tickets: tickets, Subscriptions: subs}, nil
}
