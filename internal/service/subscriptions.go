package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

type SubscribeInput struct {
	PlanID       string `json:"plan_id" validate:"required"`
	VehicleCount int    `json:"vehicle_count" validate:"omitempty,min=1"`
}

type SubscriptionPaymentInput struct {
	Reference string `json:"reference" validate:"required,max=120"`
}

func (s *Service) ListPlans(ctx context.Context) ([]models.SubscriptionPlan, error) {
	return s.Store.ListPlans(ctx)
}

func (s *Service) Subscribe(ctx context.Context, customer models.Profile, in SubscribeInput) (models.CustomerSubscription, error) {
	if customer.Role != models.RoleCustomer {
		return models.CustomerSubscription{}, ErrForbidden
	}
	if err := s.check(in); err != nil {
		return models.CustomerSubscription{}, err
	}
	plan, err := s.Store.GetPlan(ctx, in.PlanID)
	if err != nil {
		return models.CustomerSubscription{}, fmt.Errorf("plan %s: %w", in.PlanID, err)
	}
	if !plan.Active {
		return models.CustomerSubscription{}, fmt.Errorf("%w: plan is not available", ErrInvalidInput)
	}
	count := in.VehicleCount
	if count == 0 {
		count = 1
	}
	if plan.VehicleLimit > 0 && count > plan.VehicleLimit {
		return models.CustomerSubscription{}, fmt.Errorf("%w: plan covers at most %d vehicles", ErrInvalidInput, plan.VehicleLimit)
	}
	sub := models.CustomerSubscription{
		ID:                 s.NewID(),
		UserID:             customer.ID,
		SubscriptionPlanID: plan.ID,
		Status:             models.SubscriptionPendingPayment,
		VehicleCount:       count,
		CreatedAt:          s.Now(),
	}
	if err := s.Store.CreateSubscription(ctx, sub); err != nil {
		return models.CustomerSubscription{}, err
	}
	return sub, nil
}

func (s *Service) PaySubscription(ctx context.Context, customer models.Profile, subID string, in SubscriptionPaymentInput) (models.CustomerSubscription, error) {
	if err := s.check(in); err != nil {
		return models.CustomerSubscription{}, err
	}
	sub, err := s.Store.GetSubscription(ctx, subID)
	if err != nil {
		return sub, err
	}
	if sub.UserID != customer.ID {
		return sub, ErrForbidden
	}
	if sub.Status != models.SubscriptionPendingPayment {
		return sub, fmt.Errorf("%w: subscription is %s", ErrInvalidTransition, sub.Status)
	}
	sub.PaymentReference = strings.TrimSpace(in.Reference)
	if err := s.Store.UpdateSubscription(ctx, sub); err != nil {
		return sub, err
	}
	s.notifyAdmins(ctx, "payment_submitted", "Subscription payment awaiting confirmation",
		fmt.Sprintf("Reference %s", sub.PaymentReference), nil)
	return sub, nil
}

func (s *Service) CancelSubscription(ctx context.Context, actor models.Profile, subID string) (models.CustomerSubscription, error) {
	sub, err := s.Store.GetSubscription(ctx, subID)
	if err != nil {
		return sub, err
	}
	if !actor.IsAdmin() && sub.UserID != actor.ID {
		return sub, ErrForbidden
	}
	if sub.Status == models.SubscriptionCancelled {
		return sub, fmt.Errorf("%w: subscription already cancelled", ErrAlreadyDone)
	}
	sub.Status = models.SubscriptionCancelled
	if err := s.Store.UpdateSubscription(ctx, sub); err != nil {
		return sub, err
	}
	return sub, nil
}

func (s *Service) ListSubscriptions(ctx context.Context, actor models.Profile, status string) ([]models.CustomerSubscription, error) {
	userID := actor.ID
	if actor.IsAdmin() {
		userID = ""
	}
	return s.Store.ListSubscriptions(ctx, userID, status)
}

func (s *Service) HasActiveSubscription(ctx context.Context, userID string) (bool, error) {
	return s.Store.HasActiveSubscription(ctx, userID)
}
