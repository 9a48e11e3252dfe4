package db

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/welcometodan-source/Techsupport-pro-sub000/internal/models"
)

// Integration tests expect migrations/001_init.sql applied to TEST_DATABASE_URL.
func testStore(t *testing.T) *Store {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	store, err := New(context.Background(), url)
	if err != nil {
		t.Fatalf("db connect: %v", err)
	}
	t.Cleanup(store.Close)
	return store
}

func createProfile(t *testing.T, s *Store, role string) string {
	t.Helper()
	id := uuid.NewString()
	_, err := s.Pool.Exec(context.Background(),
		`INSERT INTO profiles (id, email, full_name, role) VALUES ($1, $2, $3, $4)`,
		id, id+"@example.com", "Test "+role, role)
	if err != nil {
		t.Fatalf("insert profile: %v", err)
	}
	return id
}

func TestTicketRoundTripIntegration(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	customer := createProfile(t, s, models.RoleCustomer)
	tech := createProfile(t, s, models.RoleTechnician)

	now := time.Now().UTC().Truncate(time.Millisecond)
	tk := models.Ticket{
		ID: uuid.NewString(), CustomerID: customer, Title: "Engine light", Description: "Blinking",
		Status: models.StatusOpen, Priority: "medium", Category: "engine", VehicleYear: 2019,
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.CreateTicket(ctx, tk); err != nil {
		t.Fatalf("create: %v", err)
	}
	tk.AssignedTechnicianID = &tech
	tk.Status = models.StatusInProgress
	tk.EstimatedCost = 120.5
	if err := s.UpdateTicket(ctx, tk); err != nil {
		t.Fatalf("update: %v", err)
	}
	got, err := s.GetTicket(ctx, tk.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Status != models.StatusInProgress || !got.AssignedTo(tech) || got.EstimatedCost != 120.5 {
		t.Fatalf("unexpected ticket %+v", got)
	}
	loads, err := s.TechnicianLoads(ctx)
	if err != nil || loads[tech] != 1 {
		t.Fatalf("expected load 1, got %v err=%v", loads[tech], err)
	}
	if _, err := s.GetTicket(ctx, uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	later := now.Add(time.Minute)
	msg := models.TicketMessage{ID: uuid.NewString(), TicketID: tk.ID, SenderID: &customer, Message: "hi", MessageType: models.MessageText, CreatedAt: later}
	if err := s.InsertMessage(ctx, msg); err != nil {
		t.Fatalf("insert message: %v", err)
	}
	got, _ = s.GetTicket(ctx, tk.ID)
	if !got.UpdatedAt.Equal(later) {
		t.Fatalf("expected message to bump updated_at, got %v", got.UpdatedAt)
	}
	orphan := msg
	orphan.ID, orphan.TicketID = uuid.NewString(), uuid.NewString()
	if err := s.InsertMessage(ctx, orphan); err == nil {
		t.Fatalf("expected insert on a missing ticket to fail")
	}
	n, err := s.MarkMessagesRead(ctx, tk.ID, tech)
	if err != nil || n != 1 {
		t.Fatalf("expected one message marked read, got %d err=%v", n, err)
	}
}

func TestInvoiceNumberIntegration(t *testing.T) {
	s := testStore(t)
	n, err := s.NextInvoiceNumber(context.Background())
	if err != nil {
		t.Fatalf("invoice number: %v", err)
	}
	if !strings.HasPrefix(n, "INV-") {
		t.Fatalf("unexpected invoice number %s", n)
	}
}

func TestConfirmationClaimIntegration(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	target := uuid.NewString()
	now := time.Now().UTC()
	c := models.PaymentConfirmation{
		ID: "initial:" + target, Kind: models.PaymentInitial, TargetID: target,
		Status: models.ConfirmationRunning, Attempt: 1, ClaimedAt: now, StartedAt: now,
	}
	if ok, err := s.ClaimConfirmation(ctx, c, now.Add(-time.Minute)); err != nil || !ok {
		t.Fatalf("first claim: ok=%v err=%v", ok, err)
	}
	if ok, err := s.ClaimConfirmation(ctx, c, now.Add(-time.Minute)); err != nil || ok {
		t.Fatalf("second insert must lose: ok=%v err=%v", ok, err)
	}
	rival := c
	rival.Attempt = 2
	if ok, err := s.ClaimConfirmation(ctx, rival, now.Add(-time.Minute)); err != nil || ok {
		t.Fatalf("running claim must not be taken over: ok=%v err=%v", ok, err)
	}

	c.Steps = []string{"flags", "payment"}
	c.Status = models.ConfirmationFailed
	if err := s.SaveConfirmation(ctx, c); err != nil {
		t.Fatalf("save: %v", err)
	}
	rival.Steps = c.Steps
	if ok, err := s.ClaimConfirmation(ctx, rival, now.Add(-time.Minute)); err != nil || !ok {
		t.Fatalf("failed run should be claimable: ok=%v err=%v", ok, err)
	}
	c.Status = models.ConfirmationCompleted
	if err := s.SaveConfirmation(ctx, c); err != nil {
		t.Fatalf("stale save: %v", err)
	}
	got, err := s.GetConfirmation(ctx, c.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Attempt != 2 || got.Status != models.ConfirmationRunning || !got.Done("payment") {
		t.Fatalf("superseded attempt overwrote the row: %+v", got)
	}
}

func TestDeleteUserIntegration(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	id := createProfile(t, s, models.RoleCustomer)
	if err := s.DeleteUser(ctx, id); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.GetProfile(ctx, id); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected profile gone, got %v", err)
	}
	if err := s.DeleteUser(ctx, id); err == nil {
		t.Fatalf("expected error deleting a missing user")
	}
}

func TestWideRowsStillWriteIntegration(t *testing.T) {
	s := testStore(t)
	ctx := context.Background()
	customer := createProfile(t, s, models.RoleCustomer)
	tech := createProfile(t, s, models.RoleTechnician)

	now := time.Now().UTC()
	tk := models.Ticket{
		ID: uuid.NewString(), CustomerID: customer, Title: "Long report",
		Description: strings.Repeat("ж", 5000),
		Status:      models.StatusOpen, Priority: "medium", Category: "general",
		CreatedAt: now, UpdatedAt: now,
	}
	if err := s.CreateTicket(ctx, tk); err != nil {
		t.Fatalf("create wide ticket: %v", err)
	}
	tk.AssignedTechnicianID = &tech
	tk.Status = models.StatusInProgress
	if err := s.UpdateTicket(ctx, tk); err != nil {
		t.Fatalf("update wide ticket: %v", err)
	}
	msg := models.TicketMessage{
		ID: uuid.NewString(), TicketID: tk.ID, SenderID: &customer,
		Message: strings.Repeat("ж", 4000), MessageType: models.MessageText, CreatedAt: now,
	}
	if err := s.InsertMessage(ctx, msg); err != nil {
		t.Fatalf("insert wide message: %v", err)
	}
	if n, err := s.MarkMessagesRead(ctx, tk.ID, tech); err != nil || n != 1 {
		t.Fatalf("mark read: n=%d err=%v", n, err)
	}
}
